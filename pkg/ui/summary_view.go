package ui

import (
	"fmt"
	"strings"

	"github.com/smith3v/memory-pairs/pkg/game"
)

func FormatStats(stats game.Stats) string {
	best := "none yet"
	if stats.BestTimeSeconds != nil {
		best = fmt.Sprintf("%ds", *stats.BestTimeSeconds)
	}
	return fmt.Sprintf(
		"Your stats\n- Games won: %d\n- Total moves: %d\n- Best time: %s\n- Win streak: %d",
		stats.GamesPlayed,
		stats.TotalMoves,
		best,
		stats.WinStreak,
	)
}

func FormatAchievements(list []game.AchievementStatus) string {
	var b strings.Builder
	b.WriteString("Achievements")
	for _, a := range list {
		mark := "🔒"
		if a.Earned {
			mark = "🏆"
		}
		fmt.Fprintf(&b, "\n%s %s: %s", mark, a.Name, a.Description)
	}
	return b.String()
}

// FormatFlipNote describes what a flip did, or returns "" for the first card
// of a pair.
func FormatFlipNote(outcome game.FlipOutcome) string {
	var lines []string
	result := outcome.Result
	switch result.Kind {
	case game.FlipMismatch:
		symbols := make([]string, 0, len(result.Revealed))
		for _, c := range result.Revealed {
			symbols = append(symbols, c.Symbol)
		}
		lines = append(lines, fmt.Sprintf("No match: %s. Those cards turn back over.", strings.Join(symbols, " ≠ ")))
	case game.FlipMatched:
		lines = append(lines, fmt.Sprintf("Match! %s", result.Symbol))
	case game.FlipCompleted:
		lines = append(lines, fmt.Sprintf("All pairs found! %s", result.Symbol))
	}
	if result.PowerUp != "" {
		lines = append(lines, "Power-up earned: "+powerUpLabel(result.PowerUp))
	}
	for _, a := range outcome.Achievements {
		lines = append(lines, "Achievement unlocked: 🏆 "+a.Name)
	}
	return strings.Join(lines, "\n")
}

// Revealed maps the cards a mismatch or peek exposed to their symbols.
func Revealed(cards []game.RevealedCard) map[int]string {
	out := make(map[int]string, len(cards))
	for _, c := range cards {
		out[c.Index] = c.Symbol
	}
	return out
}

func FormatPowerUpNote(effect game.PowerUpEffect) string {
	if effect.PowerUp == game.PowerUpPeek {
		return fmt.Sprintf("Peek: %d cards revealed until your next move.", len(effect.Revealed))
	}
	return powerUpLabel(effect.PowerUp) + " used."
}

func FormatCatalog() string {
	var b strings.Builder
	b.WriteString("Difficulties:")
	for _, d := range game.Difficulties() {
		fmt.Fprintf(&b, " %s (%d pairs)", d, d.Pairs())
	}
	b.WriteString("\nThemes:")
	for _, t := range game.Themes() {
		fmt.Fprintf(&b, " %s", t.ID)
	}
	return b.String()
}
