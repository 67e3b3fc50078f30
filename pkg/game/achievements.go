package game

import (
	"time"

	"github.com/smith3v/memory-pairs/pkg/logger"
)

const (
	AchievementSpeedDemon     = "speed_demon"
	AchievementPerfectMemory  = "perfect_memory"
	AchievementThemeCollector = "theme_collector"
	AchievementHotStreak      = "hot_streak"
)

const (
	// SpeedLimit is the slowest hardest-tier completion that still counts as fast.
	SpeedLimit = 90 * time.Second
	// StreakThreshold is the win streak that unlocks hot_streak.
	StreakThreshold = 3
)

// Achievement is a catalog entry.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CompletedGame holds the facts of a finished game.
type CompletedGame struct {
	Difficulty  Difficulty
	Theme       string
	Moves       int
	PairsNeeded int
	Duration    time.Duration
}

// History is what persistence knows about the player once the game has been
// recorded: the distinct themes won, the updated win streak and the ids of
// achievements already earned.
type History struct {
	ThemesWon []string
	WinStreak int
	Earned    []string
}

type rule struct {
	Achievement
	unlocked func(CompletedGame, History) bool
}

var achievementRules = []rule{
	{
		Achievement: Achievement{
			ID:          AchievementSpeedDemon,
			Name:        "Speed Demon",
			Description: "Finish a hard game in 90 seconds or less.",
		},
		unlocked: func(g CompletedGame, _ History) bool {
			return g.Difficulty == HardestDifficulty && g.Duration <= SpeedLimit
		},
	},
	{
		Achievement: Achievement{
			ID:          AchievementPerfectMemory,
			Name:        "Perfect Memory",
			Description: "Finish a game without a single mismatch.",
		},
		unlocked: func(g CompletedGame, _ History) bool {
			return g.PairsNeeded > 0 && g.Moves == g.PairsNeeded
		},
	},
	{
		Achievement: Achievement{
			ID:          AchievementThemeCollector,
			Name:        "Theme Collector",
			Description: "Win at least one game in every theme.",
		},
		unlocked: func(g CompletedGame, h History) bool {
			won := make(map[string]struct{}, len(h.ThemesWon)+1)
			for _, theme := range h.ThemesWon {
				won[theme] = struct{}{}
			}
			won[g.Theme] = struct{}{}
			for _, theme := range themes {
				if _, ok := won[theme.ID]; !ok {
					return false
				}
			}
			return true
		},
	},
	{
		Achievement: Achievement{
			ID:          AchievementHotStreak,
			Name:        "Hot Streak",
			Description: "Win three games in a row.",
		},
		unlocked: func(_ CompletedGame, h History) bool {
			return h.WinStreak >= StreakThreshold
		},
	},
}

// Achievements returns the catalog in evaluation order.
func Achievements() []Achievement {
	out := make([]Achievement, 0, len(achievementRules))
	for _, r := range achievementRules {
		out = append(out, r.Achievement)
	}
	return out
}

// LookupAchievement finds a catalog entry by id.
func LookupAchievement(id string) (Achievement, bool) {
	for _, r := range achievementRules {
		if r.ID == id {
			return r.Achievement, true
		}
	}
	return Achievement{}, false
}

// Evaluate returns the achievements game unlocks that are not already in
// history.Earned, in catalog order.
func Evaluate(userID int64, game CompletedGame, history History) []Achievement {
	earned := make(map[string]struct{}, len(history.Earned))
	for _, id := range history.Earned {
		earned[id] = struct{}{}
	}

	var unlocked []Achievement
	for _, r := range achievementRules {
		if _, ok := earned[r.ID]; ok {
			continue
		}
		if r.unlocked(game, history) {
			unlocked = append(unlocked, r.Achievement)
		}
	}
	if len(unlocked) > 0 {
		logger.Debug("achievements unlocked", "user_id", userID, "count", len(unlocked))
	}
	return unlocked
}
