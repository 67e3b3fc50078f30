package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-telegram/bot/models"
	"github.com/smith3v/memory-pairs/pkg/game"
)

const (
	BoardColumns = 4
	hiddenCard   = "❓"
)

var powerUpLabels = map[game.PowerUp]string{
	game.PowerUpPeek:       "👁 Peek",
	game.PowerUpTimeFreeze: "⏸ Time freeze",
}

// RenderBoard draws the board as an inline keyboard. Cards in revealed are
// shown face up for this render only; they stay flippable. note is appended
// to the status text.
func RenderBoard(view game.View, revealed map[int]string, note string) (string, *models.InlineKeyboardMarkup, error) {
	noopData, err := BuildNoopCallback()
	if err != nil {
		return "", nil, err
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(view.Cards)/BoardColumns+2)
	var row []models.InlineKeyboardButton
	for _, card := range view.Cards {
		button := models.InlineKeyboardButton{Text: card.Symbol, CallbackData: noopData}
		switch {
		case card.Matched, card.FaceUp:
		case view.Completed:
			button.Text = hiddenCard
		default:
			data, err := BuildFlipCallback(view.ID, card.Index)
			if err != nil {
				return "", nil, err
			}
			button.Text = hiddenCard
			if symbol, ok := revealed[card.Index]; ok {
				button.Text = symbol
			}
			button.CallbackData = data
		}
		row = append(row, button)
		if len(row) == BoardColumns {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	if view.Completed {
		againData, err := BuildNewGameCallback(view.Difficulty, view.Theme)
		if err != nil {
			return "", nil, err
		}
		rows = append(rows, []models.InlineKeyboardButton{{Text: "🔁 Play again", CallbackData: againData}})
	} else if powerRow, err := renderPowerUps(view); err != nil {
		return "", nil, err
	} else if len(powerRow) > 0 {
		rows = append(rows, powerRow)
	}

	return boardText(view, note), &models.InlineKeyboardMarkup{InlineKeyboard: rows}, nil
}

func renderPowerUps(view game.View) ([]models.InlineKeyboardButton, error) {
	owned := make([]game.PowerUp, 0, len(view.PowerUps))
	for p, n := range view.PowerUps {
		if n > 0 {
			owned = append(owned, p)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i] < owned[j] })

	buttons := make([]models.InlineKeyboardButton, 0, len(owned))
	for _, p := range owned {
		data, err := BuildPowerUpCallback(view.ID, p)
		if err != nil {
			return nil, err
		}
		buttons = append(buttons, models.InlineKeyboardButton{
			Text:         fmt.Sprintf("%s ×%d", powerUpLabel(p), view.PowerUps[p]),
			CallbackData: data,
		})
	}
	return buttons, nil
}

func boardText(view game.View, note string) string {
	var b strings.Builder
	title := themeName(view.Theme)
	if view.Daily {
		title = "Daily challenge: " + title
	}
	fmt.Fprintf(&b, "%s (%s)\n", title, view.Difficulty)
	fmt.Fprintf(&b, "Moves: %d | Pairs: %d/%d", view.Moves, view.PairsFound, view.PairsNeeded)
	if view.Completed {
		fmt.Fprintf(&b, "\nSolved in %d moves and %ds.", view.Moves, view.ElapsedSeconds)
	}
	if note != "" {
		b.WriteString("\n\n")
		b.WriteString(note)
	}
	return b.String()
}

func themeName(id string) string {
	if theme, err := game.ParseTheme(id); err == nil {
		return theme.Name
	}
	return id
}

func powerUpLabel(p game.PowerUp) string {
	if label, ok := powerUpLabels[p]; ok {
		return label
	}
	return string(p)
}
