package game

import (
	"strings"

	"github.com/gosimple/slug"
)

// Difficulty selects how many pairs a deck holds.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// HardestDifficulty is the tier the speed achievement is measured on.
const HardestDifficulty = Hard

var difficultyPairs = map[Difficulty]int{
	Easy:   6,
	Medium: 8,
	Hard:   12,
}

// Difficulties lists the tiers from easiest to hardest.
func Difficulties() []Difficulty {
	return []Difficulty{Easy, Medium, Hard}
}

// Pairs returns the pair count for d, or 0 for an unknown tier.
func (d Difficulty) Pairs() int {
	return difficultyPairs[d]
}

func ParseDifficulty(value string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := difficultyPairs[d]; !ok {
		return "", newError(CodeInvalidDifficulty, "unknown difficulty %q", value)
	}
	return d, nil
}

// Theme is a named symbol palette.
type Theme struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
}

func newTheme(name string, symbols ...string) Theme {
	return Theme{ID: slug.Make(name), Name: name, Symbols: symbols}
}

var themes = []Theme{
	newTheme("Animals", "🐶", "🐱", "🐭", "🐹", "🐰", "🦊", "🐻", "🐼", "🐨", "🐯", "🦁", "🐮", "🐷", "🐸", "🐵", "🐔"),
	newTheme("Fruits", "🍎", "🍐", "🍊", "🍋", "🍌", "🍉", "🍇", "🍓", "🫐", "🍒", "🍑", "🥭", "🍍", "🥥", "🥝"),
	newTheme("Ocean Life", "🐳", "🐬", "🐟", "🐠", "🐡", "🦈", "🐙", "🦑", "🦀", "🦞", "🦐", "🐚", "🪼", "🦭"),
	newTheme("Space", "🌍", "🌙", "⭐", "☀️", "🪐", "☄️", "🚀", "🛸", "🛰️", "🌌", "🔭", "👽", "🌠"),
	newTheme("Sports", "⚽", "🏀", "🏈", "⚾", "🎾", "🏐", "🏉", "🎱", "🏓", "🏸", "🥊", "⛳", "🏒", "🥏"),
}

// Themes returns the theme catalog in display order.
func Themes() []Theme {
	out := make([]Theme, len(themes))
	copy(out, themes)
	return out
}

func lookupTheme(id string) (Theme, bool) {
	for _, theme := range themes {
		if theme.ID == id {
			return theme, true
		}
	}
	return Theme{}, false
}

// ParseTheme accepts a theme id or display name in any case.
func ParseTheme(value string) (Theme, error) {
	theme, ok := lookupTheme(slug.Make(value))
	if !ok {
		return Theme{}, newError(CodeInvalidTheme, "unknown theme %q", value)
	}
	return theme, nil
}

// PowerUp identifies a consumable granted during play.
type PowerUp string

const (
	PowerUpPeek       PowerUp = "peek"
	PowerUpTimeFreeze PowerUp = "time_freeze"
)

// PowerUps lists the power-up catalog; grants are drawn uniformly from it.
func PowerUps() []PowerUp {
	return []PowerUp{PowerUpPeek, PowerUpTimeFreeze}
}

func ParsePowerUp(value string) (PowerUp, bool) {
	p := PowerUp(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range PowerUps() {
		if p == known {
			return p, true
		}
	}
	return "", false
}
