package game

import (
	crand "crypto/rand"
	"math/rand/v2"
	"time"
)

// DailyDifficulty is the tier used for every daily challenge.
const DailyDifficulty = Medium

// seedStream is the fixed second PCG word for seeded generators.
const seedStream = 0x6d656d6f72792d70

// Deck is a shuffled card sequence in which every symbol appears twice.
type Deck struct {
	Difficulty  Difficulty
	Theme       string
	Cards       []string
	PairsNeeded int
}

// NewRand returns a ChaCha8 generator keyed from crypto/rand.
func NewRand() *rand.Rand {
	var key [32]byte
	_, _ = crand.Read(key[:])
	return rand.New(rand.NewChaCha8(key))
}

// SeededRand returns a PCG generator whose output depends only on seed.
func SeededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), seedStream))
}

// CreateDeck draws PairsNeeded distinct symbols from the theme, pairs them
// and shuffles the result. Identical generator state yields identical decks.
func CreateDeck(difficulty Difficulty, themeID string, rng *rand.Rand) (Deck, error) {
	pairs := difficulty.Pairs()
	if pairs == 0 {
		return Deck{}, newError(CodeInvalidDifficulty, "unknown difficulty %q", difficulty)
	}
	theme, ok := lookupTheme(themeID)
	if !ok {
		return Deck{}, newError(CodeInvalidTheme, "unknown theme %q", themeID)
	}
	if len(theme.Symbols) < pairs {
		return Deck{}, newError(CodeInvalidTheme, "theme %q has %d symbols, need %d", themeID, len(theme.Symbols), pairs)
	}
	if rng == nil {
		rng = NewRand()
	}

	perm := rng.Perm(len(theme.Symbols))
	cards := make([]string, 0, pairs*2)
	for _, i := range perm[:pairs] {
		cards = append(cards, theme.Symbols[i])
	}
	cards = append(cards, cards...)
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})

	return Deck{
		Difficulty:  difficulty,
		Theme:       theme.ID,
		Cards:       cards,
		PairsNeeded: pairs,
	}, nil
}

// DailySeed is the number of whole days between the Unix epoch and t in UTC.
func DailySeed(t time.Time) int64 {
	secs := t.UTC().Unix()
	day := secs / 86400
	if secs < 0 && secs%86400 != 0 {
		day--
	}
	return day
}

// DailyTheme picks the theme for a daily seed.
func DailyTheme(seed int64) Theme {
	n := int64(len(themes))
	idx := seed % n
	if idx < 0 {
		idx += n
	}
	return themes[idx]
}

// DailyDeck builds the deck every player receives on t's calendar day.
func DailyDeck(t time.Time) (Deck, int64, error) {
	seed := DailySeed(t)
	deck, err := CreateDeck(DailyDifficulty, DailyTheme(seed).ID, SeededRand(seed))
	if err != nil {
		return Deck{}, 0, err
	}
	return deck, seed, nil
}
