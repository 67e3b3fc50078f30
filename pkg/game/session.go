package game

import (
	"math/rand/v2"
	"sort"
	"time"
)

// PeekLimit caps how many cards a peek reveals.
const PeekLimit = 4

// powerUpStreak is the number of back-to-back matches that earns a power-up.
const powerUpStreak = 2

// Session is the mutable state of one game. Flip and UsePowerUp are the only
// mutators; callers serialize them per session.
type Session struct {
	ID                 string          `json:"id"`
	OwnerID            int64           `json:"owner_id"`
	Cards              []string        `json:"cards"`
	Flipped            []bool          `json:"flipped"`
	Matched            []bool          `json:"matched"`
	Moves              int             `json:"moves"`
	PairsFound         int             `json:"pairs_found"`
	PairsNeeded        int             `json:"pairs_needed"`
	Difficulty         Difficulty      `json:"difficulty"`
	Theme              string          `json:"theme"`
	Daily              bool            `json:"daily,omitempty"`
	DailySeed          int64           `json:"daily_seed,omitempty"`
	StartTime          time.Time       `json:"start_time"`
	Completed          bool            `json:"completed"`
	CompletedAt        time.Time       `json:"completed_at,omitzero"`
	Recorded           bool            `json:"recorded,omitempty"`
	ConsecutiveMatches int             `json:"consecutive_matches"`
	EarnedPowerUps     map[PowerUp]int `json:"earned_power_ups,omitempty"`
	LastActivityAt     time.Time       `json:"last_activity_at"`
}

// NewSession wraps a deck into a fresh session owned by ownerID.
func NewSession(id string, ownerID int64, deck Deck, now time.Time) *Session {
	cards := make([]string, len(deck.Cards))
	copy(cards, deck.Cards)
	return &Session{
		ID:             id,
		OwnerID:        ownerID,
		Cards:          cards,
		Flipped:        make([]bool, len(cards)),
		Matched:        make([]bool, len(cards)),
		PairsNeeded:    deck.PairsNeeded,
		Difficulty:     deck.Difficulty,
		Theme:          deck.Theme,
		StartTime:      now,
		LastActivityAt: now,
		EarnedPowerUps: make(map[PowerUp]int),
	}
}

// FlipKind tags the outcome of a flip.
type FlipKind string

const (
	FlipContinuing FlipKind = "continuing"
	FlipMismatch   FlipKind = "mismatch"
	FlipMatched    FlipKind = "matched"
	FlipCompleted  FlipKind = "completed"
)

// Completion carries the facts of a finished game.
type Completion struct {
	Difficulty  Difficulty    `json:"difficulty"`
	Theme       string        `json:"theme"`
	Moves       int           `json:"moves"`
	PairsNeeded int           `json:"pairs_needed"`
	Duration    time.Duration `json:"-"`
	TimeSeconds int           `json:"time_seconds"`
	Daily       bool          `json:"daily"`
}

// FlipResult reports a flip. Pair is set for matched and completed results,
// FlipBack and Revealed for mismatches, Completion only for the final match.
type FlipResult struct {
	Kind        FlipKind       `json:"kind"`
	Index       int            `json:"index"`
	Symbol      string         `json:"symbol"`
	Moves       int            `json:"moves"`
	PairsFound  int            `json:"pairs_found"`
	PairsNeeded int            `json:"pairs_needed"`
	Pair        []int          `json:"pair,omitempty"`
	FlipBack    []int          `json:"flip_back,omitempty"`
	Revealed    []RevealedCard `json:"revealed,omitempty"`
	PowerUp     PowerUp        `json:"power_up,omitempty"`
	Completion  *Completion    `json:"completion,omitempty"`
}

// Flip turns the card at index face up and resolves the pair once two cards
// are active. A rejected flip leaves the session untouched.
func (s *Session) Flip(index int, rng *rand.Rand, now time.Time) (FlipResult, error) {
	if s.Completed {
		return FlipResult{}, ErrSessionComplete
	}
	if index < 0 || index >= len(s.Cards) {
		return FlipResult{}, newError(CodeInvalidIndex, "card index %d out of range [0, %d)", index, len(s.Cards))
	}
	if s.Flipped[index] || s.Matched[index] {
		return FlipResult{}, newError(CodeCardUnavailable, "card %d already flipped or matched", index)
	}

	s.Flipped[index] = true
	s.LastActivityAt = now

	result := FlipResult{
		Kind:   FlipContinuing,
		Index:  index,
		Symbol: s.Cards[index],
	}

	if active := s.activeIndices(); len(active) == 2 {
		a, b := active[0], active[1]
		s.Moves++
		s.Flipped[a] = false
		s.Flipped[b] = false

		if s.Cards[a] == s.Cards[b] {
			s.Matched[a] = true
			s.Matched[b] = true
			s.PairsFound++
			s.ConsecutiveMatches++
			result.Kind = FlipMatched
			result.Pair = []int{a, b}
			if s.ConsecutiveMatches == powerUpStreak {
				result.PowerUp = s.grantPowerUp(rng)
				s.ConsecutiveMatches = 0
			}
		} else {
			s.ConsecutiveMatches = 0
			result.Kind = FlipMismatch
			result.FlipBack = []int{a, b}
			result.Revealed = []RevealedCard{{Index: a, Symbol: s.Cards[a]}, {Index: b, Symbol: s.Cards[b]}}
		}
	}

	if s.PairsFound == s.PairsNeeded {
		s.Completed = true
		s.CompletedAt = now
		result.Kind = FlipCompleted
		result.Completion = s.completion()
	}

	result.Moves = s.Moves
	result.PairsFound = s.PairsFound
	result.PairsNeeded = s.PairsNeeded
	return result, nil
}

// CompletionResult replays the completed outcome of a finished session. It
// carries no card.
func (s *Session) CompletionResult() FlipResult {
	return FlipResult{
		Kind:        FlipCompleted,
		Index:       -1,
		Moves:       s.Moves,
		PairsFound:  s.PairsFound,
		PairsNeeded: s.PairsNeeded,
		Completion:  s.completion(),
	}
}

func (s *Session) activeIndices() []int {
	active := make([]int, 0, 2)
	for i, flipped := range s.Flipped {
		if flipped && !s.Matched[i] {
			active = append(active, i)
		}
	}
	return active
}

func (s *Session) grantPowerUp(rng *rand.Rand) PowerUp {
	if rng == nil {
		rng = NewRand()
	}
	catalog := PowerUps()
	granted := catalog[rng.IntN(len(catalog))]
	if s.EarnedPowerUps == nil {
		s.EarnedPowerUps = make(map[PowerUp]int)
	}
	s.EarnedPowerUps[granted]++
	return granted
}

func (s *Session) completion() *Completion {
	elapsed := s.CompletedAt.Sub(s.StartTime)
	if elapsed < 0 {
		elapsed = 0
	}
	return &Completion{
		Difficulty:  s.Difficulty,
		Theme:       s.Theme,
		Moves:       s.Moves,
		PairsNeeded: s.PairsNeeded,
		Duration:    elapsed,
		TimeSeconds: int(elapsed / time.Second),
		Daily:       s.Daily,
	}
}

// RevealedCard is a card exposed by a peek or a mismatch.
type RevealedCard struct {
	Index  int    `json:"index"`
	Symbol string `json:"symbol"`
}

// PowerUpEffect is the outcome of consuming a power-up.
type PowerUpEffect struct {
	PowerUp   PowerUp        `json:"power_up"`
	Revealed  []RevealedCard `json:"revealed,omitempty"`
	Remaining int            `json:"remaining"`
}

// UsePowerUp consumes one instance of p from the inventory and applies it.
// time_freeze has no effect beyond the inventory change.
func (s *Session) UsePowerUp(p PowerUp, rng *rand.Rand, now time.Time) (PowerUpEffect, error) {
	if s.Completed {
		return PowerUpEffect{}, ErrSessionComplete
	}
	if s.EarnedPowerUps[p] == 0 {
		return PowerUpEffect{}, newError(CodePowerUpUnavailable, "power-up %q not available", p)
	}

	s.EarnedPowerUps[p]--
	remaining := s.EarnedPowerUps[p]
	if remaining == 0 {
		delete(s.EarnedPowerUps, p)
	}
	s.LastActivityAt = now

	effect := PowerUpEffect{PowerUp: p, Remaining: remaining}
	if p == PowerUpPeek {
		effect.Revealed = s.peek(rng)
	}
	return effect, nil
}

func (s *Session) peek(rng *rand.Rand) []RevealedCard {
	hidden := make([]int, 0, len(s.Cards))
	for i := range s.Cards {
		if !s.Matched[i] && !s.Flipped[i] {
			hidden = append(hidden, i)
		}
	}
	if rng == nil {
		rng = NewRand()
	}
	rng.Shuffle(len(hidden), func(i, j int) {
		hidden[i], hidden[j] = hidden[j], hidden[i]
	})
	if len(hidden) > PeekLimit {
		hidden = hidden[:PeekLimit]
	}
	sort.Ints(hidden)

	revealed := make([]RevealedCard, 0, len(hidden))
	for _, i := range hidden {
		revealed = append(revealed, RevealedCard{Index: i, Symbol: s.Cards[i]})
	}
	return revealed
}

// CardView is one board position as a client may see it.
type CardView struct {
	Index   int    `json:"index"`
	Symbol  string `json:"symbol,omitempty"`
	FaceUp  bool   `json:"face_up"`
	Matched bool   `json:"matched"`
}

// View is a projection of a session that never exposes face-down symbols.
type View struct {
	ID             string          `json:"id"`
	Difficulty     Difficulty      `json:"difficulty"`
	Theme          string          `json:"theme"`
	Daily          bool            `json:"daily"`
	Cards          []CardView      `json:"cards"`
	Moves          int             `json:"moves"`
	PairsFound     int             `json:"pairs_found"`
	PairsNeeded    int             `json:"pairs_needed"`
	Completed      bool            `json:"completed"`
	StartedAt      time.Time       `json:"started_at"`
	PowerUps       map[PowerUp]int `json:"power_ups"`
	ElapsedSeconds int             `json:"elapsed_seconds"`
}

// View snapshots the board at now.
func (s *Session) View(now time.Time) View {
	cards := make([]CardView, len(s.Cards))
	for i := range s.Cards {
		card := CardView{Index: i, FaceUp: s.Flipped[i], Matched: s.Matched[i]}
		if card.FaceUp || card.Matched {
			card.Symbol = s.Cards[i]
		}
		cards[i] = card
	}
	powerUps := make(map[PowerUp]int, len(s.EarnedPowerUps))
	for p, n := range s.EarnedPowerUps {
		if n > 0 {
			powerUps[p] = n
		}
	}
	end := now
	if s.Completed {
		end = s.CompletedAt
	}
	elapsed := int(end.Sub(s.StartTime) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	return View{
		ID:             s.ID,
		Difficulty:     s.Difficulty,
		Theme:          s.Theme,
		Daily:          s.Daily,
		Cards:          cards,
		Moves:          s.Moves,
		PairsFound:     s.PairsFound,
		PairsNeeded:    s.PairsNeeded,
		Completed:      s.Completed,
		StartedAt:      s.StartTime,
		PowerUps:       powerUps,
		ElapsedSeconds: elapsed,
	}
}

// clone returns a deep copy used by stores to hand out isolated snapshots.
func (s *Session) clone() *Session {
	c := *s
	c.Cards = append([]string(nil), s.Cards...)
	c.Flipped = append([]bool(nil), s.Flipped...)
	c.Matched = append([]bool(nil), s.Matched...)
	c.EarnedPowerUps = make(map[PowerUp]int, len(s.EarnedPowerUps))
	for p, n := range s.EarnedPowerUps {
		c.EarnedPowerUps[p] = n
	}
	return &c
}
