package game

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time {
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

var testStart = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

// fixedSession builds a session over a hand-written board.
func fixedSession(cards ...string) *Session {
	deck := Deck{Difficulty: Easy, Theme: "animals", Cards: cards, PairsNeeded: len(cards) / 2}
	return NewSession("s-1", 7, deck, testStart)
}

// pairIndices maps every symbol to the two positions holding it.
func pairIndices(cards []string) map[string][]int {
	out := make(map[string][]int)
	for i, symbol := range cards {
		out[symbol] = append(out[symbol], i)
	}
	return out
}

func mustFlip(t *testing.T, s *Session, index int) FlipResult {
	t.Helper()
	result, err := s.Flip(index, SeededRand(1), testStart.Add(time.Minute))
	if err != nil {
		t.Fatalf("Flip(%d) returned error: %v", index, err)
	}
	return result
}

func TestFirstMatchOnEasyAnimals(t *testing.T) {
	deck, err := CreateDeck(Easy, "animals", SeededRand(99))
	if err != nil {
		t.Fatalf("CreateDeck returned error: %v", err)
	}
	if len(deck.Cards) != 12 {
		t.Fatalf("expected 12 cards, got %d", len(deck.Cards))
	}
	s := NewSession("s-1", 7, deck, testStart)
	pair := pairIndices(deck.Cards)[deck.Cards[0]]

	first := mustFlip(t, s, pair[0])
	if first.Kind != FlipContinuing || first.Moves != 0 {
		t.Fatalf("unexpected first flip: %+v", first)
	}
	if first.Pair != nil || first.FlipBack != nil {
		t.Fatalf("continuing result must not reveal other indices: %+v", first)
	}

	second := mustFlip(t, s, pair[1])
	if second.Kind != FlipMatched {
		t.Fatalf("expected matched result, got %s", second.Kind)
	}
	if !s.Matched[pair[0]] || !s.Matched[pair[1]] {
		t.Fatalf("expected both cards matched")
	}
	if s.Flipped[pair[0]] || s.Flipped[pair[1]] {
		t.Fatalf("matched cards must not stay flipped")
	}
	if s.PairsFound != 1 || s.Moves != 1 || s.ConsecutiveMatches != 1 {
		t.Fatalf("unexpected counters: pairs=%d moves=%d streak=%d", s.PairsFound, s.Moves, s.ConsecutiveMatches)
	}
	if len(s.EarnedPowerUps) != 0 || second.PowerUp != "" {
		t.Fatalf("expected no power-up after a single match")
	}
}

func TestMismatchFlipsBackAndResetsStreak(t *testing.T) {
	s := fixedSession("A", "B", "A", "B", "C", "C")

	mustFlip(t, s, 0)
	mustFlip(t, s, 2)
	if s.ConsecutiveMatches != 1 {
		t.Fatalf("expected streak 1, got %d", s.ConsecutiveMatches)
	}

	mustFlip(t, s, 1)
	result := mustFlip(t, s, 4)
	if result.Kind != FlipMismatch {
		t.Fatalf("expected mismatch, got %s", result.Kind)
	}
	if !reflect.DeepEqual(result.FlipBack, []int{1, 4}) {
		t.Fatalf("expected flip back [1 4], got %v", result.FlipBack)
	}
	wantRevealed := []RevealedCard{{Index: 1, Symbol: "B"}, {Index: 4, Symbol: "C"}}
	if !reflect.DeepEqual(result.Revealed, wantRevealed) {
		t.Fatalf("expected revealed %v, got %v", wantRevealed, result.Revealed)
	}
	if result.Symbol != "C" || result.Moves != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if s.ConsecutiveMatches != 0 {
		t.Fatalf("expected streak reset, got %d", s.ConsecutiveMatches)
	}
	if s.Flipped[1] || s.Flipped[4] {
		t.Fatalf("expected mismatched cards to be face down")
	}
}

func TestPowerUpGrantedOnSecondConsecutiveMatch(t *testing.T) {
	s := fixedSession("A", "A", "B", "B", "C", "C", "D", "D")

	mustFlip(t, s, 0)
	mustFlip(t, s, 1)
	mustFlip(t, s, 2)
	result := mustFlip(t, s, 3)

	if result.PowerUp != PowerUpPeek && result.PowerUp != PowerUpTimeFreeze {
		t.Fatalf("expected a catalog power-up, got %q", result.PowerUp)
	}
	total := 0
	for _, n := range s.EarnedPowerUps {
		total += n
	}
	if total != 1 {
		t.Fatalf("expected exactly one power-up, got %v", s.EarnedPowerUps)
	}
	if s.ConsecutiveMatches != 0 {
		t.Fatalf("expected streak reset after grant, got %d", s.ConsecutiveMatches)
	}

	// A third match starts a new streak and grants nothing.
	mustFlip(t, s, 4)
	third := mustFlip(t, s, 5)
	if third.PowerUp != "" || s.ConsecutiveMatches != 1 {
		t.Fatalf("unexpected grant on third match: %+v", third)
	}
}

func TestPowerUpNotGrantedAfterInterveningMismatch(t *testing.T) {
	s := fixedSession("A", "A", "B", "C", "B", "C")

	mustFlip(t, s, 0)
	mustFlip(t, s, 1)
	mustFlip(t, s, 2)
	mustFlip(t, s, 3) // mismatch
	mustFlip(t, s, 2)
	result := mustFlip(t, s, 4)
	if result.Kind != FlipMatched || result.PowerUp != "" {
		t.Fatalf("expected a plain match, got %+v", result)
	}
	if len(s.EarnedPowerUps) != 0 {
		t.Fatalf("expected no power-ups, got %v", s.EarnedPowerUps)
	}
}

func TestFlipRejectionsLeaveStateUnchanged(t *testing.T) {
	s := fixedSession("A", "B", "A", "B")
	mustFlip(t, s, 0)
	mustFlip(t, s, 2)
	mustFlip(t, s, 1)

	tests := []struct {
		name  string
		index int
		want  error
	}{
		{name: "matched card", index: 0, want: ErrCardUnavailable},
		{name: "face-up card", index: 1, want: ErrCardUnavailable},
		{name: "negative index", index: -1, want: ErrInvalidIndex},
		{name: "past the end", index: 4, want: ErrInvalidIndex},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := s.clone()
			_, err := s.Flip(tc.index, SeededRand(1), testStart.Add(time.Hour))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !reflect.DeepEqual(before, s) {
				t.Fatalf("state changed after rejected flip")
			}
		})
	}
}

func TestCompletionIsTerminal(t *testing.T) {
	s := fixedSession("A", "B", "B", "A")
	mustFlip(t, s, 0)
	mustFlip(t, s, 3)
	mustFlip(t, s, 1)

	done, err := s.Flip(2, SeededRand(1), testStart.Add(75*time.Second))
	if err != nil {
		t.Fatalf("Flip returned error: %v", err)
	}
	if done.Kind != FlipCompleted || !s.Completed {
		t.Fatalf("expected completion, got %+v", done)
	}
	if done.Completion == nil {
		t.Fatalf("expected completion facts")
	}
	want := Completion{Difficulty: Easy, Theme: "animals", Moves: 2, PairsNeeded: 2, Duration: 75 * time.Second, TimeSeconds: 75}
	if *done.Completion != want {
		t.Fatalf("unexpected completion %+v", *done.Completion)
	}
	if !reflect.DeepEqual(done.Pair, []int{1, 2}) {
		t.Fatalf("expected final pair [1 2], got %v", done.Pair)
	}

	if _, err := s.Flip(0, SeededRand(1), testStart.Add(2*time.Minute)); !errors.Is(err, ErrSessionComplete) {
		t.Fatalf("expected ErrSessionComplete, got %v", err)
	}
	if _, err := s.Flip(99, SeededRand(1), testStart.Add(2*time.Minute)); !errors.Is(err, ErrSessionComplete) {
		t.Fatalf("expected ErrSessionComplete before index validation, got %v", err)
	}
}

func TestRandomPlayInvariants(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		rng := SeededRand(seed)
		deck, err := CreateDeck(Medium, "space", rng)
		if err != nil {
			t.Fatalf("CreateDeck returned error: %v", err)
		}
		s := NewSession("s", 1, deck, testStart)

		flips := 0
		grants := 0
		streak := 0
		for step := 0; step < 10000 && !s.Completed; step++ {
			index := rng.IntN(len(s.Cards))
			before := s.clone()
			result, err := s.Flip(index, rng, testStart)
			if err != nil {
				if s.Moves != before.Moves || !reflect.DeepEqual(before, s) {
					t.Fatalf("seed %d: rejected flip mutated state", seed)
				}
				continue
			}
			flips++
			if s.Moves != flips/2 {
				t.Fatalf("seed %d: %d flips produced %d moves", seed, flips, s.Moves)
			}
			for i := range s.Cards {
				if before.Matched[i] && !s.Matched[i] {
					t.Fatalf("seed %d: card %d became unmatched", seed, i)
				}
				if s.Matched[i] && s.Flipped[i] {
					t.Fatalf("seed %d: card %d is matched and flipped", seed, i)
				}
			}
			if active := s.activeIndices(); len(active) > 1 {
				t.Fatalf("seed %d: %d cards active between flips", seed, len(active))
			}
			switch result.Kind {
			case FlipMatched, FlipCompleted:
				streak++
				if streak == 2 {
					grants++
					streak = 0
					if result.PowerUp == "" {
						t.Fatalf("seed %d: expected power-up on second consecutive match", seed)
					}
				} else if result.PowerUp != "" {
					t.Fatalf("seed %d: unexpected power-up", seed)
				}
			case FlipMismatch:
				streak = 0
			}
			if s.Completed != (s.PairsFound == s.PairsNeeded) {
				t.Fatalf("seed %d: completed=%v with %d/%d pairs", seed, s.Completed, s.PairsFound, s.PairsNeeded)
			}
		}
		if !s.Completed {
			t.Fatalf("seed %d: game never completed", seed)
		}
		total := 0
		for _, n := range s.EarnedPowerUps {
			total += n
		}
		if total != grants {
			t.Fatalf("seed %d: inventory holds %d power-ups, expected %d", seed, total, grants)
		}
	}
}

func TestViewHidesFaceDownSymbols(t *testing.T) {
	s := fixedSession("A", "B", "A", "B")
	mustFlip(t, s, 0)
	mustFlip(t, s, 2)
	mustFlip(t, s, 1)

	view := s.View(testStart.Add(30 * time.Second))
	if view.Cards[0].Symbol != "A" || !view.Cards[0].Matched {
		t.Fatalf("expected matched card to be visible: %+v", view.Cards[0])
	}
	if view.Cards[1].Symbol != "B" || !view.Cards[1].FaceUp {
		t.Fatalf("expected face-up card to be visible: %+v", view.Cards[1])
	}
	if view.Cards[3].Symbol != "" || view.Cards[3].FaceUp {
		t.Fatalf("face-down card leaked: %+v", view.Cards[3])
	}
	if view.Moves != 1 || view.PairsFound != 1 || view.PairsNeeded != 2 || view.ElapsedSeconds != 30 {
		t.Fatalf("unexpected counters in view: %+v", view)
	}
}

func TestUsePowerUpPeek(t *testing.T) {
	s := fixedSession("A", "B", "C", "D", "E", "F", "A", "B", "C", "D", "E", "F")
	s.EarnedPowerUps[PowerUpPeek] = 2
	mustFlip(t, s, 0)
	mustFlip(t, s, 6)
	mustFlip(t, s, 1)

	effect, err := s.UsePowerUp(PowerUpPeek, SeededRand(5), testStart.Add(time.Minute))
	if err != nil {
		t.Fatalf("UsePowerUp returned error: %v", err)
	}
	if effect.Remaining != 1 || s.EarnedPowerUps[PowerUpPeek] != 1 {
		t.Fatalf("expected one peek left, got %d", effect.Remaining)
	}
	if len(effect.Revealed) != PeekLimit {
		t.Fatalf("expected %d revealed cards, got %d", PeekLimit, len(effect.Revealed))
	}
	prev := -1
	for _, card := range effect.Revealed {
		if card.Index <= prev {
			t.Fatalf("expected sorted unique indices, got %+v", effect.Revealed)
		}
		prev = card.Index
		if s.Matched[card.Index] || s.Flipped[card.Index] {
			t.Fatalf("peek revealed unavailable card %d", card.Index)
		}
		if card.Symbol != s.Cards[card.Index] {
			t.Fatalf("peek symbol mismatch at %d", card.Index)
		}
	}
}

func TestPeekRevealsFewerWhenFewCardsHidden(t *testing.T) {
	s := fixedSession("A", "A", "B", "B")
	s.EarnedPowerUps[PowerUpPeek] = 1
	mustFlip(t, s, 0)
	mustFlip(t, s, 1)
	mustFlip(t, s, 2)

	effect, err := s.UsePowerUp(PowerUpPeek, SeededRand(5), testStart)
	if err != nil {
		t.Fatalf("UsePowerUp returned error: %v", err)
	}
	if len(effect.Revealed) != 1 || effect.Revealed[0].Index != 3 {
		t.Fatalf("expected only card 3 revealed, got %+v", effect.Revealed)
	}
	if _, ok := s.EarnedPowerUps[PowerUpPeek]; ok {
		t.Fatalf("expected exhausted power-up to leave the inventory")
	}
}

func TestUsePowerUpErrors(t *testing.T) {
	s := fixedSession("A", "A")
	if _, err := s.UsePowerUp(PowerUpPeek, SeededRand(1), testStart); !errors.Is(err, ErrPowerUpUnavailable) {
		t.Fatalf("expected ErrPowerUpUnavailable, got %v", err)
	}

	s.EarnedPowerUps[PowerUpTimeFreeze] = 1
	effect, err := s.UsePowerUp(PowerUpTimeFreeze, SeededRand(1), testStart)
	if err != nil {
		t.Fatalf("UsePowerUp returned error: %v", err)
	}
	if len(effect.Revealed) != 0 || effect.Remaining != 0 {
		t.Fatalf("expected time_freeze to only change inventory, got %+v", effect)
	}

	s.EarnedPowerUps[PowerUpPeek] = 1
	mustFlip(t, s, 0)
	mustFlip(t, s, 1)
	if _, err := s.UsePowerUp(PowerUpPeek, SeededRand(1), testStart); !errors.Is(err, ErrSessionComplete) {
		t.Fatalf("expected ErrSessionComplete, got %v", err)
	}
	if s.EarnedPowerUps[PowerUpPeek] != 1 {
		t.Fatalf("rejected use must not consume the power-up")
	}
}
