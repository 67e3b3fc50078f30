package game

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/smith3v/memory-pairs/pkg/db"
	"github.com/smith3v/memory-pairs/pkg/logger"
	"github.com/smith3v/memory-pairs/pkg/metrics"
)

// Persistence records completed games and achievement grants.
// *db.Repository satisfies it.
type Persistence interface {
	RecordCompletion(ctx context.Context, userID int64, difficulty, theme string, moves, timeSeconds int, daily bool) error
	QueryAggregateStats(ctx context.Context, userID int64) (db.AggregateStats, error)
	IncrementWinStreak(ctx context.Context, userID int64) (int, error)
	GrantAchievement(ctx context.Context, userID int64, achievementID string) (bool, error)
	ResetUserProgress(ctx context.Context, userID int64) error
	ThemesWon(ctx context.Context, userID int64) ([]string, error)
	EarnedAchievements(ctx context.Context, userID int64) ([]string, error)
}

// Service runs games on behalf of authenticated users: it creates sessions,
// checks ownership, serializes mutations per session and hands completed
// games to persistence and the achievement evaluator.
type Service struct {
	store       SessionStore
	persistence Persistence
	metrics     *metrics.Metrics
	now         func() time.Time
	newRand     func() *rand.Rand
	newID       func() string
	locks       *keyedMutex
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRand replaces the generator factory used for shuffles and grants.
func WithRand(newRand func() *rand.Rand) Option {
	return func(s *Service) {
		if newRand != nil {
			s.newRand = newRand
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(store SessionStore, persistence Persistence, opts ...Option) *Service {
	s := &Service{
		store:       store,
		persistence: persistence,
		now:         time.Now,
		newRand:     NewRand,
		newID:       uuid.NewString,
		locks:       newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FlipOutcome is a flip result plus any achievements the flip unlocked.
type FlipOutcome struct {
	Result       FlipResult    `json:"result"`
	Achievements []Achievement `json:"achievements,omitempty"`
}

// Stats is a user's aggregate record.
type Stats struct {
	GamesPlayed     int64 `json:"games_played"`
	TotalMoves      int64 `json:"total_moves"`
	BestTimeSeconds *int  `json:"best_time_seconds"`
	WinStreak       int   `json:"win_streak"`
}

// AchievementStatus is a catalog entry annotated for one user.
type AchievementStatus struct {
	Achievement
	Earned bool `json:"earned"`
}

func (s *Service) NewGame(ctx context.Context, userID int64, difficulty, theme string) (View, error) {
	d, err := ParseDifficulty(difficulty)
	if err != nil {
		return View{}, err
	}
	t, err := ParseTheme(theme)
	if err != nil {
		return View{}, err
	}
	deck, err := CreateDeck(d, t.ID, s.newRand())
	if err != nil {
		return View{}, err
	}
	return s.start(ctx, userID, deck, false, 0)
}

// NewDailyGame starts today's challenge; every player gets the same deck.
func (s *Service) NewDailyGame(ctx context.Context, userID int64) (View, error) {
	deck, seed, err := DailyDeck(s.now())
	if err != nil {
		return View{}, err
	}
	return s.start(ctx, userID, deck, true, seed)
}

func (s *Service) start(ctx context.Context, userID int64, deck Deck, daily bool, seed int64) (View, error) {
	now := s.now()
	session := NewSession(s.newID(), userID, deck, now)
	session.Daily = daily
	session.DailySeed = seed
	if err := s.store.Put(ctx, session); err != nil {
		return View{}, fmt.Errorf("store session: %w", err)
	}
	s.metrics.GameStarted(string(deck.Difficulty), daily)
	logger.Info("game started",
		"user_id", userID,
		"session_id", session.ID,
		"difficulty", deck.Difficulty,
		"theme", deck.Theme,
		"daily", daily)
	return session.View(now), nil
}

// Flip turns one card of the caller's session.
func (s *Service) Flip(ctx context.Context, userID int64, sessionID string, index int) (FlipOutcome, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return FlipOutcome{}, err
	}
	if session.Completed && !session.Recorded {
		logger.Info("retrying unrecorded completion", "user_id", userID, "session_id", sessionID)
		return s.finish(ctx, session, session.CompletionResult())
	}
	now := s.now()
	result, err := session.Flip(index, s.newRand(), now)
	if err != nil {
		if code, ok := CodeOf(err); ok {
			s.metrics.Flip(string(code))
		}
		return FlipOutcome{}, err
	}
	if err := s.store.Put(ctx, session); err != nil {
		return FlipOutcome{}, fmt.Errorf("store session: %w", err)
	}
	s.metrics.Flip(string(result.Kind))
	if result.PowerUp != "" {
		s.metrics.PowerUpGranted(string(result.PowerUp))
		logger.Debug("power-up granted", "user_id", userID, "session_id", sessionID, "power_up", result.PowerUp)
	}

	if result.Completion == nil {
		return FlipOutcome{Result: result}, nil
	}
	return s.finish(ctx, session, result)
}

// finish runs the completion pipeline for a completed session and marks it
// recorded. Until that succeeds the session stays unrecorded and the next
// Flip retries the pipeline.
func (s *Service) finish(ctx context.Context, session *Session, result FlipResult) (FlipOutcome, error) {
	achievements, err := s.complete(ctx, session.OwnerID, session.ID, *result.Completion)
	if err != nil {
		return FlipOutcome{}, err
	}
	session.Recorded = true
	if err := s.store.Put(ctx, session); err != nil {
		logger.Error("failed to mark session recorded", "user_id", session.OwnerID, "session_id", session.ID, "error", err)
	}
	return FlipOutcome{Result: result, Achievements: achievements}, nil
}

func (s *Service) complete(ctx context.Context, userID int64, sessionID string, c Completion) ([]Achievement, error) {
	if err := s.persistence.RecordCompletion(ctx, userID, string(c.Difficulty), c.Theme, c.Moves, c.TimeSeconds, c.Daily); err != nil {
		return nil, fmt.Errorf("record completion: %w", err)
	}
	streak, err := s.persistence.IncrementWinStreak(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("increment win streak: %w", err)
	}
	themesWon, err := s.persistence.ThemesWon(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load themes won: %w", err)
	}
	earned, err := s.persistence.EarnedAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load earned achievements: %w", err)
	}

	unlocked := Evaluate(userID, CompletedGame{
		Difficulty:  c.Difficulty,
		Theme:       c.Theme,
		Moves:       c.Moves,
		PairsNeeded: c.PairsNeeded,
		Duration:    c.Duration,
	}, History{ThemesWon: themesWon, WinStreak: streak, Earned: earned})

	granted := make([]Achievement, 0, len(unlocked))
	for _, a := range unlocked {
		ok, err := s.persistence.GrantAchievement(ctx, userID, a.ID)
		if err != nil {
			return nil, fmt.Errorf("grant achievement %s: %w", a.ID, err)
		}
		if !ok {
			continue
		}
		granted = append(granted, a)
		s.metrics.AchievementGranted(a.ID)
		logger.Info("achievement granted", "user_id", userID, "achievement", a.ID)
	}

	s.metrics.GameCompleted(string(c.Difficulty), c.Daily)
	logger.Info("game completed",
		"user_id", userID,
		"session_id", sessionID,
		"moves", c.Moves,
		"time_seconds", c.TimeSeconds)
	return granted, nil
}

// UsePowerUp consumes a power-up from the caller's session.
func (s *Service) UsePowerUp(ctx context.Context, userID int64, sessionID, powerUp string) (PowerUpEffect, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return PowerUpEffect{}, err
	}
	p, ok := ParsePowerUp(powerUp)
	if !ok {
		return PowerUpEffect{}, newError(CodePowerUpUnavailable, "unknown power-up %q", powerUp)
	}
	effect, err := session.UsePowerUp(p, s.newRand(), s.now())
	if err != nil {
		return PowerUpEffect{}, err
	}
	if err := s.store.Put(ctx, session); err != nil {
		return PowerUpEffect{}, fmt.Errorf("store session: %w", err)
	}
	s.metrics.PowerUpUsed(string(p))
	return effect, nil
}

// State returns the leak-free view of the caller's session.
func (s *Service) State(ctx context.Context, userID int64, sessionID string) (View, error) {
	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return View{}, err
	}
	return session.View(s.now()), nil
}

// Abandon discards the caller's session without recording anything.
func (s *Service) Abandon(ctx context.Context, userID int64, sessionID string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	if _, err := s.load(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := s.store.Remove(ctx, sessionID); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	logger.Info("game abandoned", "user_id", userID, "session_id", sessionID)
	return nil
}

func (s *Service) Stats(ctx context.Context, userID int64) (Stats, error) {
	agg, err := s.persistence.QueryAggregateStats(ctx, userID)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	return Stats{
		GamesPlayed:     agg.GamesPlayed,
		TotalMoves:      agg.TotalMoves,
		BestTimeSeconds: agg.BestTimeSeconds,
		WinStreak:       agg.WinStreak,
	}, nil
}

// Achievements lists the catalog with the caller's earned flags.
func (s *Service) Achievements(ctx context.Context, userID int64) ([]AchievementStatus, error) {
	earned, err := s.persistence.EarnedAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load earned achievements: %w", err)
	}
	have := make(map[string]bool, len(earned))
	for _, id := range earned {
		have[id] = true
	}
	catalog := Achievements()
	out := make([]AchievementStatus, 0, len(catalog))
	for _, a := range catalog {
		out = append(out, AchievementStatus{Achievement: a, Earned: have[a.ID]})
	}
	return out, nil
}

// ResetProgress clears the caller's records, streak and achievements.
func (s *Service) ResetProgress(ctx context.Context, userID int64) error {
	if err := s.persistence.ResetUserProgress(ctx, userID); err != nil {
		return fmt.Errorf("reset progress: %w", err)
	}
	logger.Info("progress reset", "user_id", userID)
	return nil
}

func (s *Service) load(ctx context.Context, userID int64, sessionID string) (*Session, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.OwnerID != userID {
		logger.Warn("session access denied", "user_id", userID, "session_id", sessionID)
		return nil, ErrUnauthorized
	}
	return session, nil
}
