package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/smith3v/memory-pairs/pkg/db"
	"github.com/smith3v/memory-pairs/pkg/logger"
	"gorm.io/datatypes"
)

// SnapshotRepository persists session snapshots. *db.Repository satisfies it.
type SnapshotRepository interface {
	SaveSessionState(ctx context.Context, state *db.GameSessionState) error
	LoadSessionState(ctx context.Context, sessionID string, now time.Time) (*db.GameSessionState, error)
	DeleteSessionState(ctx context.Context, sessionID string) error
}

// SnapshotStore layers a database snapshot under a MemoryStore so that
// in-flight games survive a restart. Writes go to both layers; reads fall
// back to the database on a memory miss. A failed database write leaves
// the memory layer untouched.
type SnapshotStore struct {
	memory *MemoryStore
	repo   SnapshotRepository
}

func NewSnapshotStore(memory *MemoryStore, repo SnapshotRepository) *SnapshotStore {
	return &SnapshotStore{memory: memory, repo: repo}
}

func (s *SnapshotStore) Get(ctx context.Context, id string) (*Session, error) {
	session, err := s.memory.Get(ctx, id)
	if err == nil || !errors.Is(err, ErrSessionNotFound) {
		return session, err
	}

	row, err := s.repo.LoadSessionState(ctx, id, s.memory.now())
	if err != nil {
		return nil, fmt.Errorf("load session snapshot: %w", err)
	}
	if row == nil {
		return nil, newError(CodeSessionNotFound, "session %q not found", id)
	}
	session, err = decodeSessionState(row)
	if err != nil {
		logger.Warn("discarding unreadable session snapshot", "session_id", id, "error", err)
		if delErr := s.repo.DeleteSessionState(ctx, id); delErr != nil {
			logger.Error("failed to delete session snapshot", "session_id", id, "error", delErr)
		}
		return nil, newError(CodeSessionNotFound, "session %q not found", id)
	}
	if err := s.memory.Put(ctx, session); err != nil {
		return nil, err
	}
	logger.Debug("restored session from snapshot", "session_id", id, "user_id", session.OwnerID)
	return session, nil
}

func (s *SnapshotStore) Put(ctx context.Context, session *Session) error {
	if session == nil {
		return nil
	}
	state, err := buildSessionState(session, s.memory.ttl)
	if err != nil {
		return err
	}
	// Memory only sees states the database accepted.
	if err := s.repo.SaveSessionState(ctx, state); err != nil {
		return fmt.Errorf("save session snapshot: %w", err)
	}
	return s.memory.Put(ctx, session)
}

func (s *SnapshotStore) Remove(ctx context.Context, id string) error {
	if err := s.memory.Remove(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteSessionState(ctx, id); err != nil {
		return fmt.Errorf("delete session snapshot: %w", err)
	}
	return nil
}

// Sweep evicts idle sessions from memory. Database rows expire on their own
// schedule via db.Repository.CleanupExpiredSessions.
func (s *SnapshotStore) Sweep(now time.Time) int {
	return s.memory.Sweep(now)
}

func (s *SnapshotStore) Len() int {
	return s.memory.Len()
}

func buildSessionState(session *Session, ttl time.Duration) (*db.GameSessionState, error) {
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("encode session %q: %w", session.ID, err)
	}
	lastActivity := session.LastActivityAt.UTC()
	return &db.GameSessionState{
		SessionID:      session.ID,
		OwnerID:        session.OwnerID,
		State:          datatypes.JSON(raw),
		LastActivityAt: lastActivity,
		ExpiresAt:      lastActivity.Add(ttl),
	}, nil
}

func decodeSessionState(row *db.GameSessionState) (*Session, error) {
	var session Session
	if err := json.Unmarshal(row.State, &session); err != nil {
		return nil, err
	}
	n := len(session.Cards)
	if n == 0 || len(session.Flipped) != n || len(session.Matched) != n {
		return nil, fmt.Errorf("inconsistent board: %d cards, %d flipped, %d matched", n, len(session.Flipped), len(session.Matched))
	}
	if session.ID != row.SessionID || session.OwnerID != row.OwnerID {
		return nil, errors.New("snapshot identity mismatch")
	}
	if session.EarnedPowerUps == nil {
		session.EarnedPowerUps = make(map[PowerUp]int)
	}
	return &session, nil
}
