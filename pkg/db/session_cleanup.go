package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveSessionState upserts the snapshot keyed by session id.
func (r *Repository) SaveSessionState(ctx context.Context, state *GameSessionState) error {
	if state == nil {
		return nil
	}
	if state.LastActivityAt.IsZero() {
		state.LastActivityAt = r.now()
	}
	// sqlite compares timestamps as text, so every stored and queried time is UTC.
	state.LastActivityAt = state.LastActivityAt.UTC()
	state.ExpiresAt = state.ExpiresAt.UTC()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner_id", "state", "last_activity_at", "expires_at", "updated_at"}),
	}).Create(state).Error
}

// LoadSessionState returns the unexpired snapshot for sessionID, or nil.
func (r *Repository) LoadSessionState(ctx context.Context, sessionID string, now time.Time) (*GameSessionState, error) {
	var state GameSessionState
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND expires_at > ?", sessionID, now.UTC()).
		First(&state).Error
	if err == nil {
		return &state, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *Repository) DeleteSessionState(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&GameSessionState{}).Error
}

// CleanupExpiredSessions deletes snapshots whose expiry has passed and
// reports how many rows went away.
func (r *Repository) CleanupExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&GameSessionState{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
