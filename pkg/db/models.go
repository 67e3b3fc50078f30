package db

import (
	"time"

	"gorm.io/datatypes"
)

// User is an account. Web users register with a username and password;
// Telegram users are created on first contact and carry TelegramID instead.
type User struct {
	ID           int64  `gorm:"primaryKey"`
	Username     string `gorm:"not null;uniqueIndex"`
	PasswordHash string `gorm:"not null;default:''"`
	TelegramID   *int64 `gorm:"uniqueIndex"`
	WinStreak    int    `gorm:"not null;default:0"`
	CreatedAt    time.Time
}

// GameRecord is one completed game.
type GameRecord struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      int64     `gorm:"not null;index"`
	Difficulty  string    `gorm:"not null"`
	Theme       string    `gorm:"not null"`
	Moves       int       `gorm:"not null"`
	TimeSeconds int       `gorm:"not null"`
	Daily       bool      `gorm:"not null;default:false"`
	CompletedAt time.Time `gorm:"not null"`
}

type UserAchievement struct {
	ID            uint      `gorm:"primaryKey"`
	UserID        int64     `gorm:"not null;uniqueIndex:idx_user_achievement"`
	AchievementID string    `gorm:"not null;uniqueIndex:idx_user_achievement"`
	GrantedAt     time.Time `gorm:"not null"`
}

// GameSessionState is the persisted snapshot of an in-flight game.
type GameSessionState struct {
	ID             uint           `gorm:"primaryKey"`
	SessionID      string         `gorm:"not null;uniqueIndex"`
	OwnerID        int64          `gorm:"not null;index"`
	State          datatypes.JSON `gorm:"not null"`
	LastActivityAt time.Time      `gorm:"not null"`
	ExpiresAt      time.Time      `gorm:"not null;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (GameSessionState) TableName() string {
	return "game_session_states"
}

// AllModels lists every table managed by AutoMigrate.
func AllModels() []any {
	return []any{&User{}, &GameRecord{}, &UserAchievement{}, &GameSessionState{}}
}
