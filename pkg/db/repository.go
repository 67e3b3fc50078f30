package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/smith3v/memory-pairs/pkg/config"
	"github.com/smith3v/memory-pairs/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Export DB variable
var DB *gorm.DB

var (
	ErrNotFound      = errors.New("record not found")
	ErrUsernameTaken = errors.New("username already taken")
)

func InitDB(cfg config.DatabaseConfig) error {
	gormLogger, gormErr := newGormLogger(config.AppConfig.Logging.GormLevel)
	if gormErr != nil {
		logger.Error("invalid gorm log level", "value", config.AppConfig.Logging.GormLevel, "error", gormErr)
	}
	var err error
	DB, err = gorm.Open(dialector(cfg), &gorm.Config{Logger: gormLogger})
	if err != nil {
		logger.Error("failed to connect to database", "driver", cfg.Driver, "error", err)
		return err
	}
	if err := Migrate(DB); err != nil {
		logger.Error("failed to auto-migrate database", "error", err)
		return err
	}
	return nil
}

func dialector(cfg config.DatabaseConfig) gorm.Dialector {
	if strings.EqualFold(cfg.Driver, "sqlite") {
		return sqlite.Open(cfg.Path)
	}
	dsn := "host=" + cfg.Host +
		" user=" + cfg.User +
		" password=" + cfg.Password +
		" dbname=" + cfg.DBName +
		" port=" + strconv.Itoa(cfg.Port) +
		" sslmode=" + cfg.SSLMode
	return postgres.Open(dsn)
}

func Migrate(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	return gdb.AutoMigrate(AllModels()...)
}

// AggregateStats summarizes a user's completed games.
type AggregateStats struct {
	GamesPlayed     int64
	TotalMoves      int64
	BestTimeSeconds *int
	WinStreak       int
}

// Repository implements account, statistics, achievement and session
// snapshot storage on top of gorm.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(gdb *gorm.DB) *Repository {
	return &Repository{db: gdb, now: time.Now}
}

func (r *Repository) CreateUser(ctx context.Context, username, passwordHash string) (*User, error) {
	user := &User{Username: username, PasswordHash: passwordHash}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUsernameTaken
		}
		return tx.Create(user).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) FindUserByID(ctx context.Context, userID int64) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindOrCreateTelegramUser returns the account linked to telegramID,
// creating one named "tg:<id>" on first contact.
func (r *Repository) FindOrCreateTelegramUser(ctx context.Context, telegramID int64) (*User, error) {
	tgID := telegramID
	user := User{
		Username:   "tg:" + strconv.FormatInt(telegramID, 10),
		TelegramID: &tgID,
	}
	if err := r.db.WithContext(ctx).
		Where("telegram_id = ?", telegramID).
		FirstOrCreate(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) RecordCompletion(ctx context.Context, userID int64, difficulty, theme string, moves, timeSeconds int, daily bool) error {
	record := GameRecord{
		UserID:      userID,
		Difficulty:  difficulty,
		Theme:       theme,
		Moves:       moves,
		TimeSeconds: timeSeconds,
		Daily:       daily,
		CompletedAt: r.now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	return nil
}

func (r *Repository) QueryAggregateStats(ctx context.Context, userID int64) (AggregateStats, error) {
	var row struct {
		GamesPlayed     int64
		TotalMoves      int64
		BestTimeSeconds *int
	}
	if err := r.db.WithContext(ctx).
		Model(&GameRecord{}).
		Select("COUNT(*) AS games_played, COALESCE(SUM(moves), 0) AS total_moves, MIN(time_seconds) AS best_time_seconds").
		Where("user_id = ?", userID).
		Scan(&row).Error; err != nil {
		return AggregateStats{}, fmt.Errorf("query stats: %w", err)
	}

	stats := AggregateStats{
		GamesPlayed:     row.GamesPlayed,
		TotalMoves:      row.TotalMoves,
		BestTimeSeconds: row.BestTimeSeconds,
	}
	user, err := r.FindUserByID(ctx, userID)
	switch {
	case err == nil:
		stats.WinStreak = user.WinStreak
	case errors.Is(err, ErrNotFound):
	default:
		return AggregateStats{}, err
	}
	return stats, nil
}

func (r *Repository) IncrementWinStreak(ctx context.Context, userID int64) (int, error) {
	var streak int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&User{}).
			Where("id = ?", userID).
			Update("win_streak", gorm.Expr("win_streak + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&User{}).Where("id = ?", userID).Pluck("win_streak", &streak).Error
	})
	if err != nil {
		return 0, fmt.Errorf("increment win streak: %w", err)
	}
	return streak, nil
}

// GrantAchievement stores the grant once; granted is false when the user
// already had it.
func (r *Repository) GrantAchievement(ctx context.Context, userID int64, achievementID string) (bool, error) {
	grant := UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		GrantedAt:     r.now().UTC(),
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&grant)
	if res.Error != nil {
		return false, fmt.Errorf("grant achievement: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) EarnedAchievements(ctx context.Context, userID int64) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&UserAchievement{}).
		Where("user_id = ?", userID).
		Order("granted_at, id").
		Pluck("achievement_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("earned achievements: %w", err)
	}
	return ids, nil
}

func (r *Repository) ThemesWon(ctx context.Context, userID int64) ([]string, error) {
	var themes []string
	if err := r.db.WithContext(ctx).
		Model(&GameRecord{}).
		Where("user_id = ?", userID).
		Distinct("theme").
		Order("theme").
		Pluck("theme", &themes).Error; err != nil {
		return nil, fmt.Errorf("themes won: %w", err)
	}
	return themes, nil
}

// ResetUserProgress drops completed games, achievements and the win streak.
func (r *Repository) ResetUserProgress(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&GameRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&UserAchievement{}).Error; err != nil {
			return err
		}
		return tx.Model(&User{}).Where("id = ?", userID).Update("win_streak", 0).Error
	})
}
