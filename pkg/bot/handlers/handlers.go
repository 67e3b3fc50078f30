// Package handlers plays memory games over Telegram. Each Telegram user is
// linked to an account on first contact; boards are inline keyboards edited
// in place as cards are flipped.
package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/memory-pairs/pkg/db"
	"github.com/smith3v/memory-pairs/pkg/game"
	"github.com/smith3v/memory-pairs/pkg/logger"
	"github.com/smith3v/memory-pairs/pkg/ui"
)

// Games is the part of game.Service the bot drives.
type Games interface {
	NewGame(ctx context.Context, userID int64, difficulty, theme string) (game.View, error)
	NewDailyGame(ctx context.Context, userID int64) (game.View, error)
	Flip(ctx context.Context, userID int64, sessionID string, index int) (game.FlipOutcome, error)
	UsePowerUp(ctx context.Context, userID int64, sessionID, powerUp string) (game.PowerUpEffect, error)
	State(ctx context.Context, userID int64, sessionID string) (game.View, error)
	Stats(ctx context.Context, userID int64) (game.Stats, error)
	Achievements(ctx context.Context, userID int64) ([]game.AchievementStatus, error)
	ResetProgress(ctx context.Context, userID int64) error
}

// Accounts links Telegram users to accounts. *db.Repository satisfies it.
type Accounts interface {
	FindOrCreateTelegramUser(ctx context.Context, telegramID int64) (*db.User, error)
}

type Handlers struct {
	games    Games
	accounts Accounts
}

func New(games Games, accounts Accounts) *Handlers {
	return &Handlers{games: games, accounts: accounts}
}

// Register wires every command and the board callbacks into b.
func (h *Handlers) Register(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.HandleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/play", bot.MatchTypePrefix, h.HandlePlay)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/daily", bot.MatchTypeExact, h.HandleDaily)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypeExact, h.HandleStats)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/achievements", bot.MatchTypeExact, h.HandleAchievements)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/reset", bot.MatchTypePrefix, h.HandleReset)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, ui.CallbackPrefix, bot.MatchTypePrefix, h.HandleGameCallback)
}

// account resolves the sender of a text message. It replies with an error
// and returns nil when the account cannot be loaded.
func (h *Handlers) account(ctx context.Context, b *bot.Bot, update *models.Update) *db.User {
	user, err := h.accounts.FindOrCreateTelegramUser(ctx, update.Message.From.ID)
	if err != nil {
		logger.Error("failed to resolve telegram account", "telegram_id", update.Message.From.ID, "error", err)
		reply(ctx, b, update.Message.Chat.ID, "Failed to load your account. Please try again later.")
		return nil
	}
	return user
}

func validMessage(update *models.Update) bool {
	return update != nil && update.Message != nil && update.Message.From != nil && update.Message.Chat.ID != 0
}

func reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

var notices = map[game.Code]string{
	game.CodeInvalidDifficulty:  "Unknown difficulty. Try easy, medium or hard.",
	game.CodeInvalidTheme:       "Unknown theme.",
	game.CodeSessionNotFound:    "This game has expired. Start a new one with /play.",
	game.CodeUnauthorized:       "This is not your game.",
	game.CodeSessionComplete:    "This game is already finished.",
	game.CodeInvalidIndex:       "That card does not exist.",
	game.CodeCardUnavailable:    "That card is already face up.",
	game.CodePowerUpUnavailable: "You don't have that power-up.",
}

// notice turns a service error into a short user-facing message.
func notice(err error) string {
	if code, ok := game.CodeOf(err); ok {
		if text, ok := notices[code]; ok {
			return text
		}
	}
	if !errors.Is(err, context.Canceled) {
		logger.Error("game request failed", "error", err)
	}
	return "Something went wrong. Please try again later."
}
