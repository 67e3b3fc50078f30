package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/memory-pairs/pkg/logger"
	"github.com/smith3v/memory-pairs/pkg/ui"
)

const helpText = "Commands:\n" +
	"/play [difficulty] [theme]: start a new game\n" +
	"/daily: play today's challenge\n" +
	"/stats: show your record\n" +
	"/achievements: list achievements\n" +
	"/reset: clear your progress"

func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleStart")
		return
	}
	user := h.account(ctx, b, update)
	if user == nil {
		return
	}
	logger.Info("telegram user started", "user_id", user.ID, "telegram_id", update.Message.From.ID)
	reply(ctx, b, update.Message.Chat.ID,
		"Welcome to Memory Pairs! Flip two cards at a time and find every matching pair.\n\n"+
			helpText+"\n\n"+ui.FormatCatalog())
}

func (h *Handlers) DefaultHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Chat.ID == 0 {
		return
	}
	reply(ctx, b, update.Message.Chat.ID, helpText)
}
