package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/memory-pairs/pkg/logger"
	"github.com/smith3v/memory-pairs/pkg/ui"
)

const resetConfirmation = "confirm"

func (h *Handlers) HandleStats(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleStats")
		return
	}
	user := h.account(ctx, b, update)
	if user == nil {
		return
	}
	stats, err := h.games.Stats(ctx, user.ID)
	if err != nil {
		reply(ctx, b, update.Message.Chat.ID, notice(err))
		return
	}
	reply(ctx, b, update.Message.Chat.ID, ui.FormatStats(stats))
}

func (h *Handlers) HandleAchievements(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleAchievements")
		return
	}
	user := h.account(ctx, b, update)
	if user == nil {
		return
	}
	list, err := h.games.Achievements(ctx, user.ID)
	if err != nil {
		reply(ctx, b, update.Message.Chat.ID, notice(err))
		return
	}
	reply(ctx, b, update.Message.Chat.ID, ui.FormatAchievements(list))
}

// HandleReset clears progress only when sent as "/reset confirm".
func (h *Handlers) HandleReset(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleReset")
		return
	}
	args, ok := commandArgs(update.Message.Text, "/reset")
	if !ok {
		h.DefaultHandler(ctx, b, update)
		return
	}
	if len(args) != 1 || args[0] != resetConfirmation {
		reply(ctx, b, update.Message.Chat.ID,
			"This erases your games, streak and achievements. Send /reset "+resetConfirmation+" to continue.")
		return
	}

	user := h.account(ctx, b, update)
	if user == nil {
		return
	}
	if err := h.games.ResetProgress(ctx, user.ID); err != nil {
		reply(ctx, b, update.Message.Chat.ID, notice(err))
		return
	}
	reply(ctx, b, update.Message.Chat.ID, "Your progress has been reset.")
}
