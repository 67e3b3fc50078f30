package handlers

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/memory-pairs/pkg/game"
	"github.com/smith3v/memory-pairs/pkg/logger"
	"github.com/smith3v/memory-pairs/pkg/ui"
)

// HandlePlay starts a game: /play [difficulty] [theme]. Difficulty defaults
// to easy and the theme to a random one; a theme may span several words.
func (h *Handlers) HandlePlay(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandlePlay")
		return
	}
	args, ok := commandArgs(update.Message.Text, "/play")
	if !ok {
		h.DefaultHandler(ctx, b, update)
		return
	}

	difficulty := string(game.Easy)
	if len(args) > 0 {
		difficulty = args[0]
	}
	var theme string
	if len(args) > 1 {
		theme = strings.Join(args[1:], " ")
	} else {
		themes := game.Themes()
		theme = themes[rand.IntN(len(themes))].ID
	}

	user := h.account(ctx, b, update)
	if user == nil {
		return
	}
	view, err := h.games.NewGame(ctx, user.ID, difficulty, theme)
	if err != nil {
		reply(ctx, b, update.Message.Chat.ID, notice(err)+"\n\n"+ui.FormatCatalog())
		return
	}
	h.sendBoard(ctx, b, update.Message.Chat.ID, view)
}

func (h *Handlers) HandleDaily(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleDaily")
		return
	}
	user := h.account(ctx, b, update)
	if user == nil {
		return
	}
	view, err := h.games.NewDailyGame(ctx, user.ID)
	if err != nil {
		reply(ctx, b, update.Message.Chat.ID, notice(err))
		return
	}
	h.sendBoard(ctx, b, update.Message.Chat.ID, view)
}

func (h *Handlers) sendBoard(ctx context.Context, b *bot.Bot, chatID int64, view game.View) {
	text, keyboard, err := ui.RenderBoard(view, nil, "Tap a card to flip it.")
	if err != nil {
		logger.Error("failed to render board", "session_id", view.ID, "error", err)
		reply(ctx, b, chatID, "Failed to draw the board. Please try again later.")
		return
	}
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: keyboard,
	}); err != nil {
		logger.Error("failed to send board", "session_id", view.ID, "error", err)
	}
}

// HandleGameCallback applies a board button press and redraws the board in
// the same message.
func (h *Handlers) HandleGameCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.CallbackQuery == nil {
		logger.Error("invalid update in HandleGameCallback")
		return
	}

	callbackID := update.CallbackQuery.ID
	answerCallback := func(text string) {
		if callbackID == "" {
			return
		}
		if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: callbackID,
			Text:            text,
		}); err != nil {
			logger.Error("failed to answer game callback query", "error", err)
		}
	}

	action, err := ui.ParseCallbackData(update.CallbackQuery.Data)
	if err != nil {
		answerCallback("Not active")
		return
	}
	if action.Kind == ui.KindNoop {
		answerCallback("")
		return
	}

	message := update.CallbackQuery.Message
	if message.Type != models.MaybeInaccessibleMessageTypeMessage || message.Message == nil || message.Message.Chat.ID == 0 {
		answerCallback("Message missing")
		return
	}
	msg := message.Message

	user, err := h.accounts.FindOrCreateTelegramUser(ctx, update.CallbackQuery.From.ID)
	if err != nil {
		logger.Error("failed to resolve telegram account", "telegram_id", update.CallbackQuery.From.ID, "error", err)
		answerCallback("Failed to load your account")
		return
	}

	var (
		revealed map[int]string
		note     string
	)
	switch action.Kind {
	case ui.KindNewGame:
		view, err := h.games.NewGame(ctx, user.ID, string(action.Difficulty), action.Theme)
		if err != nil {
			answerCallback(notice(err))
			return
		}
		answerCallback("")
		h.sendBoard(ctx, b, msg.Chat.ID, view)
		return
	case ui.KindFlip:
		outcome, err := h.games.Flip(ctx, user.ID, action.SessionID, action.Index)
		if err != nil {
			answerCallback(notice(err))
			return
		}
		revealed = ui.Revealed(outcome.Result.Revealed)
		note = ui.FormatFlipNote(outcome)
	case ui.KindPowerUp:
		effect, err := h.games.UsePowerUp(ctx, user.ID, action.SessionID, string(action.PowerUp))
		if err != nil {
			answerCallback(notice(err))
			return
		}
		revealed = ui.Revealed(effect.Revealed)
		note = ui.FormatPowerUpNote(effect)
	}

	view, err := h.games.State(ctx, user.ID, action.SessionID)
	if err != nil {
		answerCallback(notice(err))
		return
	}
	text, keyboard, err := ui.RenderBoard(view, revealed, note)
	if err != nil {
		logger.Error("failed to render board", "session_id", view.ID, "error", err)
		answerCallback("Failed to draw the board")
		return
	}
	if _, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		Text:        text,
		ReplyMarkup: keyboard,
	}); err != nil {
		logger.Error("failed to edit board", "user_id", user.ID, "session_id", view.ID, "error", err)
	}
	answerCallback("")
}

// commandArgs splits a command message into its arguments. It rejects text
// that only shares a prefix with command, and accepts the /cmd@botname form.
func commandArgs(text, command string) ([]string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, false
	}
	name, _, _ := strings.Cut(fields[0], "@")
	if name != command {
		return nil, false
	}
	return fields[1:], true
}
