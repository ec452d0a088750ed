// Package telegram is the Telegram transport: it maps Bot API updates onto
// protocol events, feeds them through the session engine, and delivers the
// rendered replies.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/fileybot/filey/pkg/session"
)

// Bot ties a Telegram Bot API client to the session engine.
type Bot struct {
	api    *tgbotapi.BotAPI
	engine *session.Engine
	log    *slog.Logger
}

// New authenticates against the Bot API and returns the transport. The token
// is validated up front; a bad token fails here, not on the first update.
func New(token string, engine *session.Engine, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authenticating bot: %w", err)
	}

	return &Bot{api: api, engine: engine, log: log}, nil
}

// Username returns the authenticated bot account's username.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// Poll consumes updates over long polling until the context is cancelled.
func (b *Bot) Poll(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30

	updates := b.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate runs one update through the engine and delivers the replies.
// Failures are logged, never returned; the transport always moves on to the
// next update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	ev, ok := EventFromUpdate(update)
	if !ok {
		return
	}

	renders, err := b.engine.Handle(ctx, ev)
	if err != nil {
		b.log.Error("handling update", "error", err, "chat_id", ev.ChatID)
		b.deliver(ev.ChatID, []session.Render{{Text: "Something went wrong. Please try again."}})
	} else {
		b.deliver(ev.ChatID, renders)
	}

	// Callback presses need an answer or the client keeps its spinner up.
	if update.CallbackQuery != nil {
		if _, err := b.api.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, "")); err != nil {
			b.log.Warn("answering callback", "error", err)
		}
	}
}

func (b *Bot) deliver(chatID string, renders []session.Render) {
	chat, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		b.log.Error("parsing chat id", "error", err, "chat_id", chatID)
		return
	}

	for _, render := range renders {
		if render.ForwardRef != "" {
			messageID, err := strconv.Atoi(render.ForwardRef)
			if err != nil {
				b.log.Error("parsing forward ref", "error", err, "ref", render.ForwardRef)
				continue
			}
			if _, err := b.api.Send(tgbotapi.NewForward(chat, chat, messageID)); err != nil {
				b.log.Error("forwarding message", "error", err, "chat_id", chatID)
			}
			continue
		}

		msg := tgbotapi.NewMessage(chat, render.Text)
		if render.Markdown {
			msg.ParseMode = tgbotapi.ModeMarkdownV2
		}
		if len(render.Keyboard) > 0 {
			msg.ReplyMarkup = keyboardMarkup(render.Keyboard)
		}

		if _, err := b.api.Send(msg); err != nil {
			b.log.Error("sending message", "error", err, "chat_id", chatID)
		}
	}
}

func keyboardMarkup(keyboard [][]session.Button) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, button := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(button.Label, button.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// SetWebhook registers the webhook URL with Telegram, switching the account
// out of long-polling mode.
func (b *Bot) SetWebhook(url string) error {
	webhook, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("building webhook config: %w", err)
	}

	if _, err := b.api.Request(webhook); err != nil {
		return fmt.Errorf("registering webhook: %w", err)
	}

	return nil
}
