package telegram

import (
	"encoding/json"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/fileybot/filey/pkg/session"
)

// EventFromUpdate maps a raw Telegram update onto a protocol event. The
// second return is false for update shapes the bot doesn't handle (channel
// posts, edits, inline queries).
func EventFromUpdate(update tgbotapi.Update) (session.Event, bool) {
	switch {
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if cq.Message == nil || cq.Message.Chat == nil {
			return session.Event{}, false
		}

		return session.Event{
			ChatID:       formatChatID(cq.Message.Chat.ID),
			Kind:         session.EventCallback,
			CallbackData: cq.Data,
		}, true

	case update.Message != nil:
		msg := update.Message
		if msg.Chat == nil {
			return session.Event{}, false
		}
		chatID := formatChatID(msg.Chat.ID)

		if msg.IsCommand() {
			command := msg.Command()
			if command == "start" {
				return session.Event{ChatID: chatID, Kind: session.EventStart}, true
			}

			return session.Event{
				ChatID:  chatID,
				Kind:    session.EventCommand,
				Command: command,
				Args:    strings.TrimSpace(msg.CommandArguments()),
			}, true
		}

		return session.Event{
			ChatID:     chatID,
			Kind:       session.EventMessage,
			Text:       messageText(msg),
			MessageID:  strconv.Itoa(msg.MessageID),
			Attachment: messageAttachment(msg),
			Metadata:   messageMetadata(msg),
		}, true
	}

	return session.Event{}, false
}

func formatChatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func messageText(msg *tgbotapi.Message) string {
	if msg.Text != "" {
		return msg.Text
	}

	return msg.Caption
}

func messageAttachment(msg *tgbotapi.Message) *session.Attachment {
	switch {
	case msg.Document != nil:
		return &session.Attachment{FileName: msg.Document.FileName, MimeType: msg.Document.MimeType}
	case msg.Audio != nil:
		return &session.Attachment{FileName: msg.Audio.FileName, MimeType: msg.Audio.MimeType}
	case msg.Video != nil:
		return &session.Attachment{FileName: msg.Video.FileName, MimeType: msg.Video.MimeType}
	}

	return nil
}

// messageMetadata keeps the raw message descriptor alongside the stored file,
// so listings can pick MIME-based icons and future features can reach any
// field the transport exposed.
func messageMetadata(msg *tgbotapi.Message) map[string]any {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil
	}

	var metadata map[string]any
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil
	}

	return metadata
}
