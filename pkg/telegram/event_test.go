package telegram_test

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fileybot/filey/pkg/session"
	"github.com/fileybot/filey/pkg/telegram"
)

var _ = Describe("EventFromUpdate", func() {
	chat := &tgbotapi.Chat{ID: 42}

	newMessage := func(text string) *tgbotapi.Message {
		return &tgbotapi.Message{MessageID: 7, Chat: chat, Text: text}
	}

	It("maps /start to the greeting event", func() {
		msg := newMessage("/start")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}

		ev, ok := telegram.EventFromUpdate(tgbotapi.Update{Message: msg})
		Expect(ok).To(BeTrue())
		Expect(ev.Kind).To(Equal(session.EventStart))
		Expect(ev.ChatID).To(Equal("42"))
	})

	It("maps a command with arguments", func() {
		msg := newMessage("/mkdir holiday photos")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}

		ev, ok := telegram.EventFromUpdate(tgbotapi.Update{Message: msg})
		Expect(ok).To(BeTrue())
		Expect(ev.Kind).To(Equal(session.EventCommand))
		Expect(ev.Command).To(Equal("mkdir"))
		Expect(ev.Args).To(Equal("holiday photos"))
	})

	It("maps a plain text message with its message id", func() {
		ev, ok := telegram.EventFromUpdate(tgbotapi.Update{Message: newMessage("groceries")})
		Expect(ok).To(BeTrue())
		Expect(ev.Kind).To(Equal(session.EventMessage))
		Expect(ev.Text).To(Equal("groceries"))
		Expect(ev.MessageID).To(Equal("7"))
		Expect(ev.Attachment).To(BeNil())
	})

	It("maps a document with filename, mime type, and caption text", func() {
		msg := &tgbotapi.Message{
			MessageID: 8,
			Chat:      chat,
			Caption:   "the report",
			Document:  &tgbotapi.Document{FileName: "report.pdf", MimeType: "application/pdf"},
		}

		ev, ok := telegram.EventFromUpdate(tgbotapi.Update{Message: msg})
		Expect(ok).To(BeTrue())
		Expect(ev.Text).To(Equal("the report"))
		Expect(ev.Attachment).NotTo(BeNil())
		Expect(ev.Attachment.FileName).To(Equal("report.pdf"))
		Expect(ev.Attachment.MimeType).To(Equal("application/pdf"))
		Expect(ev.Metadata).To(HaveKey("document"))
	})

	It("maps a callback press", func() {
		ev, ok := telegram.EventFromUpdate(tgbotapi.Update{
			CallbackQuery: &tgbotapi.CallbackQuery{
				ID:      "cb-1",
				Data:    "c#d#some-id",
				Message: &tgbotapi.Message{Chat: chat},
			},
		})
		Expect(ok).To(BeTrue())
		Expect(ev.Kind).To(Equal(session.EventCallback))
		Expect(ev.ChatID).To(Equal("42"))
		Expect(ev.CallbackData).To(Equal("c#d#some-id"))
	})

	It("ignores updates without a message or callback", func() {
		_, ok := telegram.EventFromUpdate(tgbotapi.Update{})
		Expect(ok).To(BeFalse())
	})
})
