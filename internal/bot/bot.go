package bot

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot is the thin transport gateway: it pumps inbound chat messages
// into the router and exposes outbound sending. Everything past this
// file is transport-agnostic.
type Bot struct {
	api    *tgbotapi.BotAPI
	router *Router
}

func New(api *tgbotapi.BotAPI, router *Router) *Bot {
	return &Bot{api: api, router: router}
}

func (b *Bot) Start(ctx context.Context) error {
	log.Printf("Authorized on account %s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			msg := update.Message
			inbound := Inbound{
				ChatID:   msg.Chat.ID,
				Text:     msg.Text,
				FromSelf: msg.From != nil && msg.From.ID == b.api.Self.ID,
			}
			go b.router.Dispatch(ctx, inbound)
		}
	}
}

// TelegramMessenger sends plain-text replies through the Telegram API.
type TelegramMessenger struct {
	api *tgbotapi.BotAPI
}

func NewMessenger(api *tgbotapi.BotAPI) *TelegramMessenger {
	return &TelegramMessenger{api: api}
}

func (m *TelegramMessenger) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	_, err := m.api.Send(msg)
	return err
}
