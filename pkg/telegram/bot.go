// Package telegram sends operator alerts through a Telegram bot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/exp/slog"
)

// ErrNoAdminChat is returned when no admin chat has been configured or
// registered with /start yet.
var ErrNoAdminChat = errors.New("telegram admin chat id unknown")

// Bot wraps the bot API and the chat that receives admin alerts.
type Bot struct {
	api         *tgbotapi.BotAPI
	adminChatID atomic.Int64
}

// NewBot authorizes the bot. adminChatID may be zero; it is then learned from
// the first /start command the bot receives and never replaced.
func NewBot(token string, adminChatID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authorize telegram bot: %w", err)
	}
	b := &Bot{api: api}
	b.adminChatID.Store(adminChatID)
	slog.Info("telegram bot authorized", "username", api.Self.UserName)
	return b, nil
}

// Listen registers the admin chat on /start until ctx is done.
func (b *Bot) Listen(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() || update.Message.Command() != "start" {
				continue
			}
			chatID := update.Message.Chat.ID
			if !b.claimAdminChat(chatID) {
				slog.Warn("telegram /start ignored from unknown chat", "chatId", chatID)
				continue
			}
			slog.Info("telegram admin chat registered", "chatId", chatID)
			msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Admin chat registered: %d. Payment alerts will arrive here.", chatID))
			if _, err := b.api.Send(msg); err != nil {
				slog.Warn("telegram reply failed", "error", err)
			}
		}
	}
}

// claimAdminChat registers chatID as the admin chat when none is known yet.
// Once set, only the same chat is accepted.
func (b *Bot) claimAdminChat(chatID int64) bool {
	if b.adminChatID.CompareAndSwap(0, chatID) {
		return true
	}
	return b.adminChatID.Load() == chatID
}

// NotifyAdmin sends text to the admin chat.
func (b *Bot) NotifyAdmin(text string) error {
	chatID := b.adminChatID.Load()
	if chatID == 0 {
		return ErrNoAdminChat
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
