package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/wallet/internal/models"
)

// TelegramSender is the part of the Telegram bot API the channel uses.
type TelegramSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

var _ TelegramSender = (*bot.Bot)(nil)

// TelegramChannel pushes notifications to a linked Telegram chat.
type TelegramChannel struct {
	sender TelegramSender
	chatID int64
}

// NewTelegramChannel connects a bot token to a chat.
func NewTelegramChannel(token string, chatID int64) (*TelegramChannel, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return NewTelegramChannelWithSender(b, chatID), nil
}

// NewTelegramChannelWithSender uses an existing sender.
func NewTelegramChannelWithSender(sender TelegramSender, chatID int64) *TelegramChannel {
	return &TelegramChannel{sender: sender, chatID: chatID}
}

// Name implements Channel.
func (c *TelegramChannel) Name() string { return "telegram" }

// Deliver implements Channel.
func (c *TelegramChannel) Deliver(ctx context.Context, msg Message) error {
	_, err := c.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    c.chatID,
		Text:      formatTelegram(msg),
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

var typeIcons = map[models.NotificationType]string{
	models.NotificationSuccess:  "✅",
	models.NotificationError:    "❌",
	models.NotificationWarning:  "⚠️",
	models.NotificationSecurity: "🔒",
	models.NotificationInfo:     "ℹ️",
}

func formatTelegram(msg Message) string {
	icon, ok := typeIcons[msg.Type]
	if !ok {
		icon = typeIcons[models.NotificationInfo]
	}
	return fmt.Sprintf("%s <b>%s</b>\n%s", icon, escapeHTML(msg.Title), escapeHTML(msg.Body))
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
