package telegram

import (
	"context"
	"log"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"janitorbot/backend/internal/config"
)

// BotClient adapts the Telegram Bot API to the narrow surface the moderation
// pipeline needs. All methods honor context cancellation before issuing the
// network call; the underlying HTTP client carries the transport timeout.
type BotClient struct {
	api *tgbotapi.BotAPI
}

// NewBotClient authorizes against the Bot API using an HTTP client with the
// standard transport timeout.
func NewBotClient(token string) (*BotClient, error) {
	httpClient := &http.Client{Timeout: config.TransportTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Printf("✅ Authorized on account %s", bot.Self.UserName)
	return &BotClient{api: bot}, nil
}

// API exposes the raw bot handle for the update loop and command layer.
func (c *BotClient) API() *tgbotapi.BotAPI {
	return c.api
}

// DeleteMessage removes a message from a chat.
func (c *BotClient) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

// SendMessage sends a plain text message and returns its message ID.
func (c *BotClient) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sent, err := c.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// GetChatAdministrators returns the user IDs of the chat's current admins.
// No caching: moderation decisions always see the live admin list.
func (c *BotClient) GetChatAdministrators(ctx context.Context, chatID int64) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	admins, err := c.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(admins))
	for _, admin := range admins {
		if admin.User != nil {
			ids = append(ids, admin.User.ID)
		}
	}
	return ids, nil
}
