// Package telegram handles the integration with the Telegram Bot API.
// It is responsible for receiving updates from Telegram, running them through
// the moderation pipeline, and serving the bot's command interface.
package telegram

import (
	"context"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"janitorbot/backend/internal/config"
	"janitorbot/backend/internal/models"
	"janitorbot/backend/internal/moderation"
	"janitorbot/backend/internal/settings"
	"janitorbot/backend/internal/storage"
)

// BotService receives Telegram updates and routes them to the moderation
// pipeline and command handlers.
type BotService struct {
	Client    *BotClient
	Storage   storage.Storage
	Settings  *settings.Store
	Pipeline  *moderation.Pipeline
	Gate      *moderation.Gate
	Scheduler *DeleteScheduler
}

// NewBotService authorizes the bot and assembles the moderation stack on top
// of it.
func NewBotService(cfg *config.Config, store *settings.Store, s storage.Storage) (*BotService, error) {
	client, err := NewBotClient(cfg.BotToken)
	if err != nil {
		return nil, err
	}

	scheduler := NewDeleteScheduler(client)
	notifier := moderation.NewNotifier(client, scheduler)
	pipeline := moderation.NewPipeline(store, client, notifier, s)
	gate := moderation.NewGate(client, cfg.OwnerIDs)

	return &BotService{
		Client:    client,
		Storage:   s,
		Settings:  store,
		Pipeline:  pipeline,
		Gate:      gate,
		Scheduler: scheduler,
	}, nil
}

// Run is the main loop for receiving Telegram updates.
func (s *BotService) Run() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.Client.API().GetUpdatesChan(u)

	for update := range updates {
		switch {
		case update.Message != nil:
			go s.handleMessage(update.Message)
		case update.EditedMessage != nil:
			go s.handleMessage(update.EditedMessage)
		case update.MyChatMember != nil:
			s.handleMembershipChange(update.MyChatMember)
		}
	}
}

// handleMessage runs a single message through tracking, moderation, and
// command dispatch. Moderation runs first so a command in a forwarded spam
// message is still removed before the command layer sees it.
func (s *BotService) handleMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.trackChat(msg)

	if action := s.Pipeline.Run(ctx, msg); action.Deleted {
		return
	}

	if msg.IsCommand() {
		s.handleCommand(ctx, msg)
	}
}

// trackChat registers chat activity in the Redis chat registry.
func (s *BotService) trackChat(msg *tgbotapi.Message) {
	if msg.Chat == nil || msg.Chat.IsPrivate() {
		return
	}
	chat := models.TrackedChat{
		ChatID:       msg.Chat.ID,
		Title:        msg.Chat.Title,
		Type:         msg.Chat.Type,
		Username:     msg.Chat.UserName,
		LastActivity: time.Now().Unix(),
	}
	if err := s.Storage.TouchChat(chat); err != nil {
		log.Printf("WARN: Failed to track chat %d: %v", msg.Chat.ID, err)
	}
}

// handleMembershipChange logs the bot joining or leaving a group and records
// the member count while the join makes it cheap to ask.
func (s *BotService) handleMembershipChange(update *tgbotapi.ChatMemberUpdated) {
	status := update.NewChatMember.Status
	switch status {
	case "member", "administrator":
		log.Printf("Joined chat %d (%s) as %s", update.Chat.ID, update.Chat.Title, status)
		chat := models.TrackedChat{
			ChatID:       update.Chat.ID,
			Title:        update.Chat.Title,
			Type:         update.Chat.Type,
			Username:     update.Chat.UserName,
			LastActivity: time.Now().Unix(),
		}
		if count, err := s.Client.API().GetChatMembersCount(tgbotapi.ChatMemberCountConfig{
			ChatConfig: tgbotapi.ChatConfig{ChatID: update.Chat.ID},
		}); err == nil {
			chat.Members = count
		}
		if err := s.Storage.TouchChat(chat); err != nil {
			log.Printf("WARN: Failed to track chat %d: %v", update.Chat.ID, err)
		}
	case "left", "kicked":
		log.Printf("Removed from chat %d (%s)", update.Chat.ID, update.Chat.Title)
	}
}

// Stop cancels pending scheduled deletions and stops the update stream.
func (s *BotService) Stop() {
	s.Client.API().StopReceivingUpdates()
	s.Scheduler.Stop()
}
