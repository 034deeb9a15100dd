// Package storage persists chat settings in PostgreSQL and keeps the chat
// activity registry and the moderation event stream in Redis.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"

	"janitorbot/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// EventsChannel is the Redis pub/sub channel carrying moderation events.
const EventsChannel = "moderation:events"

type Storage interface {
	GetChatSettings(chatID int64) (*models.ChatSettings, error)
	SaveChatSettings(settings *models.ChatSettings) error
	DeleteChatSettings(chatID int64) error
	ListChatSettings() ([]models.ChatSettings, error)

	TouchChat(chat models.TrackedChat) error
	TrackedChats() ([]models.TrackedChat, error)

	PublishEvent(event models.ModerationEvent) error
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// GetChatSettings loads the settings row for a chat, creating a zero-value
// row on first access. A brand-new chat therefore starts with every feature
// disabled and empty lists.
func (s *Service) GetChatSettings(chatID int64) (*models.ChatSettings, error) {
	var settings models.ChatSettings
	err := s.DB.FirstOrCreate(&settings, models.ChatSettings{ChatID: chatID}).Error
	if err != nil {
		log.Printf("ERROR: Failed to load settings for chat %d: %v", chatID, err)
		return nil, err
	}
	return &settings, nil
}

// SaveChatSettings writes the full settings row back to PostgreSQL.
func (s *Service) SaveChatSettings(settings *models.ChatSettings) error {
	return s.DB.Save(settings).Error
}

// DeleteChatSettings removes a chat's settings row entirely.
func (s *Service) DeleteChatSettings(chatID int64) error {
	return s.DB.Delete(&models.ChatSettings{}, "chat_id = ?", chatID).Error
}

// ListChatSettings returns every configured chat, for the admin surfaces.
func (s *Service) ListChatSettings() ([]models.ChatSettings, error) {
	var all []models.ChatSettings
	if err := s.DB.Order("chat_id").Find(&all).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return all, nil
		}
		return nil, err
	}
	return all, nil
}

// TouchChat records a chat sighting in the Redis registry.
func (s *Service) TouchChat(chat models.TrackedChat) error {
	key := chatKey(chat.ChatID)
	if err := s.Redis.HSet(s.Ctx, key,
		"chat_id", chat.ChatID,
		"title", chat.Title,
		"type", chat.Type,
		"username", chat.Username,
		"members", chat.Members,
		"last_activity", chat.LastActivity,
	).Err(); err != nil {
		return err
	}
	return s.Redis.SAdd(s.Ctx, "chats", strconv.FormatInt(chat.ChatID, 10)).Err()
}

// TrackedChats returns every chat the bot has seen activity in.
func (s *Service) TrackedChats() ([]models.TrackedChat, error) {
	ids, err := s.Redis.SMembers(s.Ctx, "chats").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	chats := make([]models.TrackedChat, 0, len(ids))
	for _, id := range ids {
		chatID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		var chat models.TrackedChat
		if err := s.Redis.HGetAll(s.Ctx, chatKey(chatID)).Scan(&chat); err != nil {
			log.Printf("WARN: Failed to read registry entry for chat %d: %v", chatID, err)
			continue
		}
		if chat.ChatID == 0 {
			continue // expired or never written
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

// PublishEvent broadcasts a moderation event over Redis Pub/Sub.
func (s *Service) PublishEvent(event models.ModerationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, EventsChannel, string(payload)).Err()
}

// SubscribeEvents subscribes to the moderation event stream. The caller owns
// the returned PubSub and must close it.
func (s *Service) SubscribeEvents() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, EventsChannel)
}

func chatKey(chatID int64) string {
	return fmt.Sprintf("chat:%d", chatID)
}
