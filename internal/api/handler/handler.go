// Package handler exposes the admin HTTP API: token issuance, the chat
// registry, per-chat settings, and the live moderation event feed.
package handler

import (
	"janitorbot/backend/internal/config"
	"janitorbot/backend/internal/eventhub"
	"janitorbot/backend/internal/settings"
	"janitorbot/backend/internal/storage"
)

// Handler holds the dependencies shared by all admin API endpoints.
type Handler struct {
	Hub      *eventhub.Hub
	Settings *settings.Store
	Storage  storage.Storage
	Config   *config.Config
}

func NewHandler(hub *eventhub.Hub, store *settings.Store, s storage.Storage, cfg *config.Config) *Handler {
	return &Handler{Hub: hub, Settings: store, Storage: s, Config: cfg}
}
