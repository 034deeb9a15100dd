// Package eventhub fans moderation events out to subscribed admin clients.
// Events arrive through Redis Pub/Sub, so every bot instance publishing to
// the same Redis feeds every hub.
package eventhub

import "janitorbot/backend/internal/models"

// Client is the interface for any kind of event subscriber connection.
// It abstracts the underlying transport so the hub can manage different
// client types uniformly.
type Client interface {
	// GetID returns the unique identifier for this connection.
	GetID() string

	// GetSendChannel returns the channel to which the hub delivers events
	// intended for this client. It is a send-only channel.
	GetSendChannel() chan<- models.ModerationEvent

	// Run starts the client's pumps, which handle outgoing events and
	// connection keepalive.
	Run()
	// Close gracefully shuts down the client's connection and channels.
	Close()
}
