package eventhub

import (
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"janitorbot/backend/internal/models"
)

// EventSource is the slice of the storage layer the hub consumes.
type EventSource interface {
	SubscribeEvents() *redis.PubSub
}

// Hub keeps the set of live subscriber connections and broadcasts every
// moderation event to all of them. A client whose send channel is full is
// dropped rather than allowed to stall the broadcast.
type Hub struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client

	source EventSource
	events chan models.ModerationEvent
}

// NewHub creates an event hub over the given event source.
func NewHub(source EventSource) *Hub {
	return &Hub{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		source:       source,
		events:       make(chan models.ModerationEvent, 64),
	}
}

// Broadcast feeds an event into the hub directly, bypassing Redis.
func (h *Hub) Broadcast(event models.ModerationEvent) {
	h.events <- event
}

// startListener runs the goroutine that bridges Redis Pub/Sub into the hub's
// event channel.
func (h *Hub) startListener() {
	if h.source == nil {
		return
	}
	go func() {
		pubsub := h.source.SubscribeEvents()
		defer pubsub.Close()

		for msg := range pubsub.Channel() {
			var event models.ModerationEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("Error unmarshalling Redis event: %v", err)
				continue
			}
			h.events <- event
		}
	}()
}

// Run is the hub's main loop. It owns the Clients map; registration,
// removal, and broadcast all happen on this goroutine.
func (h *Hub) Run() {
	h.startListener()

	for {
		select {
		case client := <-h.RegisterCh:
			h.Clients[client.GetID()] = client
			client.Run()
			log.Printf("Event subscriber %s connected (%d total)", client.GetID(), len(h.Clients))

		case client := <-h.UnregisterCh:
			if _, ok := h.Clients[client.GetID()]; ok {
				delete(h.Clients, client.GetID())
				client.Close()
				log.Printf("Event subscriber %s disconnected (%d total)", client.GetID(), len(h.Clients))
			}

		case event := <-h.events:
			for id, client := range h.Clients {
				select {
				case client.GetSendChannel() <- event:
				default:
					// Slow subscriber, drop it before it backs up the feed.
					delete(h.Clients, id)
					client.Close()
					log.Printf("WARN: Dropped slow event subscriber %s", id)
				}
			}
		}
	}
}
