package eventhub_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"janitorbot/backend/internal/eventhub"
	"janitorbot/backend/internal/models"
)

// mockClient is a test double for the eventhub.Client interface.
type mockClient struct {
	id   string
	send chan models.ModerationEvent
	ran  bool
}

func newMockClient(id string, buffer int) *mockClient {
	return &mockClient{id: id, send: make(chan models.ModerationEvent, buffer)}
}

func (c *mockClient) GetID() string                                 { return c.id }
func (c *mockClient) GetSendChannel() chan<- models.ModerationEvent { return c.send }
func (c *mockClient) Run()                                          { c.ran = true }
func (c *mockClient) Close()                                        { close(c.send) }

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := eventhub.NewHub(nil)
	go hub.Run()

	client := newMockClient("session-a", 10)
	hub.RegisterCh <- client
	time.Sleep(50 * time.Millisecond)
	assert.Contains(t, hub.Clients, "session-a")
	assert.True(t, client.ran)

	hub.UnregisterCh <- client
	time.Sleep(50 * time.Millisecond)
	assert.NotContains(t, hub.Clients, "session-a")
}

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	hub := eventhub.NewHub(nil)
	go hub.Run()

	clientA := newMockClient("session-a", 10)
	clientB := newMockClient("session-b", 10)
	hub.RegisterCh <- clientA
	hub.RegisterCh <- clientB
	time.Sleep(50 * time.Millisecond)

	event := models.ModerationEvent{
		ChatID:    -100,
		MessageID: 7,
		Reason:    models.ReasonRegexFilter,
		Detail:    "spam",
	}
	hub.Broadcast(event)
	time.Sleep(50 * time.Millisecond)

	select {
	case got := <-clientA.send:
		assert.Equal(t, event.Detail, got.Detail)
	default:
		t.Error("client A did not receive the event")
	}
	select {
	case got := <-clientB.send:
		assert.Equal(t, models.ReasonRegexFilter, got.Reason)
	default:
		t.Error("client B did not receive the event")
	}
}

func TestHub_SlowSubscriberIsDropped(t *testing.T) {
	hub := eventhub.NewHub(nil)
	go hub.Run()

	// Zero buffer and no reader: the first broadcast cannot be delivered.
	slow := newMockClient("slow", 0)
	healthy := newMockClient("healthy", 10)
	hub.RegisterCh <- slow
	hub.RegisterCh <- healthy
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(models.ModerationEvent{ChatID: -100, Reason: models.ReasonForwardSpam})
	time.Sleep(50 * time.Millisecond)

	assert.NotContains(t, hub.Clients, "slow")
	assert.Contains(t, hub.Clients, "healthy")
	assert.Len(t, healthy.send, 1)
}
