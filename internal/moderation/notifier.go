package moderation

import (
	"context"
	"log"
	"time"
)

// Scheduler schedules the delayed deletion of a bot-posted message. The
// actual delayed execution belongs to the transport layer; the notifier only
// constructs the task.
type Scheduler interface {
	ScheduleDelete(chatID int64, messageID int, delay time.Duration)
}

// Notifier posts a transient explanation message after a moderation deletion
// and schedules its own cleanup. Notification is best-effort: failures are
// logged and never affect the moderation decision already taken.
type Notifier struct {
	Transport Transport
	Scheduler Scheduler
}

// NewNotifier creates a notifier over the given transport and scheduler.
func NewNotifier(t Transport, s Scheduler) *Notifier {
	return &Notifier{Transport: t, Scheduler: s}
}

// Notify posts text to the chat and schedules its deletion after ttl. It
// returns the posted message ID, or an error when the post itself failed.
func (n *Notifier) Notify(ctx context.Context, chatID int64, text string, ttl time.Duration) (int, error) {
	messageID, err := n.Transport.SendMessage(ctx, chatID, text)
	if err != nil {
		log.Printf("ERROR: Failed to post moderation notice in chat %d: %v", chatID, err)
		return 0, err
	}
	n.Scheduler.ScheduleDelete(chatID, messageID, ttl)
	return messageID, nil
}
