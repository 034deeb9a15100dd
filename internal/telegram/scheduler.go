package telegram

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageDeleter is the slice of the transport the scheduler needs.
type MessageDeleter interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// DeleteScheduler fires best-effort message deletions after a delay. Tasks
// survive until they fire or Stop is called; failures are logged and dropped,
// a notice that outlives its timer is a cosmetic problem only.
type DeleteScheduler struct {
	transport MessageDeleter

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewDeleteScheduler creates a scheduler over the given transport.
func NewDeleteScheduler(transport MessageDeleter) *DeleteScheduler {
	return &DeleteScheduler{
		transport: transport,
		pending:   make(map[string]*time.Timer),
	}
}

// ScheduleDelete arranges for the message to be deleted after the delay.
func (s *DeleteScheduler) ScheduleDelete(chatID int64, messageID int, delay time.Duration) {
	taskID := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[taskID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.pending, taskID)
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.transport.DeleteMessage(ctx, chatID, messageID); err != nil {
			log.Printf("WARN: Scheduled delete of message %d in chat %d failed: %v", messageID, chatID, err)
		}
	})
}

// Stop cancels all pending deletions.
func (s *DeleteScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for taskID, timer := range s.pending {
		timer.Stop()
		delete(s.pending, taskID)
	}
}

// PendingCount reports how many deletions are waiting to fire.
func (s *DeleteScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
