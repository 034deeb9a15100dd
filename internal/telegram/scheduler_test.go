package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingDeleter struct {
	mu      sync.Mutex
	deleted []int
}

func (d *recordingDeleter) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted = append(d.deleted, messageID)
	return nil
}

func (d *recordingDeleter) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.deleted)
}

func TestDeleteScheduler_FiresAfterDelay(t *testing.T) {
	deleter := &recordingDeleter{}
	scheduler := NewDeleteScheduler(deleter)

	scheduler.ScheduleDelete(1, 100, 20*time.Millisecond)
	assert.Equal(t, 1, scheduler.PendingCount())

	assert.Eventually(t, func() bool {
		return deleter.count() == 1 && scheduler.PendingCount() == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{100}, deleter.deleted)
}

func TestDeleteScheduler_StopCancelsPending(t *testing.T) {
	deleter := &recordingDeleter{}
	scheduler := NewDeleteScheduler(deleter)

	scheduler.ScheduleDelete(1, 100, time.Hour)
	scheduler.ScheduleDelete(1, 101, time.Hour)
	assert.Equal(t, 2, scheduler.PendingCount())

	scheduler.Stop()
	assert.Equal(t, 0, scheduler.PendingCount())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, deleter.count())
}

func TestDeleteScheduler_IndependentTasks(t *testing.T) {
	deleter := &recordingDeleter{}
	scheduler := NewDeleteScheduler(deleter)

	scheduler.ScheduleDelete(1, 100, 10*time.Millisecond)
	scheduler.ScheduleDelete(2, 200, time.Hour)

	assert.Eventually(t, func() bool { return deleter.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, scheduler.PendingCount())
	scheduler.Stop()
}
