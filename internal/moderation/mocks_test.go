package moderation_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"janitorbot/backend/internal/models"
	"janitorbot/backend/internal/moderation"
)

// MockTransport is a testify mock of the moderation.Transport interface.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	args := m.Called(ctx, chatID, messageID)
	return args.Error(0)
}

func (m *MockTransport) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	args := m.Called(ctx, chatID, text)
	return args.Int(0), args.Error(1)
}

func (m *MockTransport) GetChatAdministrators(ctx context.Context, chatID int64) ([]int64, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// stubStateProvider serves fixed settings and a single shared dedup cache.
type stubStateProvider struct {
	settings models.ChatSettings
	err      error
	cache    *moderation.DedupCache
}

func newStubState(settings models.ChatSettings) *stubStateProvider {
	return &stubStateProvider{
		settings: settings,
		cache:    moderation.NewDedupCache(),
	}
}

func (s *stubStateProvider) Settings(chatID int64) (models.ChatSettings, error) {
	if s.err != nil {
		return models.ChatSettings{}, s.err
	}
	return s.settings, nil
}

func (s *stubStateProvider) Dedup(chatID int64) *moderation.DedupCache {
	return s.cache
}

// fakeScheduler records scheduled deletions instead of running them.
type fakeScheduler struct {
	scheduled []scheduledDelete
}

type scheduledDelete struct {
	ChatID    int64
	MessageID int
	Delay     time.Duration
}

func (f *fakeScheduler) ScheduleDelete(chatID int64, messageID int, delay time.Duration) {
	f.scheduled = append(f.scheduled, scheduledDelete{chatID, messageID, delay})
}

// fakePublisher collects published moderation events.
type fakePublisher struct {
	events []models.ModerationEvent
	err    error
}

func (f *fakePublisher) PublishEvent(event models.ModerationEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}
