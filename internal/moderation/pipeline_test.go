package moderation_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"janitorbot/backend/internal/config"
	"janitorbot/backend/internal/models"
	"janitorbot/backend/internal/moderation"
)

const testChatID = int64(-100200300)

func groupMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 77,
		Chat:      &tgbotapi.Chat{ID: testChatID, Type: "supergroup"},
		From:      &tgbotapi.User{ID: 4242, UserName: "somebody"},
		Text:      text,
	}
}

func newTestPipeline(settings models.ChatSettings) (*moderation.Pipeline, *MockTransport, *stubStateProvider, *fakeScheduler, *fakePublisher) {
	transport := new(MockTransport)
	state := newStubState(settings)
	scheduler := &fakeScheduler{}
	publisher := &fakePublisher{}
	notifier := moderation.NewNotifier(transport, scheduler)
	pipeline := moderation.NewPipeline(state, transport, notifier, publisher)
	return pipeline, transport, state, scheduler, publisher
}

func TestPipeline_AllChecksDisabledDoesNothing(t *testing.T) {
	pipeline, transport, _, _, _ := newTestPipeline(models.ChatSettings{ChatID: testChatID})

	action := pipeline.Run(context.Background(), groupMessage("spam spam spam"))

	assert.False(t, action.Deleted)
	transport.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_SettingsFailureLeavesMessageAlone(t *testing.T) {
	pipeline, transport, state, _, _ := newTestPipeline(models.ChatSettings{
		ChatID:         testChatID,
		JanitorEnabled: true,
		FilterPatterns: pq.StringArray{"spam"},
	})
	state.err = errors.New("database down")

	action := pipeline.Run(context.Background(), groupMessage("spam"))

	assert.False(t, action.Deleted)
	transport.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_RegexMatchDeletesAndNotifies(t *testing.T) {
	pipeline, transport, _, scheduler, publisher := newTestPipeline(models.ChatSettings{
		ChatID:         testChatID,
		JanitorEnabled: true,
		FilterPatterns: pq.StringArray{`\bspam\b`},
	})
	transport.On("DeleteMessage", mock.Anything, testChatID, 77).Return(nil)
	transport.On("SendMessage", mock.Anything, testChatID, mock.AnythingOfType("string")).Return(901, nil)

	action := pipeline.Run(context.Background(), groupMessage("this is spam now"))

	assert.True(t, action.Deleted)
	assert.Equal(t, models.ReasonRegexFilter, action.Reason)
	assert.Equal(t, `\bspam\b`, action.Detail)
	transport.AssertExpectations(t)

	// The notice cleans itself up after the filter notice TTL.
	assert.Len(t, scheduler.scheduled, 1)
	assert.Equal(t, 901, scheduler.scheduled[0].MessageID)
	assert.Equal(t, config.FilterNoticeTTL, scheduler.scheduled[0].Delay)

	assert.Len(t, publisher.events, 1)
	assert.Equal(t, models.ReasonRegexFilter, publisher.events[0].Reason)
	assert.Equal(t, int64(4242), publisher.events[0].UserID)
}

func TestPipeline_RegexWordBoundaryDoesNotMatchSubstring(t *testing.T) {
	pipeline, transport, _, _, _ := newTestPipeline(models.ChatSettings{
		ChatID:         testChatID,
		JanitorEnabled: true,
		FilterPatterns: pq.StringArray{`\bspam\b`},
	})

	action := pipeline.Run(context.Background(), groupMessage("we love spamalot"))

	assert.False(t, action.Deleted)
	transport.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_RegexIsCaseInsensitive(t *testing.T) {
	pipeline, transport, _, _, _ := newTestPipeline(models.ChatSettings{
		ChatID:         testChatID,
		JanitorEnabled: true,
		FilterPatterns: pq.StringArray{"crypto"},
	})
	transport.On("DeleteMessage", mock.Anything, testChatID, 77).Return(nil)
	transport.On("SendMessage", mock.Anything, testChatID, mock.AnythingOfType("string")).Return(901, nil)

	action := pipeline.Run(context.Background(), groupMessage("Free CRYPTO signals"))
	assert.True(t, action.Deleted)
}

func TestPipeline_RegexChecksCaption(t *testing.T) {
	pipeline, transport, _, _, _ := newTestPipeline(models.ChatSettings{
		ChatID:         testChatID,
		JanitorEnabled: true,
		FilterPatterns: pq.StringArray{"spam"},
	})
	transport.On("DeleteMessage", mock.Anything, testChatID, 77).Return(nil)
	transport.On("SendMessage", mock.Anything, testChatID, mock.AnythingOfType("string")).Return(901, nil)

	msg := groupMessage("")
	msg.Caption = "spam in the caption"
	msg.Photo = []tgbotapi.PhotoSize{{FileUniqueID: "p1"}}

	action := pipeline.Run(context.Background(), msg)
	assert.True(t, action.Deleted)
}

func TestPipeline_InvalidPatternIsSkippedNotFatal(t *testing.T) {
	pipeline, transport, _, _, _ := newTestPipeline(models.ChatSettings{
		ChatID:         testChatID,
		JanitorEnabled: true,
		FilterPatterns: pq.StringArray{"([unclosed", "spam"},
	})
	transport.On("DeleteMessage", mock.Anything, testChatID, 77).Return(nil)
	transport.On("SendMessage", mock.Anything, testChatID, mock.AnythingOfType("string")).Return(901, nil)

	// The broken first pattern must not stop the second from matching.
	action := pipeline.Run(context.Background(), groupMessage("spam here"))
	assert.True(t, action.Deleted)
	assert.Equal(t, "spam", action.Detail)
}

func TestPipeline_CommandsAreExemptFromContentChecks(t *testing.T) {
	pipeline, transport, _, _, _ := newTestPipeline(models.ChatSettings{
		ChatID:         testChatID,
		JanitorEnabled: true,
		FilterPatterns: pq.StringArray{"spam"},
	})

	msg := groupMessage("/add_filter spam")
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 11}}

	action := pipeline.Run(context.Background(), msg)
	assert.False(t, action.Deleted)
	transport.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_DeleteFailureMeansNoNotice(t *testing.T) {
	pipeline, transport, _, scheduler, publisher := newTestPipeline(models.ChatSettings{
		ChatID:         testChatID,
		JanitorEnabled: true,
		FilterPatterns: pq.StringArray{"spam"},
	})
	transport.On("DeleteMessage", mock.Anything, testChatID, 77).Return(errors.New("no rights"))

	action := pipeline.Run(context.Background(), groupMessage("spam"))

	assert.False(t, action.Deleted)
	transport.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, scheduler.scheduled)
	assert.Empty(t, publisher.events)
}

func TestPipeline_ChannelPostDeleted(t *testing.T) {
	pipeline, transport, _, scheduler, publisher := newTestPipeline(models.ChatSettings{
		ChatID:               testChatID,
		ChannelFilterEnabled: true,
	})
	transport.On("DeleteMessage", mock.Anything, testChatID, 77).Return(nil)
	transport.On("SendMessage", mock.Anything, testChatID, mock.AnythingOfType("string")).Return(902, nil)

	msg := groupMessage("promo from a channel")
	msg.SenderChat = &tgbotapi.Chat{ID: -100999, Type: "channel", Title: "Promo Channel"}

	action := pipeline.Run(context.Background(), msg)

	assert.True(t, action.Deleted)
	assert.Equal(t, models.ReasonChannelFilter, action.Reason)
	assert.Equal(t, "Promo Channel", action.Detail)
	assert.Equal(t, config.FilterNoticeTTL, scheduler.scheduled[0].Delay)
	assert.Equal(t, models.ReasonChannelFilter, publisher.events[0].Reason)
}

func TestPipeline_OwnChatSenderNeverFires(t *testing.T) {
	pipeline, transport, _, _, _ := newTestPipeline(models.ChatSettings{
		ChatID:               testChatID,
		ChannelFilterEnabled: true,
	})

	// Anonymous admin posts arrive attributed to the group itself.
	msg := groupMessage("posted as the group")
	msg.SenderChat = &tgbotapi.Chat{ID: testChatID, Type: "supergroup"}

	action := pipeline.Run(context.Background(), msg)
	assert.False(t, action.Deleted)
	transport.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_WhitelistedChannelSkipped(t *testing.T) {
	pipeline, transport, _, _, _ := newTestPipeline(models.ChatSettings{
		ChatID:               testChatID,
		ChannelFilterEnabled: true,
		ChannelWhitelist:     pq.StringArray{"goodchannel"},
	})

	msg := groupMessage("allowed channel content")
	msg.SenderChat = &tgbotapi.Chat{ID: -100111, Type: "channel", UserName: "goodchannel"}

	action := pipeline.Run(context.Background(), msg)
	assert.False(t, action.Deleted)
	transport.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_WhitelistByNumericID(t *testing.T) {
	pipeline, transport, _, _, _ := newTestPipeline(models.ChatSettings{
		ChatID:               testChatID,
		ChannelFilterEnabled: true,
		ChannelWhitelist:     pq.StringArray{"-100111"},
	})

	msg := groupMessage("allowed by id")
	msg.SenderChat = &tgbotapi.Chat{ID: -100111, Type: "channel"}

	action := pipeline.Run(context.Background(), msg)
	assert.False(t, action.Deleted)
	transport.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_ChannelCheckRunsBeforeRegex(t *testing.T) {
	pipeline, transport, _, _, _ := newTestPipeline(models.ChatSettings{
		ChatID:               testChatID,
		JanitorEnabled:       true,
		ChannelFilterEnabled: true,
		FilterPatterns:       pq.StringArray{"spam"},
	})
	transport.On("DeleteMessage", mock.Anything, testChatID, 77).Return(nil)
	transport.On("SendMessage", mock.Anything, testChatID, mock.AnythingOfType("string")).Return(903, nil)

	msg := groupMessage("spam from a channel")
	msg.SenderChat = &tgbotapi.Chat{ID: -100999, Type: "channel", Title: "Noisy"}

	action := pipeline.Run(context.Background(), msg)
	assert.True(t, action.Deleted)
	assert.Equal(t, models.ReasonChannelFilter, action.Reason)
}

func TestPipeline_RepeatedForwardDeleted(t *testing.T) {
	pipeline, transport, _, scheduler, publisher := newTestPipeline(models.ChatSettings{
		ChatID:                       testChatID,
		ForwardSpamProtectionEnabled: true,
	})
	transport.On("DeleteMessage", mock.Anything, testChatID, 77).Return(nil)
	// Almost no time passes between the two sightings, so the notice tells
	// the sender to wait out nearly the whole window.
	transport.On("SendMessage", mock.Anything, testChatID, mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "Try again in 23h 59m")
	})).Return(904, nil)

	forward := func() *tgbotapi.Message {
		msg := groupMessage("look at this")
		msg.ForwardFromChat = &tgbotapi.Chat{ID: -100555, Type: "channel"}
		msg.ForwardFromMessageID = 13
		msg.ForwardDate = 1700000000
		return msg
	}

	first := pipeline.Run(context.Background(), forward())
	assert.False(t, first.Deleted)

	second := pipeline.Run(context.Background(), forward())
	assert.True(t, second.Deleted)
	assert.Equal(t, models.ReasonForwardSpam, second.Reason)
	assert.Equal(t, "chat:-100555:msg:13", second.Detail)

	// Dedup notices use the short TTL.
	assert.Len(t, scheduler.scheduled, 1)
	assert.Equal(t, config.ForwardNoticeTTL, scheduler.scheduled[0].Delay)
	assert.Equal(t, models.ReasonForwardSpam, publisher.events[0].Reason)
}

func TestPipeline_AutomaticForwardSkipped(t *testing.T) {
	pipeline, transport, _, _, _ := newTestPipeline(models.ChatSettings{
		ChatID:                       testChatID,
		ForwardSpamProtectionEnabled: true,
	})

	msg := groupMessage("linked channel post")
	msg.ForwardFromChat = &tgbotapi.Chat{ID: -100555, Type: "channel"}
	msg.ForwardFromMessageID = 13
	msg.IsAutomaticForward = true

	pipeline.Run(context.Background(), msg)
	action := pipeline.Run(context.Background(), msg)
	assert.False(t, action.Deleted)
	transport.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_ServiceAccountForwardSkipped(t *testing.T) {
	pipeline, transport, _, _, _ := newTestPipeline(models.ChatSettings{
		ChatID:                       testChatID,
		ForwardSpamProtectionEnabled: true,
	})

	msg := groupMessage("relayed post")
	msg.ForwardFrom = &tgbotapi.User{ID: config.TelegramServiceUserID}
	msg.ForwardDate = 1700000000

	pipeline.Run(context.Background(), msg)
	action := pipeline.Run(context.Background(), msg)
	assert.False(t, action.Deleted)
	transport.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_ForwardCheckDisabledNeverDeletes(t *testing.T) {
	pipeline, transport, _, _, _ := newTestPipeline(models.ChatSettings{ChatID: testChatID})

	msg := groupMessage("repeat me")
	msg.ForwardFromChat = &tgbotapi.Chat{ID: -100555, Type: "channel"}
	msg.ForwardFromMessageID = 13

	pipeline.Run(context.Background(), msg)
	action := pipeline.Run(context.Background(), msg)
	assert.False(t, action.Deleted)
	transport.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_NilMessageIsIgnored(t *testing.T) {
	pipeline, _, _, _, _ := newTestPipeline(models.ChatSettings{ChatID: testChatID})
	action := pipeline.Run(context.Background(), nil)
	assert.False(t, action.Deleted)
}

func TestNotifier_SchedulesCleanupAfterPosting(t *testing.T) {
	transport := new(MockTransport)
	scheduler := &fakeScheduler{}
	notifier := moderation.NewNotifier(transport, scheduler)
	transport.On("SendMessage", mock.Anything, testChatID, "notice text").Return(345, nil)

	messageID, err := notifier.Notify(context.Background(), testChatID, "notice text", 30*time.Second)

	assert.NoError(t, err)
	assert.Equal(t, 345, messageID)
	assert.Equal(t, scheduledDelete{testChatID, 345, 30 * time.Second}, scheduler.scheduled[0])
}

func TestNotifier_SendFailureSchedulesNothing(t *testing.T) {
	transport := new(MockTransport)
	scheduler := &fakeScheduler{}
	notifier := moderation.NewNotifier(transport, scheduler)
	transport.On("SendMessage", mock.Anything, testChatID, "notice text").Return(0, errors.New("flood wait"))

	_, err := notifier.Notify(context.Background(), testChatID, "notice text", 30*time.Second)

	assert.Error(t, err)
	assert.Empty(t, scheduler.scheduled)
}
