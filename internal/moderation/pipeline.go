package moderation

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"time"

	"janitorbot/backend/internal/config"
	"janitorbot/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Transport is the slice of the chat transport the pipeline consumes.
type Transport interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
	GetChatAdministrators(ctx context.Context, chatID int64) ([]int64, error)
}

// ChatStateProvider exposes the per-chat configuration and dedup cache. The
// implementation owns the locking discipline; the pipeline only ever sees
// settings copies and the cache handle.
type ChatStateProvider interface {
	Settings(chatID int64) (models.ChatSettings, error)
	Dedup(chatID int64) *DedupCache
}

// EventPublisher receives one event per deletion the pipeline performs.
type EventPublisher interface {
	PublishEvent(event models.ModerationEvent) error
}

// Action is the pipeline's verdict for one inbound message.
type Action struct {
	Deleted bool
	// Reason is one of the models.Reason* constants when Deleted is set.
	Reason string
	// Detail names the channel, the matched pattern, or the fingerprint.
	Detail string
}

// Pipeline runs the fixed-order moderation checks against inbound messages.
// Checks short-circuit on the first match; a failing check is logged and
// never aborts moderation of later messages.
type Pipeline struct {
	Store     ChatStateProvider
	Transport Transport
	Notifier  *Notifier
	Events    EventPublisher
}

// NewPipeline wires the pipeline from its collaborators. Events may be nil.
func NewPipeline(store ChatStateProvider, transport Transport, notifier *Notifier, events EventPublisher) *Pipeline {
	return &Pipeline{
		Store:     store,
		Transport: transport,
		Notifier:  notifier,
		Events:    events,
	}
}

// Run applies the moderation checks to one inbound message and performs the
// delete/notify side effect for whichever check fires first.
//
// Ordering: channel filtering is the cheapest and most definitive signal and
// runs first; regex filtering is content-dependent and more expensive; the
// forward check needs a state lookup and only applies to forwards, so it runs
// last. Content checks are skipped for commands and contentless service
// updates; the forward check only needs the message to be a real forward.
func (p *Pipeline) Run(ctx context.Context, msg *tgbotapi.Message) Action {
	if msg == nil || msg.Chat == nil {
		return Action{}
	}

	settings, err := p.Store.Settings(msg.Chat.ID)
	if err != nil {
		// Worst case of any failure here: this one message goes
		// unmoderated.
		log.Printf("ERROR: Settings unavailable for chat %d: %v", msg.Chat.ID, err)
		return Action{}
	}

	content := messageContent(msg)
	if content != "" && !msg.IsCommand() {
		if action := p.checkChannel(ctx, msg, settings); action.Deleted {
			return action
		}
		if action := p.checkRegex(ctx, msg, settings, content); action.Deleted {
			return action
		}
	}

	if IsForwarded(msg) && !isServiceMessage(msg) {
		if action := p.checkForward(ctx, msg, settings); action.Deleted {
			return action
		}
	}

	return Action{}
}

// checkChannel suppresses posts whose sender is an external, non-whitelisted
// channel. Messages posted by the chat itself (e.g. anonymous admins) never
// fire.
func (p *Pipeline) checkChannel(ctx context.Context, msg *tgbotapi.Message, settings models.ChatSettings) Action {
	if !settings.ChannelFilterEnabled {
		return Action{}
	}

	sender := msg.SenderChat
	if sender == nil || !sender.IsChannel() || sender.ID == msg.Chat.ID {
		return Action{}
	}

	if channelWhitelisted(sender, settings.ChannelWhitelist) {
		log.Printf("Channel %s is whitelisted in chat %d, skipping deletion", channelName(sender), msg.Chat.ID)
		return Action{}
	}

	name := channelName(sender)
	if err := p.Transport.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID); err != nil {
		log.Printf("ERROR: Failed to delete channel message in chat %d: %v", msg.Chat.ID, err)
		return Action{}
	}

	p.notify(ctx, msg.Chat.ID, fmt.Sprintf("🚫 Deleted a message from channel: %s", name), config.FilterNoticeTTL)
	p.publish(models.ModerationEvent{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Reason:    models.ReasonChannelFilter,
		Detail:    name,
		Timestamp: time.Now().UTC(),
	})

	log.Printf("Deleted channel message from %s in chat %d", name, msg.Chat.ID)
	return Action{Deleted: true, Reason: models.ReasonChannelFilter, Detail: name}
}

// checkRegex evaluates the text-or-caption against every configured pattern,
// case-insensitively, in configured order. A pattern that fails to compile is
// logged and skipped, never fatal to the pass.
func (p *Pipeline) checkRegex(ctx context.Context, msg *tgbotapi.Message, settings models.ChatSettings, content string) Action {
	if !settings.JanitorEnabled || len(settings.FilterPatterns) == 0 {
		return Action{}
	}

	for _, pattern := range settings.FilterPatterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			log.Printf("ERROR: Skipping unparseable filter pattern %q in chat %d: %v", pattern, msg.Chat.ID, err)
			continue
		}
		if !re.MatchString(content) {
			continue
		}

		if err := p.Transport.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID); err != nil {
			log.Printf("ERROR: Failed to delete message %d in chat %d: %v", msg.MessageID, msg.Chat.ID, err)
			return Action{}
		}

		who := displayName(msg.From)
		p.notify(ctx, msg.Chat.ID,
			fmt.Sprintf("Deleted a message from %s\nMatched filter pattern: `%s`", who, pattern),
			config.FilterNoticeTTL)
		p.publish(models.ModerationEvent{
			ChatID:    msg.Chat.ID,
			MessageID: msg.MessageID,
			UserID:    senderID(msg),
			Reason:    models.ReasonRegexFilter,
			Detail:    pattern,
			Timestamp: time.Now().UTC(),
		})

		log.Printf("Deleted message from user %d in chat %d matching pattern %q", senderID(msg), msg.Chat.ID, pattern)
		return Action{Deleted: true, Reason: models.ReasonRegexFilter, Detail: pattern}
	}
	return Action{}
}

// checkForward deletes forwards whose fingerprint repeated within the window.
// Automatic linked-channel forwards and Telegram's own relay account are not
// user-initiated duplicates and are excluded entirely.
func (p *Pipeline) checkForward(ctx context.Context, msg *tgbotapi.Message, settings models.ChatSettings) Action {
	if !settings.ForwardSpamProtectionEnabled {
		return Action{}
	}
	if msg.IsAutomaticForward {
		log.Printf("FSP: Skipping automatic forward in chat %d", msg.Chat.ID)
		return Action{}
	}
	origin := NormalizeForwardOrigin(msg)
	if origin.Kind == OriginUser && origin.UserID == config.TelegramServiceUserID {
		log.Printf("FSP: Skipping linked channel post in chat %d", msg.Chat.ID)
		return Action{}
	}

	fingerprint, ok := BuildFingerprint(msg)
	if !ok {
		return Action{} // cannot safely identify origin; skip
	}

	cache := p.Store.Dedup(msg.Chat.ID)
	now := time.Now().UTC()
	cache.Cleanup(now)

	result := cache.Check(fingerprint, now)
	switch result.Outcome {
	case OutcomeNew:
		log.Printf("FSP: Tracking new forward key=%s in chat %d", fingerprint, msg.Chat.ID)
		return Action{}
	case OutcomeExpired:
		log.Printf("FSP: Reset tracking for forward key=%s in chat %d", fingerprint, msg.Chat.ID)
		return Action{}
	}

	if err := p.Transport.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID); err != nil {
		log.Printf("ERROR: FSP failed to delete message %d in chat %d: %v", msg.MessageID, msg.Chat.ID, err)
		return Action{}
	}

	remaining := config.DedupWindow - result.Elapsed
	if remaining < 0 {
		remaining = 0
	}
	p.notify(ctx, msg.Chat.ID,
		fmt.Sprintf("🧹 Removed repeated forwarded message from %s (within 24h). Try again in %s.",
			displayName(msg.From), formatRemaining(remaining)),
		config.ForwardNoticeTTL)
	p.publish(models.ModerationEvent{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		UserID:    senderID(msg),
		Reason:    models.ReasonForwardSpam,
		Detail:    fingerprint,
		Timestamp: now,
	})

	log.Printf("FSP: Deleted repeated forward key=%s in chat %d (elapsed %s)", fingerprint, msg.Chat.ID, result.Elapsed)
	return Action{Deleted: true, Reason: models.ReasonForwardSpam, Detail: fingerprint}
}

func (p *Pipeline) notify(ctx context.Context, chatID int64, text string, ttl time.Duration) {
	if p.Notifier == nil {
		return
	}
	// Best-effort; the deletion already happened.
	_, _ = p.Notifier.Notify(ctx, chatID, text, ttl)
}

func (p *Pipeline) publish(event models.ModerationEvent) {
	if p.Events == nil {
		return
	}
	if err := p.Events.PublishEvent(event); err != nil {
		log.Printf("WARN: Failed to publish moderation event for chat %d: %v", event.ChatID, err)
	}
}

// isServiceMessage reports whether the update is a contentless service event
// (member joins, title changes, pins and the like).
func isServiceMessage(msg *tgbotapi.Message) bool {
	return msg.NewChatMembers != nil ||
		msg.LeftChatMember != nil ||
		msg.NewChatTitle != "" ||
		msg.NewChatPhoto != nil ||
		msg.DeleteChatPhoto ||
		msg.GroupChatCreated ||
		msg.SuperGroupChatCreated ||
		msg.ChannelChatCreated ||
		msg.PinnedMessage != nil ||
		msg.MigrateToChatID != 0 ||
		msg.MigrateFromChatID != 0
}

// channelWhitelisted matches the sender channel against the whitelist by
// username or by stringified numeric ID.
func channelWhitelisted(sender *tgbotapi.Chat, whitelist []string) bool {
	id := strconv.FormatInt(sender.ID, 10)
	for _, entry := range whitelist {
		if entry == id {
			return true
		}
		if sender.UserName != "" && entry == sender.UserName {
			return true
		}
	}
	return false
}

func channelName(sender *tgbotapi.Chat) string {
	if sender.Title != "" {
		return sender.Title
	}
	return fmt.Sprintf("Channel %d", sender.ID)
}

// displayName picks the best available handle for a user-facing notice.
func displayName(user *tgbotapi.User) string {
	switch {
	case user == nil:
		return "unknown user"
	case user.UserName != "":
		return "@" + user.UserName
	case user.FirstName != "":
		return user.FirstName
	default:
		return fmt.Sprintf("User %d", user.ID)
	}
}

func senderID(msg *tgbotapi.Message) int64 {
	if msg.From == nil {
		return 0
	}
	return msg.From.ID
}

// formatRemaining renders a duration as "23h 59m 2s", dropping leading zero
// units the way the notices have always shown it.
func formatRemaining(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	out := ""
	if hours > 0 {
		out += fmt.Sprintf("%dh ", hours)
	}
	if minutes > 0 || hours > 0 {
		out += fmt.Sprintf("%dm ", minutes)
	}
	out += fmt.Sprintf("%ds", seconds)
	return out
}
