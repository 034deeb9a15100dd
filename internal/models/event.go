package models

import "time"

// Moderation event reasons, one per pipeline check.
const (
	ReasonChannelFilter = "channel_filter"
	ReasonRegexFilter   = "regex_filter"
	ReasonForwardSpam   = "forward_spam"
)

// ModerationEvent describes a single deletion performed by the pipeline.
// Events are published to Redis and fanned out to connected feed clients.
type ModerationEvent struct {
	ChatID    int64  `json:"chat_id"`
	MessageID int    `json:"message_id"`
	UserID    int64  `json:"user_id,omitempty"`
	Reason    string `json:"reason"`
	// Detail carries the matched pattern, the channel name, or the
	// dedup fingerprint, depending on Reason.
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TrackedChat is the chat registry entry kept in Redis. It backs the owner
// diagnostics commands and the admin API chat listing.
type TrackedChat struct {
	ChatID       int64  `json:"chat_id" redis:"chat_id"`
	Title        string `json:"title" redis:"title"`
	Type         string `json:"type" redis:"type"`
	Username     string `json:"username" redis:"username"`
	Members      int    `json:"members" redis:"members"`
	LastActivity int64  `json:"last_activity" redis:"last_activity"`
}
