package models

import (
	"time"

	"github.com/lib/pq"
)

// ChatSettings holds the per-chat moderation configuration in PostgreSQL.
// A chat that never configured anything gets a zero-value row, which means
// every feature is disabled and both lists are empty.
type ChatSettings struct {
	// ChatID is the Telegram chat identifier, used as the primary key.
	ChatID int64 `gorm:"primaryKey;autoIncrement:false" json:"chat_id"`

	// JanitorEnabled gates the regex content filter.
	JanitorEnabled bool `gorm:"default:false" json:"janitor_enabled"`
	// ChannelFilterEnabled gates suppression of external channel posts.
	ChannelFilterEnabled bool `gorm:"default:false" json:"channel_filter_enabled"`
	// ForwardSpamProtectionEnabled gates forward deduplication.
	ForwardSpamProtectionEnabled bool `gorm:"default:false" json:"forward_spam_protection_enabled"`

	// FilterPatterns is the ordered list of regex patterns. Order matters:
	// patterns are numbered for removal and evaluated first to last.
	FilterPatterns pq.StringArray `gorm:"type:text[]" json:"filter_patterns"`
	// ChannelWhitelist holds channel usernames (without @) or stringified
	// numeric channel IDs exempt from channel filtering.
	ChannelWhitelist pq.StringArray `gorm:"type:text[]" json:"channel_whitelist"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Flag names accepted by the settings store's Toggle operation.
const (
	FlagJanitor       = "janitor"
	FlagChannelFilter = "channel_filter"
	FlagForwardSpam   = "forward_spam"
)
