// Package moderation implements the message moderation pipeline: the
// channel-origin check, the regex content check, and the forward-duplicate
// check, applied in that order to every inbound group message.
package moderation

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// OriginKind tags the normalized forward origin of a message.
type OriginKind int

const (
	// OriginNone means no safe forward origin could be determined
	// (not a forward, or a hidden-sender forward).
	OriginNone OriginKind = iota
	// OriginChannel is a forward of a channel post with a known source
	// chat and message ID.
	OriginChannel
	// OriginUser is a forward attributed to a known user.
	OriginUser
)

// ForwardOrigin is the forward metadata of a message, normalized once at the
// transport boundary. Telegram has shipped two historical shapes for this
// data; downstream code only ever sees this one.
type ForwardOrigin struct {
	Kind OriginKind

	// Channel origin fields.
	ChatID    int64
	MessageID int

	// User origin fields. Date is the unix timestamp of the original
	// message, zero when the legacy API shape omitted it.
	UserID int64
	Date   int64
}

// NormalizeForwardOrigin extracts the forward origin from a raw message.
func NormalizeForwardOrigin(msg *tgbotapi.Message) ForwardOrigin {
	switch {
	case msg.ForwardFromChat != nil && msg.ForwardFromMessageID != 0:
		return ForwardOrigin{
			Kind:      OriginChannel,
			ChatID:    msg.ForwardFromChat.ID,
			MessageID: msg.ForwardFromMessageID,
		}
	case msg.ForwardFrom != nil:
		return ForwardOrigin{
			Kind:   OriginUser,
			UserID: msg.ForwardFrom.ID,
			Date:   int64(msg.ForwardDate),
		}
	default:
		// Hidden-sender forwards carry only ForwardSenderName; there is
		// no collision-resistant identity to build on.
		return ForwardOrigin{Kind: OriginNone}
	}
}

// IsForwarded reports whether the message carries any forward metadata at all,
// including hidden-sender forwards that cannot be fingerprinted.
func IsForwarded(msg *tgbotapi.Message) bool {
	return msg.ForwardFrom != nil ||
		msg.ForwardFromChat != nil ||
		msg.ForwardDate != 0 ||
		msg.ForwardSenderName != ""
}
