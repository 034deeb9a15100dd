package moderation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// mediaRef identifies the single media attachment of a message, if any.
type mediaRef struct {
	Kind     string
	UniqueID string
}

// BuildFingerprint derives a stable identity key for a forwarded message's
// origin. It returns ok=false when no safe, collision-resistant key can be
// built (hidden senders, forwards without content or media); callers must
// skip dedup tracking in that case rather than guess.
//
// Priority order, first applicable wins:
//  1. Known origin chat + message ID (channel post forwards). Strongest
//     signal: two forwards of the same source message always collide.
//  2. Known origin user with forward date, plus text hash and/or media ID.
//  3. Known origin user without a date (legacy API shape), plus text hash
//     and/or media ID.
//
// Combining origin identity with a content signature distinguishes "the same
// person forwarding different things" from true duplicates.
func BuildFingerprint(msg *tgbotapi.Message) (string, bool) {
	origin := NormalizeForwardOrigin(msg)

	switch origin.Kind {
	case OriginChannel:
		return fmt.Sprintf("chat:%d:msg:%d", origin.ChatID, origin.MessageID), true

	case OriginUser:
		parts := []string{fmt.Sprintf("user:%d", origin.UserID)}
		if origin.Date != 0 {
			parts = append(parts, fmt.Sprintf("date:%d", origin.Date))
		}

		hasSignal := false
		if content := strings.TrimSpace(messageContent(msg)); content != "" {
			parts = append(parts, "text:"+contentHash(content))
			hasSignal = true
		}
		if ref, ok := messageMedia(msg); ok {
			parts = append(parts, ref.Kind+":"+ref.UniqueID)
			hasSignal = true
		}
		if !hasSignal {
			return "", false
		}
		return strings.Join(parts, ":"), true

	default:
		return "", false
	}
}

// messageContent returns the text or, failing that, the caption of a message.
func messageContent(msg *tgbotapi.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

// messageMedia reads whichever single media field is populated, preferring
// the largest photo variant when Telegram supplies several sizes.
func messageMedia(msg *tgbotapi.Message) (mediaRef, bool) {
	switch {
	case len(msg.Photo) > 0:
		return mediaRef{"photo", msg.Photo[len(msg.Photo)-1].FileUniqueID}, true
	case msg.Document != nil:
		return mediaRef{"doc", msg.Document.FileUniqueID}, true
	case msg.Video != nil:
		return mediaRef{"video", msg.Video.FileUniqueID}, true
	case msg.Audio != nil:
		return mediaRef{"audio", msg.Audio.FileUniqueID}, true
	case msg.Voice != nil:
		return mediaRef{"voice", msg.Voice.FileUniqueID}, true
	case msg.Sticker != nil:
		return mediaRef{"sticker", msg.Sticker.FileUniqueID}, true
	case msg.Animation != nil:
		return mediaRef{"animation", msg.Animation.FileUniqueID}, true
	case msg.VideoNote != nil:
		return mediaRef{"videonote", msg.VideoNote.FileUniqueID}, true
	default:
		return mediaRef{}, false
	}
}

// contentHash produces a short stable digest of the forwarded text. Collisions
// are accepted: the window is short and a missed duplicate is cheap.
func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}
