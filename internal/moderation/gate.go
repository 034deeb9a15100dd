package moderation

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AdminLister fetches a chat's current administrator IDs from the transport.
type AdminLister interface {
	GetChatAdministrators(ctx context.Context, chatID int64) ([]int64, error)
}

// Gate decides whether an acting user may invoke a privileged operation.
// Chat-level privilege comes from the live administrator list; owner-level
// privilege comes from the ID list injected at construction time.
type Gate struct {
	admins   AdminLister
	ownerIDs []int64
}

// NewGate creates a gate backed by the given transport and owner list.
func NewGate(admins AdminLister, ownerIDs []int64) *Gate {
	return &Gate{admins: admins, ownerIDs: ownerIDs}
}

// IsPrivileged reports whether the user may run admin commands in the chat.
// Private conversations always qualify. In groups the administrator list is
// fetched on every call, never cached: admin lists change between calls.
// A transport failure fails closed and surfaces the error to the caller.
func (g *Gate) IsPrivileged(ctx context.Context, userID int64, chat *tgbotapi.Chat) (bool, error) {
	if chat.IsPrivate() {
		return true, nil
	}

	adminIDs, err := g.admins.GetChatAdministrators(ctx, chat.ID)
	if err != nil {
		log.Printf("ERROR: Failed to fetch administrators for chat %d: %v", chat.ID, err)
		return false, err
	}

	for _, id := range adminIDs {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

// IsOwner reports whether the user is one of the configured bot owners.
func (g *Gate) IsOwner(userID int64) bool {
	for _, id := range g.ownerIDs {
		if id == userID {
			return true
		}
	}
	return false
}
