package telegram

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleOwnerCommand dispatches the bot owner's diagnostic commands. These
// are silently ignored for everyone else so the command surface stays
// invisible to regular users.
func (s *BotService) handleOwnerCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || !s.Gate.IsOwner(msg.From.ID) {
		return
	}
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "admin_list_groups":
		s.handleListGroups(msg.Chat.ID)
	case "admin_group_filters":
		s.handleGroupFilters(msg.Chat.ID, args)
	case "admin_leave_group":
		s.handleLeaveGroup(msg.Chat.ID, args)
	case "admin_stats":
		s.handleStats(msg.Chat.ID)
	}
}

func (s *BotService) handleListGroups(chatID int64) {
	chats, err := s.Storage.TrackedChats()
	if err != nil {
		log.Printf("ERROR: Failed to list tracked chats: %v", err)
		s.reply(chatID, "Could not read the chat registry.")
		return
	}
	if len(chats) == 0 {
		s.reply(chatID, "No tracked group chats yet.")
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Tracked chats (%d):\n", len(chats))
	for _, chat := range chats {
		name := chat.Title
		if name == "" {
			name = "(untitled)"
		}
		fmt.Fprintf(&b, "• %s [%d] %s, last activity %s\n",
			name, chat.ChatID, chat.Type, time.Unix(chat.LastActivity, 0).Format("2006-01-02 15:04"))
	}
	s.reply(chatID, b.String())
}

func (s *BotService) handleGroupFilters(chatID int64, arg string) {
	target, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		s.reply(chatID, "Usage: /admin_group_filters <chat_id>")
		return
	}
	cfg, err := s.Settings.Settings(target)
	if err != nil {
		log.Printf("ERROR: Failed to load settings for chat %d: %v", target, err)
		s.reply(chatID, "Could not load that chat's settings.")
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Chat %d:\nModeration: %s\nChannel filter: %s\nForward spam protection: %s\n",
		target, onOff(cfg.JanitorEnabled), onOff(cfg.ChannelFilterEnabled), onOff(cfg.ForwardSpamProtectionEnabled))
	if len(cfg.FilterPatterns) > 0 {
		b.WriteString("Patterns:\n")
		for i, pattern := range cfg.FilterPatterns {
			fmt.Fprintf(&b, "%d. %s\n", i+1, pattern)
		}
	}
	if len(cfg.ChannelWhitelist) > 0 {
		b.WriteString("Whitelist: " + strings.Join(cfg.ChannelWhitelist, ", "))
	}
	s.reply(chatID, b.String())
}

func (s *BotService) handleLeaveGroup(chatID int64, arg string) {
	target, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		s.reply(chatID, "Usage: /admin_leave_group <chat_id>")
		return
	}
	if _, err := s.Client.API().Request(tgbotapi.LeaveChatConfig{ChatID: target}); err != nil {
		log.Printf("ERROR: Failed to leave chat %d: %v", target, err)
		s.reply(chatID, fmt.Sprintf("Could not leave chat %d: %v", target, err))
		return
	}
	log.Printf("Left chat %d on owner request", target)
	s.reply(chatID, fmt.Sprintf("Left chat %d.", target))
}

func (s *BotService) handleStats(chatID int64) {
	chats, err := s.Storage.TrackedChats()
	if err != nil {
		log.Printf("ERROR: Failed to list tracked chats: %v", err)
		s.reply(chatID, "Could not read the chat registry.")
		return
	}
	rows, err := s.Storage.ListChatSettings()
	if err != nil {
		log.Printf("ERROR: Failed to list chat settings: %v", err)
		s.reply(chatID, "Could not read the settings table.")
		return
	}
	var enabled, patterns int
	for _, row := range rows {
		if row.JanitorEnabled {
			enabled++
		}
		patterns += len(row.FilterPatterns)
	}
	s.reply(chatID, fmt.Sprintf(
		"📊 Stats:\nTracked chats: %d\nConfigured chats: %d\nJanitor enabled in: %d\nTotal filter patterns: %d\nPending deletions: %d",
		len(chats), len(rows), enabled, patterns, s.Scheduler.PendingCount()))
}
