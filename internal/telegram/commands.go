package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"janitorbot/backend/internal/models"
	"janitorbot/backend/internal/settings"
)

const adminOnlyNotice = "⚠️ This command is restricted to admins only."

const helpText = `I keep group chats tidy. Available commands:

/status - show which protections are on
/enable_janitor - turn all moderation on (admins)
/disable_janitor - turn all moderation off (admins)
/toggle_channel_filter - toggle channel-origin filtering (admins)
/toggle_forward_spam - toggle repeated-forward removal (admins)
/add_filter <regex> - add a content filter pattern (admins)
/remove_filter <n|pattern> - remove a filter pattern (admins)
/list_filters - show configured filter patterns
/regex_help - a short regex cheat sheet
/whitelist_channel <@name|id> - allow forwards from a channel (admins)
/unwhitelist_channel <@name|id> - revoke a channel allowance (admins)
/list_whitelisted_channels - show allowed channels
/amiadmin - check whether I consider you an admin here
/botperms - check my own permissions in this chat
/joke - fetch a random joke
/poll <question> <opt> <opt> ... - create a poll`

const regexHelpText = "Patterns are matched case-insensitively against message text and captions.\n\n" +
	"`word` - matches anywhere: \"sword\" too\n" +
	"`\\bword\\b` - whole word only\n" +
	"`^word` - message starts with it\n" +
	"`one|two` - either one\n" +
	"`https?://` - any link\n\n" +
	"Test patterns at regex101.com with the Go flavor before adding them."

// handleCommand dispatches a bot command. Admin-gated commands check the live
// admin list through the gate before doing anything.
func (s *BotService) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "hello":
		s.reply(chatID, "👋 Hi! I am a janitor bot. I remove channel reposts, filtered content, and repeated forwards. Type /help to see what I can do.")
	case "help":
		s.reply(chatID, helpText)
	case "status":
		s.handleStatus(chatID)
	case "enable_janitor":
		s.requireAdmin(ctx, msg, func() { s.handleSetAll(chatID, true) })
	case "disable_janitor":
		s.requireAdmin(ctx, msg, func() { s.handleSetAll(chatID, false) })
	case "toggle_channel_filter":
		s.requireAdmin(ctx, msg, func() { s.handleToggle(chatID, models.FlagChannelFilter, "Channel filter") })
	case "toggle_forward_spam":
		s.requireAdmin(ctx, msg, func() { s.handleToggle(chatID, models.FlagForwardSpam, "Forward spam protection") })
	case "add_filter":
		s.requireAdmin(ctx, msg, func() { s.handleAddFilter(chatID, args) })
	case "remove_filter":
		s.requireAdmin(ctx, msg, func() { s.handleRemoveFilter(chatID, args) })
	case "list_filters":
		s.handleListFilters(chatID)
	case "regex_help":
		s.replyMarkdown(chatID, regexHelpText)
	case "whitelist_channel":
		s.requireAdmin(ctx, msg, func() { s.handleWhitelist(chatID, args) })
	case "unwhitelist_channel":
		s.requireAdmin(ctx, msg, func() { s.handleUnwhitelist(chatID, args) })
	case "list_whitelisted_channels":
		s.handleListWhitelist(chatID)
	case "amiadmin":
		s.handleAmIAdmin(ctx, msg)
	case "botperms":
		s.handleBotPerms(ctx, chatID)
	case "joke":
		s.handleJoke(chatID)
	case "poll":
		s.handlePoll(chatID, args)
	case "admin_list_groups", "admin_group_filters", "admin_leave_group", "admin_stats":
		s.handleOwnerCommand(ctx, msg)
	}
}

// requireAdmin runs fn only if the sender passes the authorization gate.
// A gate error counts as a denial: when the admin list cannot be fetched,
// nobody is privileged.
func (s *BotService) requireAdmin(ctx context.Context, msg *tgbotapi.Message, fn func()) {
	if msg.From == nil {
		return
	}
	ok, err := s.Gate.IsPrivileged(ctx, msg.From.ID, msg.Chat)
	if err != nil {
		log.Printf("WARN: Admin check failed in chat %d: %v", msg.Chat.ID, err)
	}
	if !ok {
		s.reply(msg.Chat.ID, adminOnlyNotice)
		return
	}
	fn()
}

func (s *BotService) handleStatus(chatID int64) {
	cfg, err := s.Settings.Settings(chatID)
	if err != nil {
		log.Printf("ERROR: Failed to load settings for chat %d: %v", chatID, err)
		s.reply(chatID, "Could not load settings, try again later.")
		return
	}
	s.reply(chatID, fmt.Sprintf(
		"🧹 Janitor status:\nModeration: %s\nChannel filter: %s\nForward spam protection: %s\nFilter patterns: %d\nWhitelisted channels: %d",
		onOff(cfg.JanitorEnabled), onOff(cfg.ChannelFilterEnabled), onOff(cfg.ForwardSpamProtectionEnabled),
		len(cfg.FilterPatterns), len(cfg.ChannelWhitelist)))
}

func (s *BotService) handleSetAll(chatID int64, enabled bool) {
	for _, flag := range []string{models.FlagJanitor, models.FlagChannelFilter, models.FlagForwardSpam} {
		if err := s.Settings.SetFlag(chatID, flag, enabled); err != nil {
			log.Printf("ERROR: Failed to set %s in chat %d: %v", flag, chatID, err)
			s.reply(chatID, "Could not update settings, try again later.")
			return
		}
	}
	if enabled {
		s.reply(chatID, "✅ Janitor enabled. All protections are on.")
	} else {
		s.reply(chatID, "🛑 Janitor disabled. All protections are off.")
	}
}

func (s *BotService) handleToggle(chatID int64, flag, label string) {
	value, err := s.Settings.Toggle(chatID, flag)
	if err != nil {
		log.Printf("ERROR: Failed to toggle %s in chat %d: %v", flag, chatID, err)
		s.reply(chatID, "Could not update settings, try again later.")
		return
	}
	s.reply(chatID, fmt.Sprintf("%s is now %s.", label, onOff(value)))
}

func (s *BotService) handleAddFilter(chatID int64, pattern string) {
	if pattern == "" {
		s.reply(chatID, "Usage: /add_filter <regex pattern>")
		return
	}
	err := s.Settings.AddPattern(chatID, pattern)
	switch {
	case errors.Is(err, settings.ErrPatternExists):
		s.reply(chatID, "That pattern is already in the list.")
	case err != nil:
		s.reply(chatID, fmt.Sprintf("Rejected: %v\nSee /regex_help for the syntax.", err))
	default:
		s.replyMarkdown(chatID, fmt.Sprintf("Added filter pattern: `%s`", pattern))
	}
}

func (s *BotService) handleRemoveFilter(chatID int64, arg string) {
	if arg == "" {
		s.reply(chatID, "Usage: /remove_filter <number or exact pattern>")
		return
	}
	removed, err := s.Settings.RemovePattern(chatID, arg)
	switch {
	case errors.Is(err, settings.ErrIndexOutOfRange):
		s.reply(chatID, "No filter with that number. See /list_filters.")
	case errors.Is(err, settings.ErrPatternNotFound):
		s.reply(chatID, "No such filter pattern. See /list_filters.")
	case err != nil:
		log.Printf("ERROR: Failed to remove filter in chat %d: %v", chatID, err)
		s.reply(chatID, "Could not update settings, try again later.")
	default:
		s.replyMarkdown(chatID, fmt.Sprintf("Removed filter pattern: `%s`", removed))
	}
}

func (s *BotService) handleListFilters(chatID int64) {
	patterns, err := s.Settings.Patterns(chatID)
	if err != nil {
		log.Printf("ERROR: Failed to load filters for chat %d: %v", chatID, err)
		s.reply(chatID, "Could not load settings, try again later.")
		return
	}
	if len(patterns) == 0 {
		s.reply(chatID, "No filter patterns configured. Add one with /add_filter.")
		return
	}
	var b strings.Builder
	b.WriteString("Configured filter patterns:\n")
	for i, pattern := range patterns {
		fmt.Fprintf(&b, "%d. `%s`\n", i+1, pattern)
	}
	s.replyMarkdown(chatID, b.String())
}

func (s *BotService) handleWhitelist(chatID int64, arg string) {
	if arg == "" {
		s.reply(chatID, "Usage: /whitelist_channel <@username or channel ID>")
		return
	}
	entry, err := s.Settings.AddWhitelist(chatID, arg)
	switch {
	case errors.Is(err, settings.ErrAlreadyWhitelisted):
		s.reply(chatID, fmt.Sprintf("Channel %s is already whitelisted.", entry))
	case err != nil:
		log.Printf("ERROR: Failed to whitelist channel in chat %d: %v", chatID, err)
		s.reply(chatID, "Could not update settings, try again later.")
	default:
		s.reply(chatID, fmt.Sprintf("✅ Forwards from %s are now allowed.", entry))
	}
}

func (s *BotService) handleUnwhitelist(chatID int64, arg string) {
	if arg == "" {
		s.reply(chatID, "Usage: /unwhitelist_channel <@username or channel ID>")
		return
	}
	entry, err := s.Settings.RemoveWhitelist(chatID, arg)
	switch {
	case errors.Is(err, settings.ErrNotWhitelisted):
		s.reply(chatID, fmt.Sprintf("Channel %s is not on the whitelist.", entry))
	case err != nil:
		log.Printf("ERROR: Failed to unwhitelist channel in chat %d: %v", chatID, err)
		s.reply(chatID, "Could not update settings, try again later.")
	default:
		s.reply(chatID, fmt.Sprintf("Removed %s from the whitelist.", entry))
	}
}

func (s *BotService) handleListWhitelist(chatID int64) {
	entries, err := s.Settings.Whitelist(chatID)
	if err != nil {
		log.Printf("ERROR: Failed to load whitelist for chat %d: %v", chatID, err)
		s.reply(chatID, "Could not load settings, try again later.")
		return
	}
	if len(entries) == 0 {
		s.reply(chatID, "No channels are whitelisted.")
		return
	}
	s.reply(chatID, "Whitelisted channels:\n"+strings.Join(entries, "\n"))
}

func (s *BotService) handleAmIAdmin(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	ok, err := s.Gate.IsPrivileged(ctx, msg.From.ID, msg.Chat)
	if err != nil {
		s.reply(msg.Chat.ID, "Could not check the admin list right now.")
		return
	}
	if ok {
		s.reply(msg.Chat.ID, "Yes, you can use admin commands here.")
	} else {
		s.reply(msg.Chat.ID, "No, you are not an admin in this chat.")
	}
}

// handleBotPerms checks whether the bot itself can delete messages here.
func (s *BotService) handleBotPerms(ctx context.Context, chatID int64) {
	if err := ctx.Err(); err != nil {
		return
	}
	member, err := s.Client.API().GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: s.Client.API().Self.ID,
		},
	})
	if err != nil {
		log.Printf("ERROR: Failed to fetch own membership in chat %d: %v", chatID, err)
		s.reply(chatID, "Could not check my permissions right now.")
		return
	}
	switch {
	case member.Status == "administrator" && member.CanDeleteMessages:
		s.reply(chatID, "✅ I am an admin here and can delete messages.")
	case member.Status == "administrator":
		s.reply(chatID, "⚠️ I am an admin here but lack the delete-messages permission. Moderation will not work.")
	default:
		s.reply(chatID, "⚠️ I am not an admin in this chat. Promote me with the delete-messages permission to enable moderation.")
	}
}

func (s *BotService) reply(chatID int64, text string) {
	if _, err := s.Client.API().Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("ERROR: Failed to send reply to chat %d: %v", chatID, err)
	}
}

func (s *BotService) replyMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := s.Client.API().Send(msg); err != nil {
		log.Printf("ERROR: Failed to send reply to chat %d: %v", chatID, err)
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
