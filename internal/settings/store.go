// Package settings owns the per-chat mutable moderation state: the persisted
// configuration flags and lists, and the in-memory forward dedup cache. All
// access goes through accessor methods that enforce the per-chat locking
// discipline; raw maps never leave the store.
package settings

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"janitorbot/backend/internal/models"
	"janitorbot/backend/internal/moderation"
	"janitorbot/backend/internal/storage"
)

var (
	// ErrPatternExists is returned when a filter pattern is already configured.
	ErrPatternExists = errors.New("filter pattern already exists")
	// ErrPatternNotFound is returned when neither a valid number nor a known
	// pattern was given to RemovePattern.
	ErrPatternNotFound = errors.New("filter pattern not found")
	// ErrIndexOutOfRange is returned for a numeric removal outside 1..len.
	ErrIndexOutOfRange = errors.New("filter number out of range")
	// ErrAlreadyWhitelisted is returned when a channel is already whitelisted.
	ErrAlreadyWhitelisted = errors.New("channel already whitelisted")
	// ErrNotWhitelisted is returned when removing an unknown whitelist entry.
	ErrNotWhitelisted = errors.New("channel is not whitelisted")
)

// chatState is the per-chat unit of mutable state. Chats are independent:
// each carries its own lock, and no operation ever holds two chat locks.
type chatState struct {
	mu       sync.Mutex
	settings models.ChatSettings
	dedup    *moderation.DedupCache
}

// Store loads chat state lazily from storage on first access and writes every
// mutation through. A write-through failure is logged and the in-memory
// change stands; storage durability is the persistence layer's problem.
type Store struct {
	storage storage.Storage

	mu    sync.Mutex
	chats map[int64]*chatState
}

// NewStore creates a settings store over the given persistence layer.
func NewStore(s storage.Storage) *Store {
	return &Store{
		storage: s,
		chats:   make(map[int64]*chatState),
	}
}

// state returns the chat's state object, loading the settings row on first
// access. First access creates a zero-value row: everything disabled, lists
// empty.
func (s *Store) state(chatID int64) (*chatState, error) {
	s.mu.Lock()
	if st, ok := s.chats[chatID]; ok {
		s.mu.Unlock()
		return st, nil
	}
	s.mu.Unlock()

	loaded, err := s.storage.GetChatSettings(chatID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.chats[chatID]; ok {
		// Lost the load race; the other copy is already live.
		return st, nil
	}
	st := &chatState{
		settings: *loaded,
		dedup:    moderation.NewDedupCache(),
	}
	s.chats[chatID] = st
	return st, nil
}

// Settings returns a copy of the chat's configuration. The list fields are
// cloned so callers can never observe a concurrent mutation.
func (s *Store) Settings(chatID int64) (models.ChatSettings, error) {
	st, err := s.state(chatID)
	if err != nil {
		return models.ChatSettings{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	out := st.settings
	out.FilterPatterns = append([]string(nil), st.settings.FilterPatterns...)
	out.ChannelWhitelist = append([]string(nil), st.settings.ChannelWhitelist...)
	return out, nil
}

// Dedup returns the chat's forward dedup cache.
func (s *Store) Dedup(chatID int64) *moderation.DedupCache {
	st, err := s.state(chatID)
	if err != nil {
		// The pipeline bails on the settings error before it gets here;
		// hand back a detached cache so the call stays safe regardless.
		return moderation.NewDedupCache()
	}
	return st.dedup
}

// SetFlag sets a boolean feature flag to an explicit value.
func (s *Store) SetFlag(chatID int64, flag string, value bool) error {
	st, err := s.state(chatID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	target, err := st.flagField(flag)
	if err != nil {
		return err
	}
	*target = value
	s.persist(st)
	return nil
}

// Toggle flips a boolean feature flag and returns the new value.
func (s *Store) Toggle(chatID int64, flag string) (bool, error) {
	st, err := s.state(chatID)
	if err != nil {
		return false, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	target, err := st.flagField(flag)
	if err != nil {
		return false, err
	}
	*target = !*target
	s.persist(st)
	return *target, nil
}

// AddPattern validates and appends a regex filter pattern. Invalid patterns
// are rejected before storage so the pipeline never sees them; duplicates are
// rejected to keep removal-by-number unambiguous.
func (s *Store) AddPattern(chatID int64, pattern string) error {
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
	}

	st, err := s.state(chatID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	for _, existing := range st.settings.FilterPatterns {
		if existing == pattern {
			return ErrPatternExists
		}
	}
	st.settings.FilterPatterns = append(st.settings.FilterPatterns, pattern)
	s.persist(st)
	log.Printf("Added filter pattern %q in chat %d", pattern, chatID)
	return nil
}

// RemovePattern removes a pattern by 1-based list number or by exact text and
// returns the pattern that was removed.
func (s *Store) RemovePattern(chatID int64, arg string) (string, error) {
	st, err := s.state(chatID)
	if err != nil {
		return "", err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	patterns := st.settings.FilterPatterns

	if n, convErr := strconv.Atoi(arg); convErr == nil {
		if n < 1 || n > len(patterns) {
			return "", ErrIndexOutOfRange
		}
		removed := patterns[n-1]
		st.settings.FilterPatterns = append(patterns[:n-1], patterns[n:]...)
		s.persist(st)
		log.Printf("Removed filter pattern %q in chat %d", removed, chatID)
		return removed, nil
	}

	for i, pattern := range patterns {
		if pattern == arg {
			st.settings.FilterPatterns = append(patterns[:i], patterns[i+1:]...)
			s.persist(st)
			log.Printf("Removed filter pattern %q in chat %d", pattern, chatID)
			return pattern, nil
		}
	}
	return "", ErrPatternNotFound
}

// Patterns returns the configured filter patterns in order.
func (s *Store) Patterns(chatID int64) ([]string, error) {
	settings, err := s.Settings(chatID)
	if err != nil {
		return nil, err
	}
	return settings.FilterPatterns, nil
}

// AddWhitelist adds a channel username (leading @ stripped) or stringified ID
// to the channel whitelist.
func (s *Store) AddWhitelist(chatID int64, entry string) (string, error) {
	entry = normalizeWhitelistEntry(entry)

	st, err := s.state(chatID)
	if err != nil {
		return "", err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	for _, existing := range st.settings.ChannelWhitelist {
		if existing == entry {
			return entry, ErrAlreadyWhitelisted
		}
	}
	st.settings.ChannelWhitelist = append(st.settings.ChannelWhitelist, entry)
	s.persist(st)
	log.Printf("Added channel %q to whitelist in chat %d", entry, chatID)
	return entry, nil
}

// RemoveWhitelist removes a channel from the whitelist.
func (s *Store) RemoveWhitelist(chatID int64, entry string) (string, error) {
	entry = normalizeWhitelistEntry(entry)

	st, err := s.state(chatID)
	if err != nil {
		return "", err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	for i, existing := range st.settings.ChannelWhitelist {
		if existing == entry {
			st.settings.ChannelWhitelist = append(st.settings.ChannelWhitelist[:i], st.settings.ChannelWhitelist[i+1:]...)
			s.persist(st)
			log.Printf("Removed channel %q from whitelist in chat %d", entry, chatID)
			return entry, nil
		}
	}
	return entry, ErrNotWhitelisted
}

// Whitelist returns the whitelisted channel identifiers.
func (s *Store) Whitelist(chatID int64) ([]string, error) {
	settings, err := s.Settings(chatID)
	if err != nil {
		return nil, err
	}
	return settings.ChannelWhitelist, nil
}

// persist writes the row through to storage. Caller holds the chat lock.
func (s *Store) persist(st *chatState) {
	row := st.settings
	if err := s.storage.SaveChatSettings(&row); err != nil {
		log.Printf("ERROR: Failed to persist settings for chat %d: %v", row.ChatID, err)
	}
}

// flagField maps a flag name to its settings field. Caller holds the lock.
func (st *chatState) flagField(flag string) (*bool, error) {
	switch flag {
	case models.FlagJanitor:
		return &st.settings.JanitorEnabled, nil
	case models.FlagChannelFilter:
		return &st.settings.ChannelFilterEnabled, nil
	case models.FlagForwardSpam:
		return &st.settings.ForwardSpamProtectionEnabled, nil
	default:
		return nil, fmt.Errorf("unknown settings flag %q", flag)
	}
}

func normalizeWhitelistEntry(entry string) string {
	return strings.TrimPrefix(strings.TrimSpace(entry), "@")
}
