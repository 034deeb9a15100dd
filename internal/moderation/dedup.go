package moderation

import (
	"sync"
	"time"

	"janitorbot/backend/internal/config"
)

// CheckOutcome is the result of a dedup cache lookup.
type CheckOutcome int

const (
	// OutcomeNew means the fingerprint was not tracked; it is now.
	OutcomeNew CheckOutcome = iota
	// OutcomeDuplicate means the fingerprint was first seen within the
	// window. The entry is left unchanged.
	OutcomeDuplicate
	// OutcomeExpired means the fingerprint was tracked but its window had
	// lapsed; tracking restarts from now.
	OutcomeExpired
)

// CheckResult carries the outcome and, for duplicates, the time elapsed since
// the fingerprint was first seen.
type CheckResult struct {
	Outcome CheckOutcome
	Elapsed time.Duration
}

// DedupCache is a per-chat, time-windowed map from forward fingerprint to
// first-seen timestamp. The check-then-insert sequence is atomic under the
// cache mutex: concurrent forwards of the same content in one chat cannot
// both pass as new.
type DedupCache struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]time.Time
}

// NewDedupCache creates an empty cache with the fixed 24h window.
func NewDedupCache() *DedupCache {
	return &DedupCache{
		window:  config.DedupWindow,
		entries: make(map[string]time.Time),
	}
}

// Cleanup removes every entry older than the window relative to now. It is
// called before every lookup so the map stays proportional to recent traffic,
// and it is idempotent.
func (c *DedupCache) Cleanup(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := now.Add(-c.window)
	for key, firstSeen := range c.entries {
		if firstSeen.Before(cutoff) {
			delete(c.entries, key)
		}
	}
}

// Check looks up a fingerprint at time now. Absent fingerprints are inserted
// and reported as new; fingerprints first seen within the window are
// duplicates; older ones are reset to now and treated as a fresh sighting.
func (c *DedupCache) Check(fingerprint string, now time.Time) CheckResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	firstSeen, ok := c.entries[fingerprint]
	if !ok {
		c.entries[fingerprint] = now
		return CheckResult{Outcome: OutcomeNew}
	}

	elapsed := now.Sub(firstSeen)
	if elapsed <= c.window {
		return CheckResult{Outcome: OutcomeDuplicate, Elapsed: elapsed}
	}

	c.entries[fingerprint] = now
	return CheckResult{Outcome: OutcomeExpired}
}

// Len reports the number of tracked fingerprints.
func (c *DedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
