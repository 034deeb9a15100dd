package moderation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"janitorbot/backend/internal/moderation"
)

func TestDedupCache_FirstSightingIsNew(t *testing.T) {
	cache := moderation.NewDedupCache()
	now := time.Now().UTC()

	result := cache.Check("chat:100:msg:5", now)
	assert.Equal(t, moderation.OutcomeNew, result.Outcome)
	assert.Equal(t, 1, cache.Len())
}

func TestDedupCache_RepeatWithinWindowIsDuplicate(t *testing.T) {
	cache := moderation.NewDedupCache()
	t1 := time.Now().UTC()
	t2 := t1.Add(3 * time.Hour)

	cache.Check("chat:100:msg:5", t1)
	result := cache.Check("chat:100:msg:5", t2)

	assert.Equal(t, moderation.OutcomeDuplicate, result.Outcome)
	assert.Equal(t, 3*time.Hour, result.Elapsed)
}

func TestDedupCache_DuplicateDoesNotSlideTheWindow(t *testing.T) {
	cache := moderation.NewDedupCache()
	t1 := time.Now().UTC()

	cache.Check("key", t1)
	cache.Check("key", t1.Add(20*time.Hour))

	// Elapsed is still measured from the first sighting, so the entry
	// expires 24h after t1 regardless of how many duplicates arrived.
	result := cache.Check("key", t1.Add(23*time.Hour))
	assert.Equal(t, moderation.OutcomeDuplicate, result.Outcome)
	assert.Equal(t, 23*time.Hour, result.Elapsed)
}

func TestDedupCache_RepeatAfterWindowIsExpired(t *testing.T) {
	cache := moderation.NewDedupCache()
	t1 := time.Now().UTC()
	t2 := t1.Add(24*time.Hour + time.Minute)

	cache.Check("key", t1)
	result := cache.Check("key", t2)
	assert.Equal(t, moderation.OutcomeExpired, result.Outcome)

	// The expired sighting restarts tracking from t2.
	again := cache.Check("key", t2.Add(time.Hour))
	assert.Equal(t, moderation.OutcomeDuplicate, again.Outcome)
	assert.Equal(t, time.Hour, again.Elapsed)
}

func TestDedupCache_ExactWindowBoundaryIsStillDuplicate(t *testing.T) {
	cache := moderation.NewDedupCache()
	t1 := time.Now().UTC()

	cache.Check("key", t1)
	result := cache.Check("key", t1.Add(24*time.Hour))
	assert.Equal(t, moderation.OutcomeDuplicate, result.Outcome)
}

func TestDedupCache_CleanupEvictsOnlyStaleEntries(t *testing.T) {
	cache := moderation.NewDedupCache()
	t1 := time.Now().UTC()

	cache.Check("old", t1)
	cache.Check("fresh", t1.Add(23*time.Hour))

	cache.Cleanup(t1.Add(25 * time.Hour))
	assert.Equal(t, 1, cache.Len())

	// The fresh entry survived and still reports as a duplicate.
	result := cache.Check("fresh", t1.Add(25*time.Hour))
	assert.Equal(t, moderation.OutcomeDuplicate, result.Outcome)

	// The old entry was evicted, so it counts as brand new again.
	result = cache.Check("old", t1.Add(25*time.Hour))
	assert.Equal(t, moderation.OutcomeNew, result.Outcome)
}

func TestDedupCache_CleanupIsIdempotent(t *testing.T) {
	cache := moderation.NewDedupCache()
	t1 := time.Now().UTC()
	cache.Check("a", t1)
	cache.Check("b", t1)

	later := t1.Add(30 * time.Hour)
	cache.Cleanup(later)
	cache.Cleanup(later)
	assert.Equal(t, 0, cache.Len())
}

func TestDedupCache_IndependentFingerprints(t *testing.T) {
	cache := moderation.NewDedupCache()
	now := time.Now().UTC()

	assert.Equal(t, moderation.OutcomeNew, cache.Check("a", now).Outcome)
	assert.Equal(t, moderation.OutcomeNew, cache.Check("b", now).Outcome)
	assert.Equal(t, 2, cache.Len())
}
