// Package pending buffers a user's in-progress status and job selections
// per event channel until they commit by joining. Selections are ephemeral:
// they live in process memory only and expire after a TTL so abandoned
// interactions do not accumulate for the process lifetime.
package pending

import (
	"sync"
	"time"

	"github.com/heraldbot/backend/internal/models"
)

// DefaultTTL is how long an untouched selection stays readable.
const DefaultTTL = 30 * time.Minute

// Selection is an uncommitted (status, job) pair. Either slot may be unset.
type Selection struct {
	Status *models.Status
	Job    *models.Job
}

type key struct {
	userID    int64
	channelID int64
}

type entry struct {
	selection Selection
	touchedAt time.Time
}

// Cache holds pending selections keyed by (user, channel).
type Cache struct {
	mu      sync.Mutex
	entries map[key]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewCache creates a selection cache with the given TTL; ttl <= 0 falls back
// to DefaultTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[key]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetStatus records the status slot, leaving the job slot untouched.
func (c *Cache) SetStatus(userID, channelID int64, status models.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sel := c.liveLocked(userID, channelID)
	sel.Status = &status
	c.entries[key{userID, channelID}] = entry{selection: sel, touchedAt: c.now()}
}

// SetJob records the job slot, leaving the status slot untouched.
func (c *Cache) SetJob(userID, channelID int64, job models.Job) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sel := c.liveLocked(userID, channelID)
	sel.Job = &job
	c.entries[key{userID, channelID}] = entry{selection: sel, touchedAt: c.now()}
}

// Get returns the current selection, or an empty one when nothing is pending
// or the entry has expired. Get never mutates the cache.
func (c *Cache) Get(userID, channelID int64) Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveLocked(userID, channelID)
}

// Sweep drops all expired entries and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	cutoff := c.now().Add(-c.ttl)
	for k, e := range c.entries {
		if e.touchedAt.Before(cutoff) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func (c *Cache) liveLocked(userID, channelID int64) Selection {
	k := key{userID, channelID}
	e, ok := c.entries[k]
	if !ok {
		return Selection{}
	}
	if e.touchedAt.Before(c.now().Add(-c.ttl)) {
		delete(c.entries, k)
		return Selection{}
	}
	return e.selection
}
