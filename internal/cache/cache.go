// Package cache holds recent search results and per-user conversation
// context so follow-up questions can be answered without re-searching the
// archive. Nothing here is persisted; a restart forgets everything.
package cache

import (
	"sync"
	"time"

	"lokilens-mcp/internal/models"
	"lokilens-mcp/internal/timekey"
)

// DefaultTTL is how long a cached search result stays answerable.
const DefaultTTL = time.Hour

// Entry is one cached search result. Summary is attached after the first
// language-model synthesis over the result and reused by later follow-ups.
type Entry struct {
	SearchID  string
	TimeKey   timekey.Key
	Results   *models.SearchResponse
	Summary   string
	CreatedAt time.Time
}

// ResultCache keys search results by (identifier, canonical time key).
// Staleness is enforced lazily on read; there is no sweeper.
type ResultCache struct {
	mu      sync.Mutex
	entries map[entryKey]*Entry
	ttl     time.Duration
	now     func() time.Time
}

type entryKey struct {
	searchID string
	timeKey  timekey.Key
}

// NewResultCache creates a cache with the default TTL and wall clock.
func NewResultCache() *ResultCache {
	return &ResultCache{
		entries: make(map[entryKey]*Entry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
}

// NewResultCacheWithClock is NewResultCache with an injected clock, for
// deterministic expiry tests.
func NewResultCacheWithClock(ttl time.Duration, now func() time.Time) *ResultCache {
	return &ResultCache{
		entries: make(map[entryKey]*Entry),
		ttl:     ttl,
		now:     now,
	}
}

// Put stores results, overwriting any entry for the same key. CreatedAt is
// reset and any previously attached summary is discarded.
func (c *ResultCache) Put(searchID string, key timekey.Key, results *models.SearchResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entryKey{searchID, key}] = &Entry{
		SearchID:  searchID,
		TimeKey:   key,
		Results:   results,
		CreatedAt: c.now(),
	}
}

// Get returns a copy of the entry for the key, or a miss if none exists or
// the entry has aged past the TTL. A stale entry is deleted on the spot, so
// an immediate re-read also misses.
func (c *ResultCache) Get(searchID string, key timekey.Key) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := entryKey{searchID, key}
	entry, ok := c.entries[k]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.CreatedAt) >= c.ttl {
		delete(c.entries, k)
		return nil, false
	}
	copied := *entry
	return &copied, true
}

// AttachSummary records the first synthesis for the entry. A summary on an
// expired or missing entry is dropped silently.
func (c *ResultCache) AttachSummary(searchID string, key timekey.Key, summary string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[entryKey{searchID, key}]
	if !ok {
		return
	}
	if entry.Summary == "" {
		entry.Summary = summary
	}
}

// UserContext remembers what a conversation participant last searched for.
type UserContext struct {
	SearchID  string
	TimeKey   timekey.Key
	Timestamp time.Time
}

// ContextStore keeps one UserContext per participant, overwritten on every
// new search.
type ContextStore struct {
	mu       sync.RWMutex
	contexts map[string]UserContext
	now      func() time.Time
}

// NewContextStore creates an empty ContextStore.
func NewContextStore() *ContextStore {
	return &ContextStore{
		contexts: make(map[string]UserContext),
		now:      time.Now,
	}
}

// Set records the latest search for a user.
func (s *ContextStore) Set(userID, searchID string, key timekey.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[userID] = UserContext{
		SearchID:  searchID,
		TimeKey:   key,
		Timestamp: s.now(),
	}
}

// Get returns the user's last search context, if any.
func (s *ContextStore) Get(userID string) (UserContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uc, ok := s.contexts[userID]
	return uc, ok
}
