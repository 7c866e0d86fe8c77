package cache

import (
	"sync"
	"time"
)

const DefaultRecentBlockedSize = 20

// BlockedEntry is one request the filter refused.
type BlockedEntry struct {
	URL  string    `json:"url"`
	Rule string    `json:"rule"`
	At   time.Time `json:"at"`
}

// RecentlyBlockedTracker tracks recently blocked requests
type RecentlyBlockedTracker interface {
	Add(url, rule string) // Record a blocked request
	GetAll() []BlockedEntry
	Clear()
	Len() int
}

// recentlyBlockedImpl keeps the newest entries in a fixed ring. head is
// the slot the next Add writes; once full it is also the oldest entry.
type recentlyBlockedImpl struct {
	mu      sync.RWMutex
	entries []BlockedEntry
	head    int
	count   int
	now     func() time.Time
}

// NewRecentlyBlockedTracker creates a tracker holding at most size entries.
// A non-positive size falls back to DefaultRecentBlockedSize.
func NewRecentlyBlockedTracker(size int) RecentlyBlockedTracker {
	if size <= 0 {
		size = DefaultRecentBlockedSize
	}
	return &recentlyBlockedImpl{
		entries: make([]BlockedEntry, size),
		now:     time.Now,
	}
}

// Add records an entry, overwriting the oldest once the tracker is full.
func (r *recentlyBlockedImpl) Add(url, rule string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.head] = BlockedEntry{URL: url, Rule: rule, At: r.now()}
	r.head = (r.head + 1) % len(r.entries)
	if r.count < len(r.entries) {
		r.count++
	}
}

// GetAll returns a copy, newest last.
func (r *recentlyBlockedImpl) GetAll() []BlockedEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]BlockedEntry, r.count)
	start := (r.head - r.count + len(r.entries)) % len(r.entries)
	for i := range result {
		result[i] = r.entries[(start+i)%len(r.entries)]
	}
	return result
}

func (r *recentlyBlockedImpl) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.entries)
	r.head = 0
	r.count = 0
}

func (r *recentlyBlockedImpl) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.count
}
