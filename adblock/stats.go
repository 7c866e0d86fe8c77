package adblock

import (
	"sync"
	"sync/atomic"
	"time"
)

// AdBlockStats holds statistics about adblock activity.
type AdBlockStats struct {
	Enabled         bool     `json:"enabled"`
	BlockedRequests int64    `json:"blocked_requests"`
	DomainCount     int      `json:"domain_count"`
	PatternCount    int      `json:"pattern_count"`
	Engine          string   `json:"engine"`
	BlockedToday    int64    `json:"blocked_today"`
	LastUpdate      string   `json:"last_update"`
	SourcesCount    int      `json:"sources_count"`
	FailedSources   []string `json:"failed_sources"`
	Fallback        bool     `json:"fallback"`
	CacheHits       uint64   `json:"cache_hits"`
	CacheMisses     uint64   `json:"cache_misses"`
}

// Stats manages adblock statistics. blockedTotal only grows; it survives
// rule refreshes and is reset by a process restart alone.
type Stats struct {
	blockedTotal atomic.Int64
	blockedToday atomic.Int64
	lastReset    time.Time
	mu           sync.Mutex
	now          func() time.Time
}

// NewStats creates a new Stats manager.
func NewStats() *Stats {
	return &Stats{
		lastReset: time.Now(),
		now:       time.Now,
	}
}

// RecordBlock increments the block counters.
func (s *Stats) RecordBlock() {
	s.blockedTotal.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.YearDay() != s.lastReset.YearDay() || now.Year() != s.lastReset.Year() {
		s.blockedToday.Store(0)
		s.lastReset = now
	}
	s.blockedToday.Add(1)
}

func (s *Stats) BlockedTotal() int64 {
	return s.blockedTotal.Load()
}

func (s *Stats) BlockedToday() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.YearDay() != s.lastReset.YearDay() || now.Year() != s.lastReset.Year() {
		return 0
	}
	return s.blockedToday.Load()
}
