package adblock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"adfilter/cache"
	"adfilter/config"
	"adfilter/internal"
	"adfilter/logger"
	"adfilter/settings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// SettingsKeyEnabled is the settings key holding the on/off switch.
const SettingsKeyEnabled = "adBlocker"

var (
	ErrRefreshFailed = errors.New("adblock refresh failed")
	ErrNoSources     = errors.New("no filter list sources configured")
)

// snapshot is an immutable compiled rule set plus its decision memo. A new
// snapshot replaces the old one wholesale, so the memo never outlives the
// rules it was filled from.
type snapshot struct {
	engine   FilterEngine
	builtAt  time.Time
	fallback bool
	memo     *lru.Cache[string, MatchResult]
	hits     atomic.Uint64
	misses   atomic.Uint64
}

func (s *snapshot) match(rawURL string) MatchResult {
	if s.memo == nil {
		return s.engine.Match(rawURL)
	}
	if res, ok := s.memo.Get(rawURL); ok {
		s.hits.Add(1)
		return res
	}
	s.misses.Add(1)
	res := s.engine.Match(rawURL)
	s.memo.Add(rawURL, res)
	return res
}

type UpdateResult struct {
	TotalRules      int      `json:"total_rules"`
	DomainCount     int      `json:"domain_count"`
	PatternCount    int      `json:"pattern_count"`
	Sources         int      `json:"sources"`
	FailedSources   []string `json:"failed_sources"`
	DurationSeconds float64  `json:"duration_seconds"`
}

type TestResult struct {
	URL     string `json:"url"`
	Host    string `json:"host"`
	Blocked bool   `json:"blocked"`
	Kind    string `json:"kind,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Enabled bool   `json:"enabled"`
}

// RuleDump lists the rules of the active snapshot.
type RuleDump struct {
	Engine   string   `json:"engine"`
	Fallback bool     `json:"fallback"`
	Domains  []string `json:"domains"`
	Patterns []string `json:"patterns"`
}

// Manager owns the active rule snapshot, the enabled switch and the list
// sources. Classify is safe for concurrent use with Refresh and the
// enable/disable controls.
type Manager struct {
	cfg     *config.AdBlockConfig
	engine  string
	store   settings.Store
	sources *SourceManager
	loader  *RuleLoader
	stats   *Stats
	recent  cache.RecentlyBlockedTracker

	enabled atomic.Bool
	current atomic.Pointer[snapshot]

	refreshGroup singleflight.Group
}

// NewManager wires a manager from configuration. A nil store keeps the
// switch in memory only. No lists are loaded until Initialize or Start.
func NewManager(cfg *config.AdBlockConfig, store settings.Store) (*Manager, error) {
	if !validEngine(cfg.Engine) {
		return nil, fmt.Errorf("unknown adblock engine: %s", cfg.Engine)
	}
	engine := strings.ToLower(cfg.Engine)
	if engine == "" {
		engine = EngineSubstring
	}

	sources, err := NewSourceManager(cfg.CacheDir, cfg.RuleURLs)
	if err != nil {
		return nil, fmt.Errorf("error creating source manager: %w", err)
	}

	if store == nil {
		store = settings.NewMemoryStore()
	}

	m := &Manager{
		cfg:     cfg,
		engine:  engine,
		store:   store,
		sources: sources,
		loader:  NewRuleLoader(time.Duration(cfg.DownloadTimeoutSec)*time.Second, cfg.MaxConcurrent),
		stats:   NewStats(),
		recent:  cache.NewRecentlyBlockedTracker(cfg.RecentBlockedSize),
	}

	enabled, err := settings.GetBool(store, SettingsKeyEnabled, cfg.Enable)
	if err != nil {
		logger.Warnf("[AdBlock] Could not read %q setting, using %v: %v", SettingsKeyEnabled, enabled, err)
	}
	m.enabled.Store(enabled)

	return m, nil
}

// Start initializes the rules in the background and, when an update
// interval is configured, refreshes them until ctx is done.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		if err := m.Initialize(ctx); err != nil {
			logger.Errorf("[AdBlock] Initialization error: %v", err)
		}

		if m.cfg.UpdateIntervalHours <= 0 {
			return
		}
		ticker := time.NewTicker(time.Duration(m.cfg.UpdateIntervalHours) * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := m.Refresh(ctx); err != nil {
					logger.Warnf("[AdBlock] Scheduled update failed: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Initialize loads every list, preferring cached copies, and installs the
// union as the active snapshot. Lists that cannot be acquired are skipped.
// When nothing usable is found the built-in basic rules are installed.
// If another snapshot is installed while the lists load, for example by a
// Refresh, that snapshot wins and the loaded one is discarded.
func (m *Manager) Initialize(ctx context.Context) error {
	start := time.Now()
	prev := m.current.Load()
	sources := m.sources.GetAllSources()
	results := m.loader.Acquire(ctx, m.sources, sources, false)

	var rules []Rule
	counts := make([]int, len(results))
	loaded := 0
	for i, res := range results {
		if !res.OK() {
			logger.Warnf("[AdBlock] Skipping filter list %s: %v", res.Source.URL, res.Err)
			continue
		}
		loaded++
		parsed, report := ParseText(res.Text, res.Source.URL)
		counts[i] = report.Rules()
		rules = append(rules, parsed...)
		logger.Debugf("[AdBlock] %s: %d rules (cache=%v)", res.Source.URL, report.Rules(), res.FromCache)
	}

	fallback := loaded == 0 || len(rules) == 0
	if fallback {
		logger.Warnf("[AdBlock] No filter list rules available, using built-in basic list")
		rules = BasicRules()
	}

	snap, buildErr := m.newSnapshot(m.engine, rules, fallback)
	if buildErr != nil {
		// The substring engine cannot fail to build.
		snap, _ = m.newSnapshot(EngineSubstring, BasicRules(), true)
	}

	if !m.current.CompareAndSwap(prev, snap) {
		logger.Infof("[AdBlock] Rules were replaced during initialization; discarding the initial load")
		return nil
	}

	for i, res := range results {
		m.sources.UpdateSourceStatus(res.Source.URL, counts[i], res.Err)
	}
	m.persistMeta()

	if buildErr != nil {
		return fmt.Errorf("building %s engine: %w", m.engine, buildErr)
	}
	logger.Infof("[AdBlock] Loaded %d domains and %d patterns from %d/%d lists in %s",
		snap.engine.DomainCount(), snap.engine.PatternCount(), loaded, len(sources), time.Since(start).Round(time.Millisecond))
	return nil
}

// Refresh downloads every list again and swaps in the result. It is all or
// nothing: if any list fails, neither the cache nor the active snapshot is
// touched. Concurrent calls share one run.
func (m *Manager) Refresh(ctx context.Context) (UpdateResult, error) {
	v, err, shared := m.refreshGroup.Do("refresh", func() (any, error) {
		return m.refresh(ctx)
	})
	if shared {
		logger.Debugf("[AdBlock] Joined an update already in progress")
	}
	res, _ := v.(UpdateResult)
	return res, err
}

func (m *Manager) refresh(ctx context.Context) (UpdateResult, error) {
	start := time.Now()
	sources := m.sources.GetAllSources()
	result := UpdateResult{Sources: len(sources), FailedSources: []string{}}
	if len(sources) == 0 {
		return result, ErrNoSources
	}

	results := m.loader.Acquire(ctx, m.sources, sources, true)
	for _, res := range results {
		if !res.OK() {
			result.FailedSources = append(result.FailedSources, res.Source.URL)
			m.sources.UpdateSourceStatus(res.Source.URL, 0, res.Err)
		}
	}
	if len(result.FailedSources) > 0 {
		m.persistMeta()
		result.DurationSeconds = time.Since(start).Seconds()
		logger.Errorf("[AdBlock] Update aborted, %d of %d lists failed; keeping current rules", len(result.FailedSources), len(sources))
		return result, fmt.Errorf("%w: %d of %d lists could not be downloaded", ErrRefreshFailed, len(result.FailedSources), len(sources))
	}

	var rules []Rule
	counts := make([]int, len(results))
	for i, res := range results {
		parsed, report := ParseText(res.Text, res.Source.URL)
		counts[i] = report.Rules()
		rules = append(rules, parsed...)
	}
	if len(rules) == 0 {
		result.DurationSeconds = time.Since(start).Seconds()
		return result, fmt.Errorf("%w: downloaded lists contain no rules", ErrRefreshFailed)
	}

	snap, err := m.newSnapshot(m.engine, rules, false)
	if err != nil {
		result.DurationSeconds = time.Since(start).Seconds()
		return result, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	for i, res := range results {
		if util.IsRemoteURL(res.Source.URL) {
			if err := WriteCache(m.sources.CachePath(res.Source), res.Text); err != nil {
				logger.Warnf("[AdBlock] Failed to cache filter list %s: %v", res.Source.URL, err)
			}
		}
		m.sources.UpdateSourceStatus(res.Source.URL, counts[i], nil)
	}
	m.persistMeta()
	m.current.Store(snap)

	result.TotalRules = len(rules)
	result.DomainCount = snap.engine.DomainCount()
	result.PatternCount = snap.engine.PatternCount()
	result.DurationSeconds = time.Since(start).Seconds()
	logger.Infof("[AdBlock] Rules updated: %d domains, %d patterns in %.2fs",
		result.DomainCount, result.PatternCount, result.DurationSeconds)
	return result, nil
}

func (m *Manager) newSnapshot(engineName string, rules []Rule, fallback bool) (*snapshot, error) {
	engine, err := NewFilterEngine(engineName, rules)
	if err != nil {
		return nil, err
	}
	snap := &snapshot{engine: engine, builtAt: time.Now(), fallback: fallback}
	if m.cfg.DecisionCacheSize > 0 {
		memo, err := lru.New[string, MatchResult](m.cfg.DecisionCacheSize)
		if err != nil {
			return nil, err
		}
		snap.memo = memo
	}
	return snap, nil
}

func (m *Manager) persistMeta() {
	if err := m.sources.saveMeta(); err != nil {
		logger.Warnf("[AdBlock] Failed to save source metadata: %v", err)
	}
}

// Classify reports whether a request to rawURL should be blocked. Each
// positive answer counts as one blocked request.
func (m *Manager) Classify(rawURL string) bool {
	if !m.enabled.Load() {
		return false
	}
	snap := m.current.Load()
	if snap == nil {
		return false
	}

	res := snap.match(rawURL)
	if !res.Matched {
		return false
	}
	m.stats.RecordBlock()
	m.recent.Add(rawURL, res.Rule)
	return true
}

// Test classifies rawURL against the active rules without counting it.
// Blocked reflects the rules only; Enabled tells whether they are applied.
func (m *Manager) Test(rawURL string) TestResult {
	tr := TestResult{URL: rawURL, Enabled: m.enabled.Load()}
	tr.Host, _ = util.HostOf(rawURL)

	snap := m.current.Load()
	if snap == nil {
		return tr
	}
	if res := snap.engine.Match(rawURL); res.Matched {
		tr.Blocked = true
		tr.Kind = res.Kind.String()
		tr.Rule = res.Rule
	}
	return tr
}

// SetEnabled switches filtering on or off and persists the choice. The
// in-memory switch changes even when persisting fails.
func (m *Manager) SetEnabled(enabled bool) error {
	m.enabled.Store(enabled)
	return m.persistEnabled(enabled)
}

func (m *Manager) Enable() error  { return m.SetEnabled(true) }
func (m *Manager) Disable() error { return m.SetEnabled(false) }

// Toggle flips the switch and returns the new state.
func (m *Manager) Toggle() (bool, error) {
	for {
		old := m.enabled.Load()
		if m.enabled.CompareAndSwap(old, !old) {
			return !old, m.persistEnabled(!old)
		}
	}
}

func (m *Manager) persistEnabled(enabled bool) error {
	if err := settings.SetBool(m.store, SettingsKeyEnabled, enabled); err != nil {
		logger.Warnf("[AdBlock] Failed to persist %q setting: %v", SettingsKeyEnabled, err)
		return fmt.Errorf("persisting %s: %w", SettingsKeyEnabled, err)
	}
	logger.Infof("[AdBlock] Filtering enabled=%v", enabled)
	return nil
}

func (m *Manager) Enabled() bool { return m.enabled.Load() }

// Ready reports whether a rule snapshot has been installed.
func (m *Manager) Ready() bool { return m.current.Load() != nil }

func (m *Manager) Engine() string { return m.engine }

func (m *Manager) Stats() AdBlockStats {
	st := AdBlockStats{
		Enabled:         m.enabled.Load(),
		BlockedRequests: m.stats.BlockedTotal(),
		BlockedToday:    m.stats.BlockedToday(),
		Engine:          m.engine,
		SourcesCount:    m.sources.Len(),
		FailedSources:   m.sources.FailedSources(),
	}
	if st.FailedSources == nil {
		st.FailedSources = []string{}
	}

	if snap := m.current.Load(); snap != nil {
		st.DomainCount = snap.engine.DomainCount()
		st.PatternCount = snap.engine.PatternCount()
		st.LastUpdate = snap.builtAt.Format(time.RFC3339)
		st.Fallback = snap.fallback
		st.CacheHits = snap.hits.Load()
		st.CacheMisses = snap.misses.Load()
	}
	return st
}

// Rules dumps the active rules. It reports false before the first snapshot
// or when the engine cannot list its rules.
func (m *Manager) Rules() (RuleDump, bool) {
	snap := m.current.Load()
	if snap == nil {
		return RuleDump{}, false
	}
	lister, ok := snap.engine.(RuleLister)
	if !ok {
		return RuleDump{}, false
	}

	patterns := lister.Patterns()
	dump := RuleDump{
		Engine:   m.engine,
		Fallback: snap.fallback,
		Domains:  lister.Domains(),
		Patterns: make([]string, 0, len(patterns)),
	}
	for _, r := range patterns {
		dump.Patterns = append(dump.Patterns, r.String())
	}
	return dump, true
}

func (m *Manager) Sources() []SourceStatus {
	return m.sources.GetStatuses()
}

// Recent returns the most recently blocked requests, oldest first.
func (m *Manager) Recent() []cache.BlockedEntry {
	return m.recent.GetAll()
}
