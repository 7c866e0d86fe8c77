package adblock

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"adfilter/logger"
)

const (
	SourceStatusActive  = "active"
	SourceStatusFailed  = "failed"
	SourceStatusBad     = "bad"
	SourceStatusPending = "pending"

	metaFileName = "rules_meta.json"
	badAfterFail = 3
)

type SourceStatus struct {
	URL        string    `json:"url"`
	Status     string    `json:"status"` // "active", "failed", "bad", "pending"
	RuleCount  int       `json:"rule_count"`
	LastUpdate time.Time `json:"last_update"`
	LastError  string    `json:"last_error"`
}

type SourceInfo struct {
	URL        string    `json:"url"`
	CacheFile  string    `json:"cache_file"`
	RuleCount  int       `json:"rule_count"`
	LastUpdate time.Time `json:"last_update"`
	LastError  string    `json:"last_error"`
	FailCount  int       `json:"fail_count"`
	Status     string    `json:"status"`
}

// SourceManager keeps the configured list sources in order, together with
// their cache file names and last known status.
type SourceManager struct {
	cacheDir string
	metaFile string
	order    []string
	sources  map[string]*SourceInfo
	mu       sync.RWMutex
	// metaMu orders writers of the meta file
	metaMu sync.Mutex
}

func NewSourceManager(cacheDir string, urls []string) (*SourceManager, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, err
	}

	sm := &SourceManager{
		cacheDir: cacheDir,
		metaFile: filepath.Join(cacheDir, metaFileName),
		sources:  make(map[string]*SourceInfo),
	}

	known, err := sm.loadMeta()
	if err != nil && !os.IsNotExist(err) {
		logger.Warnf("[AdBlock] Ignoring unreadable source metadata %s: %v", sm.metaFile, err)
	}

	for _, url := range urls {
		if _, dup := sm.sources[url]; dup {
			continue
		}
		info, ok := known[url]
		if !ok {
			info = &SourceInfo{URL: url, Status: SourceStatusPending}
		}
		info.CacheFile = cacheFileName(url)
		sm.sources[url] = info
		sm.order = append(sm.order, url)
	}

	return sm, nil
}

func cacheFileName(url string) string {
	h := sha256.Sum256([]byte(url))
	return "rules_" + hex.EncodeToString(h[:16]) + ".txt"
}

// CachePath returns the on-disk cache file for a source.
func (sm *SourceManager) CachePath(s *SourceInfo) string {
	return filepath.Join(sm.cacheDir, s.CacheFile)
}

func (sm *SourceManager) loadMeta() (map[string]*SourceInfo, error) {
	data, err := os.ReadFile(sm.metaFile)
	if err != nil {
		return nil, err
	}

	var sources []*SourceInfo
	if err := json.Unmarshal(data, &sources); err != nil {
		return nil, err
	}

	known := make(map[string]*SourceInfo, len(sources))
	for _, s := range sources {
		known[s.URL] = s
	}
	return known, nil
}

func (sm *SourceManager) saveMeta() error {
	sm.metaMu.Lock()
	defer sm.metaMu.Unlock()

	sm.mu.RLock()
	sources := make([]*SourceInfo, 0, len(sm.order))
	for _, url := range sm.order {
		copied := *sm.sources[url]
		sources = append(sources, &copied)
	}
	sm.mu.RUnlock()

	data, err := json.MarshalIndent(sources, "", "  ")
	if err != nil {
		return err
	}
	return WriteCache(sm.metaFile, string(data))
}

// GetAllSources returns copies of every source in configuration order.
func (sm *SourceManager) GetAllSources() []*SourceInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sources := make([]*SourceInfo, 0, len(sm.order))
	for _, url := range sm.order {
		copied := *sm.sources[url]
		sources = append(sources, &copied)
	}
	return sources
}

func (sm *SourceManager) UpdateSourceStatus(url string, ruleCount int, err error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	source, exists := sm.sources[url]
	if !exists {
		return
	}
	source.LastUpdate = time.Now()
	if err != nil {
		source.LastError = err.Error()
		source.FailCount++
		source.Status = SourceStatusFailed
		if source.FailCount >= badAfterFail {
			source.Status = SourceStatusBad
		}
		return
	}
	source.RuleCount = ruleCount
	source.LastError = ""
	source.FailCount = 0
	source.Status = SourceStatusActive
}

func (sm *SourceManager) GetStatuses() []SourceStatus {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	statuses := make([]SourceStatus, 0, len(sm.order))
	for _, url := range sm.order {
		s := sm.sources[url]
		statuses = append(statuses, SourceStatus{
			URL:        s.URL,
			Status:     s.Status,
			RuleCount:  s.RuleCount,
			LastUpdate: s.LastUpdate,
			LastError:  s.LastError,
		})
	}
	return statuses
}

// FailedSources lists sources whose last attempt failed.
func (sm *SourceManager) FailedSources() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var failed []string
	for _, url := range sm.order {
		if s := sm.sources[url]; s.Status == SourceStatusFailed || s.Status == SourceStatusBad {
			failed = append(failed, url)
		}
	}
	return failed
}

func (sm *SourceManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.order)
}
