package adblock

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"adfilter/internal"
	"adfilter/logger"

	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxConcurrentDownloads = 5
	defaultDownloadTimeout        = 15 * time.Second
	maxListSize                   = 50 * 1024 * 1024
)

type RuleLoader struct {
	client        *http.Client
	maxConcurrent int
}

func NewRuleLoader(timeout time.Duration, maxConcurrent int) *RuleLoader {
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentDownloads
	}
	return &RuleLoader{
		client:        &http.Client{Timeout: timeout},
		maxConcurrent: maxConcurrent,
	}
}

// FetchResult is the outcome of acquiring one list: either Text or Err.
type FetchResult struct {
	Source    *SourceInfo
	Text      string
	FromCache bool
	Err       error
}

func (r FetchResult) OK() bool { return r.Err == nil }

// Acquire fetches every source concurrently and returns one result per
// source in the same order.
//
// Without force a readable cache file wins and a fresh download is written
// to the cache. With force remote lists are always downloaded and nothing
// is written; the caller commits with WriteCache once the whole batch is
// good. Local sources are read from disk either way.
func (rl *RuleLoader) Acquire(ctx context.Context, sm *SourceManager, sources []*SourceInfo, force bool) []FetchResult {
	results := make([]FetchResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rl.maxConcurrent)
	for i, s := range sources {
		g.Go(func() error {
			results[i] = rl.acquireOne(gctx, sm, s, force)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (rl *RuleLoader) acquireOne(ctx context.Context, sm *SourceManager, s *SourceInfo, force bool) FetchResult {
	res := FetchResult{Source: s}

	if !util.IsRemoteURL(s.URL) {
		res.Text, res.Err = readFile(util.LocalPath(s.URL))
		return res
	}

	cachePath := sm.CachePath(s)
	if !force {
		if text, err := readFile(cachePath); err == nil {
			res.Text = text
			res.FromCache = true
			return res
		} else if !os.IsNotExist(err) {
			logger.Warnf("[AdBlock] Cache file %s unreadable, downloading again: %v", cachePath, err)
		}
	}

	text, err := rl.download(ctx, s.URL)
	if err != nil {
		logger.Warnf("[AdBlock] Failed to download filter list %s: %v", s.URL, err)
		res.Err = err
		return res
	}
	res.Text = text

	if !force {
		if err := WriteCache(cachePath, text); err != nil {
			logger.Warnf("[AdBlock] Failed to cache filter list %s: %v", s.URL, err)
		}
	}
	return res
}

func (rl *RuleLoader) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := rl.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	// One byte past the limit tells an oversized body from an exact fit.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListSize+1))
	if err != nil {
		return "", err
	}
	if len(body) > maxListSize {
		return "", fmt.Errorf("file exceeds %dMB limit", maxListSize/1024/1024)
	}
	return string(body), nil
}

// WriteCache replaces path with text through a temp file and rename, so a
// reader never sees a half-written list.
func WriteCache(path, text string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
