package webapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"adfilter/adblock"
	"adfilter/config"
	"adfilter/settings"
	"adfilter/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decodedResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*Server, *adblock.Manager) {
	t.Helper()

	cfg := &config.Config{
		AdBlock: config.AdBlockConfig{
			Enable:             true,
			Engine:             adblock.EngineSubstring,
			CacheDir:           t.TempDir(),
			DownloadTimeoutSec: 1,
			MaxConcurrent:      1,
			DecisionCacheSize:  16,
			RecentBlockedSize:  10,
		},
		WebUI:  config.WebUIConfig{Enabled: true, ListenPort: 8080},
		System: config.SystemConfig{LogLevel: "info"},
	}

	mgr, err := adblock.NewManager(&cfg.AdBlock, settings.NewMemoryStore())
	require.NoError(t, err)
	require.NoError(t, mgr.Initialize(context.Background()))

	s := NewServer(cfg, mgr, stats.NewCollector())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, mgr
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, decodedResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp decodedResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") && path != "/health" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec, _ := do(t, s.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestAdBlockStatus(t *testing.T) {
	s, _ := newTestServer(t)
	rec, resp := do(t, s.Handler(), http.MethodGet, "/api/adblock/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	var st adblock.AdBlockStats
	require.NoError(t, json.Unmarshal(resp.Data, &st))
	assert.True(t, st.Enabled)
	assert.True(t, st.Fallback)
	assert.Positive(t, st.DomainCount)

	rec, resp = do(t, s.Handler(), http.MethodPost, "/api/adblock/status", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.False(t, resp.Success)
}

func TestAdBlockClassifyCountsAndTestDoesNot(t *testing.T) {
	s, mgr := newTestServer(t)
	h := s.Handler()

	rec, resp := do(t, h, http.MethodPost, "/api/adblock/test", `{"url":"https://ad.doubleclick.net/x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var tr adblock.TestResult
	require.NoError(t, json.Unmarshal(resp.Data, &tr))
	assert.True(t, tr.Blocked)
	assert.Zero(t, mgr.Stats().BlockedRequests)

	rec, resp = do(t, h, http.MethodPost, "/api/adblock/classify", `{"url":"https://ad.doubleclick.net/x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Blocked bool `json:"blocked"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	assert.True(t, out.Blocked)
	assert.EqualValues(t, 1, mgr.Stats().BlockedRequests)

	rec, resp = do(t, h, http.MethodGet, "/api/adblock/recent", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(resp.Data), "ad.doubleclick.net")
}

func TestAdBlockClassifyBadRequests(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec, _ := do(t, h, http.MethodPost, "/api/adblock/classify", `{"url":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/adblock/classify", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/adblock/classify", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAdBlockSwitches(t *testing.T) {
	s, mgr := newTestServer(t)
	h := s.Handler()

	rec, _ := do(t, h, http.MethodPost, "/api/adblock/disable", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, mgr.Enabled())

	rec, resp := do(t, h, http.MethodPost, "/api/adblock/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"enabled":true}`, string(resp.Data))
	assert.True(t, mgr.Enabled())

	rec, _ = do(t, h, http.MethodPost, "/api/adblock/disable", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, h, http.MethodPost, "/api/adblock/enable", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, mgr.Enabled())
}

func TestAdBlockUpdateBusy(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	s.adblockMutex.Lock()
	s.isAdblockBusy = true
	s.adblockMutex.Unlock()

	rec, resp := do(t, h, http.MethodPost, "/api/adblock/update", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, resp.Success)

	s.adblockMutex.Lock()
	s.isAdblockBusy = false
	s.adblockMutex.Unlock()

	rec, resp = do(t, h, http.MethodPost, "/api/adblock/update", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	s.updates.Wait()
	s.adblockMutex.Lock()
	assert.False(t, s.isAdblockBusy, "busy flag is cleared once the update ends")
	s.adblockMutex.Unlock()
}

func TestAdBlockSources(t *testing.T) {
	s, _ := newTestServer(t)
	rec, resp := do(t, s.Handler(), http.MethodGet, "/api/adblock/sources", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.JSONEq(t, `[]`, string(resp.Data))
}

func TestAdBlockRules(t *testing.T) {
	s, _ := newTestServer(t)
	rec, resp := do(t, s.Handler(), http.MethodGet, "/api/adblock/rules", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var dump adblock.RuleDump
	require.NoError(t, json.Unmarshal(resp.Data, &dump))
	assert.Equal(t, adblock.EngineSubstring, dump.Engine)
	assert.True(t, dump.Fallback)
	assert.Contains(t, dump.Domains, "doubleclick.net")
	assert.Empty(t, dump.Patterns)
}

func TestContentScriptRoute(t *testing.T) {
	s, _ := newTestServer(t)
	rec, _ := do(t, s.Handler(), http.MethodGet, "/api/adblock/content-script", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/javascript; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "MutationObserver")
}

func TestConfigRoute(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec, resp := do(t, h, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(resp.Data), `"engine":"substring"`)

	rec, _ = do(t, h, http.MethodGet, "/api/config?format=yaml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "engine: substring")
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)
	rec, _ := do(t, s.Handler(), http.MethodOptions, "/api/adblock/toggle", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStartDisabled(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.WebUI.Enabled = false
	assert.NoError(t, s.Start())
}
