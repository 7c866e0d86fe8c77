package webapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"adfilter/adblock"
	"adfilter/cache"
	"adfilter/config"
	"adfilter/logger"
	"adfilter/stats"
)

// APIResponse 统一的 API 响应格式
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AdBlocker 是 Web API 使用的广告过滤控制面
type AdBlocker interface {
	Classify(rawURL string) bool
	Test(rawURL string) adblock.TestResult
	Enable() error
	Disable() error
	Toggle() (bool, error)
	Refresh(ctx context.Context) (adblock.UpdateResult, error)
	Stats() adblock.AdBlockStats
	Sources() []adblock.SourceStatus
	Rules() (adblock.RuleDump, bool)
	Recent() []cache.BlockedEntry
	Ready() bool
}

// Server Web API 服务器
type Server struct {
	cfg       *config.Config
	adblock   AdBlocker
	collector *stats.Collector
	listener  *http.Server

	// 更新任务随服务器生命周期取消
	baseCtx context.Context
	cancel  context.CancelFunc

	adblockMutex  sync.Mutex
	isAdblockBusy bool
	updates       sync.WaitGroup
}

// NewServer 创建新的 Web API 服务器
func NewServer(cfg *config.Config, ab AdBlocker, collector *stats.Collector) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	if collector == nil {
		collector = stats.NewCollector()
	}
	return &Server{
		cfg:       cfg,
		adblock:   ab,
		collector: collector,
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// Handler 返回注册了全部路由的 HTTP 处理器
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/system", s.handleSystem)
	mux.HandleFunc("/api/config", s.handleConfig)

	// AdBlock API routes
	mux.HandleFunc("/api/adblock/status", s.handleAdBlockStatus)
	mux.HandleFunc("/api/adblock/enable", s.handleAdBlockEnable)
	mux.HandleFunc("/api/adblock/disable", s.handleAdBlockDisable)
	mux.HandleFunc("/api/adblock/toggle", s.handleAdBlockToggle)
	mux.HandleFunc("/api/adblock/update", s.handleAdBlockUpdate)
	mux.HandleFunc("/api/adblock/classify", s.handleAdBlockClassify)
	mux.HandleFunc("/api/adblock/test", s.handleAdBlockTest)
	mux.HandleFunc("/api/adblock/sources", s.handleAdBlockSources)
	mux.HandleFunc("/api/adblock/rules", s.handleAdBlockRules)
	mux.HandleFunc("/api/adblock/recent", s.handleAdBlockRecent)
	mux.HandleFunc("/api/adblock/content-script", s.handleContentScript)

	return s.corsMiddleware(mux)
}

// Start 启动 Web API 服务，阻塞直到服务器关闭
func (s *Server) Start() error {
	if !s.cfg.WebUI.Enabled {
		logger.Info("WebAPI is disabled")
		return nil
	}

	s.listener = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.WebUI.ListenPort),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Infof("Web API server started on http://localhost:%d", s.cfg.WebUI.ListenPort)
	if err := s.listener.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 停止接收请求并等待后台更新退出
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	var err error
	if s.listener != nil {
		err = s.listener.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.updates.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}
