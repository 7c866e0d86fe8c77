package webapi

import (
	"errors"
	"net/http"

	"adfilter/adblock"
	"adfilter/logger"
)

type urlPayload struct {
	URL string `json:"url"`
}

// adblockReady 检查过滤器是否可用
func (s *Server) adblockReady(w http.ResponseWriter) bool {
	if s.adblock == nil {
		s.writeJSONError(w, "AdBlock is not available", http.StatusServiceUnavailable)
		return false
	}
	return true
}

// handleAdBlockStatus 处理广告拦截状态请求
func (s *Server) handleAdBlockStatus(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) || !s.adblockReady(w) {
		return
	}
	s.writeJSONSuccess(w, "AdBlock status retrieved successfully", s.adblock.Stats())
}

// handleAdBlockEnable 开启过滤
func (s *Server) handleAdBlockEnable(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) || !s.adblockReady(w) {
		return
	}
	if err := s.adblock.Enable(); err != nil {
		s.writeJSONError(w, "AdBlock enabled, but the setting could not be saved: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSONSuccess(w, "AdBlock enabled", map[string]bool{"enabled": true})
}

// handleAdBlockDisable 关闭过滤
func (s *Server) handleAdBlockDisable(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) || !s.adblockReady(w) {
		return
	}
	if err := s.adblock.Disable(); err != nil {
		s.writeJSONError(w, "AdBlock disabled, but the setting could not be saved: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSONSuccess(w, "AdBlock disabled", map[string]bool{"enabled": false})
}

// handleAdBlockToggle 处理广告拦截开关请求
func (s *Server) handleAdBlockToggle(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) || !s.adblockReady(w) {
		return
	}

	enabled, err := s.adblock.Toggle()
	if err != nil {
		logger.Errorf("[AdBlock] Failed to persist toggle: %v", err)
		s.writeJSONError(w, "AdBlock toggled, but the setting could not be saved: "+err.Error(), http.StatusInternalServerError)
		return
	}

	logger.Infof("[AdBlock] Status toggled to: %v", enabled)
	s.writeJSONSuccess(w, "AdBlock status updated successfully", map[string]bool{"enabled": enabled})
}

// handleAdBlockUpdate 处理广告拦截规则更新请求
func (s *Server) handleAdBlockUpdate(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) || !s.adblockReady(w) {
		return
	}

	// 检查是否有更新正在进行中
	s.adblockMutex.Lock()
	if s.isAdblockBusy {
		s.adblockMutex.Unlock()
		s.writeJSONError(w, "AdBlock update is already in progress, please wait", http.StatusConflict)
		return
	}
	s.isAdblockBusy = true
	s.adblockMutex.Unlock()

	s.updates.Add(1)
	go func() {
		defer s.updates.Done()
		defer func() {
			// 更新完成后重置标志
			s.adblockMutex.Lock()
			s.isAdblockBusy = false
			s.adblockMutex.Unlock()
		}()

		result, err := s.adblock.Refresh(s.baseCtx)
		if err != nil {
			if errors.Is(err, adblock.ErrRefreshFailed) {
				logger.Warnf("[AdBlock] Manual update failed, previous rules kept: %v", err)
			} else {
				logger.Errorf("[AdBlock] Manual update failed: %v", err)
			}
			return
		}
		logger.Infof("[AdBlock] Manual update completed: %+v", result)
	}()

	s.writeJSONSuccess(w, "AdBlock rule update started", nil)
}

// handleAdBlockClassify 供进程外的宿主判断单个请求；命中计入拦截统计
func (s *Server) handleAdBlockClassify(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) || !s.adblockReady(w) {
		return
	}

	var payload urlPayload
	if !s.decodeJSON(w, r, &payload) {
		return
	}
	if payload.URL == "" {
		s.writeJSONError(w, "URL cannot be empty", http.StatusBadRequest)
		return
	}

	blocked := s.adblock.Classify(payload.URL)
	s.writeJSONSuccess(w, "Classification complete", map[string]interface{}{
		"url":     payload.URL,
		"blocked": blocked,
	})
}

// handleAdBlockTest 处理广告拦截测试请求，不计入统计
func (s *Server) handleAdBlockTest(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) || !s.adblockReady(w) {
		return
	}

	var payload urlPayload
	if !s.decodeJSON(w, r, &payload) {
		return
	}
	if payload.URL == "" {
		s.writeJSONError(w, "URL cannot be empty", http.StatusBadRequest)
		return
	}

	s.writeJSONSuccess(w, "URL test complete", s.adblock.Test(payload.URL))
}

// handleAdBlockSources 返回各规则源状态
func (s *Server) handleAdBlockSources(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) || !s.adblockReady(w) {
		return
	}
	s.writeJSONSuccess(w, "AdBlock sources retrieved successfully", s.adblock.Sources())
}

// handleAdBlockRules 导出当前生效的规则
func (s *Server) handleAdBlockRules(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) || !s.adblockReady(w) {
		return
	}
	dump, ok := s.adblock.Rules()
	if !ok {
		s.writeJSONError(w, "Rule listing is not available for this engine", http.StatusNotFound)
		return
	}
	s.writeJSONSuccess(w, "AdBlock rules retrieved successfully", dump)
}

// handleAdBlockRecent 返回最近拦截的请求
func (s *Server) handleAdBlockRecent(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) || !s.adblockReady(w) {
		return
	}
	s.writeJSONSuccess(w, "Recently blocked requests retrieved successfully", s.adblock.Recent())
}

// handleContentScript 输出页面注入脚本
func (s *Server) handleContentScript(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	script := adblock.ContentScript()
	if script == "" {
		s.writeJSONError(w, "Content script unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(script))
}
