package webapi

import (
	"net/http"

	"adfilter/logger"

	"gopkg.in/yaml.v3"
)

// handleHealth 处理健康检查请求
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if s.adblock != nil && !s.adblock.Ready() {
		status = "starting"
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"` + status + `"}`))
}

// handleSystem 返回系统资源状态
func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	s.writeJSONSuccess(w, "System status retrieved successfully", s.collector.System(r.Context()))
}

// handleConfig 返回当前生效的配置，?format=yaml 时输出 YAML
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	if r.URL.Query().Get("format") != "yaml" {
		s.writeJSONSuccess(w, "Config retrieved successfully", s.cfg)
		return
	}

	data, err := yaml.Marshal(s.cfg)
	if err != nil {
		logger.Errorf("Failed to encode config for API: %v", err)
		s.writeJSONError(w, "Failed to encode config: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(data)
}
