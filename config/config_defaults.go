package config

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// 默认规则列表
var DefaultRuleURLs = []string{
	"https://easylist.to/easylist/easylist.txt",
	"https://easylist.to/easylist/easyprivacy.txt",
}

// setDefaultValues 设置配置文件中缺失字段的默认值
func setDefaultValues(cfg *Config, rawData []byte) {
	// AdBlock 配置默认值
	setAdBlockDefaults(cfg, rawData)

	// Settings 配置默认值
	if cfg.Settings.File == "" {
		cfg.Settings.File = "./settings.db"
	}

	// WebUI 配置默认值
	setWebUIDefaults(cfg, rawData)

	// System 配置默认值
	if cfg.System.LogLevel == "" {
		cfg.System.LogLevel = "info"
	}
}

// setAdBlockDefaults 设置广告拦截配置的默认值
func setAdBlockDefaults(cfg *Config, rawData []byte) {
	if cfg.AdBlock.Engine == "" {
		cfg.AdBlock.Engine = "substring"
	}
	if len(cfg.AdBlock.RuleURLs) == 0 {
		cfg.AdBlock.RuleURLs = append([]string(nil), DefaultRuleURLs...)
	}
	if cfg.AdBlock.CacheDir == "" {
		cfg.AdBlock.CacheDir = "./filterlists"
	}
	if cfg.AdBlock.DownloadTimeoutSec == 0 {
		cfg.AdBlock.DownloadTimeoutSec = 15
	}
	if cfg.AdBlock.MaxConcurrent == 0 {
		cfg.AdBlock.MaxConcurrent = 5
	}
	if cfg.AdBlock.RecentBlockedSize == 0 {
		cfg.AdBlock.RecentBlockedSize = 20
	}
	// 未写 enable 时默认开启；显式写 false 时保持 false
	if !cfg.AdBlock.Enable && !explicitlySet(rawData, "adblock", "enable") {
		cfg.AdBlock.Enable = true
	}
}

// normalizeValues 统一枚举类取值的大小写，引擎名与日志级别不区分大小写
func normalizeValues(cfg *Config) {
	cfg.AdBlock.Engine = strings.ToLower(strings.TrimSpace(cfg.AdBlock.Engine))
	cfg.System.LogLevel = strings.ToLower(strings.TrimSpace(cfg.System.LogLevel))
}

// setWebUIDefaults 设置 Web 接口的默认值
func setWebUIDefaults(cfg *Config, rawData []byte) {
	if cfg.WebUI.ListenPort == 0 {
		cfg.WebUI.ListenPort = 8080
	}
	if !cfg.WebUI.Enabled && !explicitlySet(rawData, "webui", "enabled") {
		cfg.WebUI.Enabled = true
	}
}

// explicitlySet 检查原始 YAML 中 section.key 是否存在
func explicitlySet(rawData []byte, section, key string) bool {
	var sections map[string]map[string]interface{}
	if err := yaml.Unmarshal(rawData, &sections); err != nil {
		return false
	}
	sec, ok := sections[section]
	if !ok {
		return false
	}
	_, ok = sec[key]
	return ok
}
