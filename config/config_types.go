package config

// Config 主配置结构
type Config struct {
	AdBlock  AdBlockConfig  `yaml:"adblock" json:"adblock" koanf:"adblock"`
	Settings SettingsConfig `yaml:"settings" json:"settings" koanf:"settings"`
	WebUI    WebUIConfig    `yaml:"webui" json:"webui" koanf:"webui"`
	System   SystemConfig   `yaml:"system" json:"system" koanf:"system"`
}

// AdBlockConfig 广告拦截配置
type AdBlockConfig struct {
	// Enable 仅在 settings 中没有保存 adBlocker 开关时作为初始值
	Enable              bool     `yaml:"enable" json:"enable" koanf:"enable"`
	Engine              string   `yaml:"engine,omitempty" json:"engine" koanf:"engine" validate:"oneof=substring urlfilter"`
	RuleURLs            []string `yaml:"rule_urls,omitempty" json:"rule_urls" koanf:"rule_urls" validate:"min=1,dive,required"`
	CacheDir            string   `yaml:"cache_dir,omitempty" json:"cache_dir" koanf:"cache_dir" validate:"required"`
	UpdateIntervalHours int      `yaml:"update_interval_hours" json:"update_interval_hours" koanf:"update_interval_hours" validate:"gte=0"`
	DownloadTimeoutSec  int      `yaml:"download_timeout_sec,omitempty" json:"download_timeout_sec" koanf:"download_timeout_sec" validate:"gte=1"`
	MaxConcurrent       int      `yaml:"max_concurrent_downloads,omitempty" json:"max_concurrent_downloads" koanf:"max_concurrent_downloads" validate:"gte=1"`
	DecisionCacheSize   int      `yaml:"decision_cache_size" json:"decision_cache_size" koanf:"decision_cache_size" validate:"gte=0"`
	RecentBlockedSize   int      `yaml:"recent_blocked_size,omitempty" json:"recent_blocked_size" koanf:"recent_blocked_size" validate:"gte=1"`
}

// SettingsConfig 持久化开关等用户设置
type SettingsConfig struct {
	File string `yaml:"file,omitempty" json:"file" koanf:"file" validate:"required"`
}

// WebUIConfig Web 控制接口配置
type WebUIConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled" koanf:"enabled"`
	ListenPort int  `yaml:"listen_port,omitempty" json:"listen_port" koanf:"listen_port" validate:"gte=1,lt=65536"`
}

// SystemConfig 系统配置
type SystemConfig struct {
	LogLevel string `yaml:"log_level,omitempty" json:"log_level" koanf:"log_level" validate:"oneof=debug info warn error"`
}
