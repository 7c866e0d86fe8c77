package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withEnv 替换 envLoader，测试结束后恢复
func withEnv(t *testing.T, values map[string]any) {
	t.Helper()
	orig := envLoader
	envLoader = func(k *koanf.Koanf) error {
		for key, v := range values {
			if err := k.Set(key, v); err != nil {
				return err
			}
		}
		return nil
	}
	t.Cleanup(func() { envLoader = orig })
}

// TestLoadConfigCreatesDefault 测试配置文件不存在时自动创建
func TestLoadConfigCreatesDefault(t *testing.T) {
	withEnv(t, nil)
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "default config file should be written")

	assert.True(t, cfg.AdBlock.Enable)
	assert.Equal(t, "substring", cfg.AdBlock.Engine)
	assert.Equal(t, DefaultRuleURLs, cfg.AdBlock.RuleURLs)
	assert.Equal(t, "./filterlists", cfg.AdBlock.CacheDir)
	assert.Equal(t, 8080, cfg.WebUI.ListenPort)
	assert.True(t, cfg.WebUI.Enabled)
	assert.Equal(t, "info", cfg.System.LogLevel)
}

// TestDefaultsForMissingFields 测试缺失字段的默认值
func TestDefaultsForMissingFields(t *testing.T) {
	withEnv(t, nil)

	cfg, err := parseConfig([]byte("adblock:\n  cache_dir: /tmp/lists\n"))
	require.NoError(t, err)

	assert.True(t, cfg.AdBlock.Enable, "omitted enable defaults to true")
	assert.Equal(t, "/tmp/lists", cfg.AdBlock.CacheDir)
	assert.Len(t, cfg.AdBlock.RuleURLs, 2)
	assert.Equal(t, 15, cfg.AdBlock.DownloadTimeoutSec)
	assert.Equal(t, 5, cfg.AdBlock.MaxConcurrent)
	assert.Equal(t, 20, cfg.AdBlock.RecentBlockedSize)
	assert.Equal(t, 0, cfg.AdBlock.DecisionCacheSize)
	assert.Equal(t, "./settings.db", cfg.Settings.File)
}

// TestExplicitFalseIsKept 测试显式 false 不会被默认值覆盖
func TestExplicitFalseIsKept(t *testing.T) {
	withEnv(t, nil)

	cfg, err := parseConfig([]byte("adblock:\n  enable: false\nwebui:\n  enabled: false\n"))
	require.NoError(t, err)

	assert.False(t, cfg.AdBlock.Enable)
	assert.False(t, cfg.WebUI.Enabled)
}

// TestEnvOverridesFile 测试环境变量覆盖文件配置
func TestEnvOverridesFile(t *testing.T) {
	withEnv(t, map[string]any{
		"adblock.engine":    "urlfilter",
		"adblock.rule_urls": []string{"file:///tmp/a.txt", "file:///tmp/b.txt", "file:///tmp/c.txt"},
		"webui.listen_port": "9090",
		"system.log_level":  "debug",
	})

	cfg, err := parseConfig([]byte("adblock:\n  engine: substring\n"))
	require.NoError(t, err)

	assert.Equal(t, "urlfilter", cfg.AdBlock.Engine)
	assert.Len(t, cfg.AdBlock.RuleURLs, 3)
	assert.Equal(t, 9090, cfg.WebUI.ListenPort)
	assert.Equal(t, "debug", cfg.System.LogLevel)
}

// TestValidationRejectsUnknownEngine 测试非法引擎名
func TestValidationRejectsUnknownEngine(t *testing.T) {
	withEnv(t, nil)

	_, err := parseConfig([]byte("adblock:\n  engine: regexonly\n"))
	assert.Error(t, err)
}

// TestEngineNameIsCaseInsensitive 测试引擎名与日志级别不区分大小写
func TestEngineNameIsCaseInsensitive(t *testing.T) {
	withEnv(t, nil)

	cfg, err := parseConfig([]byte("adblock:\n  engine: URLFilter\nsystem:\n  log_level: DEBUG\n"))
	require.NoError(t, err)
	assert.Equal(t, "urlfilter", cfg.AdBlock.Engine)
	assert.Equal(t, "debug", cfg.System.LogLevel)

	withEnv(t, map[string]any{"adblock.engine": " Substring "})
	cfg, err = parseConfig([]byte("adblock:\n  engine: urlfilter\n"))
	require.NoError(t, err)
	assert.Equal(t, "substring", cfg.AdBlock.Engine)
}

// TestValidationRejectsBadLogLevel 测试非法日志级别
func TestValidationRejectsBadLogLevel(t *testing.T) {
	withEnv(t, nil)

	_, err := parseConfig([]byte("system:\n  log_level: verbose\n"))
	assert.Error(t, err)
}

func TestEnvLoaderTransform(t *testing.T) {
	t.Setenv("ADFILTER_ADBLOCK__CACHE_DIR", "/var/cache/adfilter")
	t.Setenv("ADFILTER_ADBLOCK__RULE_URLS", "https://a.example/list.txt,https://b.example/list.txt")

	k := koanf.New(".")
	require.NoError(t, envLoader(k))

	assert.Equal(t, "/var/cache/adfilter", k.String("adblock.cache_dir"))
	assert.Equal(t, []string{"https://a.example/list.txt", "https://b.example/list.txt"}, k.Strings("adblock.rule_urls"))
}
