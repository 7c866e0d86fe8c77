package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量前缀，"__" 表示层级，例如 ADFILTER_ADBLOCK__ENGINE
const EnvPrefix = "ADFILTER_"

// envLoader 加载 ADFILTER_ 前缀的环境变量，测试中可替换
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			key = strings.ReplaceAll(key, "__", ".")
			value = strings.TrimSpace(value)

			if strings.Contains(value, ",") {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ',' || r == ' '
				})
				return key, parts
			}
			return key, value
		},
	}), nil)
}

// CreateDefaultConfig 创建默认配置文件
func CreateDefaultConfig(filePath string) error {
	return os.WriteFile(filePath, []byte(DefaultConfigContent), 0644)
}

// LoadConfig 从 YAML 文件加载配置，叠加环境变量并校验
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		// 如果文件不存在，自动创建默认配置文件
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := CreateDefaultConfig(filePath); err != nil {
			return nil, err
		}
		data = []byte(DefaultConfigContent)
	}

	return parseConfig(data)
}

// parseConfig 解析原始 YAML，设置默认值，叠加环境变量并校验
func parseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	setDefaultValues(&cfg, data)

	merged, err := applyEnv(&cfg)
	if err != nil {
		return nil, err
	}

	normalizeValues(merged)
	if err := Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// applyEnv 以文件配置为底层，用环境变量覆盖
func applyEnv(cfg *Config) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(*cfg, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("error loading file config: %w", err)
	}
	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var out Config
	if err := k.Unmarshal("", &out); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return &out, nil
}

// Validate 校验配置
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
