package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// 默认值与 transform 包的默认值保持一致。
const (
	defaultEngine       = "esbuild"
	defaultContentTypes = `(?i)(?:java|ecma)script`
	defaultBypassHeader = "X-No-Transform"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	applyTransformDefaults(&cfg.Transform)
	applyCacheDefaults(&cfg.Cache)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(cfg.Global.StaticRoot)
	if err != nil {
		return nil, fmt.Errorf("无法解析静态目录: %w", err)
	}
	cfg.Global.StaticRoot = absRoot

	if cfg.Cache.Backend == CacheBackendDisk {
		absStorage, err := filepath.Abs(cfg.Cache.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("无法解析缓存目录: %w", err)
		}
		cfg.Cache.StoragePath = absStorage
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("StaticRoot", "./public")

	v.SetDefault("Transform.Engine", defaultEngine)
	v.SetDefault("Transform.ContentTypes", defaultContentTypes)
	v.SetDefault("Transform.BypassHeader", defaultBypassHeader)
	v.SetDefault("Transform.MaskErrors", true)
	v.SetDefault("Transform.CacheSalt", "")
	v.SetDefault("Transform.Coalesce", false)

	v.SetDefault("Cache.Backend", CacheBackendMemory)
	v.SetDefault("Cache.MaxEntries", 1024)
	v.SetDefault("Cache.StoragePath", "./storage")
	v.SetDefault("Cache.RedisKeyPrefix", "script-hub:")
	v.SetDefault("Cache.TTL", "24h")
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if strings.TrimSpace(g.LogLevel) == "" {
		g.LogLevel = "info"
	}
}

func applyTransformDefaults(t *TransformConfig) {
	t.Engine = strings.ToLower(strings.TrimSpace(t.Engine))
	if t.Engine == "" {
		t.Engine = defaultEngine
	}
	if strings.TrimSpace(t.ContentTypes) == "" {
		t.ContentTypes = defaultContentTypes
	}
	if strings.TrimSpace(t.BypassHeader) == "" {
		t.BypassHeader = defaultBypassHeader
	}
	if t.Options == nil {
		t.Options = map[string]interface{}{}
	}
}

func applyCacheDefaults(c *CacheConfig) {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = CacheBackendNone
	}
	if c.TTL.DurationValue() < 0 {
		c.TTL = Duration(0)
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
