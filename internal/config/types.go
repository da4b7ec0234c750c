package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// 缓存后端取值。
const (
	CacheBackendNone   = "none"
	CacheBackendMemory = "memory"
	CacheBackendDisk   = "disk"
	CacheBackendRedis  = "redis"
)

// GlobalConfig 描述进程级运行参数：监听端口、日志与静态目录。
type GlobalConfig struct {
	ListenPort    int    `mapstructure:"ListenPort"`
	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`
	StaticRoot    string `mapstructure:"StaticRoot"`
}

// TransformConfig 对应 [Transform] 段，决定哪些响应需要转换以及错误如何呈现。
type TransformConfig struct {
	// Engine 选择已注册的转换引擎，默认 esbuild。
	Engine       string `mapstructure:"Engine"`
	ContentTypes string `mapstructure:"ContentTypes"`
	BypassHeader string `mapstructure:"BypassHeader"`
	MaskErrors   bool   `mapstructure:"MaskErrors"`
	CacheSalt    string `mapstructure:"CacheSalt"`
	Coalesce     bool   `mapstructure:"Coalesce"`
	// Options 原样透传给转换器，filename 字段会在每次请求时被覆盖。
	Options map[string]interface{} `mapstructure:"Options"`
}

// CacheConfig 对应 [Cache] 段，选择转换结果的存储后端。
type CacheConfig struct {
	Backend        string   `mapstructure:"Backend"`
	MaxEntries     int      `mapstructure:"MaxEntries"`
	StoragePath    string   `mapstructure:"StoragePath"`
	RedisURL       string   `mapstructure:"RedisURL"`
	RedisKeyPrefix string   `mapstructure:"RedisKeyPrefix"`
	TTL            Duration `mapstructure:"TTL"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global    GlobalConfig    `mapstructure:",squash"`
	Transform TransformConfig `mapstructure:"Transform"`
	Cache     CacheConfig     `mapstructure:"Cache"`
}

// CacheEnabled 表示当前配置是否启用了转换缓存。
func (c CacheConfig) CacheEnabled() bool {
	return c.Backend != "" && c.Backend != CacheBackendNone
}
