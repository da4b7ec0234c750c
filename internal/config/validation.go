package config

import (
	"errors"
	"net/url"
	"strings"

	"github.com/grafana/regexp"
	"github.com/sirupsen/logrus"
)

var supportedBackends = map[string]struct{}{
	CacheBackendNone:   {},
	CacheBackendMemory: {},
	CacheBackendDisk:   {},
	CacheBackendRedis:  {},
}

const supportedBackendList = "none|memory|disk|redis"

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", "无法识别的日志级别: "+g.LogLevel)
	}
	if strings.TrimSpace(g.StaticRoot) == "" {
		return newFieldError("Global.StaticRoot", "不能为空")
	}

	if err := c.Transform.validate(); err != nil {
		return err
	}
	return c.Cache.validate()
}

func (t TransformConfig) validate() error {
	if _, err := regexp.Compile(t.ContentTypes); err != nil {
		return newFieldError(transformField("ContentTypes"), "正则表达式无效: "+err.Error())
	}
	if !validHeaderName(t.BypassHeader) {
		return newFieldError(transformField("BypassHeader"), "不是合法的 HTTP 头名称")
	}
	return nil
}

func (c CacheConfig) validate() error {
	if _, ok := supportedBackends[c.Backend]; !ok {
		return newFieldError(cacheField("Backend"), "仅支持 "+supportedBackendList)
	}
	if c.TTL.DurationValue() < 0 {
		return newFieldError(cacheField("TTL"), "不能为负数")
	}

	switch c.Backend {
	case CacheBackendMemory:
		if c.MaxEntries <= 0 {
			return newFieldError(cacheField("MaxEntries"), "必须大于 0")
		}
	case CacheBackendDisk:
		if strings.TrimSpace(c.StoragePath) == "" {
			return newFieldError(cacheField("StoragePath"), "不能为空")
		}
	case CacheBackendRedis:
		if err := validateRedisURL(c.RedisURL); err != nil {
			return newFieldError(cacheField("RedisURL"), err.Error())
		}
	}
	return nil
}

func validateRedisURL(raw string) error {
	if raw == "" {
		return errors.New("缺少 Redis 地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "redis" && parsed.Scheme != "rediss" {
		return errors.New("仅支持 redis/rediss 协议")
	}
	if parsed.Host == "" {
		return errors.New("Redis 地址缺少 Host")
	}
	return nil
}

// validHeaderName 按 RFC 7230 token 规则检查头名称。
func validHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("!#$%&'*+-.^_`|~", r):
		default:
			return false
		}
	}
	return true
}
