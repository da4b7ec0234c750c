package cache

import (
	"context"
	"fmt"

	"github.com/any-hub/script-hub/internal/config"
)

// New 根据 [Cache] 配置构建对应后端；Backend=none 时返回 nil Store。
func New(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	ttl := cfg.TTL.DurationValue()
	switch cfg.Backend {
	case "", config.CacheBackendNone:
		return nil, nil
	case config.CacheBackendMemory:
		return NewMemoryStore(cfg.MaxEntries, ttl), nil
	case config.CacheBackendDisk:
		store, err := NewDiskStore(cfg.StoragePath, ttl)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.CacheBackendRedis:
		store, err := DialRedis(ctx, cfg.RedisURL, cfg.RedisKeyPrefix, ttl)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}
