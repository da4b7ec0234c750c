package cache

import (
	"context"
	"errors"
	"time"
)

// Store 保存转换结果，Get 未命中时返回 ok=false 而不是错误。
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Close 释放后端资源（Redis 连接等）。
	Close() error
}

// ErrInvalidKey 表示缓存键包含无法安全落盘的字符。
var ErrInvalidKey = errors.New("invalid cache key")

// fresh 判断写入时间在 ttl 内是否仍然有效；ttl<=0 表示永不过期。
func fresh(storedAt time.Time, ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return true
	}
	return now.Before(storedAt.Add(ttl))
}

func ctxDone(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
