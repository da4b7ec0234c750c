package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore 以进程内 LRU 保存转换结果，超过容量时淘汰最久未使用的条目。
type MemoryStore struct {
	lru *expirable.LRU[string, string]
}

// NewMemoryStore 构造容量为 size 的内存缓存，ttl<=0 时条目不过期。
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = 1024
	}
	if ttl < 0 {
		ttl = 0
	}
	return &MemoryStore{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctxDone(ctx); err != nil {
		return "", false, err
	}
	value, ok := s.lru.Get(key)
	return value, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	if err := ctxDone(ctx); err != nil {
		return err
	}
	s.lru.Add(key, value)
	return nil
}

// Len 返回当前条目数量，主要用于诊断。
func (s *MemoryStore) Len() int {
	return s.lru.Len()
}

func (s *MemoryStore) Close() error {
	s.lru.Purge()
	return nil
}
