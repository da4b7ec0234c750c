package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// NewDiskStore 以 basePath 为根目录构建磁盘缓存，整站复用一份实例。
func NewDiskStore(basePath string, ttl time.Duration) (*DiskStore, error) {
	if basePath == "" {
		return nil, errors.New("storage path required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage path: %w", err)
	}

	return &DiskStore{
		basePath: abs,
		ttl:      ttl,
		now:      time.Now,
		locks:    make(map[string]*entryLock),
	}, nil
}

// DiskStore 通过 entryLock 避免同一 key 并发写入，条目新鲜度由文件 ModTime + TTL 决定。
type DiskStore struct {
	basePath string
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (s *DiskStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctxDone(ctx); err != nil {
		return "", false, err
	}

	filePath, err := s.entryPath(key)
	if err != nil {
		return "", false, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	if info.IsDir() {
		return "", false, nil
	}
	if !fresh(info.ModTime(), s.ttl, s.now()) {
		// 过期条目按未命中处理，清理失败不影响本次结果。
		_ = s.evictStale(key, filePath)
		return "", false, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

func (s *DiskStore) Set(ctx context.Context, key, value string) error {
	filePath, err := s.entryPath(key)
	if err != nil {
		return err
	}

	unlock := s.lockEntry(key)
	defer unlock()

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(filepath.Dir(filePath), ".cache-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, err = copyWithContext(ctx, tempFile, strings.NewReader(value))
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, filePath); err != nil {
		os.Remove(tempName)
		return err
	}

	modTime := s.now().UTC()
	return os.Chtimes(filePath, modTime, modTime)
}

// evictStale 在持有条目锁后复查新鲜度，只删除仍然过期的文件，避免误删并发写入的新条目。
func (s *DiskStore) evictStale(key, filePath string) error {
	unlock := s.lockEntry(key)
	defer unlock()

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() || fresh(info.ModTime(), s.ttl, s.now()) {
		return nil
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *DiskStore) Close() error {
	return nil
}

func (s *DiskStore) lockEntry(key string) func() {
	s.mu.Lock()
	lock := s.locks[key]
	if lock == nil {
		lock = &entryLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// entryPath 将 key 映射为 <base>/<k[:2]>/<k>，仅接受字母数字与 - _。
func (s *DiskStore) entryPath(key string) (string, error) {
	if len(key) < 2 {
		return "", ErrInvalidKey
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return "", ErrInvalidKey
		}
	}
	return filepath.Join(s.basePath, key[:2], key), nil
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
