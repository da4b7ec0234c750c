// Package engine keeps the process-wide table of named transformer engines.
// Engines register a Factory from an init function; the binary blank-imports
// the engines it ships and selects one by the Transform.Engine config key.
package engine

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/any-hub/script-hub/internal/transform"
)

// Factory builds a fresh Transformer.
type Factory func() transform.Transformer

// Identity 原样返回源码，适用于只需要 filename/缓存行为而不改写代码的部署。
const Identity = "identity"

var registry sync.Map

// ErrDuplicateEngine indicates an engine name is already registered.
var ErrDuplicateEngine = errors.New("engine already registered")

// ErrUnknownEngine is returned by New for names nobody registered.
var ErrUnknownEngine = errors.New("unknown transform engine")

func init() {
	MustRegister(Identity, func() transform.Transformer {
		return transform.TransformerFunc(func(ctx context.Context, req transform.Request) (string, error) {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			return req.Code, nil
		})
	})
}

// Register stores a factory under name.
func Register(name string, factory Factory) error {
	key := normalizeKey(name)
	if key == "" {
		return errors.New("engine name required")
	}
	if factory == nil {
		return errors.New("engine factory required")
	}
	if _, loaded := registry.LoadOrStore(key, factory); loaded {
		return ErrDuplicateEngine
	}
	return nil
}

// MustRegister panics on registration failure.
func MustRegister(name string, factory Factory) {
	if err := Register(name, factory); err != nil {
		panic(err)
	}
}

// Fetch retrieves the factory registered under name.
func Fetch(name string) (Factory, bool) {
	key := normalizeKey(name)
	if key == "" {
		return nil, false
	}
	if value, ok := registry.Load(key); ok {
		if factory, ok := value.(Factory); ok {
			return factory, true
		}
	}
	return nil, false
}

// New builds the engine registered under name.
func New(name string) (transform.Transformer, error) {
	factory, ok := Fetch(name)
	if !ok {
		return nil, errors.Join(ErrUnknownEngine, errors.New(name))
	}
	return factory(), nil
}

// Names returns the registered engine names in sorted order.
func Names() []string {
	var names []string
	registry.Range(func(key, _ any) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)
	return names
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
