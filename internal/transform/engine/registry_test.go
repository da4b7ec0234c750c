package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/any-hub/script-hub/internal/transform"
)

func TestRegisterAndFetch(t *testing.T) {
	name := "registry-test"
	f := func() transform.Transformer {
		return transform.TransformerFunc(func(context.Context, transform.Request) (string, error) {
			return "ok", nil
		})
	}
	if err := Register(name, f); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, ok := Fetch(" Registry-Test "); !ok {
		t.Fatalf("expected fetch ok with normalized key")
	}
	tr, err := New(name)
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	out, _ := tr.Transform(context.Background(), transform.Request{})
	if out != "ok" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	if err := Register("dup", func() transform.Transformer { return nil }); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := Register("dup", func() transform.Transformer { return nil }); err != ErrDuplicateEngine {
		t.Fatalf("expected ErrDuplicateEngine, got %v", err)
	}
}

func TestRegisterRejectsInvalid(t *testing.T) {
	if err := Register(" ", func() transform.Transformer { return nil }); err == nil {
		t.Fatalf("empty name should fail")
	}
	if err := Register("nil-factory", nil); err == nil {
		t.Fatalf("nil factory should fail")
	}
}

func TestNewUnknownEngine(t *testing.T) {
	if _, err := New("does-not-exist"); !errors.Is(err, ErrUnknownEngine) {
		t.Fatalf("expected ErrUnknownEngine, got %v", err)
	}
}

func TestIdentityEngine(t *testing.T) {
	tr, err := New(Identity)
	if err != nil {
		t.Fatalf("identity should be built in: %v", err)
	}
	out, err := tr.Transform(context.Background(), transform.Request{Code: "let a = 1"})
	if err != nil || out != "let a = 1" {
		t.Fatalf("identity should echo the code, got %q %v", out, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tr.Transform(ctx, transform.Request{Code: "x"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
	found := false
	for _, n := range names {
		if n == Identity {
			found = true
		}
	}
	if !found {
		t.Fatalf("identity missing from %v", names)
	}
}
