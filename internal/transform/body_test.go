package transform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMaterializeFileStreamUsesFileName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "module.js")
	if err := os.WriteFile(path, []byte(staticContent), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer f.Close()

	payload, err := Materialize(context.Background(), StreamBody(f, ""))
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if payload.Code != staticContent {
		t.Fatalf("unexpected code %q", payload.Code)
	}
	if payload.SourceName != path {
		t.Fatalf("expected source name %s, got %s", path, payload.SourceName)
	}
}

func TestMaterializeExplicitNameWins(t *testing.T) {
	stream := WithSourceName(strings.NewReader("x"), "/from/reader.js")
	payload, err := Materialize(context.Background(), StreamBody(stream, "/explicit.js"))
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if payload.SourceName != "/explicit.js" {
		t.Fatalf("explicit name should win, got %s", payload.SourceName)
	}
}

func TestMaterializeLargeStreamKeepsOrder(t *testing.T) {
	var b strings.Builder
	for i := 0; b.Len() < 3*readChunkSize; i++ {
		b.WriteString("const v")
		b.WriteString(strings.Repeat("x", i%7))
		b.WriteString(" = 1; /* é */\n")
	}
	want := b.String()

	payload, err := Materialize(context.Background(), StreamBody(&chunkReader{chunks: splitEvery(want, 1000)}, ""))
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if payload.Code != want {
		t.Fatalf("stream content changed during materialization")
	}
}

func TestMaterializeNoBody(t *testing.T) {
	if _, err := Materialize(context.Background(), NoBody()); !errors.Is(err, ErrNoPayload) {
		t.Fatalf("expected ErrNoPayload, got %v", err)
	}
}

func TestMaskedMessage(t *testing.T) {
	testCases := []struct {
		code string
		loc  *Location
		want string
	}{
		{"TRANSFORM_PARSE_ERROR", &Location{Line: 3, Column: 14}, "Transform error TRANSFORM_PARSE_ERROR at line 3, column 14."},
		{"TRANSFORM_PARSE_ERROR", nil, MessageInternal},
		{"", &Location{Line: 1, Column: 0}, MessageInternal},
	}
	for _, tc := range testCases {
		if got := MaskedMessage(tc.code, tc.loc); got != tc.want {
			t.Fatalf("MaskedMessage(%q, %+v) = %q, want %q", tc.code, tc.loc, got, tc.want)
		}
	}
}

// splitEvery cuts s into byte chunks of n, deliberately ignoring rune boundaries.
func splitEvery(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	return append(out, s)
}
