package idgen

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestUUIDv7Version(t *testing.T) {
	id := UUIDv7()()
	u, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("parse %q: %v", id, err)
	}
	if u.Version() != 7 {
		t.Fatalf("version = %d, want 7", u.Version())
	}
}

func TestUUIDv7Sortable(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for i := 0; i < 100; i++ {
		next := gen()
		if next <= prev {
			t.Fatalf("not monotonic: %q then %q", prev, next)
		}
		prev = next
	}
}

func TestPrefixed(t *testing.T) {
	for _, tc := range []struct {
		gen    Generator
		prefix string
	}{
		{CheckID, "chk_"},
		{CallID, "llm_"},
		{Prefixed("x_", func() string { return "1" }), "x_"},
	} {
		id := tc.gen()
		if !strings.HasPrefix(id, tc.prefix) {
			t.Errorf("id %q missing prefix %q", id, tc.prefix)
		}
	}
}
