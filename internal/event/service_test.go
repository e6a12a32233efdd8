package event

import (
	"testing"
	"time"
)

func TestWithUpdatedAtLeavesInputUntouched(t *testing.T) {
	in := map[string]any{"title": "walk", "urgency": 2}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	out := withUpdatedAt(in, now)

	if len(in) != 2 {
		t.Fatalf("input map was mutated: %v", in)
	}
	if _, ok := in["updated_at"]; ok {
		t.Fatal("updated_at leaked into the caller's map")
	}
	if got := out["updated_at"]; got != now {
		t.Fatalf("expected updated_at %v, got %v", now, got)
	}
	if out["title"] != "walk" || out["urgency"] != 2 {
		t.Fatalf("fields not carried over: %v", out)
	}
}
