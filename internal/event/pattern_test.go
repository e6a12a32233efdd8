package event_test

import (
	"encoding/json"
	"testing"
	"time"

	"dayflow/internal/event"
)

func TestParsePatternObject(t *testing.T) {
	p, ok := event.ParsePattern(json.RawMessage(`{"type":"weekly","time":"18:00","end_date":"2026-12-31"}`))
	if !ok {
		t.Fatalf("expected pattern to parse")
	}
	if p.Type != event.PatternWeekly || p.Time != "18:00" || p.EndDate != "2026-12-31" {
		t.Fatalf("unexpected pattern: %+v", p)
	}
}

func TestParsePatternDoubleEncoded(t *testing.T) {
	p, ok := event.ParsePattern(json.RawMessage(`"{\"type\":\"custom\",\"interval_days\":3}"`))
	if !ok {
		t.Fatalf("expected double-encoded pattern to parse")
	}
	if p.Type != event.PatternCustom || p.IntervalDays != 3 {
		t.Fatalf("unexpected pattern: %+v", p)
	}
}

func TestParsePatternRejectsGarbage(t *testing.T) {
	cases := []string{``, `null`, `42`, `"plain words"`, `{"type":"hourly"}`, `{"interval_days":2}`}
	for _, raw := range cases {
		if _, ok := event.ParsePattern(json.RawMessage(raw)); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestTimeOfDay(t *testing.T) {
	p := event.Pattern{Time: "08:30"}
	h, m, ok := p.TimeOfDay()
	if !ok || h != 8 || m != 30 {
		t.Fatalf("expected 08:30, got %d:%d ok=%v", h, m, ok)
	}

	for _, bad := range []string{"", "25:00", "10:72", "morning", "8"} {
		p := event.Pattern{Time: bad}
		if _, _, ok := p.TimeOfDay(); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestUntilIsEndOfDay(t *testing.T) {
	p := event.Pattern{EndDate: "2026-01-03"}
	until, ok := p.Until(time.UTC)
	if !ok {
		t.Fatalf("expected end date to resolve")
	}
	want := time.Date(2026, 1, 3, 23, 59, 59, 0, time.UTC)
	if !until.Equal(want) {
		t.Fatalf("expected %v, got %v", want, until)
	}
}

func TestParseDateForms(t *testing.T) {
	cases := []string{
		"2026-02-09",
		"2026-02-09T00:00:00",
		"2026-02-09T00:00:00Z",
	}
	for _, s := range cases {
		d, ok := event.ParseDate(s, time.UTC)
		if !ok {
			t.Fatalf("expected %q to parse", s)
		}
		if d.Year() != 2026 || d.Month() != time.February || d.Day() != 9 {
			t.Fatalf("%q parsed to wrong day: %v", s, d)
		}
	}

	if _, ok := event.ParseDate("next tuesday", time.UTC); ok {
		t.Fatalf("expected unparseable date to be rejected")
	}
}
