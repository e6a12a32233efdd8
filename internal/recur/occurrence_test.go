package recur_test

import (
	"encoding/json"
	"testing"
	"time"

	"dayflow/internal/event"
	"dayflow/internal/recur"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func template(id, pattern string, ref time.Time) event.Event {
	refDay := ref
	return event.Event{
		ID:            id,
		UserID:        1,
		Title:         "morning run",
		EventType:     event.TypeHabit,
		RepeatPattern: json.RawMessage(pattern),
		IsTemplate:    true,
		EventDate:     &refDay,
		CreatedAt:     ref,
	}
}

func wantDays(t *testing.T, got []time.Time, want ...time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d occurrences, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("occurrence %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestDailyCoversEveryDay(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	tpl := template("t1", `{"type":"daily"}`, day(2026, 1, 1))

	got := c.Occurrences(&tpl, day(2026, 1, 1), day(2026, 1, 5))
	wantDays(t, got,
		day(2026, 1, 1), day(2026, 1, 2), day(2026, 1, 3), day(2026, 1, 4), day(2026, 1, 5))
}

func TestDailyStartsAtReferenceNotWindow(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	tpl := template("t1", `{"type":"daily"}`, day(2026, 1, 3))

	got := c.Occurrences(&tpl, day(2026, 1, 1), day(2026, 1, 5))
	wantDays(t, got, day(2026, 1, 3), day(2026, 1, 4), day(2026, 1, 5))
}

func TestWeeklyKeepsReferencePhase(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	// 2026-01-07 is a Wednesday.
	tpl := template("t1", `{"type":"weekly"}`, day(2026, 1, 7))

	got := c.Occurrences(&tpl, day(2026, 1, 7), day(2026, 1, 20))
	wantDays(t, got, day(2026, 1, 7), day(2026, 1, 14))

	// Any other 14-day window still yields exactly two Wednesdays.
	got = c.Occurrences(&tpl, day(2026, 1, 8), day(2026, 1, 21))
	wantDays(t, got, day(2026, 1, 14), day(2026, 1, 21))
}

func TestMonthlySkipsShortMonths(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	tpl := template("t1", `{"type":"monthly"}`, day(2026, 1, 31))

	// February and April have no day 31; those months are skipped outright.
	got := c.Occurrences(&tpl, day(2026, 1, 1), day(2026, 4, 30))
	wantDays(t, got, day(2026, 1, 31), day(2026, 3, 31))
}

func TestCustomIntervalAnchorsAtReference(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	tpl := template("t1", `{"type":"custom","interval_days":3}`, day(2026, 1, 1))

	got := c.Occurrences(&tpl, day(2026, 1, 1), day(2026, 1, 10))
	wantDays(t, got, day(2026, 1, 1), day(2026, 1, 4), day(2026, 1, 7), day(2026, 1, 10))

	// A window starting mid-phase must not shift which days fire.
	got = c.Occurrences(&tpl, day(2026, 1, 2), day(2026, 1, 10))
	wantDays(t, got, day(2026, 1, 4), day(2026, 1, 7), day(2026, 1, 10))
}

func TestCustomWeekdays(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	// 0=Monday, 4=Friday. 2026-01-01 is a Thursday.
	tpl := template("t1", `{"type":"custom","weekdays":[0,4]}`, day(2026, 1, 1))

	got := c.Occurrences(&tpl, day(2026, 1, 1), day(2026, 1, 11))
	wantDays(t, got, day(2026, 1, 2), day(2026, 1, 5), day(2026, 1, 9))
}

func TestEndDateIsHardBound(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	tpl := template("t1", `{"type":"daily","end_date":"2026-01-03"}`, day(2026, 1, 1))

	got := c.Occurrences(&tpl, day(2026, 1, 1), day(2026, 1, 10))
	wantDays(t, got, day(2026, 1, 1), day(2026, 1, 2), day(2026, 1, 3))
}

func TestEndDateToleratesDatetimeForm(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	tpl := template("t1", `{"type":"daily","end_date":"2026-01-02T00:00:00"}`, day(2026, 1, 1))

	got := c.Occurrences(&tpl, day(2026, 1, 1), day(2026, 1, 10))
	wantDays(t, got, day(2026, 1, 1), day(2026, 1, 2))
}

func TestMalformedPatternsYieldNothing(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	cases := []string{
		``,
		`null`,
		`not json at all`,
		`{"type":"fortnightly"}`,
		`{}`,
		`{"type":"custom"}`,
		`{"type":"custom","interval_days":1}`,
		`{"type":"custom","weekdays":[9]}`,
		`"{\"type\":\"broken`,
	}
	for _, raw := range cases {
		tpl := template("t1", raw, day(2026, 1, 1))
		if got := c.Occurrences(&tpl, day(2026, 1, 1), day(2026, 1, 10)); len(got) != 0 {
			t.Fatalf("pattern %q: expected no occurrences, got %v", raw, got)
		}
	}
}

func TestPatternAsEncodedStringStillParses(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	tpl := template("t1", `"{\"type\":\"daily\"}"`, day(2026, 1, 1))

	got := c.Occurrences(&tpl, day(2026, 1, 1), day(2026, 1, 2))
	wantDays(t, got, day(2026, 1, 1), day(2026, 1, 2))
}

func TestInvertedWindowYieldsNothing(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	tpl := template("t1", `{"type":"daily"}`, day(2026, 1, 1))

	if got := c.Occurrences(&tpl, day(2026, 1, 10), day(2026, 1, 1)); len(got) != 0 {
		t.Fatalf("expected no occurrences for inverted window, got %v", got)
	}
}

func TestWindowInstantsNormalizeToCalculatorZone(t *testing.T) {
	// UTC+8, fixed so the test does not depend on a tz database.
	cst := time.FixedZone("UTC+8", 8*3600)
	c := recur.NewCalculator(cst)
	tpl := template("t1", `{"type":"daily"}`, time.Date(2026, 1, 1, 0, 0, 0, 0, cst))

	// 18:00 UTC is already past local midnight: 02:00 on the next local
	// day. Day selection must follow the calculator zone, so the window
	// [Jan 1 18:00 UTC, Jan 3 18:00 UTC] covers local Jan 2 through Jan 4.
	lo := time.Date(2026, 1, 1, 18, 0, 0, 0, time.UTC)
	hi := time.Date(2026, 1, 3, 18, 0, 0, 0, time.UTC)

	got := c.Occurrences(&tpl, lo, hi)
	wantDays(t, got,
		time.Date(2026, 1, 2, 0, 0, 0, 0, cst),
		time.Date(2026, 1, 3, 0, 0, 0, 0, cst),
		time.Date(2026, 1, 4, 0, 0, 0, 0, cst))
}
