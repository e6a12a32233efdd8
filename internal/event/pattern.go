package event

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type PatternType string

const (
	PatternDaily   PatternType = "daily"
	PatternWeekly  PatternType = "weekly"
	PatternMonthly PatternType = "monthly"
	PatternCustom  PatternType = "custom"
)

// Pattern is the strict internal form of a repeat rule. Raw pattern data
// arrives as a JSON object or a JSON-encoded string of one; it is parsed
// exactly once at this boundary. Weekday indices are 0=Monday..6=Sunday.
type Pattern struct {
	Type         PatternType `json:"type"`
	IntervalDays int         `json:"interval_days,omitempty"`
	Weekdays     []int       `json:"weekdays,omitempty"`
	Time         string      `json:"time,omitempty"`     // "HH:MM"
	EndDate      string      `json:"end_date,omitempty"` // inclusive, date or ISO datetime
}

// ParsePattern decodes raw pattern data. Any malformed input (bad JSON,
// double-encoded garbage, unknown type) yields ok=false so one broken
// template cannot take down a whole calendar read.
func ParsePattern(raw json.RawMessage) (Pattern, bool) {
	var p Pattern
	data := []byte(strings.TrimSpace(string(raw)))
	if len(data) == 0 || string(data) == "null" {
		return p, false
	}

	// Tolerate a pattern stored as a JSON string containing the object.
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return p, false
		}
		data = []byte(s)
	}

	if err := json.Unmarshal(data, &p); err != nil {
		return p, false
	}

	switch p.Type {
	case PatternDaily, PatternWeekly, PatternMonthly, PatternCustom:
		return p, true
	}
	return p, false
}

// TimeOfDay returns the fired hour/minute when the pattern carries one.
func (p Pattern) TimeOfDay() (hour, minute int, ok bool) {
	parts := strings.SplitN(p.Time, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	m, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// Until resolves the pattern end date to an inclusive upper bound (end of
// that day in loc). Unparseable values are treated as absent.
func (p Pattern) Until(loc *time.Location) (time.Time, bool) {
	d, ok := ParseDate(p.EndDate, loc)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, loc), true
}

// ParseDate accepts the date representations the collaborators emit:
// date-only, ISO datetime with or without zone, and RFC3339. The result is
// normalized into loc.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	layouts := []string{"2006-01-02", "2006-01-02T15:04:05", time.RFC3339}
	for _, layout := range layouts {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, s); err == nil {
				return t.In(loc), true
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
