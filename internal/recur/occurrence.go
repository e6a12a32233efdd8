package recur

import (
	"time"

	"github.com/teambition/rrule-go"

	"dayflow/internal/event"
)

// Calculator turns repeat patterns into concrete calendar days. All math
// happens in one configured zone: recurrence is a calendar-day concept,
// so a fixed local zone is used rather than UTC.
type Calculator struct {
	loc *time.Location
}

func NewCalculator(loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.Local
	}
	return &Calculator{loc: loc}
}

func (c *Calculator) Location() *time.Location { return c.loc }

// Python-style weekday indices (0=Monday) to rrule weekdays.
var weekdayByIndex = []rrule.Weekday{
	rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU,
}

// Occurrences returns every day the template's pattern fires inside
// [windowStart, windowEnd], ascending, both bounds inclusive, as
// start-of-day times in the calculator zone. The phase anchor is the
// template's reference date, so pattern edits that keep the type do not
// shift which days fire. A malformed or missing pattern yields no
// occurrences and no error: one bad template must not break a read that
// covers many.
func (c *Calculator) Occurrences(tpl *event.Event, windowStart, windowEnd time.Time) []time.Time {
	p, ok := event.ParsePattern(tpl.RepeatPattern)
	if !ok {
		return nil
	}

	ref := c.startOfDay(tpl.ReferenceDate().In(c.loc))

	opt := rrule.ROption{
		Dtstart:  ref,
		Interval: 1,
		Wkst:     rrule.MO,
	}

	switch p.Type {
	case event.PatternDaily:
		opt.Freq = rrule.DAILY
	case event.PatternWeekly:
		// Same weekday as the reference date; WEEKLY inherits it from Dtstart.
		opt.Freq = rrule.WEEKLY
	case event.PatternMonthly:
		// Same day of month as the reference date. Months without that day
		// are skipped, not clamped to month end.
		opt.Freq = rrule.MONTHLY
	case event.PatternCustom:
		switch {
		case p.IntervalDays > 1:
			opt.Freq = rrule.DAILY
			opt.Interval = p.IntervalDays
		case len(p.Weekdays) > 0:
			opt.Freq = rrule.WEEKLY
			for _, wd := range p.Weekdays {
				if wd >= 0 && wd < len(weekdayByIndex) {
					opt.Byweekday = append(opt.Byweekday, weekdayByIndex[wd])
				}
			}
			if len(opt.Byweekday) == 0 {
				return nil
			}
		default:
			return nil
		}
	default:
		return nil
	}

	// Pattern end date is a hard bound even when the window runs past it.
	if until, ok := p.Until(c.loc); ok {
		opt.Until = until
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil
	}

	lo := c.startOfDay(windowStart.In(c.loc))
	hi := c.endOfDay(windowEnd.In(c.loc))
	if hi.Before(lo) {
		return nil
	}

	return r.Between(lo, hi, true)
}

func (c *Calculator) startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}

func (c *Calculator) endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, c.loc)
}
