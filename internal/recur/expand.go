package recur

import (
	"time"

	"dayflow/internal/event"
)

type coverageKey struct {
	templateID string
	day        string // YYYY-MM-DD
}

// Expand materializes virtual instances for every template occurrence in
// [windowStart, windowEnd] that is not already covered by a persisted
// instance. The union of real and returned virtual instances holds
// exactly one representation per (template, day): once a user touches a
// date and a real row exists for it, the virtual projection for that day
// disappears. Pure and idempotent; safe under concurrent reads.
func (c *Calculator) Expand(templates, realInstances []event.Event, windowStart, windowEnd time.Time) []event.Event {
	covered := make(map[coverageKey]struct{}, len(realInstances))
	for i := range realInstances {
		inst := &realInstances[i]
		templateID := instanceTemplateID(inst)
		if templateID == "" || inst.EventDate == nil {
			continue
		}
		day := inst.EventDate.In(c.loc).Format("2006-01-02")
		covered[coverageKey{templateID: templateID, day: day}] = struct{}{}
	}

	var out []event.Event
	for i := range templates {
		tpl := &templates[i]
		// Occurrences fails open on malformed patterns.
		for _, occ := range c.Occurrences(tpl, windowStart, windowEnd) {
			key := coverageKey{templateID: tpl.ID, day: occ.In(c.loc).Format("2006-01-02")}
			if _, ok := covered[key]; ok {
				continue
			}
			out = append(out, c.Materialize(tpl, occ))
		}
	}
	return out
}

// instanceTemplateID resolves the owning template, honoring the legacy
// parent_routine_id alias older rows still carry.
func instanceTemplateID(inst *event.Event) string {
	if inst.ParentEventID != nil && *inst.ParentEventID != "" {
		return *inst.ParentEventID
	}
	if inst.ParentRoutineID != nil && *inst.ParentRoutineID != "" {
		return *inst.ParentRoutineID
	}
	return ""
}
