package recur

import (
	"fmt"
	"time"

	"dayflow/internal/event"
)

// DefaultDurationMinutes is the instance length assumed when a template
// carries no duration. One canonical default for the whole system.
const DefaultDurationMinutes = 30

// VirtualID derives the deterministic identity of a virtual instance.
// Repeated expansions of the same window produce the same ids, so clients
// can cache against them.
func VirtualID(templateID string, date time.Time) string {
	return fmt.Sprintf("virtual_%s_%s", templateID, date.Format("20060102"))
}

// Materialize projects a template onto one occurrence day. The result is
// never persisted: it lives only in the response it was built for, until
// an explicit promotion turns it into a real instance. Start/end come
// from the pattern's time of day plus the template duration; a pattern
// without a time yields an untimed, all-day occurrence.
func (c *Calculator) Materialize(tpl *event.Event, date time.Time) event.Event {
	day := c.startOfDay(date.In(c.loc))
	templateID := tpl.ID

	inst := event.Event{
		ID:     VirtualID(templateID, day),
		UserID: tpl.UserID,

		Title:       tpl.Title,
		Description: tpl.Description,
		Notes:       tpl.Notes,

		EventDate:  &day,
		TimePeriod: tpl.TimePeriod,
		Duration:   tpl.Duration,

		EventType:  tpl.EventType,
		Category:   tpl.Category,
		Urgency:    tpl.Urgency,
		Importance: tpl.Importance,
		Tags:       append([]string(nil), tpl.Tags...),

		RepeatPattern: tpl.RepeatPattern,
		IsTemplate:    false,
		ParentEventID: &templateID,
		HabitInterval: tpl.HabitInterval,

		Status: event.StatusPending,

		IsPhysicallyDemanding: tpl.IsPhysicallyDemanding,
		IsMentallyDemanding:   tpl.IsMentallyDemanding,
		EnergyConsumption:     tpl.EnergyConsumption,

		HabitCompletedCount: tpl.HabitCompletedCount,
		HabitTotalCount:     tpl.HabitTotalCount,

		ProjectID:      tpl.ProjectID,
		RoutineBatchID: tpl.RoutineBatchID,

		CreatedBy:    tpl.CreatedBy,
		AIConfidence: tpl.AIConfidence,
		AIReasoning:  tpl.AIReasoning,

		CreatedAt: tpl.CreatedAt,
		UpdatedAt: time.Now(),

		IsVirtual:  true,
		TemplateID: &templateID,
	}

	if p, ok := event.ParsePattern(tpl.RepeatPattern); ok {
		if hour, minute, ok := p.TimeOfDay(); ok {
			start := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, c.loc)
			minutes := DefaultDurationMinutes
			if tpl.Duration != nil && *tpl.Duration > 0 {
				minutes = *tpl.Duration
			}
			end := start.Add(time.Duration(minutes) * time.Minute)
			inst.StartTime = &start
			inst.EndTime = &end
		}
	}

	return inst
}
