package recur_test

import (
	"encoding/json"
	"testing"
	"time"

	"dayflow/internal/event"
	"dayflow/internal/recur"
)

func TestMaterializeDerivesTimesFromPattern(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	dur := 45
	tpl := template("t1", `{"type":"daily","time":"08:30"}`, day(2026, 1, 1))
	tpl.Duration = &dur

	inst := c.Materialize(&tpl, day(2026, 1, 4))

	if inst.ID != "virtual_t1_20260104" {
		t.Fatalf("unexpected virtual id %q", inst.ID)
	}
	if inst.StartTime == nil || inst.EndTime == nil {
		t.Fatalf("expected timed instance")
	}
	wantStart := time.Date(2026, 1, 4, 8, 30, 0, 0, time.UTC)
	if !inst.StartTime.Equal(wantStart) {
		t.Fatalf("start: expected %v, got %v", wantStart, *inst.StartTime)
	}
	if !inst.EndTime.Equal(wantStart.Add(45 * time.Minute)) {
		t.Fatalf("end: expected 45m after start, got %v", *inst.EndTime)
	}
}

func TestMaterializeDefaultDuration(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	tpl := template("t1", `{"type":"daily","time":"07:00"}`, day(2026, 1, 1))

	inst := c.Materialize(&tpl, day(2026, 1, 2))
	got := inst.EndTime.Sub(*inst.StartTime)
	if got != recur.DefaultDurationMinutes*time.Minute {
		t.Fatalf("expected default duration %dm, got %v", recur.DefaultDurationMinutes, got)
	}
}

func TestMaterializeUntimedWithoutPatternTime(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	tpl := template("t1", `{"type":"daily"}`, day(2026, 1, 1))

	inst := c.Materialize(&tpl, day(2026, 1, 2))
	if inst.StartTime != nil || inst.EndTime != nil {
		t.Fatalf("expected untimed instance, got start=%v end=%v", inst.StartTime, inst.EndTime)
	}
	if inst.EventDate == nil || !inst.EventDate.Equal(day(2026, 1, 2)) {
		t.Fatalf("expected event date on occurrence day, got %v", inst.EventDate)
	}
}

func TestMaterializeCopiesTemplateFields(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	cat := "HEALTH"
	energy := 4
	tpl := template("t1", `{"type":"daily"}`, day(2026, 1, 1))
	tpl.Category = &cat
	tpl.Tags = []string{"fitness", "outdoor"}
	tpl.EnergyConsumption = &energy
	tpl.IsPhysicallyDemanding = true
	tpl.AIConfidence = 0.9

	inst := c.Materialize(&tpl, day(2026, 1, 2))

	if !inst.IsVirtual || inst.IsTemplate {
		t.Fatalf("expected virtual non-template instance")
	}
	if inst.Status != event.StatusPending {
		t.Fatalf("virtual instance must be PENDING, got %s", inst.Status)
	}
	if inst.ParentEventID == nil || *inst.ParentEventID != "t1" {
		t.Fatalf("expected parent_event_id t1, got %v", inst.ParentEventID)
	}
	if inst.TemplateID == nil || *inst.TemplateID != "t1" {
		t.Fatalf("expected template_id t1, got %v", inst.TemplateID)
	}
	if inst.Category == nil || *inst.Category != cat {
		t.Fatalf("category not copied")
	}
	if len(inst.Tags) != 2 || inst.Tags[0] != "fitness" {
		t.Fatalf("tags not copied: %v", inst.Tags)
	}
	if inst.EnergyConsumption == nil || *inst.EnergyConsumption != energy || !inst.IsPhysicallyDemanding {
		t.Fatalf("energy fields not copied")
	}
	if inst.AIConfidence != 0.9 {
		t.Fatalf("confidence not copied")
	}
}

func realInstance(templateID string, d time.Time) event.Event {
	id := templateID
	return event.Event{
		ID:            "real-" + d.Format("20060102"),
		UserID:        1,
		Title:         "morning run",
		EventDate:     &d,
		ParentEventID: &id,
	}
}

func TestExpandSkipsCoveredDates(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	tpl := template("t1", `{"type":"daily"}`, day(2026, 1, 1))

	real := []event.Event{realInstance("t1", day(2026, 1, 2))}
	got := c.Expand([]event.Event{tpl}, real, day(2026, 1, 1), day(2026, 1, 3))

	wantIDs := []string{"virtual_t1_20260101", "virtual_t1_20260103"}
	if len(got) != len(wantIDs) {
		t.Fatalf("expected %d virtual instances, got %d", len(wantIDs), len(got))
	}
	for i, want := range wantIDs {
		if got[i].ID != want {
			t.Fatalf("instance %d: expected %s, got %s", i, want, got[i].ID)
		}
	}
}

func TestExpandHonorsLegacyParentAlias(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	tpl := template("t1", `{"type":"daily"}`, day(2026, 1, 1))

	d := day(2026, 1, 2)
	legacyID := "t1"
	real := []event.Event{{
		ID:              "real-legacy",
		UserID:          1,
		EventDate:       &d,
		ParentRoutineID: &legacyID,
	}}

	got := c.Expand([]event.Event{tpl}, real, day(2026, 1, 1), day(2026, 1, 3))
	for _, inst := range got {
		if inst.ID == "virtual_t1_20260102" {
			t.Fatalf("legacy-parented real instance should suppress the virtual one")
		}
	}
}

func TestExpandIsIdempotent(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	tpl := template("t1", `{"type":"daily","time":"09:00"}`, day(2026, 1, 1))
	real := []event.Event{realInstance("t1", day(2026, 1, 2))}

	first := c.Expand([]event.Event{tpl}, real, day(2026, 1, 1), day(2026, 1, 5))
	second := c.Expand([]event.Event{tpl}, real, day(2026, 1, 1), day(2026, 1, 5))

	if len(first) != len(second) {
		t.Fatalf("expansion not stable: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		// UpdatedAt is the only clock-dependent field.
		a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
		aj, _ := json.Marshal(a)
		bj, _ := json.Marshal(b)
		if string(aj) != string(bj) {
			t.Fatalf("instance %d differs between expansions:\n%s\n%s", i, aj, bj)
		}
	}
}

func TestExpandFailsOpenPerTemplate(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	good := template("good", `{"type":"daily"}`, day(2026, 1, 1))
	bad := template("bad", `{{{`, day(2026, 1, 1))

	got := c.Expand([]event.Event{bad, good}, nil, day(2026, 1, 1), day(2026, 1, 2))
	if len(got) != 2 {
		t.Fatalf("expected the good template to expand despite the bad one, got %d", len(got))
	}
	for _, inst := range got {
		if inst.ParentEventID == nil || *inst.ParentEventID != "good" {
			t.Fatalf("unexpected instance from bad template: %s", inst.ID)
		}
	}
}

func TestExpandNoDuplicateCoverage(t *testing.T) {
	c := recur.NewCalculator(time.UTC)
	tpl := template("t1", `{"type":"daily"}`, day(2026, 1, 1))
	real := []event.Event{
		realInstance("t1", day(2026, 1, 1)),
		realInstance("t1", day(2026, 1, 3)),
	}

	virtual := c.Expand([]event.Event{tpl}, real, day(2026, 1, 1), day(2026, 1, 4))

	seen := map[string]int{}
	for _, inst := range real {
		seen[inst.EventDate.Format("2006-01-02")]++
	}
	for _, inst := range virtual {
		seen[inst.EventDate.Format("2006-01-02")]++
	}
	for dayKey, n := range seen {
		if n > 1 {
			t.Fatalf("day %s represented %d times across real+virtual", dayKey, n)
		}
	}
}
