package habit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"dayflow/internal/event"
	"dayflow/internal/jobs"
	"dayflow/internal/recur"
)

const (
	// DefaultPendingTarget is how many upcoming pending instances an
	// active habit keeps materialized ahead of time.
	DefaultPendingTarget = 20
	// horizonDays bounds how far ahead replenishment will look for
	// occurrence dates.
	horizonDays = 180
)

// Replenisher keeps active habit templates topped up with real pending
// instances. It runs out of band: a cron sweep enqueues per-user jobs and
// the jobs worker calls ReplenishUser, so the row-level job claim
// serializes this against interactive mutations.
type Replenisher struct {
	DB     *gorm.DB
	Events *event.Service
	Calc   *recur.Calculator
	Jobs   *jobs.Repo
	Target int
}

func (r *Replenisher) target() int {
	if r.Target > 0 {
		return r.Target
	}
	return DefaultPendingTarget
}

// EnqueueDue schedules a replenishment job for every user who owns at
// least one habit template. Called from the cron sweep.
func (r *Replenisher) EnqueueDue(ctx context.Context) (int, error) {
	var userIDs []uint64
	err := r.DB.WithContext(ctx).Model(&event.Event{}).
		Where("is_template = true AND event_type = ? AND repeat_pattern IS NOT NULL", event.TypeHabit).
		Distinct().Pluck("user_id", &userIDs).Error
	if err != nil {
		return 0, err
	}

	now := time.Now()
	for _, uid := range userIDs {
		if err := r.Jobs.EnqueueReplenish(uid, now); err != nil {
			return 0, err
		}
	}
	return len(userIDs), nil
}

// ReplenishUser materializes real pending instances for each of the
// user's habit templates until the upcoming pending count reaches the
// target. Dates that already have any instance, whatever its status, are
// left alone.
func (r *Replenisher) ReplenishUser(ctx context.Context, userID uint64) (int, error) {
	var templates []event.Event
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND is_template = true AND event_type = ? AND repeat_pattern IS NOT NULL", userID, event.TypeHabit).
		Find(&templates).Error
	if err != nil {
		return 0, err
	}

	loc := r.Calc.Location()
	now := time.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	horizon := today.AddDate(0, 0, horizonDays)

	created := 0
	for i := range templates {
		tpl := &templates[i]

		var pending int64
		err := r.DB.WithContext(ctx).Model(&event.Event{}).
			Where("user_id = ? AND is_template = false AND (parent_event_id = ? OR parent_routine_id = ?) AND status = ? AND event_date >= ?",
				userID, tpl.ID, tpl.ID, event.StatusPending, today).
			Count(&pending).Error
		if err != nil {
			return created, err
		}

		needed := r.target() - int(pending)
		if needed <= 0 {
			continue
		}

		var existing []event.Event
		err = r.DB.WithContext(ctx).
			Select("event_date", "parent_event_id", "parent_routine_id").
			Where("user_id = ? AND is_template = false AND (parent_event_id = ? OR parent_routine_id = ?) AND event_date >= ?",
				userID, tpl.ID, tpl.ID, today).
			Find(&existing).Error
		if err != nil {
			return created, err
		}

		taken := make(map[string]struct{}, len(existing))
		for j := range existing {
			if existing[j].EventDate != nil {
				taken[existing[j].EventDate.In(loc).Format("2006-01-02")] = struct{}{}
			}
		}

		for _, occ := range r.Calc.Occurrences(tpl, today, horizon) {
			if needed <= 0 {
				break
			}
			if _, ok := taken[occ.In(loc).Format("2006-01-02")]; ok {
				continue
			}

			inst := r.Calc.Materialize(tpl, occ)
			inst.ID = uuid.NewString()
			inst.IsVirtual = false
			inst.TemplateID = nil
			inst.CreatedBy = "system"
			inst.CreatedAt = time.Time{} // let the DB stamp real rows
			inst.UpdatedAt = time.Time{}
			if err := r.Events.Create(ctx, &inst); err != nil {
				return created, err
			}
			created++
			needed--
		}
	}

	return created, nil
}
