package event

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("event not found")

type Service struct {
	DB *gorm.DB
	// Loc is the calendar zone; "today" cutoffs for template edits are
	// computed in it. Defaults to time.Local.
	Loc *time.Location
}

func (s *Service) loc() *time.Location {
	if s.Loc != nil {
		return s.Loc
	}
	return time.Local
}

type ListOptions struct {
	From             *time.Time
	To               *time.Time
	Status           Status
	EventType        string
	IncludeTemplates bool
	Limit            int
}

func (s *Service) Create(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = StatusPending
	}
	if e.EventType == "" {
		e.EventType = TypeFloating
	}
	if e.CreatedBy == "" {
		e.CreatedBy = "user"
	}
	if e.Urgency == 0 {
		e.Urgency = 3
	}
	if e.Importance == 0 {
		e.Importance = 3
	}
	if e.HabitTotalCount == 0 {
		e.HabitTotalCount = 21
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return s.DB.WithContext(ctx).Create(e).Error
}

func (s *Service) Get(ctx context.Context, id string, userID uint64) (*Event, error) {
	var e Event
	err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Service) List(ctx context.Context, userID uint64, opts ListOptions) ([]Event, error) {
	q := s.DB.WithContext(ctx).Model(&Event{}).Where("user_id = ?", userID)
	if !opts.IncludeTemplates {
		q = q.Where("is_template = false")
	}
	if opts.From != nil {
		q = q.Where("event_date >= ?", *opts.From)
	}
	if opts.To != nil {
		q = q.Where("event_date <= ?", *opts.To)
	}
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	if opts.EventType != "" {
		q = q.Where("event_type = ?", opts.EventType)
	}
	limit := opts.Limit
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	var rows []Event
	err := q.Order("event_date asc, start_time asc nulls last, created_at asc").
		Limit(limit).Find(&rows).Error
	return rows, err
}

// Templates returns the user's recurring definitions. Rows without any
// pattern payload are not templates in a meaningful sense and are skipped
// at the query level; malformed payloads are still returned and fail open
// later, during expansion.
func (s *Service) Templates(ctx context.Context, userID uint64) ([]Event, error) {
	var rows []Event
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND is_template = true AND repeat_pattern IS NOT NULL", userID).
		Order("created_at asc").
		Find(&rows).Error
	return rows, err
}

// InstancesBetween returns persisted (real) instances in the window,
// template rows excluded.
func (s *Service) InstancesBetween(ctx context.Context, userID uint64, from, to time.Time) ([]Event, error) {
	var rows []Event
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND is_template = false AND event_date >= ? AND event_date <= ?", userID, from, to).
		Order("event_date asc").
		Find(&rows).Error
	return rows, err
}

// Update applies a partial update and returns the fresh row. When the
// target is a template and the repeat rule itself changes, the template's
// future PENDING instances are discarded in the same transaction so the
// next read re-expands them from the new rule. Completed history stays.
func (s *Service) Update(ctx context.Context, id string, userID uint64, fields map[string]any) (*Event, error) {
	var out Event
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", id, userID).
			First(&cur).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		_, patternChanged := fields["repeat_pattern"]

		if err := tx.Model(&Event{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(withUpdatedAt(fields, time.Now())).Error; err != nil {
			return err
		}

		if cur.IsTemplate && patternChanged {
			today := startOfDay(time.Now().In(s.loc()))
			if err := tx.Where(
				"user_id = ? AND (parent_event_id = ? OR parent_routine_id = ?) AND status = ? AND event_date >= ?",
				userID, id, id, StatusPending, today,
			).Delete(&Event{}).Error; err != nil {
				return err
			}
		}

		return tx.Where("id = ? AND user_id = ?", id, userID).First(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// InstanceForDate finds the persisted instance a template already owns on
// one calendar day, if any. Used as the duplicate guard when promoting a
// virtual instance.
func (s *Service) InstanceForDate(ctx context.Context, userID uint64, templateID string, day time.Time) (*Event, error) {
	var e Event
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND is_template = false AND (parent_event_id = ? OR parent_routine_id = ?) AND event_date = ?",
			userID, templateID, templateID, day).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Service) Delete(ctx context.Context, id string, userID uint64) (bool, error) {
	res := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&Event{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// withUpdatedAt stamps updated_at on a copy; the caller's map is theirs.
func withUpdatedAt(fields map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["updated_at"] = now
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
