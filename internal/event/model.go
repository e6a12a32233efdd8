package event

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// Event types. A habit is a recurring task tracked toward a completion
// count; a schedule is a fixed calendar entry.
const (
	TypeSchedule = "schedule"
	TypeDeadline = "deadline"
	TypeFloating = "floating"
	TypeHabit    = "habit"
	TypeReminder = "reminder"
)

// Event is the unified row for every schedule entry. A row is either a
// template (IsTemplate=true, RepeatPattern set, never displayed directly)
// or an instance (IsTemplate=false, optionally pointing back at its
// template via ParentEventID).
type Event struct {
	ID     string `gorm:"primaryKey;type:text" json:"id"`
	UserID uint64 `gorm:"index;not null" json:"user_id"`

	Title       string  `gorm:"type:text;not null" json:"title"`
	Description *string `gorm:"type:text" json:"description,omitempty"`
	Notes       *string `gorm:"type:text" json:"notes,omitempty"`

	// EventDate is the calendar day the instance belongs to, normalized to
	// start of day in the configured zone. Templates keep their reference
	// date here: the day the pattern started, never shifted by edits.
	EventDate  *time.Time `gorm:"index" json:"event_date,omitempty"`
	TimePeriod *string    `gorm:"type:text" json:"time_period,omitempty"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Duration   *int       `json:"duration,omitempty"` // minutes

	EventType  string         `gorm:"type:text;not null;default:'floating'" json:"event_type"`
	Category   *string        `gorm:"type:text" json:"category,omitempty"`
	Urgency    int            `gorm:"not null;default:3" json:"urgency"`
	Importance int            `gorm:"not null;default:3" json:"importance"`
	Tags       pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"tags"`

	// RepeatPattern is stored as it arrives (object or JSON-encoded string)
	// and only parsed at the read boundary.
	RepeatPattern json.RawMessage `gorm:"type:jsonb" json:"repeat_pattern,omitempty"`
	IsTemplate    bool            `gorm:"index;not null;default:false" json:"is_template"`
	ParentEventID *string         `gorm:"index" json:"parent_event_id,omitempty"`
	// ParentRoutineID is a legacy alias for ParentEventID kept for rows
	// written before the template/instance split.
	ParentRoutineID *string `gorm:"index" json:"parent_routine_id,omitempty"`
	RoutineBatchID  *string `gorm:"index" json:"routine_batch_id,omitempty"`
	HabitInterval   *int    `json:"habit_interval,omitempty"`

	Status Status `gorm:"type:text;index;not null;default:'PENDING'" json:"status"`

	IsPhysicallyDemanding bool `gorm:"not null;default:false" json:"is_physically_demanding"`
	IsMentallyDemanding   bool `gorm:"not null;default:false" json:"is_mentally_demanding"`
	EnergyConsumption     *int `json:"energy_consumption,omitempty"`

	HabitCompletedCount int `gorm:"not null;default:0" json:"habit_completed_count"`
	HabitTotalCount     int `gorm:"not null;default:21" json:"habit_total_count"`

	ProjectID *string `gorm:"index" json:"project_id,omitempty"`

	CreatedBy    string  `gorm:"type:text;not null;default:'user'" json:"created_by"`
	AIConfidence float64 `gorm:"not null;default:0.5" json:"ai_confidence"`
	AIReasoning  *string `gorm:"type:text" json:"ai_reasoning,omitempty"`

	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// IsVirtual marks a computed-on-read instance that was never persisted.
	// It only ever appears in response payloads.
	IsVirtual bool `gorm:"-" json:"is_virtual,omitempty"`
	// TemplateID duplicates ParentEventID on virtual instances so clients
	// can resolve the origin template without guessing.
	TemplateID *string `gorm:"-" json:"template_id,omitempty"`
}

// ReferenceDate is the anchor for recurrence phase: the template's own
// event date, falling back to its creation time.
func (e *Event) ReferenceDate() time.Time {
	if e.EventDate != nil && !e.EventDate.IsZero() {
		return *e.EventDate
	}
	return e.CreatedAt
}
