package snapshot

import (
	"encoding/json"
	"time"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// EventChange is one entity-level mutation inside a snapshot, carrying
// enough captured state to invert itself: a create is undone by deleting,
// an update by restoring Before, a delete by recreating from After.
type EventChange struct {
	EventID string          `json:"event_id"`
	Action  Action          `json:"action"`
	Before  json.RawMessage `json:"before,omitempty"`
	After   json.RawMessage `json:"after,omitempty"`
}

// RetentionDays is how long a snapshot stays revertible.
const RetentionDays = 30

// Snapshot is one coherent batch of event mutations attributable to a
// single trigger (one chat turn, one API call). IsReverted is a one-way
// flag: a snapshot can be reverted at most once, ever.
type Snapshot struct {
	ID     string `gorm:"primaryKey;type:text" json:"id"`
	UserID uint64 `gorm:"index;not null" json:"user_id"`

	TriggerMessage string    `gorm:"type:text;not null" json:"trigger_message"`
	TriggerTime    time.Time `gorm:"not null" json:"trigger_time"`

	// Changes holds the ordered []EventChange as stored JSON.
	Changes json.RawMessage `gorm:"type:jsonb;not null;default:'[]'::jsonb" json:"changes"`

	IsReverted bool       `gorm:"not null;default:false" json:"is_reverted"`
	RevertedAt *time.Time `json:"reverted_at,omitempty"`

	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
}

// ChangeList decodes the stored change batch. Rows written by this
// package always decode; anything else decodes to an empty batch.
func (s *Snapshot) ChangeList() []EventChange {
	var changes []EventChange
	if err := json.Unmarshal(s.Changes, &changes); err != nil {
		return nil
	}
	return changes
}
