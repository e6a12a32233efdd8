package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// RevertStore is the narrow mutation surface the snapshot engine inverts
// changes through. Payloads are the full event JSON captured when the
// snapshot was taken.
type RevertStore struct {
	DB *gorm.DB
}

// Create re-inserts a previously deleted event exactly as captured,
// keeping its original id.
func (r *RevertStore) Create(ctx context.Context, data json.RawMessage) error {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return fmt.Errorf("recreate event: %w", err)
	}
	if e.ID == "" {
		return errors.New("recreate event: missing id")
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return r.DB.WithContext(ctx).Create(&e).Error
}

// Update restores a full prior state over the current row. Every mutable
// column is written, including ones that are zero in the captured state;
// a restore is an overwrite, not a merge.
func (r *RevertStore) Update(ctx context.Context, id string, userID uint64, data json.RawMessage) error {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return fmt.Errorf("restore event %s: %w", id, err)
	}
	e.ID = id
	e.UserID = userID
	e.UpdatedAt = time.Now()
	if e.Tags == nil {
		e.Tags = []string{}
	}

	res := r.DB.WithContext(ctx).Model(&Event{}).
		Where("id = ? AND user_id = ?", id, userID).
		Select("*").Omit("id", "user_id", "created_at").
		Updates(&e)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RevertStore) Delete(ctx context.Context, id string, userID uint64) (bool, error) {
	res := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&Event{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
