package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("snapshot not found")

// Store is the persistence contract the manager runs on. Implementations
// must scope every operation to the owning user.
type Store interface {
	Create(ctx context.Context, s *Snapshot) error
	// Get returns ErrNotFound for a missing id or one owned by another user.
	Get(ctx context.Context, id string, userID uint64) (*Snapshot, error)
	// Latest returns the single most recent snapshot, ErrNotFound when none.
	Latest(ctx context.Context, userID uint64) (*Snapshot, error)
	List(ctx context.Context, userID uint64, limit int) ([]Snapshot, error)
	// MarkReverted flips is_reverted only if it is still false, reporting
	// whether this call won the flip. The conditional write is what makes
	// concurrent reverts of one snapshot safe.
	MarkReverted(ctx context.Context, id string, userID uint64, at time.Time) (bool, error)
	// DeleteOldestBeyond removes all but the keep most recent snapshots.
	DeleteOldestBeyond(ctx context.Context, userID uint64, keep int) error
}

// EventStore is the event mutation surface consumed during revert.
type EventStore interface {
	Create(ctx context.Context, data json.RawMessage) error
	Update(ctx context.Context, id string, userID uint64, data json.RawMessage) error
	Delete(ctx context.Context, id string, userID uint64) (bool, error)
}

// GormStore persists snapshots in Postgres.
type GormStore struct {
	DB *gorm.DB
}

var _ Store = (*GormStore)(nil)

func (g *GormStore) Create(ctx context.Context, s *Snapshot) error {
	return g.DB.WithContext(ctx).Create(s).Error
}

func (g *GormStore) Get(ctx context.Context, id string, userID uint64) (*Snapshot, error) {
	var s Snapshot
	err := g.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (g *GormStore) Latest(ctx context.Context, userID uint64) (*Snapshot, error) {
	var s Snapshot
	err := g.DB.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at desc").First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (g *GormStore) List(ctx context.Context, userID uint64, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []Snapshot
	err := g.DB.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at desc").Limit(limit).Find(&rows).Error
	return rows, err
}

func (g *GormStore) MarkReverted(ctx context.Context, id string, userID uint64, at time.Time) (bool, error) {
	res := g.DB.WithContext(ctx).Exec(`
update snapshots
set is_reverted = true, reverted_at = ?
where id = ? and user_id = ? and is_reverted = false
`, at, id, userID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (g *GormStore) DeleteOldestBeyond(ctx context.Context, userID uint64, keep int) error {
	if keep <= 0 {
		keep = 1
	}
	return g.DB.WithContext(ctx).Exec(`
delete from snapshots
where user_id = ?
  and id not in (
    select id from snapshots
    where user_id = ?
    order by created_at desc
    limit ?
  )
`, userID, userID, keep).Error
}
