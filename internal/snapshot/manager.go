package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
)

// DefaultRetention is how many snapshots a user keeps before the oldest
// are evicted.
const DefaultRetention = 10

// Manager creates snapshots and performs exactly-once reverts against an
// event store. It holds no state of its own; all coordination happens
// through the conditional is_reverted flip in the Store.
type Manager struct {
	store     Store
	events    EventStore
	retention int
	now       func() time.Time
}

func NewManager(store Store, events EventStore, retention int) *Manager {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Manager{
		store:     store,
		events:    events,
		retention: retention,
		now:       time.Now,
	}
}

// RevertResult is what crosses the boundary back to callers: a success
// flag plus a human-readable message, never an internal stack trace. A
// RevertedEvents list shorter than the snapshot's change list signals a
// partial revert.
type RevertResult struct {
	Success        bool       `json:"success"`
	Message        string     `json:"message"`
	SnapshotID     string     `json:"snapshot_id,omitempty"`
	RevertedEvents []string   `json:"reverted_events"`
	RevertedAt     *time.Time `json:"reverted_at,omitempty"`
}

// Create persists one batch of changes as a snapshot, then trims the
// user's history back down to the retention cap.
func (m *Manager) Create(ctx context.Context, userID uint64, trigger string, changes []EventChange) (*Snapshot, error) {
	raw, err := json.Marshal(changes)
	if err != nil {
		return nil, err
	}
	now := m.now()
	s := &Snapshot{
		ID:             uuid.NewString(),
		UserID:         userID,
		TriggerMessage: trigger,
		TriggerTime:    now,
		Changes:        raw,
		CreatedAt:      now,
		ExpiresAt:      now.Add(RetentionDays * 24 * time.Hour),
	}
	if err := m.store.Create(ctx, s); err != nil {
		return nil, err
	}
	if err := m.store.DeleteOldestBeyond(ctx, userID, m.retention); err != nil {
		log.Printf("snapshot eviction failed for user %d: %v\n", userID, err)
	}
	return s, nil
}

// Revert inverts a snapshot's changes in reverse order. Missing snapshots,
// foreign owners and already-reverted snapshots come back as distinct
// explicit failures. The reverted flag is claimed atomically before any
// inverse is applied, so two racing reverts cannot both run the pass;
// once claimed, a failing inverse for one change does not stop the rest.
func (m *Manager) Revert(ctx context.Context, snapshotID string, userID uint64) (RevertResult, error) {
	s, err := m.store.Get(ctx, snapshotID, userID)
	if errors.Is(err, ErrNotFound) {
		return RevertResult{Success: false, Message: "snapshot not found"}, nil
	}
	if err != nil {
		return RevertResult{}, err
	}
	if s.IsReverted {
		return RevertResult{
			Success:    false,
			Message:    "snapshot already reverted",
			SnapshotID: s.ID,
		}, nil
	}

	at := m.now()
	won, err := m.store.MarkReverted(ctx, s.ID, userID, at)
	if err != nil {
		return RevertResult{}, err
	}
	if !won {
		return RevertResult{
			Success:    false,
			Message:    "snapshot already reverted",
			SnapshotID: s.ID,
		}, nil
	}

	reverted := m.applyInverses(ctx, userID, s.ChangeList())

	return RevertResult{
		Success:        true,
		Message:        "snapshot reverted",
		SnapshotID:     s.ID,
		RevertedEvents: reverted,
		RevertedAt:     &at,
	}, nil
}

// UndoLast reverts the single most recent snapshot. This is deliberately
// not a search for the newest revertible one: if the latest snapshot was
// already undone there is nothing to undo, even when older snapshots
// remain revertible.
func (m *Manager) UndoLast(ctx context.Context, userID uint64) (RevertResult, error) {
	s, err := m.store.Latest(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return RevertResult{Success: false, Message: "nothing to undo"}, nil
	}
	if err != nil {
		return RevertResult{}, err
	}
	if s.IsReverted {
		return RevertResult{
			Success:    false,
			Message:    "the most recent change was already undone",
			SnapshotID: s.ID,
		}, nil
	}
	return m.Revert(ctx, s.ID, userID)
}

func (m *Manager) History(ctx context.Context, userID uint64, limit int) ([]Snapshot, error) {
	return m.store.List(ctx, userID, limit)
}

// applyInverses walks the batch last-applied-first-undone, which keeps
// reverts correct when later changes depend on earlier ones (an update
// following a create of the same event). Per-item failures are logged and
// skipped; the returned ids are only what actually succeeded.
func (m *Manager) applyInverses(ctx context.Context, userID uint64, changes []EventChange) []string {
	reverted := make([]string, 0, len(changes))

	for i := len(changes) - 1; i >= 0; i-- {
		ch := changes[i]
		switch ch.Action {
		case ActionCreate:
			ok, err := m.events.Delete(ctx, ch.EventID, userID)
			if err != nil {
				log.Printf("revert: delete of created event %s failed: %v\n", ch.EventID, err)
				continue
			}
			if ok {
				reverted = append(reverted, ch.EventID)
			}

		case ActionUpdate:
			if len(ch.Before) == 0 {
				log.Printf("revert: update change for %s has no before state\n", ch.EventID)
				continue
			}
			if err := m.events.Update(ctx, ch.EventID, userID, ch.Before); err != nil {
				log.Printf("revert: restore of event %s failed: %v\n", ch.EventID, err)
				continue
			}
			reverted = append(reverted, ch.EventID)

		case ActionDelete:
			if len(ch.After) == 0 {
				log.Printf("revert: delete change for %s has no captured state\n", ch.EventID)
				continue
			}
			if err := m.events.Create(ctx, ch.After); err != nil {
				log.Printf("revert: recreate of event %s failed: %v\n", ch.EventID, err)
				continue
			}
			reverted = append(reverted, ch.EventID)

		default:
			log.Printf("revert: unknown action %q for event %s\n", ch.Action, ch.EventID)
		}
	}

	return reverted
}
