package db

import (
	"fmt"

	"dayflow/internal/auth"
	"dayflow/internal/event"
	"dayflow/internal/jobs"
	"dayflow/internal/snapshot"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&event.Event{},
		&snapshot.Snapshot{},
		&jobs.Job{},
		&auth.User{},
	); err != nil {
		return err
	}

	// Calendar reads: instances by user and day, templates excluded.
	if err := gdb.Exec(`create index if not exists idx_events_user_date on events(user_id, event_date) where is_template = false;`).Error; err != nil {
		return err
	}

	// Template lookup for expansion.
	if err := gdb.Exec(`create index if not exists idx_events_templates on events(user_id) where is_template = true and repeat_pattern is not null;`).Error; err != nil {
		return err
	}

	// Coverage checks and pattern-edit cleanup walk instances per template.
	if err := gdb.Exec(`create index if not exists idx_events_parent_date on events(parent_event_id, event_date) where parent_event_id is not null;`).Error; err != nil {
		return err
	}

	// Helpful indexes
	stmts := []string{
		`create index if not exists idx_events_routine_parent on events(parent_routine_id) where parent_routine_id is not null;`,
		`create index if not exists idx_snapshots_user_created on snapshots(user_id, created_at desc);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
