package jobs

import (
	"context"
	"log"
	"math"
	"time"
)

// ReplenishFunc tops up pending habit instances for one user and reports
// how many were created.
type ReplenishFunc func(ctx context.Context, userID uint64) (int, error)

type Worker struct {
	ID        string
	Repo      *Repo
	Replenish ReplenishFunc
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(800 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.Repo.Claim(w.ID)
			if err != nil {
				log.Printf("worker claim error: %v\n", err)
				continue
			}
			if job == nil {
				continue
			}
			w.handle(ctx, job)
		}
	}
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	switch job.Type {
	case TypeReplenishHabits:
		w.handleReplenish(ctx, job)
	default:
		_ = w.Repo.MarkFailed(job.ID, "unknown job type")
	}
}

func (w *Worker) handleReplenish(ctx context.Context, job *Job) {
	if w.Replenish == nil {
		_ = w.Repo.MarkFailed(job.ID, "no replenish handler configured")
		return
	}

	created, err := w.Replenish(ctx, job.UserID)
	if err != nil {
		w.retry(job, err.Error())
		return
	}

	if created > 0 {
		log.Printf("[REPLENISH] user=%d created=%d\n", job.UserID, created)
	}
	_ = w.Repo.MarkDone(job.ID)
}

func (w *Worker) retry(job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		_ = w.Repo.MarkFailed(job.ID, errMsg)
		return
	}

	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	next := time.Now().Add(time.Duration(sec) * time.Second)

	_ = w.Repo.RetryLater(job.ID, attempts, next, errMsg)
}
