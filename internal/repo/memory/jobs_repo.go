package memory

import (
	"context"
	"sync"
	"time"

	"github.com/campusworks/campusfix/internal/domain/job"
)

type JobsRepo struct {
	mu    sync.Mutex
	items map[string]job.Job
	order []string
}

func NewJobsRepo() *JobsRepo {
	return &JobsRepo{
		items: make(map[string]job.Job),
	}
}

func (r *JobsRepo) Create(ctx context.Context, req job.CreateRequest) (job.Job, error) {
	j := job.New(req)

	r.mu.Lock()
	defer r.mu.Unlock()

	if req.IdempotencyKey != nil {
		for _, existing := range r.items {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *req.IdempotencyKey {
				return existing, nil
			}
		}
	}

	r.items[j.ID] = j
	r.order = append(r.order, j.ID)
	return j, nil
}

func (r *JobsRepo) ClaimNext(ctx context.Context, workerID string) (job.Job, error) {
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order {
		j := r.items[id]
		if j.Status != job.StatusPending || j.RunAt.After(now) || j.Attempts >= j.MaxAttempts {
			continue
		}

		j.Status = job.StatusProcessing
		j.Attempts++
		j.LockedAt = &now
		j.LockedBy = &workerID
		j.UpdatedAt = now
		r.items[id] = j
		return j, nil
	}

	return job.Job{}, job.ErrJobNotFound
}

func (r *JobsRepo) MarkDone(ctx context.Context, id string) error {
	return r.setStatus(id, job.StatusDone, nil)
}

func (r *JobsRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return r.setStatus(id, job.StatusFailed, &errMsg)
}

func (r *JobsRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.items[id]
	if !ok {
		return job.ErrJobNotFound
	}

	j.Status = job.StatusPending
	j.RunAt = runAt
	j.LockedAt = nil
	j.LockedBy = nil
	j.LastError = &errMsg
	j.UpdatedAt = time.Now().UTC()
	r.items[id] = j
	return nil
}

func (r *JobsRepo) RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-lockTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64

	for id, j := range r.items {
		if j.Status == job.StatusProcessing && j.LockedAt != nil && j.LockedAt.Before(cutoff) {
			j.Status = job.StatusPending
			j.LockedAt = nil
			j.LockedBy = nil
			r.items[id] = j
			n++
		}
	}

	return n, nil
}

// All returns a snapshot, newest enqueue last. Test helper.
func (r *JobsRepo) All() []job.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]job.Job, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out
}

func (r *JobsRepo) setStatus(id string, status job.Status, errMsg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.items[id]
	if !ok {
		return job.ErrJobNotFound
	}

	j.Status = status
	j.LockedAt = nil
	j.LockedBy = nil
	j.LastError = errMsg
	j.UpdatedAt = time.Now().UTC()
	r.items[id] = j
	return nil
}
