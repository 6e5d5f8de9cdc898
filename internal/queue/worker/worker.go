package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/campusworks/campusfix/internal/actorctx"
	"github.com/campusworks/campusfix/internal/domain/job"
	"github.com/campusworks/campusfix/internal/jobs"
	"github.com/campusworks/campusfix/internal/notifications"
	"github.com/campusworks/campusfix/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

// NudgeWaiter is the optional redis wake-up; when nil the worker just polls.
type NudgeWaiter interface {
	WaitNudge(ctx context.Context, timeout time.Duration) (bool, error)
}

type Config struct {
	PollInterval time.Duration
	WorkerID     string
	LockTTL      time.Duration
	StaleSweep   time.Duration
}

type Worker struct {
	cfg      Config
	repo     JobsRepository
	notifier notifications.Notifier
	nudges   NudgeWaiter
	log      *slog.Logger
	prom     *observability.Prom

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository, notifier notifications.Notifier, nudges NudgeWaiter, log *slog.Logger, prom *observability.Prom) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 60 * time.Second
	}
	if cfg.StaleSweep <= 0 {
		cfg.StaleSweep = time.Minute
	}
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		cfg:      cfg,
		repo:     repo,
		notifier: notifier,
		nudges:   nudges,
		log:      log,
		prom:     prom,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	staleTicker := time.NewTicker(w.cfg.StaleSweep)
	defer staleTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker received shutdown signal")
			return nil

		case <-staleTicker.C:
			n, err := w.repo.RequeueStaleProcessing(ctx, w.cfg.LockTTL)
			if err != nil {
				w.log.Error("stale requeue failed", "err", err)
			} else if n > 0 {
				w.log.Warn("requeued stale jobs", "count", n)
			}

		default:
		}

		processed, err := w.ProcessOne(ctx)

		if err != nil {
			w.log.Error("process error", "err", err)
		}

		if processed {
			// drain the queue before sleeping again
			continue
		}

		w.idle(ctx)
	}
}

// idle waits for a redis nudge when available, else one poll tick.
func (w *Worker) idle(ctx context.Context) {
	if w.nudges != nil {
		if _, err := w.nudges.WaitNudge(ctx, w.cfg.PollInterval); err != nil && ctx.Err() == nil {
			w.log.Warn("nudge wait failed, falling back to poll", "err", err)
		}
		return
	}

	select {
	case <-ctx.Done():
	case <-time.After(w.cfg.PollInterval):
	}
}

// ProcessOne claims and executes at most one job. It reports whether a job
// was claimed so the caller knows to keep draining.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}
		return false, err
	}

	start := time.Now()

	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
	}

	execErr := w.execute(ctx, j)

	if w.prom != nil {
		w.prom.JobsInFlight.Dec()
	}

	if execErr != nil {
		result := w.handleFailure(ctx, j, execErr)
		w.observe(j.Type, result, time.Since(start))
		return true, nil
	}

	err = w.repo.MarkDone(ctx, j.ID)

	if err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		w.observe(j.Type, "failed", time.Since(start))
		return true, err
	}

	w.observe(j.Type, "done", time.Since(start))
	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	decoded, err := jobs.DecodePayload(j)

	if err != nil {
		return err
	}

	if err := jobs.ValidatePayload(j.Type, decoded); err != nil {
		return err
	}

	if j.UserID != nil {
		ctx = actorctx.WithActorID(ctx, *j.UserID)
	}

	switch p := decoded.(type) {
	case jobs.IssueReceivedPayload:
		return w.notifier.SendIssueReceived(ctx, notifications.IssueReceivedInput{
			Email:    p.Email,
			Name:     p.Name,
			IssueID:  p.IssueID,
			Title:    p.Title,
			Category: p.Category,
		})

	case jobs.IssueStatusChangedPayload:
		return w.notifier.SendIssueStatusChanged(ctx, notifications.IssueStatusChangedInput{
			Email:   p.Email,
			Name:    p.Name,
			IssueID: p.IssueID,
			Title:   p.Title,
			Status:  p.Status,
			Remarks: p.Remarks,
		})

	default:
		return jobs.ErrInvalidJobType
	}
}

// handleFailure decides retry vs terminal failure and returns the result
// label for metrics.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, execErr error) string {
	// payload defects never heal; retrying burns attempts for nothing
	if errors.Is(execErr, jobs.ErrInvalidJobPayload) || errors.Is(execErr, jobs.ErrInvalidJobType) {
		if err := w.repo.MarkFailed(ctx, j.ID, execErr.Error()); err != nil {
			w.log.Error("mark failed error", "job", j.ID, "err", err)
		}
		return "failed"
	}

	if j.Attempts >= j.MaxAttempts {
		if err := w.repo.MarkFailed(ctx, j.ID, fmt.Sprintf("max attempts exhausted: %v", execErr)); err != nil {
			w.log.Error("mark failed error", "job", j.ID, "err", err)
		}
		w.log.Error("job exhausted retries", "job", j.ID, "type", j.Type, "attempts", j.Attempts)
		return "failed"
	}

	delay := ExponentialBackoff(j.Attempts - 1)

	if err := w.repo.Reschedule(ctx, j.ID, time.Now().UTC().Add(delay), execErr.Error()); err != nil {
		w.log.Error("reschedule error", "job", j.ID, "err", err)
	}
	w.log.Warn("job retry scheduled", "job", j.ID, "type", j.Type, "attempt", j.Attempts, "delay", delay)
	return "retry"
}

func (w *Worker) observe(jobType, result string, d time.Duration) {
	if w.prom == nil {
		return
	}
	w.prom.JobResults.WithLabelValues(jobType, result).Inc()
	w.prom.JobDuration.WithLabelValues(jobType, result).Observe(d.Seconds())
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}
