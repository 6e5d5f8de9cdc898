package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/campusworks/campusfix/internal/domain/job"
	"github.com/campusworks/campusfix/internal/jobs"
	"github.com/campusworks/campusfix/internal/notifications"
	"github.com/campusworks/campusfix/internal/repo/memory"
)

type countingNotifier struct {
	received      int
	statusChanged int
	failSends     int
}

func (n *countingNotifier) SendIssueReceived(ctx context.Context, in notifications.IssueReceivedInput) error {
	if n.failSends > 0 {
		n.failSends--
		return errors.New("provider down")
	}
	n.received++
	return nil
}

func (n *countingNotifier) SendIssueStatusChanged(ctx context.Context, in notifications.IssueStatusChangedInput) error {
	if n.failSends > 0 {
		n.failSends--
		return errors.New("provider down")
	}
	n.statusChanged++
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func enqueue(t *testing.T, repo *memory.JobsRepo, jobType string, payload interface {
	JSON() (json.RawMessage, error)
}, maxAttempts int) job.Job {
	t.Helper()

	raw, err := payload.JSON()
	if err != nil {
		t.Fatalf("payload JSON error: %v", err)
	}

	j, err := repo.Create(context.Background(), job.CreateRequest{
		Type:        jobType,
		Payload:     raw,
		MaxAttempts: maxAttempts,
	})
	if err != nil {
		t.Fatalf("enqueue error: %v", err)
	}
	return j
}

func TestProcessOne_DeliversNotification(t *testing.T) {
	repo := memory.NewJobsRepo()
	notifier := &countingNotifier{}
	w := New(Config{WorkerID: "test-1"}, repo, notifier, nil, quietLogger(), nil)

	enqueue(t, repo, jobs.TypeIssueReceived, jobs.IssueReceivedPayload{
		IssueID: "i1",
		Title:   "WiFi not working",
		Email:   "john@student.edu",
	}, 3)

	processed, err := w.ProcessOne(context.Background())
	if err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}
	if !processed {
		t.Fatalf("expected a job to be claimed")
	}
	if notifier.received != 1 {
		t.Fatalf("expected 1 delivery, got %d", notifier.received)
	}

	all := repo.All()
	if len(all) != 1 || all[0].Status != job.StatusDone {
		t.Fatalf("expected job done, got %+v", all)
	}

	// nothing left to claim
	processed, err = w.ProcessOne(context.Background())
	if err != nil || processed {
		t.Fatalf("expected empty queue, processed=%v err=%v", processed, err)
	}
}

func TestProcessOne_RetriesThenFails(t *testing.T) {
	repo := memory.NewJobsRepo()
	notifier := &countingNotifier{failSends: 100}
	w := New(Config{WorkerID: "test-1"}, repo, notifier, nil, quietLogger(), nil)

	enqueue(t, repo, jobs.TypeIssueStatusChanged, jobs.IssueStatusChangedPayload{
		IssueID: "i1",
		Status:  "Resolved",
		Email:   "john@student.edu",
	}, 2)

	ctx := context.Background()

	// first attempt: rescheduled with backoff
	if processed, _ := w.ProcessOne(ctx); !processed {
		t.Fatalf("expected first claim")
	}
	j := repo.All()[0]
	if j.Status != job.StatusPending {
		t.Fatalf("expected pending after retry, got %s", j.Status)
	}
	if j.LastError == nil {
		t.Fatalf("expected last_error recorded")
	}

	// pull run_at forward so the retry is claimable now
	if err := repo.Reschedule(ctx, j.ID, time.Now().UTC().Add(-time.Second), *j.LastError); err != nil {
		t.Fatalf("reschedule error: %v", err)
	}

	// second attempt exhausts max_attempts
	if processed, _ := w.ProcessOne(ctx); !processed {
		t.Fatalf("expected second claim")
	}
	j = repo.All()[0]
	if j.Status != job.StatusFailed {
		t.Fatalf("expected failed after exhausting attempts, got %s", j.Status)
	}
}

func TestProcessOne_BadPayloadFailsWithoutRetry(t *testing.T) {
	repo := memory.NewJobsRepo()
	notifier := &countingNotifier{}
	w := New(Config{WorkerID: "test-1"}, repo, notifier, nil, quietLogger(), nil)

	if _, err := repo.Create(context.Background(), job.CreateRequest{
		Type:        jobs.TypeIssueReceived,
		Payload:     []byte(`{`),
		MaxAttempts: 5,
	}); err != nil {
		t.Fatalf("enqueue error: %v", err)
	}

	if processed, _ := w.ProcessOne(context.Background()); !processed {
		t.Fatalf("expected claim")
	}

	j := repo.All()[0]
	if j.Status != job.StatusFailed {
		t.Fatalf("malformed payload should fail terminally, got %s", j.Status)
	}
	if notifier.received != 0 {
		t.Fatalf("notifier must not be called for bad payloads")
	}
}
