package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// LogNotifier stands in for a mail/SMS provider: it writes the notification
// to the log. Useful for dev and as the default until a provider is wired.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendIssueReceived(ctx context.Context, in IssueReceivedInput) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.issue_received",
		"email", in.Email,
		"name", in.Name,
		"issue", in.IssueID,
		"title", in.Title,
		"category", in.Category,
	)
	return nil
}

func (n *LogNotifier) SendIssueStatusChanged(ctx context.Context, in IssueStatusChangedInput) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.issue_status_changed",
		"email", in.Email,
		"name", in.Name,
		"issue", in.IssueID,
		"title", in.Title,
		"status", in.Status,
		"remarks", in.Remarks,
	)
	return nil
}

// Env knobs to simulate a slow or failing provider in local testing.
func simulateProvider(ctx context.Context) error {
	if msStr := os.Getenv("NOTIFIER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if os.Getenv("NOTIFIER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	return nil
}
