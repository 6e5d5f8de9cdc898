package issue

import (
	"errors"
	"testing"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		ok   bool
	}{
		{"open_to_in_progress", StatusOpen, StatusInProgress, true},
		{"in_progress_to_resolved", StatusInProgress, StatusResolved, true},
		{"open_to_resolved_direct", StatusOpen, StatusResolved, true},
		{"resolved_is_terminal_to_open", StatusResolved, StatusOpen, false},
		{"resolved_is_terminal_to_in_progress", StatusResolved, StatusInProgress, false},
		{"no_reopen_from_in_progress", StatusInProgress, StatusOpen, false},
		{"no_self_transition_open", StatusOpen, StatusOpen, false},
		{"no_self_transition_resolved", StatusResolved, StatusResolved, false},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
				t.Fatalf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.ok)
			}
		})
	}
}

func TestTransition_OverwritesRemarks(t *testing.T) {
	i, err := NewFromCreateRequest(CreateIssueRequest{
		Title:       "Leaking pipe",
		Description: "Water leaking in the ground floor washroom.",
		Category:    "Water",
	}, "user-1", nil)
	if err != nil {
		t.Fatalf("NewFromCreateRequest error: %v", err)
	}

	if i.Status != StatusOpen {
		t.Fatalf("new issue should start Open, got %s", i.Status)
	}

	first := "Plumber notified."
	if err := i.Transition(StatusInProgress, &first); err != nil {
		t.Fatalf("Open -> In Progress failed: %v", err)
	}
	if i.Remarks == nil || *i.Remarks != first {
		t.Fatalf("remarks not stored")
	}

	second := "fixed"
	if err := i.Transition(StatusResolved, &second); err != nil {
		t.Fatalf("In Progress -> Resolved failed: %v", err)
	}
	if *i.Remarks != second {
		t.Fatalf("remarks should be overwritten, got %q", *i.Remarks)
	}

	// remarks survive a transition that carries none
	if err := i.Transition(StatusOpen, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition out of Resolved, got %v", err)
	}
	if *i.Remarks != second {
		t.Fatalf("failed transition must not touch remarks")
	}
}

func TestTransition_RejectsUnknownStatus(t *testing.T) {
	i := Issue{Status: StatusOpen}

	if err := i.Transition(Status("Closed"), nil); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestNewFromCreateRequest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateIssueRequest
		wantErr error
	}{
		{"blank_title", CreateIssueRequest{Title: "   ", Description: "desc", Category: "Water"}, ErrMissingField},
		{"blank_description", CreateIssueRequest{Title: "title", Description: "", Category: "Water"}, ErrMissingField},
		{"bad_category", CreateIssueRequest{Title: "title", Description: "desc", Category: "Plumbing"}, ErrInvalidCategory},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFromCreateRequest(tt.req, "user-1", nil)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}
