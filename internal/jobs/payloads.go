package jobs

import (
	"encoding/json"
	"time"
)

const (
	TypeIssueReceived      = "issue.received"
	TypeIssueStatusChanged = "issue.status_changed"
)

// Payloads are self-contained so the worker never has to join back to the
// users table: reporter identity travels with the job.

type IssueReceivedPayload struct {
	IssueID     string    `json:"issueId"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	RequestedAt time.Time `json:"requestedAt"`
}

type IssueStatusChangedPayload struct {
	IssueID     string    `json:"issueId"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	Remarks     string    `json:"remarks,omitempty"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	RequestedAt time.Time `json:"requestedAt"`
}

func (p IssueReceivedPayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func (p IssueStatusChangedPayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
