package notifications

import "context"

type IssueReceivedInput struct {
	Email    string
	Name     string
	IssueID  string
	Title    string
	Category string
}

type IssueStatusChangedInput struct {
	Email   string
	Name    string
	IssueID string
	Title   string
	Status  string
	Remarks string
}

type Notifier interface {
	SendIssueReceived(ctx context.Context, input IssueReceivedInput) error
	SendIssueStatusChanged(ctx context.Context, input IssueStatusChangedInput) error
}
