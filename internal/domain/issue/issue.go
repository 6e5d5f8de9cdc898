package issue

import (
	"errors"
	"time"
)

type Category string

const (
	CategoryElectrical     Category = "Electrical"
	CategoryWater          Category = "Water"
	CategoryInternet       Category = "Internet"
	CategoryInfrastructure Category = "Infrastructure"
)

type Status string

const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
)

var (
	ErrNotFound          = errors.New("issue not found")
	ErrMissingField      = errors.New("title and description are required")
	ErrInvalidCategory   = errors.New("invalid issue category")
	ErrInvalidStatus     = errors.New("invalid issue status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type Issue struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	ImagePath   *string  `json:"image,omitempty"`
	Status      Status   `json:"status"`
	Remarks     *string  `json:"remarks,omitempty"`
	CreatedBy   string   `json:"createdBy"`

	// populated on admin listings only
	Creator *Creator `json:"creator,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Creator carries the reporter's display identity for admin views;
// deliberately excludes anything sensitive.
type Creator struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CreateIssueRequest struct {
	Title       string `form:"title" binding:"required,min=3,max=120"`
	Description string `form:"description" binding:"required,max=2000"`
	Category    string `form:"category" binding:"required,oneof=Electrical Water Internet Infrastructure"`
}

type UpdateStatusRequest struct {
	Status  string  `json:"status" binding:"required,oneof=Open 'In Progress' Resolved"`
	Remarks *string `json:"remarks" binding:"omitempty,max=2000"`
}

func (c Category) IsValid() bool {
	switch c {
	case CategoryElectrical, CategoryWater, CategoryInternet, CategoryInfrastructure:
		return true
	default:
		return false
	}
}

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved:
		return true
	default:
		return false
	}
}

// CanTransitionTo encodes the issue lifecycle:
// Open -> In Progress, In Progress -> Resolved, and direct Open -> Resolved.
// Resolved is terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusOpen:
		return next == StatusInProgress || next == StatusResolved
	case StatusInProgress:
		return next == StatusResolved
	default:
		return false
	}
}

// Transition validates and applies a status change, overwriting remarks
// when a new value is supplied.
func (i *Issue) Transition(next Status, remarks *string) error {
	if !next.IsValid() {
		return ErrInvalidStatus
	}
	if !i.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}

	i.Status = next
	if remarks != nil {
		i.Remarks = remarks
	}
	i.UpdatedAt = time.Now().UTC()
	return nil
}
