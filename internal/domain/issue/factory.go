package issue

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreateIssueRequest, createdBy string, imagePath *string) (Issue, error) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)

	// binding already rejects empty fields; guard again for non-HTTP callers
	if title == "" || description == "" {
		return Issue{}, ErrMissingField
	}

	category := Category(req.Category)

	if !category.IsValid() {
		return Issue{}, ErrInvalidCategory
	}

	now := time.Now().UTC()

	return Issue{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Category:    category,
		ImagePath:   imagePath,
		Status:      StatusOpen,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
