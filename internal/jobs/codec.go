package jobs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/campusworks/campusfix/internal/domain/job"
)

func IsValidType(t string) bool {
	switch t {
	case TypeIssueReceived, TypeIssueStatusChanged:
		return true
	default:
		return false
	}
}

// DecodePayload unmarshals job.Payload into the correct typed payload struct.
func DecodePayload(j job.Job) (any, error) {
	if !IsValidType(j.Type) {
		return nil, ErrInvalidJobType
	}
	if len(j.Payload) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch j.Type {
	case TypeIssueReceived:
		var p IssueReceivedPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	case TypeIssueStatusChanged:
		var p IssueStatusChangedPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	default:
		return nil, ErrInvalidJobType
	}
}

// ValidatePayload performs minimal field checks on decoded payloads.
func ValidatePayload(t string, payload any) error {
	if !IsValidType(t) {
		return ErrInvalidJobType
	}

	trim := func(s string) string { return strings.TrimSpace(s) }

	switch t {
	case TypeIssueReceived:
		p, ok := payload.(IssueReceivedPayload)
		if !ok {
			pp, ok2 := payload.(*IssueReceivedPayload)
			if !ok2 {
				return ErrPayloadTypeMismatch
			}
			p = *pp
		}
		if trim(p.IssueID) == "" || trim(p.Email) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	case TypeIssueStatusChanged:
		p, ok := payload.(IssueStatusChangedPayload)
		if !ok {
			pp, ok2 := payload.(*IssueStatusChangedPayload)
			if !ok2 {
				return ErrPayloadTypeMismatch
			}
			p = *pp
		}
		if trim(p.IssueID) == "" || trim(p.Email) == "" || trim(p.Status) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	default:
		return ErrInvalidJobType
	}
}
