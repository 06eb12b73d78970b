package domain

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// PushEvent is the subset of a repository push notification the sync pipeline reads.
type PushEvent struct {
	Ref     *string      `json:"ref" validate:"required"`
	Commits []PushCommit `json:"commits" validate:"required,dive"`
}

// PushCommit lists the repo-relative paths one commit touched.
type PushCommit struct {
	ID       *string  `json:"id" validate:"required"`
	Added    []string `json:"added" validate:"required"`
	Removed  []string `json:"removed" validate:"required"`
	Modified []string `json:"modified" validate:"required"`
}

// GetRef returns the pushed ref, or "" if unset.
func (e *PushEvent) GetRef() string {
	if e == nil || e.Ref == nil {
		return ""
	}
	return *e.Ref
}

// ParsePushEvent decodes and validates a push event body.
// Every failure matches ErrInvalidPayload.
func ParsePushEvent(body []byte) (*PushEvent, error) {
	var evt PushEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := validate.Struct(&evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &evt, nil
}
