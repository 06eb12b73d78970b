package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidPath          = errors.New("invalid post path")
	ErrMalformedFrontMatter = errors.New("malformed front matter")
	ErrInvalidPayload       = errors.New("invalid payload")
	ErrMissingSignature     = errors.New("missing signature")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrNotFound             = errors.New("not found")
	ErrFetch                = errors.New("fetch failed")
)

// FetchError is returned when a call to the source repository fails.
// StatusCode is zero when no response was received.
type FetchError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches ErrFetch for every fetch failure and ErrNotFound for a 404.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrFetch:
		return true
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}
