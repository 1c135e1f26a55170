package model

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownJobType    = errors.New("unknown job type")
	ErrUnknownRemoteType = errors.New("unknown remote type")
	ErrUnknownRecency    = errors.New("unknown recency")
	ErrUnknownFrequency  = errors.New("unknown frequency")

	// ErrIncompleteListing marks a detail page whose essential fields came back empty.
	ErrIncompleteListing = errors.New("incomplete listing")

	// ErrNoCredential is returned by LLM providers that were built without an API key.
	ErrNoCredential = errors.New("no llm credential configured")

	// ErrPoolClosed is returned when a session is requested after CloseAll.
	ErrPoolClosed = errors.New("browser pool closed")
)

// NavigationError wraps a failed page navigation so retry logic can inspect it.
type NavigationError struct {
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *NavigationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("navigate %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}
