package model

import (
	"fmt"
	"strings"
)

// Validate checks the invariants a caller must honour before a run.
func (c SearchCriteria) Validate() error {
	if strings.TrimSpace(c.Keywords) == "" {
		return fmt.Errorf("keywords are required")
	}
	if n := len([]rune(c.FilterText)); n > MaxFilterTextLen {
		return fmt.Errorf("filter text is %d chars, max %d", n, MaxFilterTextLen)
	}
	for _, t := range c.JobTypes {
		if t.Code() == "" {
			return fmt.Errorf("%w: %d", ErrUnknownJobType, int(t))
		}
	}
	for _, t := range c.RemoteTypes {
		if t.Code() == "" {
			return fmt.Errorf("%w: %d", ErrUnknownRemoteType, int(t))
		}
	}
	if _, ok := recencyNames[c.Recency]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownRecency, int(c.Recency))
	}
	return nil
}

// ParseJobTypes parses a list of job type names, failing on the first unknown one.
func ParseJobTypes(names []string) ([]JobType, error) {
	out := make([]JobType, 0, len(names))
	for _, n := range names {
		t, err := ParseJobType(n)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ParseRemoteTypes parses a list of remote type names, failing on the first unknown one.
func ParseRemoteTypes(names []string) ([]RemoteType, error) {
	out := make([]RemoteType, 0, len(names))
	for _, n := range names {
		t, err := ParseRemoteType(n)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
