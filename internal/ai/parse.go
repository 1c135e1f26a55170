package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// scoredResult is one validated entry of a batch response.
type scoredResult struct {
	Index     int // batch-local
	Score     int
	TechStack []string
	Reason    *string
}

var requiredKeys = []string{"job_id", "compatibility_score", "techstack", "filter_reason"}

// parseBatchResponse extracts results from a model reply. Entries with
// missing keys or values that cannot be coerced are skipped; an index outside
// [0, n) counts as unusable. Only a reply with no parseable array is an error.
func parseBatchResponse(raw string, n int) ([]scoredResult, error) {
	body, err := sliceJSON(raw, '[', ']')
	if err != nil {
		return nil, err
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal results array: %w", err)
	}

	results := make([]scoredResult, 0, len(entries))
	for _, e := range entries {
		r, err := coerceResult(e)
		if err != nil || r.Index < 0 || r.Index >= n {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

func coerceResult(raw json.RawMessage) (scoredResult, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return scoredResult{}, err
	}
	for _, k := range requiredKeys {
		if _, ok := obj[k]; !ok {
			return scoredResult{}, fmt.Errorf("missing %s", k)
		}
	}

	idx, err := coerceInt(obj["job_id"])
	if err != nil {
		return scoredResult{}, fmt.Errorf("job_id: %w", err)
	}
	score, err := coerceInt(obj["compatibility_score"])
	if err != nil {
		return scoredResult{}, fmt.Errorf("compatibility_score: %w", err)
	}
	stack, err := coerceStrings(obj["techstack"])
	if err != nil {
		return scoredResult{}, fmt.Errorf("techstack: %w", err)
	}
	reason, err := coerceReason(obj["filter_reason"])
	if err != nil {
		return scoredResult{}, fmt.Errorf("filter_reason: %w", err)
	}

	return scoredResult{
		Index:     idx,
		Score:     min(max(score, 0), 100),
		TechStack: stack,
		Reason:    reason,
	}, nil
}

// coerceInt accepts a JSON number or a numeric string.
func coerceInt(raw json.RawMessage) (int, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(math.Round(f)), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, errors.New("not a number")
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	return int(math.Round(f)), nil
}

// coerceStrings accepts an array (non-strings and blanks dropped), a
// comma-separated string, or null.
func coerceStrings(raw json.RawMessage) ([]string, error) {
	if string(bytes.TrimSpace(raw)) == "null" {
		return []string{}, nil
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errors.New("not a list")
		}
		for _, part := range strings.Split(s, ",") {
			items = append(items, part)
		}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func coerceReason(raw json.RawMessage) (*string, error) {
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.New("not a string")
	}
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed, nil
}

// sliceJSON strips code fences and surrounding prose, returning the span from
// the first open to the last close delimiter.
func sliceJSON(raw string, openDelim, closeDelim byte) ([]byte, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")

	start := strings.IndexByte(s, openDelim)
	end := strings.LastIndexByte(s, closeDelim)
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON %c...%c in response", openDelim, closeDelim)
	}
	return []byte(s[start : end+1]), nil
}
