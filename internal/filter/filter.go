package filter

import (
	"strings"

	"github.com/amishk599/jobscout/internal/model"
)

// ScoreFilter keeps listings scored strictly above a minimum. Unscored
// listings are dropped unless keepUnscored is set.
type ScoreFilter struct {
	minScore     int
	keepUnscored bool
}

// NewScoreFilter returns a filter that drops listings at or below minScore.
func NewScoreFilter(minScore int, keepUnscored bool) *ScoreFilter {
	return &ScoreFilter{minScore: minScore, keepUnscored: keepUnscored}
}

// Match reports whether l clears the threshold.
func (f *ScoreFilter) Match(l model.EnrichedListing) bool {
	if l.Score == nil {
		return f.keepUnscored
	}
	return *l.Score > f.minScore
}

// RedFlagFilter drops listings whose title, company or description contains
// any excluded term. Matching is case-insensitive. An empty list passes all.
type RedFlagFilter struct {
	terms []string
}

// NewRedFlagFilter lowercases and trims terms once, dropping blanks.
func NewRedFlagFilter(terms []string) *RedFlagFilter {
	clean := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			clean = append(clean, t)
		}
	}
	return &RedFlagFilter{terms: clean}
}

// Match returns false if any red flag term appears in the listing text.
func (f *RedFlagFilter) Match(l model.EnrichedListing) bool {
	if len(f.terms) == 0 {
		return true
	}
	combined := strings.ToLower(l.Title + " " + l.Company + " " + l.Description)
	for _, term := range f.terms {
		if strings.Contains(combined, term) {
			return false
		}
	}
	return true
}

// Chain matches only when every filter matches.
type Chain []model.ListingFilter

// Match runs the filters in order and stops at the first rejection.
func (c Chain) Match(l model.EnrichedListing) bool {
	for _, f := range c {
		if !f.Match(l) {
			return false
		}
	}
	return true
}

// Apply returns the listings f matches, preserving order. The result is
// never nil.
func Apply(f model.ListingFilter, listings []model.EnrichedListing) []model.EnrichedListing {
	out := make([]model.EnrichedListing, 0, len(listings))
	for _, l := range listings {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out
}

// Partition splits listings into those f matches and the rest, preserving
// order within each side.
func Partition(f model.ListingFilter, listings []model.EnrichedListing) (matched, rejected []model.EnrichedListing) {
	matched = make([]model.EnrichedListing, 0, len(listings))
	for _, l := range listings {
		if f.Match(l) {
			matched = append(matched, l)
		} else {
			rejected = append(rejected, l)
		}
	}
	return matched, rejected
}
