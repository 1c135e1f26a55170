package filter

import (
	"testing"

	"github.com/amishk599/jobscout/internal/model"
)

func scored(title string, score int) model.EnrichedListing {
	return model.EnrichedListing{
		ShortListing: model.ShortListing{Title: title, Company: "Acme", Description: "Build Go services."},
		Score:        &score,
	}
}

func unscored(title string) model.EnrichedListing {
	return model.EnrichedListing{ShortListing: model.ShortListing{Title: title}}
}

func TestScoreFilter_Match(t *testing.T) {
	tests := []struct {
		name         string
		minScore     int
		keepUnscored bool
		listing      model.EnrichedListing
		wantMatch    bool
	}{
		{
			name:      "above threshold",
			minScore:  40,
			listing:   scored("Go Engineer", 41),
			wantMatch: true,
		},
		{
			name:      "at threshold is dropped",
			minScore:  40,
			listing:   scored("Go Engineer", 40),
			wantMatch: false,
		},
		{
			name:      "zero threshold drops rejected listings",
			minScore:  0,
			listing:   scored("Java Engineer", 0),
			wantMatch: false,
		},
		{
			name:      "unscored dropped by default",
			minScore:  0,
			listing:   unscored("Go Engineer"),
			wantMatch: false,
		},
		{
			name:         "unscored kept when configured",
			minScore:     50,
			keepUnscored: true,
			listing:      unscored("Go Engineer"),
			wantMatch:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewScoreFilter(tt.minScore, tt.keepUnscored)
			if got := f.Match(tt.listing); got != tt.wantMatch {
				t.Errorf("Match() = %v, want %v", got, tt.wantMatch)
			}
		})
	}
}

func TestRedFlagFilter_Match(t *testing.T) {
	f := NewRedFlagFilter([]string{"  Crypto ", "", "unpaid"})

	if !f.Match(scored("Backend Engineer", 80)) {
		t.Error("clean listing should pass")
	}
	l := scored("Backend Engineer", 80)
	l.Description = "Join our CRYPTO trading desk."
	if f.Match(l) {
		t.Error("description red flag should reject")
	}
	l = scored("Unpaid Intern", 80)
	if f.Match(l) {
		t.Error("title red flag should reject")
	}
	if !NewRedFlagFilter(nil).Match(l) {
		t.Error("empty term list should pass all")
	}
}

func TestChainAndApply(t *testing.T) {
	chain := Chain{NewScoreFilter(30, false), NewRedFlagFilter([]string{"php"})}
	in := []model.EnrichedListing{
		scored("Go Engineer", 90),
		scored("PHP Developer", 85),
		scored("Go Intern", 20),
		unscored("Rust Engineer"),
		scored("Platform Engineer", 31),
	}

	got := Apply(chain, in)
	if len(got) != 2 || got[0].Title != "Go Engineer" || got[1].Title != "Platform Engineer" {
		t.Errorf("Apply() = %+v", got)
	}
	if out := Apply(chain, nil); out == nil || len(out) != 0 {
		t.Errorf("Apply(nil) = %v, want empty non-nil slice", out)
	}
}

func TestPartition(t *testing.T) {
	in := []model.EnrichedListing{
		scored("A", 90),
		unscored("B"),
		scored("C", 10),
		scored("D", 70),
	}
	matched, rejected := Partition(NewScoreFilter(50, false), in)
	if len(matched) != 2 || matched[0].Title != "A" || matched[1].Title != "D" {
		t.Errorf("matched = %+v", matched)
	}
	if len(rejected) != 2 || rejected[0].Title != "B" || rejected[1].Title != "C" {
		t.Errorf("rejected = %+v", rejected)
	}
}
