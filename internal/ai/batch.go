package ai

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/amishk599/jobscout/internal/model"
)

// Batch is a run of consecutive listings sent in one request. Offset is the
// index of the first listing in the full input.
type Batch struct {
	Offset   int
	Listings []model.ShortListing
	Tokens   int
}

// EstimateTokens bounds the token count of s from above. Byte-level BPE
// tokenizers never emit more tokens than input bytes.
func EstimateTokens(s string) int {
	return len(s)
}

// BatchBudget is the token arithmetic for one batch.
type BatchBudget struct {
	MaxInputTokens         int
	ReservedResponseTokens int
	BaseTokens             int // instructions plus criteria
	DescriptionMaxChars    int
}

// Available is the ceiling for the listing block of a batch.
func (b BatchBudget) Available() int {
	return b.MaxInputTokens - b.BaseTokens - b.ReservedResponseTokens
}

// SplitBatches packs listings greedily in input order. A listing that does
// not fit on its own still gets a singleton batch.
func SplitBatches(listings []model.ShortListing, budget BatchBudget) []Batch {
	avail := budget.Available()
	var (
		batches []Batch
		cur     Batch
	)
	flush := func() {
		if len(cur.Listings) > 0 {
			batches = append(batches, cur)
		}
	}

	for i, l := range listings {
		local := i - cur.Offset
		t := EstimateTokens(listingBlock(local, l, budget.DescriptionMaxChars))

		if len(cur.Listings) > 0 && cur.Tokens+t > avail {
			flush()
			cur = Batch{Offset: i}
			t = EstimateTokens(listingBlock(0, l, budget.DescriptionMaxChars))
		}
		cur.Listings = append(cur.Listings, l)
		cur.Tokens += t

		if len(cur.Listings) == 1 && t > avail {
			flush()
			cur = Batch{Offset: i + 1}
		}
	}
	flush()
	return batches
}

// renderListings builds the positional block of a batch prompt.
func renderListings(b Batch, descMax int) string {
	var sb strings.Builder
	for i, l := range b.Listings {
		sb.WriteString(listingBlock(i, l, descMax))
	}
	return sb.String()
}

// listingBlock is one posting as it appears in the prompt, keyed by its
// batch-local index.
func listingBlock(local int, l model.ShortListing, descMax int) string {
	return fmt.Sprintf("Job ID: %d\nTitle: %s\nCompany: %s\nLocation: %s\nPosted: %s\nDescription: %s\n\n",
		local, l.Title, l.Company, l.Location, l.PostedAgo, truncateRunes(l.Description, descMax))
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "..."
}
