package model

import (
	"context"
	"time"
)

// ListingID is the source-assigned identifier of a job posting. It is the
// crawler's dedupe key.
type ListingID string

// ShortListing is a minimally extracted posting produced by the detail fetcher.
type ShortListing struct {
	ID          ListingID
	Title       string
	Company     string
	Location    string
	Link        string // canonical, query string stripped
	PostedAgo   string // raw "posted X ago" text
	Description string // may be empty if the detail page failed to render it
}

// EnrichedListing is a ShortListing plus LLM-derived fields. Score is nil when
// scoring was unavailable; FilterReason is set when the listing was rejected.
type EnrichedListing struct {
	ShortListing
	TechStack    []string // most relevant first
	Score        *int     // 0-100
	FilterReason *string
}

// Scored reports whether the listing carries a compatibility score.
func (e EnrichedListing) Scored() bool {
	return e.Score != nil
}

// SearchCriteria is what one crawl and filter run searches for.
type SearchCriteria struct {
	Keywords    string
	Location    string
	JobTypes    []JobType
	RemoteTypes []RemoteType
	Recency     Recency
	FilterText  string // free-text clause handed to the LLM, at most MaxFilterTextLen chars
}

// MaxFilterTextLen bounds SearchCriteria.FilterText.
const MaxFilterTextLen = 300

// ScheduledSearch is a saved recurring search owned by a user.
type ScheduledSearch struct {
	ID        string
	UserID    string
	Criteria  SearchCriteria
	Frequency Frequency
	Active    bool
	CreatedAt time.Time
}

// SearchRequest triggers one pipeline run. Synchronous callers leave
// CallbackRef empty and receive the listings inline.
type SearchRequest struct {
	Criteria    SearchCriteria
	CallbackRef string
}

// Delivery is handed to the delivery collaborator after a scheduled run.
type Delivery struct {
	SearchID string
	UserID   string
	Listings []EnrichedListing
}

// Deliverer hands finished results to the conversational or notification side.
// Implementations own de-duplication against previously delivered links.
type Deliverer interface {
	Deliver(ctx context.Context, d Delivery) error
}

// SearchStore persists saved searches.
type SearchStore interface {
	ListActive(ctx context.Context) ([]ScheduledSearch, error)
	Add(ctx context.Context, s ScheduledSearch) error
	Remove(ctx context.Context, id string) error
}

// LinkStore remembers which links were already delivered for a search.
type LinkStore interface {
	HasDelivered(ctx context.Context, searchID, link string) (bool, error)
	MarkDelivered(ctx context.Context, searchID, link string) error
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// ListingFilter decides whether an enriched listing is worth delivering.
type ListingFilter interface {
	Match(l EnrichedListing) bool
}
