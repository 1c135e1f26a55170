package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"testing"

	"github.com/amishk599/jobscout/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePage serves scripted results, one entry per Load call. Calls past the
// script return a full page of fresh ids.
type fakePage struct {
	pages  []PageResult
	errAt  int      // 1-based Load call that fails; 0 never
	errIDs []string // cards extracted before the failing call gave up
	urls   []string
	closed bool
}

func (f *fakePage) Load(_ context.Context, u string) (PageResult, error) {
	f.urls = append(f.urls, u)
	n := len(f.urls)
	if n == f.errAt {
		return PageResult{CardIDs: f.errIDs}, &model.NavigationError{URL: u, Err: errors.New("net::ERR_TIMED_OUT")}
	}
	if n <= len(f.pages) {
		return f.pages[n-1], nil
	}
	return PageResult{CardIDs: urns(n*100, 10)}, nil
}

func (f *fakePage) Close() error {
	f.closed = true
	return nil
}

func urns(from, count int) []string {
	out := make([]string, count)
	for i := range out {
		out[i] = fmt.Sprintf("urn:li:jobPosting:%d", from+i)
	}
	return out
}

func newTestCrawler(p *fakePage) *Crawler {
	open := func(context.Context) (ResultsPage, error) { return p, nil }
	return New(open, "https://www.linkedin.com/jobs/search", 10, nil, discardLogger())
}

func TestCrawl_StopsAfterShortPage(t *testing.T) {
	p := &fakePage{pages: []PageResult{
		{CardIDs: urns(1, 10)},
		{CardIDs: urns(11, 10)},
		{CardIDs: urns(21, 3)},
	}}
	ids := newTestCrawler(p).Crawl(context.Background(), model.SearchCriteria{Keywords: "go developer"})

	if len(ids) != 23 {
		t.Fatalf("got %d ids, want 23", len(ids))
	}
	if len(p.urls) != 3 {
		t.Fatalf("loaded %d pages, want 3 (no attempt at page 4)", len(p.urls))
	}
	if ids[0] != "1" || ids[22] != "23" {
		t.Errorf("ids not in first-seen order: first=%s last=%s", ids[0], ids[22])
	}
	if !p.closed {
		t.Error("results session not closed")
	}
}

func TestCrawl_DeduplicatesAcrossPages(t *testing.T) {
	page2 := append(urns(6, 5), urns(11, 5)...) // 6..10 repeat page 1
	p := &fakePage{pages: []PageResult{
		{CardIDs: urns(1, 10)},
		{CardIDs: page2},
		{CardIDs: append(urns(1, 2), "not-an-id", "")},
	}}
	ids := newTestCrawler(p).Crawl(context.Background(), model.SearchCriteria{Keywords: "sre"})

	seen := map[model.ListingID]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %s in %v", id, ids)
		}
		seen[id] = true
	}
	if len(ids) != 15 {
		t.Errorf("got %d unique ids, want 15", len(ids))
	}
}

func TestCrawl_NoResultsMarkerIsDone(t *testing.T) {
	p := &fakePage{pages: []PageResult{{NoResults: true}}}
	ids := newTestCrawler(p).Crawl(context.Background(), model.SearchCriteria{Keywords: "cobol"})
	if len(ids) != 0 || len(p.urls) != 1 {
		t.Fatalf("ids=%v loads=%d, want none after one load", ids, len(p.urls))
	}
}

func TestCrawl_EmptyBodyIsDone(t *testing.T) {
	p := &fakePage{pages: []PageResult{
		{CardIDs: urns(1, 10)},
		{EmptyBody: true},
	}}
	ids := newTestCrawler(p).Crawl(context.Background(), model.SearchCriteria{Keywords: "rust"})
	if len(ids) != 10 || len(p.urls) != 2 {
		t.Fatalf("ids=%d loads=%d, want 10 ids after 2 loads", len(ids), len(p.urls))
	}
}

func TestCrawl_PageErrorKeepsPartialResults(t *testing.T) {
	p := &fakePage{pages: []PageResult{{CardIDs: urns(1, 10)}}, errAt: 2}
	ids := newTestCrawler(p).Crawl(context.Background(), model.SearchCriteria{Keywords: "go"})
	if len(ids) != 10 {
		t.Fatalf("got %d ids, want the 10 from page 1", len(ids))
	}
	if len(p.urls) != 2 {
		t.Errorf("loads = %d, want 2 (no retry at crawl level)", len(p.urls))
	}
}

func TestCrawl_PageErrorKeepsCardsFromFailingPage(t *testing.T) {
	p := &fakePage{
		pages:  []PageResult{{CardIDs: urns(1, 10)}},
		errAt:  2,
		errIDs: append(urns(9, 2), urns(11, 3)...), // 9 and 10 repeat page 1
	}
	ids := newTestCrawler(p).Crawl(context.Background(), model.SearchCriteria{Keywords: "go"})
	if len(ids) != 13 {
		t.Fatalf("got %d ids, want 13 (page 1 plus 3 new from the failed scroll)", len(ids))
	}
	if ids[12] != "13" {
		t.Errorf("last id = %s, want 13", ids[12])
	}
	if len(p.urls) != 2 {
		t.Errorf("loads = %d, want 2", len(p.urls))
	}
}

func TestCrawl_StopsWhenPageAddsNothingNew(t *testing.T) {
	p := &fakePage{pages: []PageResult{
		{CardIDs: urns(1, 10)},
		{CardIDs: urns(1, 10)},
	}}
	ids := newTestCrawler(p).Crawl(context.Background(), model.SearchCriteria{Keywords: "go", Recency: model.RecencyMonth})
	if len(ids) != 10 {
		t.Errorf("got %d ids, want 10", len(ids))
	}
	if len(p.urls) != 2 {
		t.Errorf("loads = %d, want 2 (stop once a full page repeats)", len(p.urls))
	}
}

func TestCrawl_MaxPagesFollowsRecency(t *testing.T) {
	p := &fakePage{}
	ids := newTestCrawler(p).Crawl(context.Background(), model.SearchCriteria{
		Keywords: "backend",
		Recency:  model.RecencyDay,
	})
	if len(p.urls) != model.RecencyDay.MaxPages() {
		t.Fatalf("loads = %d, want %d", len(p.urls), model.RecencyDay.MaxPages())
	}
	if len(ids) != 10*model.RecencyDay.MaxPages() {
		t.Errorf("ids = %d", len(ids))
	}
}

func TestCrawl_OpenFailureReturnsEmpty(t *testing.T) {
	open := func(context.Context) (ResultsPage, error) { return nil, errors.New("chromium missing") }
	c := New(open, "https://www.linkedin.com/jobs/search", 10, nil, discardLogger())
	if ids := c.Crawl(context.Background(), model.SearchCriteria{Keywords: "go"}); ids != nil {
		t.Fatalf("ids = %v, want nil", ids)
	}
}

func TestCrawl_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &fakePage{}
	newTestCrawler(p).Crawl(ctx, model.SearchCriteria{Keywords: "go"})
	if len(p.urls) != 0 {
		t.Fatalf("loaded %d pages after cancellation", len(p.urls))
	}
	if !p.closed {
		t.Error("session must be closed on cancellation")
	}
}

func TestSearchURL_MapsCriteriaToSourceCodes(t *testing.T) {
	c := model.SearchCriteria{
		Keywords:    "platform engineer",
		Location:    "Berlin",
		JobTypes:    []model.JobType{model.JobTypeFullTime, model.JobTypeContract, model.JobTypeFullTime},
		RemoteTypes: []model.RemoteType{model.RemoteRemote, model.RemoteHybrid},
		Recency:     model.RecencyWeek,
	}
	raw, err := SearchURL("https://www.linkedin.com/jobs/search", c, 3, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, _ := url.Parse(raw)
	q := u.Query()

	want := map[string]string{
		"keywords": "platform engineer",
		"location": "Berlin",
		"f_JT":     "F,C",
		"f_WT":     "2,3",
		"f_TPR":    "r604800",
		"start":    "20",
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestSearchURL_FirstPageAndAnyRecencyOmitParams(t *testing.T) {
	raw, err := SearchURL("https://www.linkedin.com/jobs/search", model.SearchCriteria{Keywords: "go"}, 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q, _ := url.ParseQuery(raw[len("https://www.linkedin.com/jobs/search?"):])
	for _, k := range []string{"start", "f_TPR", "f_JT", "f_WT", "location"} {
		if q.Has(k) {
			t.Errorf("unexpected %s param in %s", k, raw)
		}
	}
}

func TestParseListingID(t *testing.T) {
	cases := map[string]model.ListingID{
		"urn:li:jobPosting:3812345678": "3812345678",
		"  4000000001 ":                "4000000001",
		"urn:li:jobPosting:":           "",
		"urn:li:jobPosting:12ab":       "",
		"":                             "",
	}
	for in, want := range cases {
		if got := ParseListingID(in); got != want {
			t.Errorf("ParseListingID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetailURL(t *testing.T) {
	got := DetailURL("https://www.linkedin.com/jobs/search?keywords=x", "42")
	if got != "https://www.linkedin.com/jobs/view/42/" {
		t.Errorf("DetailURL = %q", got)
	}
}
