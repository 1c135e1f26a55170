package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

// Crawler collects listing ids for a search.
type Crawler interface {
	Crawl(ctx context.Context, criteria model.SearchCriteria) []model.ListingID
}

// DetailFetcher turns ids into short listings.
type DetailFetcher interface {
	FetchAll(ctx context.Context, ids []model.ListingID) []model.ShortListing
}

// Enricher scores short listings. It never fails.
type Enricher interface {
	Enrich(ctx context.Context, criteria model.SearchCriteria, listings []model.ShortListing) []model.EnrichedListing
}

// Stage names used in logs and run reports.
const (
	StageCrawl  = "crawl"
	StageFetch  = "fetch"
	StageEnrich = "enrich"
	StageDone   = "done"
)

// Result is the outcome of one run. Stage is the last stage reached.
type Result struct {
	Listings []model.EnrichedListing
	Crawled  int
	Fetched  int
	Stage    string
	Elapsed  time.Duration
}

// Pipeline owns the full discovery run for one search:
// crawl → fetch details → enrich.
type Pipeline struct {
	crawler  Crawler
	fetcher  DetailFetcher
	enricher Enricher
	logger   *slog.Logger
}

// New creates a pipeline wired with all its stages.
func New(crawler Crawler, fetcher DetailFetcher, enricher Enricher, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		crawler:  crawler,
		fetcher:  fetcher,
		enricher: enricher,
		logger:   logger,
	}
}

// Run executes one discovery run. Stages recover their own failures, so the
// only error is the context ending; Result.Stage then says where it stopped.
func (p *Pipeline) Run(ctx context.Context, criteria model.SearchCriteria) (Result, error) {
	start := time.Now()
	res := Result{Stage: StageCrawl}
	stopped := func() (Result, error) {
		res.Elapsed = time.Since(start)
		return res, fmt.Errorf("pipeline stopped during %s: %w", res.Stage, ctx.Err())
	}

	ids := p.crawler.Crawl(ctx, criteria)
	res.Crawled = len(ids)
	if ctx.Err() != nil {
		return stopped()
	}

	res.Stage = StageFetch
	var short []model.ShortListing
	if len(ids) > 0 {
		short = p.fetcher.FetchAll(ctx, ids)
	}
	res.Fetched = len(short)
	if ctx.Err() != nil {
		return stopped()
	}

	res.Stage = StageEnrich
	res.Listings = p.enricher.Enrich(ctx, criteria, short)
	if ctx.Err() != nil {
		return stopped()
	}

	res.Stage = StageDone
	res.Elapsed = time.Since(start)
	p.logger.Info("pipeline run finished",
		"keywords", criteria.Keywords,
		"crawled", res.Crawled,
		"fetched", res.Fetched,
		"enriched", len(res.Listings),
		"elapsed", res.Elapsed.Round(time.Millisecond),
	)
	return res, nil
}
