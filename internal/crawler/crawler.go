package crawler

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/ratelimit"
)

// PageResult is what one results page yielded.
type PageResult struct {
	NoResults bool     // the source said nothing matched
	EmptyBody bool     // the page rendered without a results list
	CardIDs   []string // raw id attribute of each card, DOM order
}

// ResultsPage loads search-result pages in one browsing session.
type ResultsPage interface {
	Load(ctx context.Context, url string) (PageResult, error)
	Close() error
}

// PageOpener starts a fresh results session.
type PageOpener func(ctx context.Context) (ResultsPage, error)

// Crawler turns search criteria into the set of listing ids on the source.
type Crawler struct {
	open     PageOpener
	baseURL  string
	pageSize int
	limiter  *ratelimit.HostRateLimiter
	logger   *slog.Logger
}

// New returns a Crawler. limiter may be nil.
func New(open PageOpener, baseURL string, pageSize int, limiter *ratelimit.HostRateLimiter, logger *slog.Logger) *Crawler {
	return &Crawler{
		open:     open,
		baseURL:  baseURL,
		pageSize: pageSize,
		limiter:  limiter,
		logger:   logger,
	}
}

// Crawl walks result pages until a stop condition and returns the unique ids
// in first-seen order. It never fails: navigation and extraction errors end
// the crawl early and whatever was collected so far is returned.
func (c *Crawler) Crawl(ctx context.Context, criteria model.SearchCriteria) []model.ListingID {
	logger := c.logger.With("keywords", criteria.Keywords, "stage", "crawl")
	maxPages := criteria.Recency.MaxPages()

	seen := make(map[model.ListingID]bool)
	var ids []model.ListingID
	merge := func(cardIDs []string) int {
		added := 0
		for _, raw := range cardIDs {
			id := ParseListingID(raw)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
			added++
		}
		return added
	}

	page, err := c.open(ctx)
	if err != nil {
		logger.Warn("opening results session", "error", err)
		return nil
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Debug("closing results session", "error", err)
		}
	}()

	stop := "max pages"
	for n := 1; n <= maxPages; n++ {
		if ctx.Err() != nil {
			stop = "cancelled"
			break
		}

		u, err := SearchURL(c.baseURL, criteria, n, c.pageSize)
		if err != nil {
			logger.Error("building search url", "error", err)
			stop = "bad url"
			break
		}
		if c.limiter != nil {
			if err := c.limiter.WaitURL(ctx, u); err != nil {
				stop = "cancelled"
				break
			}
		}

		res, err := page.Load(ctx, u)
		if err != nil {
			added := merge(res.CardIDs)
			logger.Warn("results page failed, keeping partial results",
				"page", n, "cards", len(res.CardIDs), "new", added, "error", err)
			stop = "page error"
			break
		}
		if res.NoResults {
			stop = "no results"
			break
		}
		if res.EmptyBody {
			stop = "empty body"
			break
		}

		added := merge(res.CardIDs)
		logger.Debug("results page", "page", n, "cards", len(res.CardIDs), "new", added)

		if added == 0 {
			stop = "no new ids"
			break
		}

		if len(res.CardIDs) < c.pageSize {
			stop = "short page"
			break
		}
	}

	logger.Info("crawl finished", "ids", len(ids), "stop", stop)
	return ids
}
