package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobscout/internal/browser"
	"github.com/amishk599/jobscout/internal/crawler"
	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/ratelimit"
	"github.com/amishk599/jobscout/internal/retry"
)

// RawDetail is the text read off a detail page before validation.
type RawDetail struct {
	URL             string // final URL after redirects
	Title           string
	Company         string
	Location        string
	PostedAgo       string
	DescriptionHTML string
}

// DetailPage reads posting details in one browsing session.
type DetailPage interface {
	Extract(ctx context.Context, url string) (RawDetail, error)
	Close() error
}

// DetailOpener starts a session routed through proxy (nil for direct).
type DetailOpener func(ctx context.Context, proxy *browser.Proxy) (DetailPage, error)

// Options configures a Fetcher.
type Options struct {
	BaseURL     string
	Concurrency int
	RotateEvery int // rotate the shared proxy every Nth task; 0 disables
}

// Fetcher turns listing ids into ShortListings with bounded concurrency.
type Fetcher struct {
	open    DetailOpener
	proxies *browser.ProxyRotator
	retrier *retry.Retrier
	limiter *ratelimit.HostRateLimiter
	opts    Options
	logger  *slog.Logger

	mu      sync.Mutex
	tasks   int
	current *browser.Proxy
}

// New returns a Fetcher. proxies and limiter may be nil.
func New(open DetailOpener, proxies *browser.ProxyRotator, retrier *retry.Retrier, limiter *ratelimit.HostRateLimiter, opts Options, logger *slog.Logger) *Fetcher {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Fetcher{
		open:    open,
		proxies: proxies,
		retrier: retrier,
		limiter: limiter,
		opts:    opts,
		logger:  logger,
	}
}

// FetchAll fetches every id and returns the listings that came back complete.
// Order is not preserved. Ids that exhaust their retries are dropped.
func (f *Fetcher) FetchAll(ctx context.Context, ids []model.ListingID) []model.ShortListing {
	var (
		mu  sync.Mutex
		out = make([]model.ShortListing, 0, len(ids))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Concurrency)
	for _, id := range ids {
		g.Go(func() error {
			l, ok := f.fetchOne(gctx, id)
			if ok {
				mu.Lock()
				out = append(out, l)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	f.logger.Info("detail fetch finished", "stage", "fetch", "requested", len(ids), "fetched", len(out))
	return out
}

func (f *Fetcher) fetchOne(ctx context.Context, id model.ListingID) (model.ShortListing, bool) {
	logger := f.logger.With("listing_id", string(id))
	target := crawler.DetailURL(f.opts.BaseURL, id)
	proxy := f.nextTaskProxy()

	var listing model.ShortListing
	err := f.retrier.Do(ctx, func(ctx context.Context, attempt int) error {
		if attempt > 0 {
			proxy = f.proxies.NextExcluding(proxy)
			logger.Debug("rotating proxy for retry", "attempt", attempt, "proxy", proxy.String())
		}
		var err error
		listing, err = f.attempt(ctx, id, target, proxy)
		return err
	})
	if err != nil {
		logger.Warn("dropping listing", "error", err)
		return model.ShortListing{}, false
	}
	return listing, true
}

// attempt runs one extraction in a dedicated session, closed on every path.
func (f *Fetcher) attempt(ctx context.Context, id model.ListingID, target string, proxy *browser.Proxy) (model.ShortListing, error) {
	page, err := f.open(ctx, proxy)
	if err != nil {
		return model.ShortListing{}, fmt.Errorf("open detail session: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			f.logger.Debug("closing detail session", "error", err)
		}
	}()

	if f.limiter != nil {
		if err := f.limiter.WaitURL(ctx, target); err != nil {
			return model.ShortListing{}, err
		}
	}
	raw, err := page.Extract(ctx, target)
	if err != nil {
		return model.ShortListing{}, err
	}
	return toListing(id, target, raw)
}

// nextTaskProxy returns the shared proxy, rotating it every RotateEvery tasks.
func (f *Fetcher) nextTaskProxy() *browser.Proxy {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tasks++
	if f.current == nil || (f.opts.RotateEvery > 0 && f.tasks%f.opts.RotateEvery == 0) {
		f.current = f.proxies.NextExcluding(f.current)
	}
	return f.current
}

// toListing validates raw fields. Empty title, company or posted-ago is a
// failed attempt, not a partial result.
func toListing(id model.ListingID, target string, raw RawDetail) (model.ShortListing, error) {
	l := model.ShortListing{
		ID:          id,
		Title:       strings.TrimSpace(raw.Title),
		Company:     strings.TrimSpace(raw.Company),
		Location:    strings.TrimSpace(raw.Location),
		PostedAgo:   strings.TrimSpace(raw.PostedAgo),
		Description: extractText(raw.DescriptionHTML),
	}
	var missing []string
	if l.Title == "" {
		missing = append(missing, "title")
	}
	if l.Company == "" {
		missing = append(missing, "company")
	}
	if l.PostedAgo == "" {
		missing = append(missing, "posted_ago")
	}
	if len(missing) > 0 {
		return model.ShortListing{}, fmt.Errorf("%w: empty %s", model.ErrIncompleteListing, strings.Join(missing, ", "))
	}

	link := raw.URL
	if link == "" {
		link = target
	}
	l.Link = canonicalLink(link)
	return l, nil
}

// canonicalLink drops query and fragment so links compare equal across runs.
func canonicalLink(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
