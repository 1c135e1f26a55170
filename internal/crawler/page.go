package crawler

import (
	"context"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/amishk599/jobscout/internal/browser"
)

// Selectors locate the parts of a results page.
type Selectors struct {
	Cards       string // one element per job card
	CardIDAttr  string // attribute on Cards holding the source id
	NoResults   string // shown when nothing matched
	ResultsList string // container the cards render into
}

// DefaultSelectors match the public job-search results page.
func DefaultSelectors() Selectors {
	return Selectors{
		Cards:       "ul.jobs-search__results-list div.base-card[data-entity-urn], ul.jobs-search__results-list [data-entity-urn]",
		CardIDAttr:  "data-entity-urn",
		NoResults:   ".no-results, .jobs-search-no-results-banner, section.core-section-container--no-results",
		ResultsList: "ul.jobs-search__results-list",
	}
}

// BrowserOpener returns a PageOpener backed by pool. Each opened session gets
// a fresh fingerprint, the rotator's next proxy and its own watchdog.
func BrowserOpener(pool *browser.Pool, proxies *browser.ProxyRotator, sel Selectors, watchdogIdle time.Duration, logger *slog.Logger) PageOpener {
	return func(ctx context.Context) (ResultsPage, error) {
		proxy := proxies.Next()
		sess, err := pool.Acquire(ctx, browser.RandomFingerprint(), proxy)
		if err != nil {
			return nil, err
		}

		watched, cancel := browser.Watch(ctx, watchdogIdle, browser.DismissOverlay(sess.Page), logger)

		return &browserPage{
			pool:   pool,
			sess:   sess,
			sel:    sel,
			scroll: browser.DefaultScrollOptions(),
			logger: watched.With("proxy", proxy.String()),
			cancel: cancel,
		}, nil
	}
}

type browserPage struct {
	pool   *browser.Pool
	sess   *browser.Session
	sel    Selectors
	scroll browser.ScrollOptions
	logger *slog.Logger
	cancel context.CancelFunc
}

func (p *browserPage) Load(ctx context.Context, url string) (PageResult, error) {
	p.logger.Debug("loading results page", "url", url)
	if err := p.sess.Goto(ctx, url); err != nil {
		return PageResult{}, err
	}
	if err := browser.RandomDelay(ctx, 800*time.Millisecond, 2*time.Second); err != nil {
		return PageResult{}, err
	}

	var res PageResult
	err := p.sess.Do(ctx, func(page playwright.Page) error {
		if err := browser.MoveMouseRandomly(page); err != nil {
			p.logger.Debug("mouse drift", "error", err)
		}

		n, err := page.Locator(p.sel.NoResults).Count()
		if err != nil {
			return err
		}
		if n > 0 {
			res.NoResults = true
			return nil
		}

		lists, err := page.Locator(p.sel.ResultsList).Count()
		if err != nil {
			return err
		}
		// No list container means a blank or interstitial body.
		res.EmptyBody = lists == 0
		return nil
	})
	if err != nil || res.NoResults || res.EmptyBody {
		return res, err
	}

	cards := browser.LocatorCardList{
		Cards:     p.sess.Page.Locator(p.sel.Cards),
		Attribute: p.sel.CardIDAttr,
	}
	err = p.sess.Do(ctx, func(playwright.Page) error {
		ids, err := browser.ScrollCardList(ctx, cards, p.scroll)
		res.CardIDs = ids
		return err
	})
	p.logger.Debug("extracted cards", "count", len(res.CardIDs))
	return res, err
}

func (p *browserPage) Close() error {
	p.cancel()
	p.pool.Release(p.sess)
	return nil
}
