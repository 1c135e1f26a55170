package fetcher

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/amishk599/jobscout/internal/browser"
)

// Selectors locate the fields of a detail page. Each may list alternatives.
type Selectors struct {
	Title       string
	Company     string
	Location    string
	PostedAgo   string
	Description string
	ShowMore    string // expands a collapsed description
}

// DefaultSelectors match the public job-posting page.
func DefaultSelectors() Selectors {
	return Selectors{
		Title:       "h1.top-card-layout__title, h1.topcard__title, h2.top-card-layout__title",
		Company:     "a.topcard__org-name-link, span.topcard__flavor a, .topcard__org-name-link",
		Location:    "span.topcard__flavor--bullet, .topcard__flavor--bullet",
		PostedAgo:   "span.posted-time-ago__text, .posted-time-ago__text",
		Description: "div.show-more-less-html__markup, div.description__text",
		ShowMore:    "button.show-more-less-html__button--more",
	}
}

// BrowserOpener returns a DetailOpener that gives every call its own context
// and a watchdog that dismisses overlays after watchdogIdle of silence.
func BrowserOpener(pool *browser.Pool, sel Selectors, watchdogIdle time.Duration, logger *slog.Logger) DetailOpener {
	return func(ctx context.Context, proxy *browser.Proxy) (DetailPage, error) {
		sess, err := pool.Acquire(ctx, browser.RandomFingerprint(), proxy)
		if err != nil {
			return nil, err
		}
		watched, cancel := browser.Watch(ctx, watchdogIdle, browser.DismissOverlay(sess.Page), logger)
		return &browserDetail{
			pool:   pool,
			sess:   sess,
			sel:    sel,
			logger: watched.With("proxy", proxy.String()),
			cancel: cancel,
		}, nil
	}
}

type browserDetail struct {
	pool   *browser.Pool
	sess   *browser.Session
	sel    Selectors
	logger *slog.Logger
	cancel context.CancelFunc
}

func (d *browserDetail) Extract(ctx context.Context, url string) (RawDetail, error) {
	d.logger.Debug("loading detail page", "url", url)
	if err := d.sess.Goto(ctx, url); err != nil {
		return RawDetail{}, err
	}
	if err := browser.RandomDelay(ctx, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
		return RawDetail{}, err
	}

	var raw RawDetail
	err := d.sess.Do(ctx, func(page playwright.Page) error {
		raw.URL = page.URL()
		raw.Title = firstText(page, d.sel.Title)
		raw.Company = firstText(page, d.sel.Company)
		raw.Location = firstText(page, d.sel.Location)
		raw.PostedAgo = firstText(page, d.sel.PostedAgo)

		more := page.Locator(d.sel.ShowMore).First()
		if visible, _ := more.IsVisible(); visible {
			if err := browser.ClickWithJitter(page, more); err != nil {
				d.logger.Debug("expanding description", "error", err)
			}
		}

		desc := page.Locator(d.sel.Description).First()
		if n, _ := page.Locator(d.sel.Description).Count(); n > 0 {
			html, err := desc.InnerHTML(playwright.LocatorInnerHTMLOptions{Timeout: playwright.Float(3000)})
			if err == nil {
				raw.DescriptionHTML = html
			}
		}
		return nil
	})
	d.logger.Debug("extracted detail", "url", raw.URL, "has_description", raw.DescriptionHTML != "")
	return raw, err
}

func (d *browserDetail) Close() error {
	d.cancel()
	d.pool.Release(d.sess)
	return nil
}

// firstText returns the trimmed text of the first match, or "" when absent.
func firstText(page playwright.Page, selector string) string {
	loc := page.Locator(selector)
	if n, err := loc.Count(); err != nil || n == 0 {
		return ""
	}
	text, err := loc.First().InnerText(playwright.LocatorInnerTextOptions{Timeout: playwright.Float(3000)})
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
