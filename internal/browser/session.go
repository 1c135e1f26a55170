package browser

import (
	"context"
	"errors"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/amishk599/jobscout/internal/model"
)

// Session is one isolated browser context with a single page.
type Session struct {
	Page        playwright.Page
	Fingerprint Fingerprint
	Proxy       *Proxy

	bctx      playwright.BrowserContext
	closeOnce sync.Once
	closeErr  error
}

func newSession(bctx playwright.BrowserContext, page playwright.Page, fp Fingerprint, proxy *Proxy) *Session {
	return &Session{Page: page, Fingerprint: fp, Proxy: proxy, bctx: bctx}
}

// Close tears down the context and everything in it.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.bctx != nil {
			s.closeErr = s.bctx.Close()
		}
	})
	return s.closeErr
}

// Do runs fn against the page. Playwright calls do not take a context, so on
// cancellation the browser context is closed to unblock fn and ctx.Err() is
// returned once fn has exited.
func (s *Session) Do(ctx context.Context, fn func(page playwright.Page) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- fn(s.Page) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = s.Close()
		<-done
		return ctx.Err()
	}
}

// Goto navigates and converts transport failures and HTTP error statuses into
// model.NavigationError.
func (s *Session) Goto(ctx context.Context, url string) error {
	return s.Do(ctx, func(page playwright.Page) error {
		resp, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		})
		if err != nil {
			return &model.NavigationError{URL: url, Err: err}
		}
		if resp != nil && resp.Status() >= 400 {
			return &model.NavigationError{URL: url, StatusCode: resp.Status(), Err: errors.New(resp.StatusText())}
		}
		return nil
	})
}
