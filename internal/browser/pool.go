package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/amishk599/jobscout/internal/model"
)

// browserHandle is the slice of playwright.Browser the pool uses.
type browserHandle interface {
	NewContext(options ...playwright.BrowserNewContextOptions) (playwright.BrowserContext, error)
	Close(options ...playwright.BrowserCloseOptions) error
}

// Launcher starts a browser and returns it with a func that shuts down the
// driver behind it.
type Launcher func() (browserHandle, func() error, error)

// PlaywrightLauncher launches Chromium through the playwright driver.
func PlaywrightLauncher(headless bool) Launcher {
	return func() (browserHandle, func() error, error) {
		pw, err := playwright.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start playwright: %w", err)
		}
		b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(headless),
			Args: []string{
				"--disable-blink-features=AutomationControlled",
				"--disable-dev-shm-usage",
				"--no-first-run",
				"--no-default-browser-check",
			},
		})
		if err != nil {
			_ = pw.Stop()
			return nil, nil, fmt.Errorf("launch chromium: %w", err)
		}
		return b, pw.Stop, nil
	}
}

// PoolOptions configures contexts handed out by a Pool.
type PoolOptions struct {
	NavTimeout     time.Duration
	BlockedDomains []string
}

// Pool owns a single browser process, launched on first use, and hands out
// isolated contexts from it.
type Pool struct {
	launch Launcher
	opts   PoolOptions
	logger *slog.Logger

	mu      sync.Mutex
	browser browserHandle
	stop    func() error
	closed  bool
}

// NewPool returns a Pool. Nothing is launched until the first Acquire.
func NewPool(launch Launcher, opts PoolOptions, logger *slog.Logger) *Pool {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 30 * time.Second
	}
	if opts.BlockedDomains == nil {
		opts.BlockedDomains = defaultBlockedDomains
	}
	return &Pool{launch: launch, opts: opts, logger: logger}
}

// ensure launches the browser exactly once across concurrent callers.
func (p *Pool) ensure() (browserHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, model.ErrPoolClosed
	}
	if p.browser != nil {
		return p.browser, nil
	}
	b, stop, err := p.launch()
	if err != nil {
		return nil, err
	}
	p.browser = b
	p.stop = stop
	p.logger.Info("browser launched")
	return b, nil
}

// Acquire opens a fresh context with the given fingerprint and proxy.
// The caller must Release the session on every path.
func (p *Pool) Acquire(ctx context.Context, fp Fingerprint, proxy *Proxy) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := p.ensure()
	if err != nil {
		return nil, err
	}

	bctx, err := b.NewContext(contextOptions(fp, proxy))
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	if err := applyStealth(bctx, fp, p.opts.BlockedDomains); err != nil {
		_ = bctx.Close()
		return nil, err
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	page.SetDefaultTimeout(float64(p.opts.NavTimeout.Milliseconds()))
	page.SetDefaultNavigationTimeout(float64(p.opts.NavTimeout.Milliseconds()))

	p.logger.Debug("browser context opened", "proxy", proxy.String(), "user_agent", fp.UserAgent)
	return newSession(bctx, page, fp, proxy), nil
}

// Release closes a session's context. Safe to call more than once.
func (p *Pool) Release(s *Session) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		p.logger.Debug("closing browser context", "error", err)
	}
}

// CloseAll shuts down the browser and driver. Calling it again, or on a pool
// that never launched, is a no-op.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.browser == nil {
		return nil
	}

	var errs []error
	if err := p.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	if p.stop != nil {
		if err := p.stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
	}
	p.browser = nil
	p.logger.Info("browser closed")
	return errors.Join(errs...)
}
