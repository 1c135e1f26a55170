package browser

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Watchdog runs a recovery action when a session stops logging for too long.
// Log activity is the heartbeat: any record written through Logger counts.
type Watchdog struct {
	timeout time.Duration
	onIdle  func() error
	logger  *slog.Logger
	now     func() time.Time

	last       atomic.Int64
	recoveries atomic.Int64
}

// NewWatchdog returns a Watchdog that calls onIdle after timeout of silence.
func NewWatchdog(timeout time.Duration, onIdle func() error, logger *slog.Logger) *Watchdog {
	w := &Watchdog{timeout: timeout, onIdle: onIdle, logger: logger, now: time.Now}
	w.Touch()
	return w
}

// Touch records activity.
func (w *Watchdog) Touch() {
	w.last.Store(w.now().UnixNano())
}

// Recoveries reports how many times the recovery action has fired.
func (w *Watchdog) Recoveries() int64 {
	return w.recoveries.Load()
}

// Logger wraps base so every record it handles touches the watchdog.
func (w *Watchdog) Logger(base *slog.Logger) *slog.Logger {
	return slog.New(&activityHandler{inner: base.Handler(), w: w})
}

// Check fires the recovery action if the session has been idle past the timeout.
func (w *Watchdog) Check() bool {
	idle := w.now().Sub(time.Unix(0, w.last.Load()))
	if idle < w.timeout {
		return false
	}
	w.recoveries.Add(1)
	w.logger.Warn("session idle, attempting recovery", "idle", idle.Round(time.Second))
	if w.onIdle != nil {
		if err := w.onIdle(); err != nil {
			w.logger.Warn("watchdog recovery failed", "error", err)
		}
	}
	w.Touch()
	return true
}

// Run checks periodically until ctx is done.
func (w *Watchdog) Run(ctx context.Context) {
	interval := w.timeout / 4
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check()
		}
	}
}

// Watch runs a watchdog for one session until stop is called or ctx ends.
// Records written through the returned logger count as activity. A
// non-positive idle disables the watchdog and returns logger unchanged.
func Watch(ctx context.Context, idle time.Duration, onIdle func() error, logger *slog.Logger) (*slog.Logger, context.CancelFunc) {
	if idle <= 0 {
		return logger, func() {}
	}
	wdCtx, stop := context.WithCancel(ctx)
	wd := NewWatchdog(idle, onIdle, logger)
	go wd.Run(wdCtx)
	return wd.Logger(logger), stop
}

// DismissOverlay presses Escape and clicks any visible modal dismiss button.
// Sign-in walls and cookie banners are the usual cause of a stuck page.
func DismissOverlay(page playwright.Page) func() error {
	return func() error {
		if err := page.Keyboard().Press("Escape"); err != nil {
			return err
		}
		btn := page.Locator(`button[aria-label="Dismiss"], button.modal__dismiss, button.contextual-sign-in-modal__modal-dismiss`).First()
		visible, err := btn.IsVisible()
		if err != nil || !visible {
			return nil
		}
		return btn.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(2000)})
	}
}

// activityHandler sees every record, even those below the inner handler's
// level, so debug-level progress still counts as a heartbeat.
type activityHandler struct {
	inner slog.Handler
	w     *Watchdog
}

func (h *activityHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *activityHandler) Handle(ctx context.Context, r slog.Record) error {
	h.w.Touch()
	if !h.inner.Enabled(ctx, r.Level) {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

func (h *activityHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &activityHandler{inner: h.inner.WithAttrs(attrs), w: h.w}
}

func (h *activityHandler) WithGroup(name string) slog.Handler {
	return &activityHandler{inner: h.inner.WithGroup(name), w: h.w}
}
