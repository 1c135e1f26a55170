package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/amishk599/jobscout/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- pool ---

type fakeBrowser struct {
	contexts atomic.Int32
	closes   atomic.Int32
}

var errNoContexts = errors.New("contexts unavailable in tests")

func (b *fakeBrowser) NewContext(...playwright.BrowserNewContextOptions) (playwright.BrowserContext, error) {
	b.contexts.Add(1)
	return nil, errNoContexts
}

func (b *fakeBrowser) Close(...playwright.BrowserCloseOptions) error {
	b.closes.Add(1)
	return nil
}

type fakeLauncher struct {
	launches atomic.Int32
	stops    atomic.Int32
	browser  *fakeBrowser
	failNext atomic.Bool
}

func (l *fakeLauncher) launch() (browserHandle, func() error, error) {
	l.launches.Add(1)
	if l.failNext.CompareAndSwap(true, false) {
		return nil, nil, errors.New("chromium not installed")
	}
	return l.browser, func() error { l.stops.Add(1); return nil }, nil
}

func TestPool_LaunchesOnceUnderConcurrentAcquire(t *testing.T) {
	fl := &fakeLauncher{browser: &fakeBrowser{}}
	pool := NewPool(fl.launch, PoolOptions{}, discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pool.Acquire(context.Background(), RandomFingerprint(), nil)
			if !errors.Is(err, errNoContexts) {
				t.Errorf("Acquire error = %v, want errNoContexts", err)
			}
		}()
	}
	wg.Wait()

	if got := fl.launches.Load(); got != 1 {
		t.Errorf("launches = %d, want 1", got)
	}
	if got := fl.browser.contexts.Load(); got != 10 {
		t.Errorf("contexts requested = %d, want 10", got)
	}
}

func TestPool_LaunchFailureIsRetriedOnNextAcquire(t *testing.T) {
	fl := &fakeLauncher{browser: &fakeBrowser{}}
	fl.failNext.Store(true)
	pool := NewPool(fl.launch, PoolOptions{}, discardLogger())

	if _, err := pool.Acquire(context.Background(), RandomFingerprint(), nil); err == nil || errors.Is(err, errNoContexts) {
		t.Fatalf("expected launch error, got %v", err)
	}
	if _, err := pool.Acquire(context.Background(), RandomFingerprint(), nil); !errors.Is(err, errNoContexts) {
		t.Fatalf("second Acquire error = %v, want errNoContexts", err)
	}
	if got := fl.launches.Load(); got != 2 {
		t.Errorf("launches = %d, want 2", got)
	}
}

func TestPool_CloseAllIsIdempotent(t *testing.T) {
	fl := &fakeLauncher{browser: &fakeBrowser{}}
	pool := NewPool(fl.launch, PoolOptions{}, discardLogger())
	_, _ = pool.Acquire(context.Background(), RandomFingerprint(), nil)

	for i := 0; i < 3; i++ {
		if err := pool.CloseAll(); err != nil {
			t.Fatalf("CloseAll #%d: %v", i+1, err)
		}
	}
	if got := fl.browser.closes.Load(); got != 1 {
		t.Errorf("browser closes = %d, want 1", got)
	}
	if got := fl.stops.Load(); got != 1 {
		t.Errorf("driver stops = %d, want 1", got)
	}
}

func TestPool_CloseAllWithoutLaunch(t *testing.T) {
	fl := &fakeLauncher{browser: &fakeBrowser{}}
	pool := NewPool(fl.launch, PoolOptions{}, discardLogger())

	if err := pool.CloseAll(); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	if fl.launches.Load() != 0 {
		t.Error("CloseAll must not launch a browser")
	}
	_, err := pool.Acquire(context.Background(), RandomFingerprint(), nil)
	if !errors.Is(err, model.ErrPoolClosed) {
		t.Errorf("Acquire after CloseAll = %v, want ErrPoolClosed", err)
	}
}

func TestPool_AcquireHonoursCancelledContext(t *testing.T) {
	fl := &fakeLauncher{browser: &fakeBrowser{}}
	pool := NewPool(fl.launch, PoolOptions{}, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := pool.Acquire(ctx, RandomFingerprint(), nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if fl.launches.Load() != 0 {
		t.Error("cancelled Acquire must not launch")
	}
}

// --- proxy ---

func TestProxyRotator_Disabled(t *testing.T) {
	var nilRotator *ProxyRotator
	if nilRotator.Next() != nil {
		t.Error("nil rotator should yield no proxy")
	}
	if NewProxyRotator("", []int{8000}, "", "").Next() != nil {
		t.Error("rotator without host should yield no proxy")
	}
	if NewProxyRotator("proxy.local", nil, "", "").Next() != nil {
		t.Error("rotator without ports should yield no proxy")
	}
}

func TestProxyRotator_BuildsServerAndCredentials(t *testing.T) {
	r := NewProxyRotator("gate.proxy.io", []int{10001}, "user", "secret")
	p := r.Next()
	if p.Server != "http://gate.proxy.io:10001" {
		t.Errorf("Server = %q", p.Server)
	}
	if p.Username != "user" || p.Password != "secret" {
		t.Errorf("credentials = %q/%q", p.Username, p.Password)
	}

	r = NewProxyRotator("socks5://gate-{port}.proxy.io:1080", []int{7}, "", "")
	if got := r.Next().Server; got != "socks5://gate-7.proxy.io:1080" {
		t.Errorf("templated Server = %q", got)
	}
}

func TestProxyRotator_NextExcludingAvoidsCurrent(t *testing.T) {
	r := NewProxyRotator("gate.proxy.io", []int{1, 2, 3}, "", "")
	current := &Proxy{Server: "http://gate.proxy.io:2"}
	for i := 0; i < 50; i++ {
		if got := r.NextExcluding(current).Server; got == current.Server {
			t.Fatalf("NextExcluding returned the current proxy %q", got)
		}
	}

	single := NewProxyRotator("gate.proxy.io", []int{1}, "", "")
	if got := single.NextExcluding(&Proxy{Server: "http://gate.proxy.io:1"}).Server; got != "http://gate.proxy.io:1" {
		t.Errorf("single-port pool should reuse its only endpoint, got %q", got)
	}
}

// --- stealth ---

func TestShouldBlock(t *testing.T) {
	cases := []struct {
		resourceType, url string
		want              bool
	}{
		{"image", "https://media.licdn.com/logo.png", true},
		{"font", "https://fonts.gstatic.com/x.woff2", true},
		{"stylesheet", "https://static.licdn.com/a.css", true},
		{"media", "https://cdn.example.com/v.mp4", true},
		{"script", "https://www.googletagmanager.com/gtm.js", true},
		{"xhr", "https://px.ads.linkedin.com/collect", true},
		{"document", "https://www.linkedin.com/jobs/view/123", false},
		{"script", "https://static.licdn.com/app.js", false},
		{"script", "https://notdoubleclick.net/x.js", false},
	}
	for _, c := range cases {
		if got := shouldBlock(c.resourceType, c.url, defaultBlockedDomains); got != c.want {
			t.Errorf("shouldBlock(%q, %q) = %v, want %v", c.resourceType, c.url, got, c.want)
		}
	}
}

func TestInitScript_MasksAutomationSignals(t *testing.T) {
	fp := Fingerprint{Locale: "en-GB", HardwareConcurrency: 12}
	script := initScript(fp)
	for _, want := range []string{"'webdriver'", "'plugins'", "'hardwareConcurrency', { get: () => 12 }", "'connection'", `"en-GB", "en"`} {
		if !strings.Contains(script, want) {
			t.Errorf("init script missing %s", want)
		}
	}
}

func TestContextOptions(t *testing.T) {
	fp := Fingerprint{
		UserAgent:      "UA",
		Viewport:       Viewport{1440, 900},
		Locale:         "en-US",
		TimezoneID:     "America/Chicago",
		AcceptLanguage: "en-US,en;q=0.9",
	}
	opts := contextOptions(fp, &Proxy{Server: "http://p:1", Username: "u", Password: "pw"})
	if *opts.UserAgent != "UA" || *opts.Locale != "en-US" || *opts.TimezoneId != "America/Chicago" {
		t.Errorf("identity fields not mapped: %+v", opts)
	}
	if opts.Viewport.Width != 1440 || opts.Viewport.Height != 900 {
		t.Errorf("viewport = %+v", opts.Viewport)
	}
	if opts.ExtraHttpHeaders["Accept-Language"] != "en-US,en;q=0.9" {
		t.Errorf("Accept-Language = %q", opts.ExtraHttpHeaders["Accept-Language"])
	}
	if opts.Proxy == nil || opts.Proxy.Server != "http://p:1" || *opts.Proxy.Username != "u" || *opts.Proxy.Password != "pw" {
		t.Errorf("proxy not mapped: %+v", opts.Proxy)
	}

	if contextOptions(fp, nil).Proxy != nil {
		t.Error("direct connection should carry no proxy")
	}
}

func TestRandomFingerprint_IsCoherent(t *testing.T) {
	for i := 0; i < 50; i++ {
		fp := RandomFingerprint()
		if fp.UserAgent == "" || fp.Viewport.Width == 0 || fp.TimezoneID == "" {
			t.Fatalf("incomplete fingerprint: %+v", fp)
		}
		if !strings.HasPrefix(fp.AcceptLanguage, fp.Locale) {
			t.Fatalf("Accept-Language %q does not match locale %q", fp.AcceptLanguage, fp.Locale)
		}
	}
}

// --- human ---

func TestJitterPoint_StaysInsideAndOffEdges(t *testing.T) {
	box := playwright.Rect{X: 100, Y: 200, Width: 50, Height: 20}
	for _, r := range []float64{0, 0.25, 0.5, 0.999} {
		x, y := jitterPoint(box, func() float64 { return r })
		if x < 110 || x > 140 {
			t.Errorf("r=%v: x = %v outside inner band", r, x)
		}
		if y < 204 || y > 216 {
			t.Errorf("r=%v: y = %v outside inner band", r, y)
		}
	}
}

func TestRandomDelay_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := RandomDelay(ctx, time.Second, 2*time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("RandomDelay ignored cancellation")
	}
}

// growingList reveals `step` more cards each time the last card is scrolled to.
type growingList struct {
	total, shown, step int
	window             int // when > 0, only the last window cards stay mounted
	scrolls            int
}

func (g *growingList) IDs() ([]string, error) {
	from := 0
	if g.window > 0 && g.shown > g.window {
		from = g.shown - g.window
	}
	var ids []string
	for i := from; i < g.shown; i++ {
		ids = append(ids, fmt.Sprintf("card-%02d", i))
	}
	return ids, nil
}

func (g *growingList) ScrollTo(int) error {
	g.scrolls++
	g.shown = min(g.total, g.shown+g.step)
	return nil
}

func fastScroll() ScrollOptions {
	return ScrollOptions{StableRounds: 3, MaxAttempts: 50}
}

func TestScrollCardList_ConvergesOnFullList(t *testing.T) {
	list := &growingList{total: 23, shown: 5, step: 5}
	ids, err := ScrollCardList(context.Background(), list, fastScroll())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 23 {
		t.Fatalf("collected %d ids, want 23", len(ids))
	}
	// 4 growing scrolls (5→10→15→20→23) then 3 stale ones.
	if list.scrolls != 7 {
		t.Errorf("scrolls = %d, want 7", list.scrolls)
	}
}

func TestScrollCardList_KeepsUnmountedCards(t *testing.T) {
	list := &growingList{total: 30, shown: 10, step: 10, window: 10}
	ids, err := ScrollCardList(context.Background(), list, fastScroll())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 30 || ids[0] != "card-00" || ids[29] != "card-29" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestScrollCardList_BoundedByMaxAttempts(t *testing.T) {
	list := &growingList{total: 1000, shown: 1, step: 1}
	opts := fastScroll()
	opts.MaxAttempts = 5
	ids, _ := ScrollCardList(context.Background(), list, opts)
	if list.scrolls != 5 {
		t.Errorf("scrolls = %d, want 5", list.scrolls)
	}
	if len(ids) != 6 {
		t.Errorf("ids = %d, want 6", len(ids))
	}
}

func TestScrollCardList_EmptyList(t *testing.T) {
	list := &growingList{}
	ids, err := ScrollCardList(context.Background(), list, fastScroll())
	if err != nil || len(ids) != 0 || list.scrolls != 0 {
		t.Fatalf("ids=%v err=%v scrolls=%d", ids, err, list.scrolls)
	}
}

// --- watchdog ---

func TestWatchdog_FiresAfterIdleTimeout(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	fired := 0
	w := NewWatchdog(45*time.Second, func() error { fired++; return nil }, discardLogger())
	w.now = func() time.Time { return now }
	w.Touch()

	now = now.Add(30 * time.Second)
	if w.Check() {
		t.Fatal("fired before timeout")
	}
	now = now.Add(20 * time.Second)
	if !w.Check() || fired != 1 {
		t.Fatalf("expected recovery, fired=%d", fired)
	}
	// Recovery resets the clock.
	if w.Check() {
		t.Error("fired twice without new idle period")
	}
}

func TestWatchdog_LogActivityIsHeartbeat(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	w := NewWatchdog(10*time.Second, nil, discardLogger())
	w.now = func() time.Time { return now }
	w.Touch()

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log := w.Logger(base).With("search_id", "s1")

	now = now.Add(9 * time.Second)
	log.Debug("scrolled card list") // below base level, still counts
	now = now.Add(9 * time.Second)
	if w.Check() {
		t.Fatal("debug record should have reset the idle clock")
	}
	if buf.Len() != 0 {
		t.Errorf("debug record leaked past level filter: %q", buf.String())
	}

	log.Info("page loaded")
	if !strings.Contains(buf.String(), "search_id=s1") {
		t.Errorf("attrs lost through wrapper: %q", buf.String())
	}
}

func TestWatchdog_RecoveryErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	now := time.Unix(1_700_000_000, 0)
	w := NewWatchdog(time.Second, func() error { return errors.New("no page") }, logger)
	w.now = func() time.Time { return now }
	w.Touch()
	now = now.Add(2 * time.Second)

	w.Check()
	if !strings.Contains(buf.String(), "watchdog recovery failed") {
		t.Errorf("missing failure log: %q", buf.String())
	}
	if w.Recoveries() != 1 {
		t.Errorf("Recoveries = %d, want 1", w.Recoveries())
	}
}

func TestWatch_DismissesWhenSessionGoesQuiet(t *testing.T) {
	var fired atomic.Int32
	_, stop := Watch(context.Background(), 150*time.Millisecond, func() error { fired.Add(1); return nil }, discardLogger())

	deadline := time.Now().Add(2 * time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if fired.Load() == 0 {
		t.Fatal("watchdog never fired on a quiet session")
	}

	stop()
	time.Sleep(50 * time.Millisecond)
	after := fired.Load()
	time.Sleep(400 * time.Millisecond)
	if fired.Load() != after {
		t.Error("watchdog kept firing after stop")
	}
}

func TestWatch_LoggingKeepsSessionAlive(t *testing.T) {
	var fired atomic.Int32
	log, stop := Watch(context.Background(), 300*time.Millisecond, func() error { fired.Add(1); return nil }, discardLogger())
	defer stop()

	for i := 0; i < 25; i++ {
		log.Debug("extracting", "step", i)
		time.Sleep(20 * time.Millisecond)
	}
	if n := fired.Load(); n != 0 {
		t.Errorf("fired %d times while the session was logging", n)
	}
}

func TestWatch_NonPositiveIdleDisables(t *testing.T) {
	base := discardLogger()
	log, stop := Watch(context.Background(), 0, func() error {
		t.Error("disabled watchdog fired")
		return nil
	}, base)
	defer stop()
	if log != base {
		t.Error("disabled watchdog should return the logger unchanged")
	}
	time.Sleep(150 * time.Millisecond)
}
