package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"github.com/amishk599/jobscout/internal/filter"
	"github.com/amishk599/jobscout/internal/logging"
	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/pipeline"
)

// Runner executes one discovery run for a search.
type Runner interface {
	Run(ctx context.Context, criteria model.SearchCriteria) (pipeline.Result, error)
}

// Run statuses reported for every fire.
const (
	StatusOK      = "ok"
	StatusEmpty   = "empty"
	StatusFailed  = "failed"
	StatusTimeout = "timeout"
)

// stageQueued marks a run that never got a pipeline slot.
const stageQueued = "queued"

// RunReport summarizes one fire for operators.
type RunReport struct {
	SearchID  string
	Status    string
	Stage     string
	Crawled   int
	Fetched   int
	Enriched  int
	Delivered int
	Elapsed   time.Duration
	Err       error
}

// Options configures the scheduler.
type Options struct {
	Concurrency int           // global cap on concurrent pipeline runs
	RunTimeout  time.Duration // overall deadline for one run
}

type entry struct {
	search  model.ScheduledSearch
	entryID cron.EntryID
}

// Scheduler registers one cron trigger per active search and runs the
// pipeline when a trigger fires. A trigger that fires while the previous run
// of the same search is still going is skipped.
type Scheduler struct {
	cron      *cron.Cron
	runner    Runner
	filter    model.ListingFilter
	deliverer model.Deliverer
	sem       *semaphore.Weighted
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	active  map[string]entry
	baseCtx context.Context
}

// New creates a scheduler. filter is applied to every run's listings before
// delivery; a nil filter passes everything.
func New(runner Runner, f model.ListingFilter, deliverer model.Deliverer, opts Options, logger *slog.Logger) *Scheduler {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if f == nil {
		f = filter.Chain{}
	}
	cronLogger := logging.NewCronLogger(logger)
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		runner:    runner,
		filter:    f,
		deliverer: deliverer,
		sem:       semaphore.NewWeighted(int64(opts.Concurrency)),
		timeout:   opts.RunTimeout,
		logger:    logger,
		active:    make(map[string]entry),
		baseCtx:   context.Background(),
	}
}

// AddSearch validates the search and registers its trigger. Adding an id
// that is already active is a no-op.
func (s *Scheduler) AddSearch(search model.ScheduledSearch) error {
	if err := search.Criteria.Validate(); err != nil {
		return fmt.Errorf("search %s: %w", search.ID, err)
	}
	return s.register(search)
}

// RemoveSearch unregisters the trigger for id. Removing an unknown id is a no-op.
func (s *Scheduler) RemoveSearch(id string) {
	s.mu.Lock()
	e, ok := s.active[id]
	delete(s.active, id)
	s.mu.Unlock()

	if !ok {
		return
	}
	s.cron.Remove(e.entryID)
	s.logger.Info("search removed", "search_id", id)
}

// LoadInitial registers already-persisted searches without re-validating
// their criteria. Searches that cannot be scheduled are logged and skipped.
// It returns how many were registered.
func (s *Scheduler) LoadInitial(searches []model.ScheduledSearch) int {
	loaded := 0
	for _, search := range searches {
		if err := s.register(search); err != nil {
			s.logger.Error("failed to schedule stored search", "search_id", search.ID, "error", err)
			continue
		}
		loaded++
	}
	s.logger.Info("loaded stored searches", "loaded", loaded, "total", len(searches))
	return loaded
}

// Searches returns a snapshot of the active searches ordered by id.
func (s *Scheduler) Searches() []model.ScheduledSearch {
	s.mu.Lock()
	out := make([]model.ScheduledSearch, 0, len(s.active))
	for _, e := range s.active {
		out = append(out, e.search)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Run starts the triggers and blocks until ctx is cancelled. In-flight runs
// are cancelled and waited for before it returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	n := len(s.active)
	s.mu.Unlock()

	s.logger.Info("starting scheduler", "searches", n, "run_timeout", s.timeout.String())
	s.cron.Start()

	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	<-s.cron.Stop().Done()
	return nil
}

func (s *Scheduler) register(search model.ScheduledSearch) error {
	if !search.Active {
		s.logger.Debug("skipping inactive search", "search_id", search.ID)
		return nil
	}
	spec, err := search.Frequency.CronSpec()
	if err != nil {
		return fmt.Errorf("search %s: %w", search.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[search.ID]; ok {
		return nil
	}
	entryID, err := s.cron.AddFunc(spec, func() { s.fire(search) })
	if err != nil {
		return fmt.Errorf("schedule search %s: %w", search.ID, err)
	}
	s.active[search.ID] = entry{search: search, entryID: entryID}

	s.logger.Info("search scheduled",
		"search_id", search.ID,
		"keywords", search.Criteria.Keywords,
		"frequency", search.Frequency.String(),
		"cron", spec,
	)
	return nil
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}

// fire runs the pipeline for one search and hands the filtered listings to
// the deliverer. The pipeline slot is released before delivery.
func (s *Scheduler) fire(search model.ScheduledSearch) RunReport {
	ctx := s.runContext()
	report, listings := s.runOnce(ctx, search)

	logger := s.logger.With(
		"search_id", search.ID,
		"keywords", search.Criteria.Keywords,
		"status", report.Status,
		"stage", report.Stage,
	)
	switch report.Status {
	case StatusFailed, StatusTimeout:
		logger.Error("search run failed", "elapsed", report.Elapsed.Round(time.Millisecond), "error", report.Err)
	default:
		logger.Info("search run finished",
			"crawled", report.Crawled,
			"fetched", report.Fetched,
			"enriched", report.Enriched,
			"delivered", report.Delivered,
			"elapsed", report.Elapsed.Round(time.Millisecond),
		)
	}

	if ctx.Err() != nil {
		return report
	}
	err := s.deliverer.Deliver(ctx, model.Delivery{
		SearchID: search.ID,
		UserID:   search.UserID,
		Listings: listings,
	})
	if err != nil {
		logger.Error("delivery failed", "error", err)
	}
	return report
}

func (s *Scheduler) runOnce(ctx context.Context, search model.ScheduledSearch) (RunReport, []model.EnrichedListing) {
	start := time.Now()
	report := RunReport{SearchID: search.ID, Stage: stageQueued}
	listings := []model.EnrichedListing{}

	err := ctx.Err()
	if err == nil {
		err = s.sem.Acquire(ctx, 1)
	}
	if err != nil {
		report.Status = StatusFailed
		report.Err = err
		report.Elapsed = time.Since(start)
		return report, listings
	}

	res, err := s.runHeld(ctx, search.Criteria)

	if res.Stage != "" {
		report.Stage = res.Stage
	}
	report.Crawled = res.Crawled
	report.Fetched = res.Fetched
	report.Enriched = len(res.Listings)
	report.Elapsed = time.Since(start)

	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		report.Status = StatusTimeout
		report.Err = err
		return report, listings
	case err != nil:
		report.Status = StatusFailed
		report.Err = err
		return report, listings
	}

	listings = filter.Apply(s.filter, res.Listings)
	report.Delivered = len(listings)
	report.Status = StatusOK
	if len(listings) == 0 {
		report.Status = StatusEmpty
	}
	return report, listings
}

// runHeld runs the pipeline while holding an already acquired semaphore slot
// and releases it on every path. A panic in the runner becomes an error.
func (s *Scheduler) runHeld(ctx context.Context, criteria model.SearchCriteria) (res pipeline.Result, err error) {
	defer s.sem.Release(1)

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
	}
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			res = pipeline.Result{}
			err = fmt.Errorf("pipeline panicked: %v", r)
		}
	}()
	return s.runner.Run(runCtx, criteria)
}
