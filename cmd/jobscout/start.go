package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/scheduler"
	"github.com/amishk599/jobscout/internal/store"
)

var (
	dryRun        bool
	linkRetention time.Duration
	syncInterval  time.Duration
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the scheduler daemon",
	Long:  "Load saved searches and run each on its cron schedule; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	startCmd.Flags().BoolVar(&dryRun, "dry-run", false, "deliver without recording delivered links")
	startCmd.Flags().DurationVar(&linkRetention, "link-retention", 30*24*time.Hour, "forget delivered links older than this at startup")
	startCmd.Flags().DurationVar(&syncInterval, "sync-interval", time.Minute, "how often to pick up searches added or removed in the store; 0 disables")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, logger, syncLogs := setup()
	defer syncLogs()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cl closers
	defer func() { cl.close(logger) }()

	st, err := setupStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	cl.add(st.Close)

	searches, err := st.ListActive(ctx)
	if err != nil {
		logger.Error("failed to list saved searches", "error", err)
		return err
	}

	var links model.LinkStore = st
	if dryRun {
		logger.Info("dry run: delivered links will not be recorded")
		links = store.NewNopStore()
	} else if err := st.Cleanup(ctx, linkRetention); err != nil {
		logger.Warn("delivered-link cleanup failed", "error", err)
	}

	deliverer, err := setupDeliverer(ctx, cfg, links, &http.Client{Timeout: 30 * time.Second}, logger, &cl)
	if err != nil {
		logger.Error("failed to set up delivery", "error", err)
		return err
	}

	p := buildPipeline(ctx, cfg, logger, &cl)
	sched := scheduler.New(p, buildFilter(cfg), deliverer, scheduler.Options{
		Concurrency: cfg.Scheduler.Concurrency,
		RunTimeout:  cfg.Scheduler.RunTimeout,
	}, logger)

	loaded := sched.LoadInitial(searches)
	logger.Info("scheduler configured",
		"searches", loaded,
		"concurrency", cfg.Scheduler.Concurrency,
		"run_timeout", cfg.Scheduler.RunTimeout.String(),
		"min_score", cfg.Scheduler.MinScore,
		"delivery", cfg.Delivery.Type,
	)
	if loaded == 0 {
		logger.Warn("no active searches, add one with `jobscout searches add`")
	}

	if syncInterval > 0 {
		go syncSearches(ctx, sched, st, syncInterval, logger)
	}

	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		return err
	}

	logger.Info("goodbye")
	return nil
}

// syncSearches reconciles the scheduler with the store until ctx is done.
func syncSearches(ctx context.Context, sched *scheduler.Scheduler, st model.SearchStore, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		saved, err := st.ListActive(ctx)
		if err != nil {
			logger.Warn("search sync failed", "error", err)
			continue
		}
		added, removed := reconcile(sched, saved, logger)
		if added > 0 || removed > 0 {
			logger.Info("searches synced", "added", added, "removed", removed)
		}
	}
}

// reconcile registers searches new to the store and drops those no longer in it.
func reconcile(sched *scheduler.Scheduler, saved []model.ScheduledSearch, logger *slog.Logger) (added, removed int) {
	want := make(map[string]bool, len(saved))
	for _, s := range saved {
		want[s.ID] = true
	}
	have := make(map[string]bool)
	for _, s := range sched.Searches() {
		have[s.ID] = true
		if !want[s.ID] {
			sched.RemoveSearch(s.ID)
			removed++
		}
	}
	for _, s := range saved {
		if have[s.ID] || !s.Active {
			continue
		}
		if err := sched.AddSearch(s); err != nil {
			logger.Warn("skipping saved search", "search_id", s.ID, "error", err)
			continue
		}
		added++
	}
	return added, removed
}
