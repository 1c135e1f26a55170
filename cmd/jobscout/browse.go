package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/browse"
	"github.com/amishk599/jobscout/internal/filter"
	"github.com/amishk599/jobscout/internal/logging"
	"github.com/amishk599/jobscout/internal/pipeline"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Pick a saved search, run it and browse the results (TUI)",
	Long:  "Shows the saved-search picker, runs the chosen search once, then opens the split-pane results view.",
	RunE:  runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg, _, syncLogs := setup()
	defer syncLogs()
	// Any log output before the alt-screen starts corrupts the display.
	silent := logging.Discard()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cl closers
	defer func() { cl.close(silent) }()

	st, err := setupStore(ctx, cfg, silent)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	cl.add(st.Close)

	searches, err := st.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(searches) == 0 {
		fmt.Println("No saved searches. Add one with `jobscout searches add`.")
		return nil
	}

	p := buildPipeline(ctx, cfg, silent, &cl)
	postFilter := buildFilter(cfg)

	for {
		idx, err := browse.RunSearchPicker(searches)
		if err != nil {
			return err
		}
		if idx < 0 {
			return nil
		}
		search := searches[idx]

		res, err := browse.RunLoader(ctx, "Running "+search.Criteria.Keywords, func(ctx context.Context) (pipeline.Result, error) {
			return p.Run(ctx, search.Criteria)
		})
		if err != nil {
			fmt.Printf("search failed: %v\n", err)
			continue
		}

		matched, rejected := filter.Partition(postFilter, res.Listings)
		quit, err := browse.RunResultsTUI(search.Criteria.Keywords, matched, rejected)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}
