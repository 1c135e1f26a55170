package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/browse"
	"github.com/amishk599/jobscout/internal/filter"
	"github.com/amishk599/jobscout/internal/logging"
	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/pipeline"
)

var (
	searchFlags  criteriaFlags
	searchBrowse bool
	searchAll    bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one search now and print the results",
	Long:  "Crawls, fetches and scores one search synchronously. Nothing is delivered or recorded.",
	RunE:  runSearch,
}

func init() {
	searchFlags.bind(searchCmd)
	searchCmd.Flags().BoolVar(&searchBrowse, "browse", false, "open the results in the interactive browser")
	searchCmd.Flags().BoolVar(&searchAll, "all", false, "also print listings the post-filter dropped")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	criteria, err := searchFlags.criteria()
	if err != nil {
		return err
	}

	cfg, logger, syncLogs := setup()
	defer syncLogs()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cl closers
	defer func() { cl.close(logger) }()

	if searchBrowse {
		// Log lines would tear the TUI.
		p := buildPipeline(ctx, cfg, logging.Discard(), &cl)
		res, err := browse.RunLoader(ctx, "Searching "+criteria.Keywords, func(ctx context.Context) (pipeline.Result, error) {
			return p.Run(ctx, criteria)
		})
		if err != nil {
			return err
		}
		matched, rejected := filter.Partition(buildFilter(cfg), res.Listings)
		_, err = browse.RunResultsTUI(criteria.Keywords, matched, rejected)
		return err
	}

	p := buildPipeline(ctx, cfg, logger, &cl)
	res, err := p.Run(ctx, criteria)
	if err != nil {
		logger.Error("search stopped", "stage", res.Stage, "error", err)
		return err
	}
	logger.Info("search finished",
		"crawled", res.Crawled,
		"fetched", res.Fetched,
		"enriched", len(res.Listings),
		"elapsed", res.Elapsed.Round(100*time.Millisecond).String(),
	)

	matched, rejected := filter.Partition(buildFilter(cfg), res.Listings)
	printListings(fmt.Sprintf("%d matched", len(matched)), matched)
	if searchAll {
		printListings(fmt.Sprintf("%d filtered out", len(rejected)), rejected)
	}
	return nil
}

var (
	printHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	printDimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func printListings(header string, listings []model.EnrichedListing) {
	fmt.Println(printHeaderStyle.Render(header))
	for _, l := range listings {
		score := "  -"
		if l.Score != nil {
			score = fmt.Sprintf("%3d", *l.Score)
		}
		fmt.Printf("%s  %s @ %s (%s)\n", score, l.Title, l.Company, l.Location)
		if len(l.TechStack) > 0 {
			fmt.Println(printDimStyle.Render("     " + strings.Join(l.TechStack, ", ")))
		}
		fmt.Println(printDimStyle.Render("     " + l.Link))
	}
	fmt.Println()
}
