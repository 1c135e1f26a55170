package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/model"
)

var (
	addFlags     criteriaFlags
	addFrequency string
	addUserID    string
)

var searchesCmd = &cobra.Command{
	Use:   "searches",
	Short: "Manage saved searches",
}

var searchesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Save a recurring search",
	RunE:  runSearchesAdd,
}

var searchesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved searches",
	RunE:  runSearchesList,
}

var searchesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Delete a saved search and its delivered-link history",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearchesRemove,
}

func init() {
	addFlags.bind(searchesAddCmd)
	searchesAddCmd.Flags().StringVarP(&addFrequency, "frequency", "f", "daily", "one of "+frequencyNames())
	searchesAddCmd.Flags().StringVar(&addUserID, "user", "", "owner id passed through to delivery")

	rootCmd.AddCommand(searchesCmd)
	searchesCmd.AddCommand(searchesAddCmd, searchesListCmd, searchesRemoveCmd)
}

func frequencyNames() string {
	var names []string
	for _, f := range model.Frequencies() {
		names = append(names, f.String())
	}
	return strings.Join(names, ", ")
}

// withStore opens the configured store for one short command.
func withStore(fn func(ctx context.Context, st storeHandle) error) error {
	cfg, logger, syncLogs := setup()
	defer syncLogs()

	ctx := context.Background()
	st, err := setupStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	return fn(ctx, st)
}

func runSearchesAdd(cmd *cobra.Command, args []string) error {
	criteria, err := addFlags.criteria()
	if err != nil {
		return err
	}
	freq, err := model.ParseFrequency(addFrequency)
	if err != nil {
		return fmt.Errorf("--frequency: %w", err)
	}

	search := model.ScheduledSearch{
		ID:        uuid.NewString(),
		UserID:    addUserID,
		Criteria:  criteria,
		Frequency: freq,
		Active:    true,
		CreatedAt: time.Now(),
	}
	return withStore(func(ctx context.Context, st storeHandle) error {
		if err := st.Add(ctx, search); err != nil {
			return err
		}
		fmt.Printf("saved %s (%s)\n", search.ID, freq)
		return nil
	})
}

func runSearchesList(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, st storeHandle) error {
		searches, err := st.ListActive(ctx)
		if err != nil {
			return err
		}
		if len(searches) == 0 {
			fmt.Println("no saved searches")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKEYWORDS\tLOCATION\tRECENCY\tFREQUENCY\tCREATED")
		for _, s := range searches {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				s.ID, s.Criteria.Keywords, orDash(s.Criteria.Location),
				s.Criteria.Recency, s.Frequency, s.CreatedAt.Format("2006-01-02"))
		}
		return w.Flush()
	})
}

func runSearchesRemove(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, st storeHandle) error {
		if err := st.Remove(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("removed %s\n", args[0])
		return nil
	})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
