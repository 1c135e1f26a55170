package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/notifier"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Delivery subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test delivery",
	Long:  "Sends one sample listing through the configured delivery, bypassing dedupe.",
	RunE:  runNotifyTest,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	cfg, logger, syncLogs := setup()
	defer syncLogs()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var cl closers
	defer func() { cl.close(logger) }()

	d, err := setupDeliverer(ctx, cfg, nil, &http.Client{Timeout: 30 * time.Second}, logger, &cl)
	if err != nil {
		logger.Error("failed to set up delivery", "error", err)
		return err
	}
	if err := notifier.SendTestMessage(ctx, d); err != nil {
		logger.Error("test delivery failed", "error", err)
		return err
	}
	logger.Info("test delivery sent successfully", "type", cfg.Delivery.Type)
	return nil
}
