package main

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tilgo/leadline/internal/app"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a single campaign batch and exit",
	RunE:  runCampaign,
}

func runCampaign(cmd *cobra.Command, args []string) error {
	godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(cfg, version)
	if err != nil {
		return err
	}

	run, err := application.RunOnce(context.Background())
	if err != nil {
		return fmt.Errorf("campaign run failed: %w", err)
	}

	fmt.Printf("Campaign run %s complete\n", run.ID)
	fmt.Printf("  sent:    %d\n", run.Sent)
	fmt.Printf("  failed:  %d\n", run.Failed)
	fmt.Printf("  skipped: %d\n", run.Skipped)
	fmt.Printf("  took:    %s\n", run.Duration().Round(10*time.Millisecond))

	return nil
}
