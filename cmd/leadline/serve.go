package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tilgo/leadline/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server and daily campaign scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// Credentials may come from a local .env in development
	godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(cfg, version)
	if err != nil {
		return err
	}

	return application.Run(context.Background())
}
