package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tilgo/leadline/internal/config"
)

var (
	cfgFile   string
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "leadline",
	Short: "Leadline - SMS lead reactivation agent",
	Long:  `Leadline re-engages dormant real estate leads over SMS and classifies their replies.`,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("leadline version %s\n", version)
		if commit != "unknown" {
			fmt.Printf("  commit: %s\n", commit)
		}
		if buildTime != "unknown" {
			fmt.Printf("  built:  %s\n", buildTime)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")

	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(serveCmd, runCmd, migrateCmd, importCmd, leadsCmd, tokenCmd, configCmd, versionCmd)
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return nil, fmt.Errorf("config file is required (use -c flag)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("Configuration is valid\n")
	fmt.Printf("  Listen:    %s\n", cfg.Server.ListenAddr)
	fmt.Printf("  Database:  %s\n", cfg.Database.Path)
	fmt.Printf("  From:      %s\n", cfg.Twilio.From)
	fmt.Printf("  Send time: %s %s\n", cfg.Campaign.SendTime, cfg.Campaign.Timezone)
	fmt.Printf("  Batch:     %d\n", cfg.Campaign.BatchSize)

	return nil
}
