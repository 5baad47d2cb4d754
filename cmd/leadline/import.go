package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tilgo/leadline/internal/db"
	"github.com/tilgo/leadline/internal/repository"
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import leads from a CSV file",
	Long: `Import leads from a CSV file. The header row names the columns;
phone is required, first_name, last_name, email, audience, phase, city
and notes are optional. Duplicate phone numbers are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	leads := repository.NewLeadRepository(database.DB)
	result, err := leads.ImportCSV(file)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("Imported %d of %d leads (%d skipped)\n",
		result.Imported, result.Total, result.Skipped)
	for _, e := range result.Errors {
		fmt.Printf("  warning: %s\n", e)
	}

	return nil
}
