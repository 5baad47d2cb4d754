package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tilgo/leadline/internal/db"
	"github.com/tilgo/leadline/internal/models"
	"github.com/tilgo/leadline/internal/repository"
)

var (
	leadsStatus string
	leadsSearch string
	leadsLimit  int
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List leads in the database",
	Long: `List leads, optionally filtered by status or a name/phone search.
Statuses: pending, sent, replied, failed, opted_out.`,
	RunE: runLeads,
}

func init() {
	leadsCmd.Flags().StringVar(&leadsStatus, "status", "", "filter by status")
	leadsCmd.Flags().StringVar(&leadsSearch, "search", "", "match against name or phone")
	leadsCmd.Flags().IntVar(&leadsLimit, "limit", 50, "maximum rows to print")
}

func runLeads(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	leads := repository.NewLeadRepository(database.DB)
	list, err := leads.List(models.LeadFilter{
		Status: leadsStatus,
		Search: leadsSearch,
		Limit:  leadsLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to list leads: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PHONE\tNAME\tSTATUS\tTEMP\tLAST REPLY")
	for _, l := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", l.Phone, l.Name(), l.Status, l.Temperature, l.LastReply)
	}
	return w.Flush()
}
