// Package export handles the CSV export command
package export

import (
	"context"

	"github.com/spf13/cobra"

	"fjacquet/bankfeed/cmd/root"
	"fjacquet/bankfeed/internal/exporter"
	"fjacquet/bankfeed/internal/models"
)

var (
	output string
	source string
)

// Cmd represents the export command
var Cmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored transactions to CSV",
	Long:  `Export stored transactions to a CSV file, optionally filtered by bank.`,
	Run:   exportFunc,
}

func init() {
	Cmd.Flags().StringVarP(&output, "output", "o", "", "Output CSV file")
	Cmd.Flags().StringVarP(&source, "source", "s", "", "Only export transactions of this bank id")
	_ = Cmd.MarkFlagRequired("output")
}

func exportFunc(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	st, err := root.OpenStore(ctx)
	if err != nil {
		root.Log.Fatalf("Error opening store: %v", err)
	}
	defer func() {
		if err := st.Close(ctx); err != nil {
			root.Log.Warnf("Failed to close store: %v", err)
		}
	}()

	transactions, err := st.List(ctx, source)
	if err != nil {
		root.Log.Fatalf("Error listing transactions: %v", err)
	}
	if transactions == nil {
		root.Log.Warn("No transactions stored, writing empty CSV")
		transactions = []models.Transaction{}
	}

	if err := exporter.WriteTransactionsToCSV(transactions, output); err != nil {
		root.Log.Fatalf("Error writing CSV: %v", err)
	}
	root.Log.Infof("Exported %d transactions to %s", len(transactions), output)
}
