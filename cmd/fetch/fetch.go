// Package fetch handles the transaction ingestion command
package fetch

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"fjacquet/bankfeed/cmd/root"
	"fjacquet/bankfeed/internal/dateutils"
	"fjacquet/bankfeed/internal/ebclient"
	"fjacquet/bankfeed/internal/ingest"
	"fjacquet/bankfeed/internal/store"
	"fjacquet/bankfeed/internal/summarizer"
	"fjacquet/bankfeed/internal/telegram"
)

var fullLookback bool

// Cmd represents the fetch command
var Cmd = &cobra.Command{
	Use:   "fetch",
	Short: "Ingest transactions from all configured banks",
	Long: `Ingest transactions from all configured banks through the aggregator API,
store them deduplicated, and send spending summaries to Telegram.`,
	Run: fetchFunc,
}

func init() {
	Cmd.Flags().BoolVar(&fullLookback, "full-lookback", false, "Re-fetch the full lookback window instead of the incremental one")
}

func fetchFunc(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	banks, err := root.LoadBanks()
	if err != nil {
		root.Log.Fatalf("Error loading bank configuration: %v", err)
	}

	st, err := root.OpenStore(ctx)
	if err != nil {
		root.Log.Fatalf("Error opening store: %v", err)
	}
	defer func() {
		if err := st.Close(ctx); err != nil {
			root.Log.Warnf("Failed to close store: %v", err)
		}
	}()

	client := ebclient.New(
		ebclient.WithBaseURL(root.Cfg.API.BaseURL),
		ebclient.WithTimeout(time.Duration(root.Cfg.API.TimeoutSeconds)*time.Second),
		ebclient.WithMaxPages(root.Cfg.API.MaxPages),
	)

	ingester := ingest.New(banks, client, st, st,
		ingest.WithLookback(root.Cfg.Fetch.MaxLookbackDays, root.Cfg.Fetch.OverlapDays))

	report, err := ingester.Run(ctx, fullLookback)
	if err != nil {
		root.Log.Fatalf("Ingestion failed: %v", err)
	}
	for bankID, result := range report.Results {
		root.Log.Infof("[%s] fetched %d transactions, %d new", bankID, result.Fetched, result.New)
	}

	sendSummaries(ctx, st)
	root.Log.Info("Fetch completed successfully!")
}

// sendSummaries emits the daily summary, plus last month's summary on
// the first day of the month. Summary failures are warnings: they never
// undo a successful ingestion run.
func sendSummaries(ctx context.Context, st *store.Store) {
	if root.Cfg.Telegram.BotToken == "" {
		root.Log.Debug("No Telegram bot token configured, skipping summaries")
		return
	}

	notifier, err := telegram.NewNotifier(root.Cfg.Telegram.BotToken, root.Cfg.Telegram.ChatID, root.Cfg.Telegram.GrafanaURL)
	if err != nil {
		root.Log.Warnf("Failed to initialize Telegram notifier: %v", err)
		return
	}

	today := dateutils.Today()

	daily, err := summarizer.Daily(ctx, st, today)
	if err != nil {
		root.Log.Warnf("Failed to build daily summary: %v", err)
	} else if daily != nil {
		if err := notifier.SendDaily(daily); err != nil {
			root.Log.Warnf("Failed to send daily summary: %v", err)
		} else {
			root.Log.Info("Daily summary sent to Telegram")
		}
	}

	if today.Day() != 1 {
		return
	}
	lastMonth := today.AddDate(0, -1, 0)
	monthly, err := summarizer.Monthly(ctx, st, lastMonth.Year(), lastMonth.Month())
	if err != nil {
		root.Log.Warnf("Failed to build monthly summary: %v", err)
	} else if monthly != nil {
		if err := notifier.SendMonthly(monthly); err != nil {
			root.Log.Warnf("Failed to send monthly summary: %v", err)
		} else {
			root.Log.Info("Monthly summary sent to Telegram")
		}
	}
}
