// Package summary handles the on-demand summary command
package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fjacquet/bankfeed/cmd/root"
	"fjacquet/bankfeed/internal/dateutils"
	"fjacquet/bankfeed/internal/summarizer"
	"fjacquet/bankfeed/internal/telegram"
)

var (
	month string
	send  bool
)

// Cmd represents the summary command
var Cmd = &cobra.Command{
	Use:   "summary",
	Short: "Print a spending summary for today or a given month",
	Long: `Build a spending summary from the stored transactions and print it.
Without flags the summary covers today; --month YYYY-MM selects a month.
--send also delivers the summary to the configured Telegram chat.`,
	Run: summaryFunc,
}

func init() {
	Cmd.Flags().StringVarP(&month, "month", "m", "", "Month to summarize (YYYY-MM)")
	Cmd.Flags().BoolVar(&send, "send", false, "Also send the summary to Telegram")
}

func summaryFunc(cmd *cobra.Command, args []string) {
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

	var notifier *telegram.Notifier
	if send {
		if root.Cfg.Telegram.BotToken == "" {
			root.Log.Fatal("Cannot send: no Telegram bot token configured")
		}
		notifier, err = telegram.NewNotifier(root.Cfg.Telegram.BotToken, root.Cfg.Telegram.ChatID, root.Cfg.Telegram.GrafanaURL)
		if err != nil {
			root.Log.Fatalf("Failed to initialize Telegram notifier: %v", err)
		}
	}

	if month == "" {
		daily, err := summarizer.Daily(ctx, st, dateutils.Today())
		if err != nil {
			root.Log.Fatalf("Failed to build daily summary: %v", err)
		}
		if daily == nil {
			fmt.Println("No transactions today.")
			return
		}
		fmt.Println(telegram.FormatDaily(daily, root.Cfg.Telegram.GrafanaURL))
		if notifier != nil {
			if err := notifier.SendDaily(daily); err != nil {
				root.Log.Fatalf("Failed to send daily summary: %v", err)
			}
		}
		return
	}

	parsed, err := time.Parse(dateutils.DateLayoutMonth, month)
	if err != nil {
		root.Log.Fatalf("Invalid --month value %q, expected YYYY-MM", month)
	}
	monthly, err := summarizer.Monthly(ctx, st, parsed.Year(), parsed.Month())
	if err != nil {
		root.Log.Fatalf("Failed to build monthly summary: %v", err)
	}
	if monthly == nil {
		fmt.Printf("No transactions in %s.\n", month)
		return
	}
	fmt.Println(telegram.FormatMonthly(monthly, root.Cfg.Telegram.GrafanaURL))
	if notifier != nil {
		if err := notifier.SendMonthly(monthly); err != nil {
			root.Log.Fatalf("Failed to send monthly summary: %v", err)
		}
	}
}
