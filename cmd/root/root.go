// Package root contains the root command for the application
package root

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fjacquet/bankfeed/internal/authflow"
	"fjacquet/bankfeed/internal/config"
	"fjacquet/bankfeed/internal/ebclient"
	"fjacquet/bankfeed/internal/exporter"
	"fjacquet/bankfeed/internal/ingest"
	"fjacquet/bankfeed/internal/store"
	"fjacquet/bankfeed/internal/telegram"
)

var (
	// Log is the shared logger instance for commands
	Log = logrus.New()

	// Cfg is the loaded application configuration, available to all
	// commands after PersistentPreRun
	Cfg *config.Config

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "bankfeed",
		Short: "A CLI tool to ingest bank transactions from an open-banking aggregator and emit spending summaries.",
		Long: `bankfeed ingests bank transactions through an open-banking aggregator API,
deduplicates and stores them, and sends daily/monthly spending summaries to Telegram.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to bankfeed!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize and configure logging
			config.LoadEnv()
			Log = config.ConfigureLogging()

			var err error
			Cfg, err = config.InitializeConfig()
			if err != nil {
				Log.Fatalf("Failed to initialize configuration: %v", err)
			}

			if BanksFile != "" {
				Cfg.Banks.File = BanksFile
			}

			// Set the configured logger for all packages
			ebclient.SetLogger(Log)
			store.SetLogger(Log)
			ingest.SetLogger(Log)
			telegram.SetLogger(Log)
			authflow.SetLogger(Log)
			exporter.SetLogger(Log)
		},
	}

	// BanksFile overrides the configured bank credentials file path
	BanksFile string
)

// Init initializes the root command and all flags
func Init() {
	Cmd.PersistentFlags().StringVarP(&BanksFile, "banks", "b", "", "Path to the bank credentials file")
}

// OpenStore opens the lifecycle-scoped store handle for a command run.
// The caller must Close it when done.
func OpenStore(ctx context.Context) (*store.Store, error) {
	st, err := store.Open(ctx, Cfg.Mongo.URI, Cfg.Mongo.Database)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureIndexes(ctx); err != nil {
		_ = st.Close(ctx)
		return nil, err
	}
	return st, nil
}

// LoadBanks loads the configured bank credentials.
func LoadBanks() ([]config.BankConfig, error) {
	return config.LoadBanks(Cfg.Banks.File)
}
