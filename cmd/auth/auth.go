// Package auth handles the interactive bank authorization command
package auth

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fjacquet/bankfeed/cmd/root"
	"fjacquet/bankfeed/internal/authflow"
	"fjacquet/bankfeed/internal/config"
	"fjacquet/bankfeed/internal/ebclient"
)

// Cmd represents the auth command
var Cmd = &cobra.Command{
	Use:   "auth <bankId>",
	Short: "Authorize access to a bank and store the session",
	Long: `Run the delegated authorization flow for one configured bank.
Opens an authorization URL, exchanges the pasted redirect for a session
and stores it for subsequent fetches.`,
	Args: cobra.ExactArgs(1),
	Run:  authFunc,
}

func authFunc(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	banks, err := root.LoadBanks()
	if err != nil {
		root.Log.Fatalf("Error loading bank configuration: %v", err)
	}
	bank, err := config.FindBank(banks, args[0])
	if err != nil {
		root.Log.Fatalf("%v", err)
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
	)

	if err := authflow.Run(ctx, os.Stdin, os.Stdout, client, st, bank); err != nil {
		root.Log.Fatalf("Authorization failed: %v", err)
	}
}
