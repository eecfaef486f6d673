// Package authflow implements the interactive authorization-code
// exchange that creates and stores a bank session.
package authflow

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fjacquet/bankfeed/internal/config"
	"fjacquet/bankfeed/internal/ebclient"
	"fjacquet/bankfeed/internal/models"
)

// Use the centralized logger from config package
var log = config.Logger

// SetLogger allows setting a custom logger
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// APIClient is the aggregator surface the auth flow needs.
type APIClient interface {
	StartAuth(ctx context.Context, bank *config.BankConfig) (*ebclient.AuthResponse, error)
	CreateSession(ctx context.Context, bank *config.BankConfig, code string) (*ebclient.SessionResponse, error)
}

// SessionWriter persists the session produced by a successful flow.
type SessionWriter interface {
	PutSession(ctx context.Context, session *models.Session) error
}

// Run walks the user through the delegated authorization flow for one
// bank: it prints the authorization URL, reads the pasted redirect URL
// from in, exchanges the embedded code for a session and stores it.
func Run(ctx context.Context, in io.Reader, out io.Writer, api APIClient, sessions SessionWriter, bank *config.BankConfig) error {
	fmt.Fprintf(out, "Starting auth for %s (%s)...\n", bank.Name, bank.Country)

	auth, err := api.StartAuth(ctx, bank)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nOpen this URL in your browser:\n%s\n\n", auth.URL)
	fmt.Fprint(out, "Paste the full redirect URL after auth: ")

	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("failed to read redirect URL: %w", err)
	}

	code, err := extractCode(strings.TrimSpace(line))
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Creating session...")
	resp, err := api.CreateSession(ctx, bank, code)
	if err != nil {
		return err
	}
	if len(resp.Accounts) == 0 {
		return fmt.Errorf("no accounts returned from session")
	}

	for _, account := range resp.Accounts {
		fmt.Fprintf(out, "Authorized account: %s (uid: %s)\n", account.IBAN, account.UID)
	}

	session := &models.Session{
		BankID:     bank.ID,
		SessionID:  resp.SessionID,
		Accounts:   resp.Accounts,
		ValidUntil: time.Now().UTC().Add(ebclient.SessionValidity),
	}
	if err := sessions.PutSession(ctx, session); err != nil {
		return err
	}

	log.WithField("bank", bank.Name).Info("Session stored")
	fmt.Fprintf(out, "Session for %s stored.\n", bank.Name)
	return nil
}

// extractCode pulls the authorization code parameter out of the redirect URL.
func extractCode(redirectURL string) (string, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", fmt.Errorf("no 'code' parameter found in redirect URL")
	}
	return code, nil
}
