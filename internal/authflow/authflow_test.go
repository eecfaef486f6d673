package authflow_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/bankfeed/internal/authflow"
	"fjacquet/bankfeed/internal/config"
	"fjacquet/bankfeed/internal/ebclient"
	"fjacquet/bankfeed/internal/models"
)

type fakeAPI struct {
	authResp    *ebclient.AuthResponse
	authErr     error
	sessionResp *ebclient.SessionResponse
	sessionErr  error
	gotCode     string
}

func (f *fakeAPI) StartAuth(_ context.Context, _ *config.BankConfig) (*ebclient.AuthResponse, error) {
	return f.authResp, f.authErr
}

func (f *fakeAPI) CreateSession(_ context.Context, _ *config.BankConfig, code string) (*ebclient.SessionResponse, error) {
	f.gotCode = code
	return f.sessionResp, f.sessionErr
}

type fakeSessionWriter struct {
	stored *models.Session
	err    error
}

func (f *fakeSessionWriter) PutSession(_ context.Context, session *models.Session) error {
	f.stored = session
	return f.err
}

func testBank() *config.BankConfig {
	return &config.BankConfig{
		ID:      "lhv",
		Name:    "LHV",
		Country: "EE",
		AppID:   "app-1",
	}
}

func TestRunStoresSession(t *testing.T) {
	api := &fakeAPI{
		authResp: &ebclient.AuthResponse{URL: "https://auth.example/authorize?state=abc"},
		sessionResp: &ebclient.SessionResponse{
			SessionID: "sess-1",
			Accounts: []models.SessionAccount{
				{UID: "uid-1", IBAN: "EE123456789012345678"},
			},
		},
	}
	sessions := &fakeSessionWriter{}

	in := strings.NewReader("https://redirect.example/?code=auth-code-42&state=abc\n")
	var out bytes.Buffer

	err := authflow.Run(context.Background(), in, &out, api, sessions, testBank())
	require.NoError(t, err)

	assert.Equal(t, "auth-code-42", api.gotCode)
	require.NotNil(t, sessions.stored)
	assert.Equal(t, "lhv", sessions.stored.BankID)
	assert.Equal(t, "sess-1", sessions.stored.SessionID)
	assert.Len(t, sessions.stored.Accounts, 1)
	assert.False(t, sessions.stored.ValidUntil.IsZero())

	assert.Contains(t, out.String(), "https://auth.example/authorize?state=abc")
	assert.Contains(t, out.String(), "Authorized account: EE123456789012345678 (uid: uid-1)")
	assert.Contains(t, out.String(), "Session for LHV stored.")
}

func TestRunRedirectWithoutCode(t *testing.T) {
	api := &fakeAPI{
		authResp: &ebclient.AuthResponse{URL: "https://auth.example/authorize"},
	}
	sessions := &fakeSessionWriter{}

	in := strings.NewReader("https://redirect.example/?state=abc\n")
	var out bytes.Buffer

	err := authflow.Run(context.Background(), in, &out, api, sessions, testBank())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no 'code' parameter")
	assert.Nil(t, sessions.stored)
}

func TestRunNoAccounts(t *testing.T) {
	api := &fakeAPI{
		authResp:    &ebclient.AuthResponse{URL: "https://auth.example/authorize"},
		sessionResp: &ebclient.SessionResponse{SessionID: "sess-1"},
	}
	sessions := &fakeSessionWriter{}

	in := strings.NewReader("https://redirect.example/?code=abc\n")
	var out bytes.Buffer

	err := authflow.Run(context.Background(), in, &out, api, sessions, testBank())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no accounts")
	assert.Nil(t, sessions.stored)
}

func TestRunStartAuthFailure(t *testing.T) {
	api := &fakeAPI{authErr: errors.New("unreachable")}
	sessions := &fakeSessionWriter{}

	err := authflow.Run(context.Background(), strings.NewReader(""), &bytes.Buffer{}, api, sessions, testBank())
	require.Error(t, err)
	assert.Nil(t, sessions.stored)
}

func TestRunInputWithoutTrailingNewline(t *testing.T) {
	api := &fakeAPI{
		authResp: &ebclient.AuthResponse{URL: "https://auth.example/authorize"},
		sessionResp: &ebclient.SessionResponse{
			SessionID: "sess-2",
			Accounts:  []models.SessionAccount{{UID: "uid-2", IBAN: "EE987"}},
		},
	}
	sessions := &fakeSessionWriter{}

	in := strings.NewReader("https://redirect.example/?code=tail-code")
	var out bytes.Buffer

	err := authflow.Run(context.Background(), in, &out, api, sessions, testBank())
	require.NoError(t, err)
	assert.Equal(t, "tail-code", api.gotCode)
}
