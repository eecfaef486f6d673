package ebclient_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/bankfeed/internal/config"
	"fjacquet/bankfeed/internal/ebclient"
	"fjacquet/bankfeed/internal/feederror"
	"fjacquet/bankfeed/internal/models"
)

func testBank(t *testing.T) *config.BankConfig {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return &config.BankConfig{
		ID:          "test",
		Name:        "Test Bank",
		Country:     "EE",
		AppID:       "app-id",
		PrivateKey:  keyPEM,
		RedirectURL: "https://localhost:3000/callback",
	}
}

func strPtr(s string) *string { return &s }

func makeRaw(description string) models.RawTransactionRecord {
	return models.RawTransactionRecord{
		TransactionAmount:     models.AmountField{Amount: "10.00", Currency: "EUR"},
		CreditDebitIndicator:  models.Debit,
		Status:                "BOOK",
		BookingDate:           strPtr("2025-06-15"),
		ValueDate:             strPtr("2025-06-15"),
		RemittanceInformation: []string{description},
	}
}

// pageServer replays one canned response per request and records what
// the client asked for.
type pageServer struct {
	responses []func(w http.ResponseWriter)
	requests  []*http.Request
}

func (ps *pageServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "),
			"every request must carry a bearer token")
		ps.requests = append(ps.requests, r)
		require.Less(t, len(ps.requests)-1, len(ps.responses), "unexpected extra request")
		ps.responses[len(ps.requests)-1](w)
	}
}

func jsonPage(txs []models.RawTransactionRecord, continuationKey string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		body := map[string]any{"transactions": txs}
		if continuationKey != "" {
			body["continuation_key"] = continuationKey
		}
		_ = json.NewEncoder(w).Encode(body)
	}
}

func errorPage(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func newTestClient(t *testing.T, ps *pageServer, opts ...ebclient.Option) *ebclient.Client {
	srv := httptest.NewServer(ps.handler(t))
	t.Cleanup(srv.Close)
	return ebclient.New(append([]ebclient.Option{ebclient.WithBaseURL(srv.URL)}, opts...)...)
}

func TestFetchTransactionsMapsResponse(t *testing.T) {
	raw := makeRaw("Test payment")
	raw.Creditor = &models.PartyField{Name: "Shop"}
	ps := &pageServer{responses: []func(http.ResponseWriter){jsonPage([]models.RawTransactionRecord{raw}, "")}}

	client := newTestClient(t, ps)
	txs, err := client.FetchTransactions(context.Background(), testBank(t), "acc-uid", "2025-06-01", "2025-06-15")
	require.NoError(t, err)

	require.Len(t, txs, 1)
	assert.Equal(t, "10", txs[0].Amount.String())
	assert.Equal(t, "EUR", txs[0].Currency)
	assert.Equal(t, models.Debit, txs[0].Direction)
	assert.Equal(t, "Shop", txs[0].CounterpartyName)
	assert.Equal(t, "Test payment", txs[0].Description)
	assert.Equal(t, "BOOK", txs[0].Status)
	assert.Equal(t, "test", txs[0].Source)
	assert.Regexp(t, `^[0-9a-f]{24}$`, txs[0].Hash)

	require.Len(t, ps.requests, 1)
	query := ps.requests[0].URL.Query()
	assert.Equal(t, "2025-06-01", query.Get("date_from"))
	assert.Equal(t, "2025-06-15", query.Get("date_to"))
	assert.Equal(t, "/accounts/acc-uid/transactions", ps.requests[0].URL.Path)
}

func TestFetchTransactionsFollowsContinuationKey(t *testing.T) {
	ps := &pageServer{responses: []func(http.ResponseWriter){
		jsonPage([]models.RawTransactionRecord{makeRaw("Page 1")}, "page2"),
		jsonPage([]models.RawTransactionRecord{makeRaw("Page 2")}, ""),
	}}

	client := newTestClient(t, ps)
	txs, err := client.FetchTransactions(context.Background(), testBank(t), "acc-uid", "2025-06-01", "2025-06-15")
	require.NoError(t, err)

	require.Len(t, txs, 2)
	assert.Equal(t, "Page 1", txs[0].Description)
	assert.Equal(t, "Page 2", txs[1].Description)

	require.Len(t, ps.requests, 2)
	assert.Empty(t, ps.requests[0].URL.Query().Get("continuation_key"))
	assert.Equal(t, "page2", ps.requests[1].URL.Query().Get("continuation_key"))
}

func TestFetchTransactionsEmptyPageWithCursorIsNotEndOfStream(t *testing.T) {
	ps := &pageServer{responses: []func(http.ResponseWriter){
		jsonPage(nil, "page2"),
		jsonPage([]models.RawTransactionRecord{makeRaw("Late arrival")}, ""),
	}}

	client := newTestClient(t, ps)
	txs, err := client.FetchTransactions(context.Background(), testBank(t), "acc-uid", "2025-06-01", "2025-06-15")
	require.NoError(t, err)

	require.Len(t, ps.requests, 2, "an empty page with a cursor must not terminate the fetch")
	require.Len(t, txs, 1)
	assert.Equal(t, "Late arrival", txs[0].Description)
}

func TestFetchTransactionsStopsAtPageCeiling(t *testing.T) {
	const maxPages = 3
	responses := make([]func(http.ResponseWriter), maxPages)
	for i := range responses {
		responses[i] = jsonPage([]models.RawTransactionRecord{makeRaw(fmt.Sprintf("Page %d", i+1))}, fmt.Sprintf("page%d", i+2))
	}
	ps := &pageServer{responses: responses}

	client := newTestClient(t, ps, ebclient.WithMaxPages(maxPages))
	txs, err := client.FetchTransactions(context.Background(), testBank(t), "acc-uid", "2025-06-01", "2025-06-15")
	require.NoError(t, err, "hitting the ceiling is a graceful stop, not a failure")

	assert.Len(t, ps.requests, maxPages)
	assert.Len(t, txs, maxPages)
}

func TestFetchTransactionsDropsRecordsWithoutDate(t *testing.T) {
	valid := makeRaw("Valid")
	invalid := makeRaw("Invalid")
	invalid.ValueDate = nil
	invalid.BookingDate = nil
	ps := &pageServer{responses: []func(http.ResponseWriter){
		jsonPage([]models.RawTransactionRecord{valid, invalid}, ""),
	}}

	client := newTestClient(t, ps)
	txs, err := client.FetchTransactions(context.Background(), testBank(t), "acc-uid", "2025-06-01", "2025-06-15")
	require.NoError(t, err)

	require.Len(t, txs, 1)
	assert.Equal(t, "Valid", txs[0].Description)
}

func TestFetchTransactionsPropagatesAPIError(t *testing.T) {
	ps := &pageServer{responses: []func(http.ResponseWriter){
		errorPage(http.StatusUnauthorized, "Unauthorized"),
	}}

	client := newTestClient(t, ps)
	_, err := client.FetchTransactions(context.Background(), testBank(t), "acc-uid", "2025-06-01", "2025-06-15")

	var apiErr *feederror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Contains(t, apiErr.Body, "Unauthorized")
	assert.Len(t, ps.requests, 1)
}

func TestFetchTransactionsRetriesOnceWithCorrectedDate(t *testing.T) {
	ps := &pageServer{responses: []func(http.ResponseWriter){
		errorPage(http.StatusUnprocessableEntity, `{"error":"date range too far in the past","date_from":"2025-11-17"}`),
		jsonPage([]models.RawTransactionRecord{makeRaw("After correction")}, ""),
	}}

	client := newTestClient(t, ps)
	txs, err := client.FetchTransactions(context.Background(), testBank(t), "acc-uid", "2025-01-01", "2025-12-01")
	require.NoError(t, err)

	require.Len(t, ps.requests, 2)
	assert.Equal(t, "2025-11-17", ps.requests[1].URL.Query().Get("date_from"))
	require.Len(t, txs, 1)
	assert.Equal(t, "After correction", txs[0].Description)
}

func TestFetchTransactionsRetryFailureRaises(t *testing.T) {
	ps := &pageServer{responses: []func(http.ResponseWriter){
		errorPage(http.StatusUnprocessableEntity, `{"error":"too far","date_from":"2025-11-17"}`),
		errorPage(http.StatusUnprocessableEntity, `{"error":"too far","date_from":"2025-11-18"}`),
	}}

	client := newTestClient(t, ps)
	_, err := client.FetchTransactions(context.Background(), testBank(t), "acc-uid", "2025-01-01", "2025-12-01")

	require.Error(t, err, "the correction retry is single-shot, never a loop")
	assert.Len(t, ps.requests, 2)
	var rangeErr *feederror.DateRangeError
	assert.True(t, errors.As(err, &rangeErr))
}

func TestFetchTransactionsServerErrorTriggersNoRetry(t *testing.T) {
	ps := &pageServer{responses: []func(http.ResponseWriter){
		errorPage(http.StatusInternalServerError, "boom"),
	}}

	client := newTestClient(t, ps)
	_, err := client.FetchTransactions(context.Background(), testBank(t), "acc-uid", "2025-06-01", "2025-06-15")

	var apiErr *feederror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Len(t, ps.requests, 1)
}

func TestStartAuth(t *testing.T) {
	ps := &pageServer{responses: []func(http.ResponseWriter){
		func(w http.ResponseWriter) {
			_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://bank.example/authorize"})
		},
	}}

	client := newTestClient(t, ps)
	resp, err := client.StartAuth(context.Background(), testBank(t))
	require.NoError(t, err)
	assert.Equal(t, "https://bank.example/authorize", resp.URL)

	require.Len(t, ps.requests, 1)
	assert.Equal(t, http.MethodPost, ps.requests[0].Method)
	assert.Equal(t, "/auth", ps.requests[0].URL.Path)
}

func TestCreateSession(t *testing.T) {
	ps := &pageServer{responses: []func(http.ResponseWriter){
		func(w http.ResponseWriter) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"session_id": "sess-1",
				"accounts":   []map[string]string{{"uid": "acc-1", "iban": "EE382200221020145685"}},
			})
		},
	}}

	client := newTestClient(t, ps)
	resp, err := client.CreateSession(context.Background(), testBank(t), "auth-code")
	require.NoError(t, err)

	assert.Equal(t, "sess-1", resp.SessionID)
	require.Len(t, resp.Accounts, 1)
	assert.Equal(t, "acc-1", resp.Accounts[0].UID)
	assert.Equal(t, "EE382200221020145685", resp.Accounts[0].IBAN)
}
