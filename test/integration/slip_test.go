//go:build integration

package integration

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditline/platform/internal/infra"
	"github.com/creditline/platform/test/integration/testutil"
)

// openSlipStub fakes the primary slip-verification provider.
type openSlipStub struct {
	*httptest.Server
	calls atomic.Int64
}

type openSlipResult struct {
	TransRef string
	Amount   string
	Sender   string
	Receiver string
}

func newOpenSlipStub(t *testing.T, result *openSlipResult, status int) *openSlipStub {
	t.Helper()
	stub := &openSlipStub{}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/verify" {
			http.NotFound(w, r)
			return
		}
		stub.calls.Add(1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"transRef": result.TransRef,
				"amount":   map[string]json.Number{"amount": json.Number(result.Amount)},
				"sender":   map[string]string{"displayName": result.Sender},
				"receiver": map[string]string{"displayName": result.Receiver},
			},
		})
	}))
	t.Cleanup(stub.Close)
	return stub
}

type slipResponse struct {
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	ProviderRef   string `json:"provider_ref"`
}

var slipImage = []byte("\xff\xd8\xff\xe0fake-jpeg-bytes")

func TestSlipTopupCreditsWallet(t *testing.T) {
	verifier := newOpenSlipStub(t, &openSlipResult{
		TransRef: "SLIP-9001",
		Amount:   "500",
		Sender:   "นาย สมชาย ใจดี",
		Receiver: "CREDITLINE CO LTD",
	}, http.StatusOK)
	env := testutil.NewTestEnv(t, func(cfg *infra.Config) {
		cfg.OpenSlipBaseURL = verifier.URL
	})

	partnerID, walletID := env.SeedPartner("Acme Gaming", "100")
	token := env.MintPartnerToken(partnerID)

	resp := env.POSTMultipart("/payment/topup", "slip", "slip.jpg", slipImage, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body slipResponse
	env.DecodeBody(resp, &body)
	assert.Equal(t, "SLIP-9001", body.ProviderRef)

	amount, err := decimal.NewFromString(body.Amount)
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("500")))

	assert.True(t, env.WalletBalance(walletID).Equal(decimal.RequireFromString("600")),
		"balance = %s", env.WalletBalance(walletID))
	assert.Equal(t, []string{"wallet.credited"}, env.OutboxEventTypes())
}

func TestSlipTopupAcceptsJSONEnvelope(t *testing.T) {
	verifier := newOpenSlipStub(t, &openSlipResult{
		TransRef: "SLIP-9005",
		Amount:   "300",
		Sender:   "สมชาย",
		Receiver: "CREDITLINE CO LTD",
	}, http.StatusOK)
	env := testutil.NewTestEnv(t, func(cfg *infra.Config) {
		cfg.OpenSlipBaseURL = verifier.URL
	})

	partnerID, walletID := env.SeedPartner("Acme Gaming", "0")

	resp := env.POST("/payment/topup", map[string]string{
		"slipImage": base64.StdEncoding.EncodeToString(slipImage),
	}, env.MintPartnerToken(partnerID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body slipResponse
	env.DecodeBody(resp, &body)
	assert.Equal(t, "SLIP-9005", body.ProviderRef)
	assert.True(t, env.WalletBalance(walletID).Equal(decimal.RequireFromString("300")))
}

func TestSlipTopupDuplicateRejected(t *testing.T) {
	verifier := newOpenSlipStub(t, &openSlipResult{
		TransRef: "SLIP-9002",
		Amount:   "250",
		Sender:   "สมหญิง",
		Receiver: "CREDITLINE CO",
	}, http.StatusOK)
	env := testutil.NewTestEnv(t, func(cfg *infra.Config) {
		cfg.OpenSlipBaseURL = verifier.URL
	})

	partnerID, walletID := env.SeedPartner("Acme Gaming", "0")
	token := env.MintPartnerToken(partnerID)

	resp := env.POSTMultipart("/payment/topup", "slip", "slip.jpg", slipImage, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Same slip again: the provider reference is already recorded.
	resp = env.POSTMultipart("/payment/topup", "slip", "slip.jpg", slipImage, token)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var body errorResponse
	env.DecodeBody(resp, &body)
	assert.Equal(t, "DUPLICATE_SLIP", body.Code)

	// Credited exactly once.
	assert.True(t, env.WalletBalance(walletID).Equal(decimal.RequireFromString("250")),
		"balance = %s", env.WalletBalance(walletID))
}

func TestSlipTopupWrongReceiverRejected(t *testing.T) {
	verifier := newOpenSlipStub(t, &openSlipResult{
		TransRef: "SLIP-9003",
		Amount:   "500",
		Sender:   "สมชาย",
		Receiver: "SOME OTHER SHOP",
	}, http.StatusOK)
	env := testutil.NewTestEnv(t, func(cfg *infra.Config) {
		cfg.OpenSlipBaseURL = verifier.URL
	})

	partnerID, walletID := env.SeedPartner("Acme Gaming", "0")

	resp := env.POSTMultipart("/payment/topup", "slip", "slip.jpg", slipImage, env.MintPartnerToken(partnerID))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorResponse
	env.DecodeBody(resp, &body)
	assert.Equal(t, "SLIP_REJECTED", body.Code)
	assert.True(t, env.WalletBalance(walletID).IsZero())
}

func TestSlipTopupFallsBackToSecondProvider(t *testing.T) {
	// Primary always 500s; the chain should fall through to the backup.
	primary := newOpenSlipStub(t, nil, http.StatusInternalServerError)
	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/slips/verify" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"valid":     true,
			"trans_ref": "SLIP-9004",
			"amount":    "750",
			"sender":    map[string]string{"name": "สมชาย"},
			"receiver":  map[string]string{"name": "CREDITLINE CO LTD"},
		})
	}))
	t.Cleanup(backup.Close)

	env := testutil.NewTestEnv(t, func(cfg *infra.Config) {
		cfg.OpenSlipBaseURL = primary.URL
		cfg.SlipSureBaseURL = backup.URL
	})

	partnerID, walletID := env.SeedPartner("Acme Gaming", "0")

	resp := env.POSTMultipart("/payment/topup", "slip", "slip.jpg", slipImage, env.MintPartnerToken(partnerID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body slipResponse
	env.DecodeBody(resp, &body)
	assert.Equal(t, "SLIP-9004", body.ProviderRef)
	assert.EqualValues(t, 1, primary.calls.Load())
	assert.True(t, env.WalletBalance(walletID).Equal(decimal.RequireFromString("750")))
}

func TestSlipTopupUnverifiableWhenAllProvidersDown(t *testing.T) {
	primary := newOpenSlipStub(t, nil, http.StatusInternalServerError)
	env := testutil.NewTestEnv(t, func(cfg *infra.Config) {
		cfg.OpenSlipBaseURL = primary.URL
		// SlipSure stays unreachable.
	})

	partnerID, walletID := env.SeedPartner("Acme Gaming", "0")

	resp := env.POSTMultipart("/payment/topup", "slip", "slip.jpg", slipImage, env.MintPartnerToken(partnerID))
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body errorResponse
	env.DecodeBody(resp, &body)
	assert.Equal(t, "SLIP_UNVERIFIABLE", body.Code)
	assert.True(t, env.WalletBalance(walletID).IsZero())
}
