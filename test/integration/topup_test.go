//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditline/platform/internal/infra"
	"github.com/creditline/platform/test/integration/testutil"
)

// upstreamStub fakes the credit-issuing provider's payment endpoint.
type upstreamStub struct {
	*httptest.Server
	calls       atomic.Int64
	lastDestRef atomic.Value
}

func newUpstreamStub(t *testing.T, code, providerTxnID string) *upstreamStub {
	t.Helper()
	stub := &upstreamStub{}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/payment" {
			http.NotFound(w, r)
			return
		}
		stub.calls.Add(1)
		if err := r.ParseForm(); err == nil {
			stub.lastDestRef.Store(r.FormValue("dest_ref"))
		}
		json.NewEncoder(w).Encode(map[string]string{
			"code":           code,
			"desc":           "stub response",
			"transaction_id": providerTxnID,
		})
	}))
	t.Cleanup(stub.Close)
	return stub
}

func (s *upstreamStub) destRef() string {
	v, _ := s.lastDestRef.Load().(string)
	return v
}

type topupResponse struct {
	TransactionID    string `json:"transaction_id"`
	Status           string `json:"status"`
	RemainingBalance string `json:"remaining_balance"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func seedItem(env *testutil.TestEnv) uuid.UUID {
	return env.SeedCatalogItem("gtopup_FREEFIRE_100", "gtopup", "FREEFIRE", "100", "97", "96.50")
}

func TestPartnerTopupSettles(t *testing.T) {
	upstream := newUpstreamStub(t, "00000", "UP-1001")
	env := testutil.NewTestEnv(t, func(cfg *infra.Config) {
		cfg.UpstreamBaseURL = upstream.URL
	})

	partnerID, walletID := env.SeedPartner("Acme Gaming", "5000")
	itemID := seedItem(env)
	token := env.MintPartnerToken(partnerID)

	resp := env.POST("/api/v1/topup", map[string]string{
		"item_id":    itemID.String(),
		"target_ref": "0812345678",
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body topupResponse
	env.DecodeBody(resp, &body)
	assert.Equal(t, "SUCCESS", body.Status)

	remaining, err := decimal.NewFromString(body.RemainingBalance)
	require.NoError(t, err)
	assert.True(t, remaining.Equal(decimal.RequireFromString("4903.5")),
		"remaining = %s", remaining)
	assert.True(t, env.WalletBalance(walletID).Equal(decimal.RequireFromString("4903.5")))

	txnID, err := uuid.Parse(body.TransactionID)
	require.NoError(t, err)
	row := env.FindTransaction(txnID)
	assert.Equal(t, "SUCCESS", row.Status)
	require.NotNil(t, row.ProviderTxnID)
	assert.Equal(t, "UP-1001", *row.ProviderTxnID)

	// The provider correlates on our transaction ID.
	assert.Equal(t, txnID.String(), upstream.destRef())
	assert.Equal(t, []string{"topup.requested", "topup.settled"}, env.OutboxEventTypes())
}

func TestCustomerTopupDebitsBothWallets(t *testing.T) {
	upstream := newUpstreamStub(t, "00000", "UP-1002")
	env := testutil.NewTestEnv(t, func(cfg *infra.Config) {
		cfg.UpstreamBaseURL = upstream.URL
	})

	partnerID, partnerWallet := env.SeedPartner("Acme Gaming", "5000")
	customerID, customerWallet := env.SeedCustomer(partnerID, "Somchai", "200")
	itemID := seedItem(env)
	token := env.MintCustomerToken(customerID)

	resp := env.POST("/topup", map[string]string{
		"item_id":    itemID.String(),
		"partner_id": partnerID.String(),
		"target_ref": "0812345678",
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body topupResponse
	env.DecodeBody(resp, &body)
	assert.Equal(t, "SUCCESS", body.Status)

	// Customer pays the default sell price, partner pays base cost.
	assert.True(t, env.WalletBalance(customerWallet).Equal(decimal.RequireFromString("93")),
		"customer balance = %s", env.WalletBalance(customerWallet))
	assert.True(t, env.WalletBalance(partnerWallet).Equal(decimal.RequireFromString("4903.5")),
		"partner balance = %s", env.WalletBalance(partnerWallet))
}

func TestCustomerTopupUsesPartnerOverridePrice(t *testing.T) {
	upstream := newUpstreamStub(t, "00000", "UP-1003")
	env := testutil.NewTestEnv(t, func(cfg *infra.Config) {
		cfg.UpstreamBaseURL = upstream.URL
	})

	partnerID, _ := env.SeedPartner("Acme Gaming", "5000")
	customerID, customerWallet := env.SeedCustomer(partnerID, "Somchai", "200")
	itemID := seedItem(env)

	admin := env.MintAdminToken("admin")
	resp := env.PUT("/admin/catalog/override", map[string]string{
		"partner_id": partnerID.String(),
		"item_id":    itemID.String(),
		"sell_price": "99",
	}, admin)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = env.POST("/topup", map[string]string{
		"item_id":    itemID.String(),
		"partner_id": partnerID.String(),
		"target_ref": "0812345678",
	}, env.MintCustomerToken(customerID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	assert.True(t, env.WalletBalance(customerWallet).Equal(decimal.RequireFromString("101")),
		"customer balance = %s", env.WalletBalance(customerWallet))
}

func TestPartnerTopupInsufficientBalance(t *testing.T) {
	upstream := newUpstreamStub(t, "00000", "UP-1004")
	env := testutil.NewTestEnv(t, func(cfg *infra.Config) {
		cfg.UpstreamBaseURL = upstream.URL
	})

	partnerID, walletID := env.SeedPartner("Broke Partner", "10")
	itemID := seedItem(env)

	resp := env.POST("/api/v1/topup", map[string]string{
		"item_id":    itemID.String(),
		"target_ref": "0812345678",
	}, env.MintPartnerToken(partnerID))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorResponse
	env.DecodeBody(resp, &body)
	assert.Equal(t, "INSUFFICIENT_PARTNER_BALANCE", body.Code)

	assert.True(t, env.WalletBalance(walletID).Equal(decimal.RequireFromString("10")))
	assert.EqualValues(t, 0, upstream.calls.Load(), "upstream must not be called")
	assert.Empty(t, env.OutboxEventTypes())
}

func TestTopupCompensatesOnUpstreamReject(t *testing.T) {
	upstream := newUpstreamStub(t, "50005", "")
	env := testutil.NewTestEnv(t, func(cfg *infra.Config) {
		cfg.UpstreamBaseURL = upstream.URL
	})

	partnerID, walletID := env.SeedPartner("Acme Gaming", "5000")
	itemID := seedItem(env)

	resp := env.POST("/api/v1/topup", map[string]string{
		"item_id":    itemID.String(),
		"target_ref": "0812345678",
	}, env.MintPartnerToken(partnerID))
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body errorResponse
	env.DecodeBody(resp, &body)
	assert.Equal(t, "UPSTREAM_FAILURE", body.Code)

	// The reserve was refunded and the row marked FAILED.
	assert.True(t, env.WalletBalance(walletID).Equal(decimal.RequireFromString("5000")),
		"balance = %s", env.WalletBalance(walletID))

	assert.Equal(t, []string{"topup.requested", "topup.failed"}, env.OutboxEventTypes())
}

func TestTopupRejectsMissingTargetRef(t *testing.T) {
	env := testutil.NewTestEnv(t)

	partnerID, _ := env.SeedPartner("Acme Gaming", "5000")
	itemID := seedItem(env)

	resp := env.POST("/api/v1/topup", map[string]string{
		"item_id": itemID.String(),
	}, env.MintPartnerToken(partnerID))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorResponse
	env.DecodeBody(resp, &body)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
}

func TestTopupRequiresAuth(t *testing.T) {
	env := testutil.NewTestEnv(t)

	resp := env.POST("/api/v1/topup", map[string]string{
		"item_id":    uuid.NewString(),
		"target_ref": "0812345678",
	}, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}
