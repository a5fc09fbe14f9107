//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditline/platform/internal/infra"
	"github.com/creditline/platform/test/integration/testutil"
)

type syncResponse struct {
	Synced      int      `json:"synced"`
	Rejected    []string `json:"rejected"`
	RateVersion string   `json:"rate_version"`
}

func TestAdminCatalogSync(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token := env.MintAdminToken("admin")

	resp := env.POST("/admin/catalog/sync", map[string][]string{
		"codes": {"gtopup_FREEFIRE_100", "mtopup_TMWALLET_50", "not-a-code"},
	}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body syncResponse
	env.DecodeBody(resp, &body)
	assert.Equal(t, 2, body.Synced)
	assert.Equal(t, []string{"not-a-code"}, body.Rejected)
	assert.NotEmpty(t, body.RateVersion)

	// Synced items are listed with priced fields.
	resp = env.GET("/admin/catalog", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Items []struct {
			Code   string `json:"code"`
			Status string `json:"status"`
		} `json:"items"`
	}
	env.DecodeBody(resp, &listing)
	require.Len(t, listing.Items, 2)

	codes := []string{listing.Items[0].Code, listing.Items[1].Code}
	assert.ElementsMatch(t, []string{"gtopup_FREEFIRE_100", "mtopup_TMWALLET_50"}, codes)
}

func TestAdminCatalogSyncIsIdempotent(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token := env.MintAdminToken("admin")

	req := map[string][]string{"codes": {"gtopup_ROV_500"}}
	resp := env.POST("/admin/catalog/sync", req, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.POST("/admin/catalog/sync", req, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.GET("/admin/catalog", token)
	var listing struct {
		Items []json.RawMessage `json:"items"`
	}
	env.DecodeBody(resp, &listing)
	assert.Len(t, listing.Items, 1)
}

func TestAdminWriteRequiresWriteRole(t *testing.T) {
	env := testutil.NewTestEnv(t)

	// Read-only admin can list but not sync.
	viewer := env.MintAdminToken("viewer")

	resp := env.GET("/admin/catalog", viewer)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.POST("/admin/catalog/sync", map[string][]string{"codes": {"gtopup_ROV_500"}}, viewer)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminRejectsPartnerToken(t *testing.T) {
	env := testutil.NewTestEnv(t)

	partnerID, _ := env.SeedPartner("Acme Gaming", "0")

	resp := env.GET("/admin/catalog", env.MintPartnerToken(partnerID))
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminPendingTransactions(t *testing.T) {
	// Seed the PENDING row directly, the way a reconciliation gap leaves it.
	env := testutil.NewTestEnv(t)

	partnerID, _ := env.SeedPartner("Acme Gaming", "0")
	itemID := seedItem(env)

	_, err := env.Pool.Exec(t.Context(),
		`INSERT INTO topup_transactions
		   (id, partner_id, item_id, base_cost, provider_price, sell_price, status, target_ref, created_at)
		 VALUES (gen_random_uuid(), $1, $2, 96.50, 97, 107, 'PENDING', '0812345678', now() - interval '1 hour')`,
		partnerID, itemID)
	require.NoError(t, err)

	resp := env.GET("/admin/transactions/pending", env.MintAdminToken("viewer"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Transactions []struct {
			Status string `json:"status"`
		} `json:"transactions"`
	}
	env.DecodeBody(resp, &body)
	require.Len(t, body.Transactions, 1)
	assert.Equal(t, "PENDING", body.Transactions[0].Status)
}

func TestAdminUpstreamBalance(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/balance" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"code":              "00000",
			"ledger_balance":    "125000.00",
			"available_balance": "118000.00",
		})
	}))
	t.Cleanup(stub.Close)

	env := testutil.NewTestEnv(t, func(cfg *infra.Config) {
		cfg.UpstreamBaseURL = stub.URL
	})

	resp := env.GET("/admin/upstream/balance", env.MintAdminToken("viewer"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	env.DecodeBody(resp, &body)
	assert.Equal(t, "125000", body["ledger_balance"])
	assert.Equal(t, "118000", body["available_balance"])
}
