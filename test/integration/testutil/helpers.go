//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/creditline/platform/internal/auth"
)

// GET performs a GET request with optional auth token.
func (env *TestEnv) GET(path, token string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("GET", env.Server.URL+path, nil)
	if err != nil {
		env.t.Fatalf("GET %s: new request: %v", path, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// POST performs a POST request with a JSON body and optional auth token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	return env.doJSON("POST", path, body, token)
}

// PUT performs a PUT request with a JSON body and optional auth token.
func (env *TestEnv) PUT(path string, body interface{}, token string) *http.Response {
	return env.doJSON("PUT", path, body, token)
}

func (env *TestEnv) doJSON(method, path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("%s %s: encode: %v", method, path, err)
		}
	}
	req, err := http.NewRequest(method, env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("%s %s: new request: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// POSTMultipart uploads a file as multipart/form-data with optional auth token.
func (env *TestEnv) POSTMultipart(path, field, filename string, data []byte, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		env.t.Fatalf("POST %s: create form file: %v", path, err)
	}
	if _, err := fw.Write(data); err != nil {
		env.t.Fatalf("POST %s: write form file: %v", path, err)
	}
	mw.Close()

	req, err := http.NewRequest("POST", env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("POST %s: new request: %v", path, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// DecodeBody decodes the response body into dst and closes it.
func (env *TestEnv) DecodeBody(resp *http.Response, dst interface{}) {
	env.t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		env.t.Fatalf("decode response: %v", err)
	}
}

// MintPartnerToken issues a partner-realm JWT for the given partner.
func (env *TestEnv) MintPartnerToken(partnerID uuid.UUID) string {
	env.t.Helper()
	token, err := env.JWTMgr.GenerateToken(auth.RealmPartner, partnerID, "partner@test.local", "partner", "active")
	if err != nil {
		env.t.Fatalf("mint partner token: %v", err)
	}
	return token
}

// MintCustomerToken issues a customer-realm JWT for the given customer.
func (env *TestEnv) MintCustomerToken(customerID uuid.UUID) string {
	env.t.Helper()
	token, err := env.JWTMgr.GenerateToken(auth.RealmCustomer, customerID, "customer@test.local", "customer", "active")
	if err != nil {
		env.t.Fatalf("mint customer token: %v", err)
	}
	return token
}

// MintAdminToken issues an admin-realm JWT with the given role.
func (env *TestEnv) MintAdminToken(role string) string {
	env.t.Helper()
	token, err := env.JWTMgr.GenerateToken(auth.RealmAdmin, uuid.New(), "admin@test.local", role, "active")
	if err != nil {
		env.t.Fatalf("mint admin token: %v", err)
	}
	return token
}

func (env *TestEnv) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// SeedPartner inserts a partner with a wallet holding the given balance.
func (env *TestEnv) SeedPartner(name, balance string) (partnerID, walletID uuid.UUID) {
	env.t.Helper()
	ctx, cancel := env.ctx()
	defer cancel()

	partnerID = uuid.New()
	walletID = uuid.New()
	_, err := env.Pool.Exec(ctx,
		`INSERT INTO wallets (id, kind, owner_id, balance) VALUES ($1, 'partner', $2, $3)`,
		walletID, partnerID, balance)
	if err != nil {
		env.t.Fatalf("seed partner wallet: %v", err)
	}
	_, err = env.Pool.Exec(ctx,
		`INSERT INTO partners (id, name, wallet_id) VALUES ($1, $2, $3)`,
		partnerID, name, walletID)
	if err != nil {
		env.t.Fatalf("seed partner: %v", err)
	}
	return partnerID, walletID
}

// SeedCustomer inserts a customer under the partner with a wallet holding
// the given balance.
func (env *TestEnv) SeedCustomer(partnerID uuid.UUID, name, balance string) (customerID, walletID uuid.UUID) {
	env.t.Helper()
	ctx, cancel := env.ctx()
	defer cancel()

	customerID = uuid.New()
	walletID = uuid.New()
	_, err := env.Pool.Exec(ctx,
		`INSERT INTO wallets (id, kind, owner_id, balance) VALUES ($1, 'customer', $2, $3)`,
		walletID, customerID, balance)
	if err != nil {
		env.t.Fatalf("seed customer wallet: %v", err)
	}
	_, err = env.Pool.Exec(ctx,
		`INSERT INTO customers (id, partner_id, name, wallet_id) VALUES ($1, $2, $3, $4)`,
		customerID, partnerID, name, walletID)
	if err != nil {
		env.t.Fatalf("seed customer: %v", err)
	}
	return customerID, walletID
}

// SeedCatalogItem inserts an ACTIVE catalog item. The category is taken
// from the code's first segment.
func (env *TestEnv) SeedCatalogItem(code, category, company, faceValue, providerPrice, baseCost string) uuid.UUID {
	env.t.Helper()
	ctx, cancel := env.ctx()
	defer cancel()

	itemID := uuid.New()
	_, err := env.Pool.Exec(ctx,
		`INSERT INTO catalog_items (id, code, category, company, face_value, provider_price, base_cost, status, rate_version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 'ACTIVE', 'test')`,
		itemID, code, category, company, faceValue, providerPrice, baseCost)
	if err != nil {
		env.t.Fatalf("seed catalog item: %v", err)
	}
	return itemID
}

// WalletBalance reads a wallet's current balance.
func (env *TestEnv) WalletBalance(walletID uuid.UUID) decimal.Decimal {
	env.t.Helper()
	ctx, cancel := env.ctx()
	defer cancel()

	var raw string
	err := env.Pool.QueryRow(ctx,
		`SELECT balance::text FROM wallets WHERE id = $1`, walletID).Scan(&raw)
	if err != nil {
		env.t.Fatalf("read wallet balance: %v", err)
	}
	bal, err := decimal.NewFromString(raw)
	if err != nil {
		env.t.Fatalf("parse wallet balance %q: %v", raw, err)
	}
	return bal
}

// TransactionRow is a subset of topup_transactions used in assertions.
type TransactionRow struct {
	Status        string
	ProviderTxnID *string
	FailureReason *string
}

// FindTransaction reads a topup transaction row by ID.
func (env *TestEnv) FindTransaction(txnID uuid.UUID) TransactionRow {
	env.t.Helper()
	ctx, cancel := env.ctx()
	defer cancel()

	var row TransactionRow
	err := env.Pool.QueryRow(ctx,
		`SELECT status, provider_txn_id, failure_reason FROM topup_transactions WHERE id = $1`,
		txnID).Scan(&row.Status, &row.ProviderTxnID, &row.FailureReason)
	if err != nil {
		env.t.Fatalf("read transaction %s: %v", txnID, err)
	}
	return row
}

// OutboxEventTypes lists event_type values in emission order.
func (env *TestEnv) OutboxEventTypes() []string {
	env.t.Helper()
	ctx, cancel := env.ctx()
	defer cancel()

	rows, err := env.Pool.Query(ctx,
		`SELECT event_type FROM event_outbox ORDER BY seq_id`)
	if err != nil {
		env.t.Fatalf("read outbox: %v", err)
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var et string
		if err := rows.Scan(&et); err != nil {
			env.t.Fatalf("scan outbox row: %v", err)
		}
		types = append(types, et)
	}
	return types
}
