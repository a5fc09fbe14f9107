package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/creditline/platform/internal/domain"
)

// CodeAccepted is the upstream response code for a payment that was both
// accepted and settled. The provider has no intermediate SUBMITTED state;
// anything else is a rejection.
const CodeAccepted = "00000"

// UpstreamClient talks to the wholesale top-up provider. All money leaving
// the platform goes through SubmitPayment.
type UpstreamClient struct {
	baseURL     string
	username    string
	password    string
	callbackURL string
	logger      *slog.Logger
	client      *http.Client
}

// NewUpstreamClient creates a provider client with a bounded timeout.
func NewUpstreamClient(baseURL, username, password, callbackURL string, timeout time.Duration, logger *slog.Logger) *UpstreamClient {
	return &UpstreamClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		username:    username,
		password:    password,
		callbackURL: callbackURL,
		logger:      logger,
		client:      &http.Client{Timeout: timeout},
	}
}

// PaymentRequest describes one top-up order to the provider.
type PaymentRequest struct {
	Category  domain.Category
	Company   string
	Amount    decimal.Decimal // provider price, what the platform pays
	TargetRef string          // game ID / phone number being topped up
	ServerRef string          // optional game server
	DestRef   string          // our transaction ID, echoed back on callbacks
}

// PaymentResult is the provider's answer to a submitted payment.
type PaymentResult struct {
	Code          string
	Description   string
	ProviderTxnID string
	BillID        string
	Balance       decimal.Decimal
}

// Accepted reports whether the provider settled the payment.
func (r *PaymentResult) Accepted() bool { return r.Code == CodeAccepted }

// Balance is the provider-side float for our account.
type Balance struct {
	Ledger    decimal.Decimal
	Available decimal.Decimal
}

type upstreamResponse struct {
	Code          string `json:"code"`
	Desc          string `json:"desc"`
	TransactionID string `json:"transaction_id"`
	BillID        string `json:"bill_id"`
	Balance       string `json:"balance"`
}

type balanceResponse struct {
	Code      string `json:"code"`
	Desc      string `json:"desc"`
	Ledger    string `json:"ledger_balance"`
	Available string `json:"available_balance"`
}

// SubmitPayment posts one order to the provider. A transport failure or a
// non-accepted response code comes back as domain.ErrUpstreamFailure; the
// caller decides whether to compensate.
func (c *UpstreamClient) SubmitPayment(ctx context.Context, payment PaymentRequest) (*PaymentResult, error) {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)
	form.Set("type", string(payment.Category))
	form.Set("dest_ref", payment.DestRef)
	form.Set("pay_to_amount", payment.Amount.String())
	form.Set("pay_to_company", payment.Company)
	form.Set("pay_to_ref1", payment.TargetRef)
	if payment.ServerRef != "" {
		form.Set("pay_to_ref2", payment.ServerRef)
	}
	form.Set("pay_to_ref3", c.callbackURL)

	resp, err := c.postForm(ctx, "/api/payment", form)
	if err != nil {
		return nil, domain.ErrUpstreamFailure("provider unreachable", err)
	}

	var body upstreamResponse
	if err := json.Unmarshal(resp, &body); err != nil {
		return nil, domain.ErrUpstreamFailure("provider returned malformed response", err)
	}

	result := &PaymentResult{
		Code:          body.Code,
		Description:   body.Desc,
		ProviderTxnID: body.TransactionID,
		BillID:        body.BillID,
		Balance:       parseAmount(body.Balance),
	}
	if !result.Accepted() {
		c.logger.Warn("upstream payment rejected",
			"code", body.Code, "desc", body.Desc, "dest_ref", payment.DestRef)
		return result, domain.ErrUpstreamFailure(
			fmt.Sprintf("provider rejected payment: code %s %s", body.Code, body.Desc), nil)
	}
	return result, nil
}

// GetBalance queries the provider-side account balance.
func (c *UpstreamClient) GetBalance(ctx context.Context) (*Balance, error) {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)
	form.Set("type", "balance_inquiry")

	resp, err := c.postForm(ctx, "/api/balance", form)
	if err != nil {
		return nil, domain.ErrUpstreamFailure("provider unreachable", err)
	}

	var body balanceResponse
	if err := json.Unmarshal(resp, &body); err != nil {
		return nil, domain.ErrUpstreamFailure("provider returned malformed response", err)
	}
	if body.Code != CodeAccepted {
		return nil, domain.ErrUpstreamFailure(
			fmt.Sprintf("provider rejected balance inquiry: code %s %s", body.Code, body.Desc), nil)
	}
	return &Balance{
		Ledger:    parseAmount(body.Ledger),
		Available: parseAmount(body.Available),
	}, nil
}

func (c *UpstreamClient) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return data, nil
}

func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
