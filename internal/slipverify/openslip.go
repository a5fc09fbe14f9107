package slipverify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

// OpenSlipClient verifies slips against the OpenSlip API. The API takes the
// image as a base64 data URI in a JSON body and authenticates with a Bearer
// key.
type OpenSlipClient struct {
	baseURL string
	apiKey  string
	logger  *slog.Logger
	client  *http.Client
}

// NewOpenSlipClient creates an OpenSlip backend. The chain applies the
// per-call timeout through the context, so the underlying client carries
// none of its own.
func NewOpenSlipClient(baseURL, apiKey string, logger *slog.Logger) *OpenSlipClient {
	return &OpenSlipClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger,
		client:  &http.Client{},
	}
}

func (c *OpenSlipClient) Name() string { return "openslip" }

type openSlipRequest struct {
	Image string `json:"img"`
}

type openSlipResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		TransRef string `json:"transRef"`
		Amount   struct {
			Amount json.Number `json:"amount"`
		} `json:"amount"`
		Sender struct {
			DisplayName string `json:"displayName"`
			Name        string `json:"name"`
		} `json:"sender"`
		Receiver struct {
			DisplayName string `json:"displayName"`
			Name        string `json:"name"`
		} `json:"receiver"`
	} `json:"data"`
}

// Verify submits the slip image and normalizes the response.
func (c *OpenSlipClient) Verify(ctx context.Context, image []byte) (*Result, error) {
	payload := openSlipRequest{
		Image: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/verify", bytes.NewReader(body))
	if err != nil {
		return nil, TransientError(c.Name(), fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, TransientError(c.Name(), fmt.Errorf("request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, TransientError(c.Name(), fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode >= 500:
		return nil, TransientError(c.Name(), fmt.Errorf("status %d", resp.StatusCode))
	default:
		// 4xx carries the provider's verdict in the body.
		var verdict openSlipResponse
		if json.Unmarshal(data, &verdict) == nil && verdict.Message != "" {
			return nil, c.classify(verdict.Status, verdict.Message)
		}
		return nil, TransientError(c.Name(), fmt.Errorf("status %d", resp.StatusCode))
	}

	var parsed openSlipResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, TransientError(c.Name(), fmt.Errorf("decode response: %w", err))
	}
	if !parsed.Success {
		return nil, c.classify(parsed.Status, parsed.Message)
	}

	amount, err := decimal.NewFromString(parsed.Data.Amount.Amount.String())
	if err != nil {
		return nil, TransientError(c.Name(), fmt.Errorf("unparsable amount %q", parsed.Data.Amount.Amount))
	}

	return &Result{
		ReceiverName: firstNonEmpty(parsed.Data.Receiver.DisplayName, parsed.Data.Receiver.Name),
		SenderName:   firstNonEmpty(parsed.Data.Sender.DisplayName, parsed.Data.Sender.Name),
		TransRef:     parsed.Data.TransRef,
		Amount:       amount,
	}, nil
}

// classify decides whether an unsuccessful verdict is about the slip or
// about the provider. Fraud and invalid-slip statuses are terminal;
// everything else (unreadable image, quota, maintenance) is worth trying
// another backend for.
func (c *OpenSlipClient) classify(status, message string) *Error {
	switch status {
	case "fraud_detected", "invalid_slip", "slip_not_found":
		return TerminalError(c.Name(), fmt.Errorf("%s: %s", status, message))
	default:
		return TransientError(c.Name(), fmt.Errorf("%s: %s", status, message))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
