package slipverify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

// SlipSureClient verifies slips against the SlipSure API, the second
// backend in the chain. SlipSure takes the raw image bytes as a multipart
// upload and authenticates with an x-api-key header.
type SlipSureClient struct {
	baseURL string
	apiKey  string
	logger  *slog.Logger
	client  *http.Client
}

// NewSlipSureClient creates a SlipSure backend.
func NewSlipSureClient(baseURL, apiKey string, logger *slog.Logger) *SlipSureClient {
	return &SlipSureClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger,
		client:  &http.Client{},
	}
}

func (c *SlipSureClient) Name() string { return "slipsure" }

type slipSureResponse struct {
	Valid    bool   `json:"valid"`
	Reason   string `json:"reason"`
	Fraud    bool   `json:"fraud"`
	TransRef string `json:"trans_ref"`
	Amount   string `json:"amount"`
	Sender   struct {
		Name string `json:"name"`
	} `json:"sender"`
	Receiver struct {
		Name string `json:"name"`
	} `json:"receiver"`
}

// Verify uploads the slip image and normalizes the response.
func (c *SlipSureClient) Verify(ctx context.Context, image []byte) (*Result, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "slip.jpg")
	if err != nil {
		return nil, TransientError(c.Name(), fmt.Errorf("build multipart: %w", err))
	}
	if _, err := part.Write(image); err != nil {
		return nil, TransientError(c.Name(), fmt.Errorf("build multipart: %w", err))
	}
	if err := writer.Close(); err != nil {
		return nil, TransientError(c.Name(), fmt.Errorf("build multipart: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/slips/verify", &buf)
	if err != nil {
		return nil, TransientError(c.Name(), fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, TransientError(c.Name(), fmt.Errorf("request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, TransientError(c.Name(), fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, TransientError(c.Name(), fmt.Errorf("status %d", resp.StatusCode))
	}

	var parsed slipSureResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, TransientError(c.Name(), fmt.Errorf("decode response: %w", err))
	}

	if !parsed.Valid {
		if parsed.Fraud {
			return nil, TerminalError(c.Name(), fmt.Errorf("fraud: %s", parsed.Reason))
		}
		// SlipSure reports unreadable images as invalid without the fraud
		// flag; treat that as the provider failing, not the slip.
		return nil, TransientError(c.Name(), fmt.Errorf("not verified: %s", parsed.Reason))
	}

	amount, err := decimal.NewFromString(parsed.Amount)
	if err != nil {
		return nil, TransientError(c.Name(), fmt.Errorf("unparsable amount %q", parsed.Amount))
	}

	return &Result{
		ReceiverName: parsed.Receiver.Name,
		SenderName:   parsed.Sender.Name,
		TransRef:     parsed.TransRef,
		Amount:       amount,
	}, nil
}
