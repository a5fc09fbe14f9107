package handler

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/creditline/platform/internal/domain"
	"github.com/creditline/platform/internal/service"
)

// maxSlipSize bounds the uploaded slip image (5 MiB).
const maxSlipSize = 5 << 20

// PaymentHandler handles slip-funded wallet top-ups.
type PaymentHandler struct {
	topups *service.WalletTopupService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(topups *service.WalletTopupService) *PaymentHandler {
	return &PaymentHandler{topups: topups}
}

// slipResponse is the success shape of POST /payment/topup.
type slipResponse struct {
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	ProviderRef   string `json:"provider_ref"`
}

// SlipTopup handles POST /payment/topup. The slip image arrives as a JSON
// {"slipImage": "<base64>"} envelope, a multipart "slip" file, or the raw
// request body.
func (h *PaymentHandler) SlipTopup(w http.ResponseWriter, r *http.Request) {
	partnerID, err := subjectIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	image, err := readSlipImage(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	topup, err := h.topups.TopupFromSlip(r.Context(), partnerID, image)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, slipResponse{
		TransactionID: topup.ID.String(),
		Amount:        topup.Amount.String(),
		ProviderRef:   topup.ProviderTxnRef,
	})
}

func readSlipImage(r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxSlipSize)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			SlipImage string `json:"slipImage"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SlipImage == "" {
			return nil, domain.ErrValidation("missing slipImage")
		}
		// Mobile clients send data URIs; keep only the base64 payload.
		payload := req.SlipImage
		if i := strings.Index(payload, "base64,"); i >= 0 {
			payload = payload[i+len("base64,"):]
		}
		image, err := base64.StdEncoding.DecodeString(payload)
		if err != nil || len(image) == 0 {
			return nil, domain.ErrValidation("slipImage is not valid base64")
		}
		return image, nil
	}

	if file, _, err := r.FormFile("slip"); err == nil {
		defer file.Close()
		image, err := io.ReadAll(file)
		if err != nil {
			return nil, domain.ErrValidation("unreadable slip upload")
		}
		return image, nil
	}

	image, err := io.ReadAll(r.Body)
	if err != nil || len(image) == 0 {
		return nil, domain.ErrValidation("missing slip image")
	}
	return image, nil
}
