package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/creditline/platform/internal/auth"
	"github.com/creditline/platform/internal/domain"
	"github.com/creditline/platform/internal/service"
)

// TopupHandler handles purchase endpoints for both realms.
type TopupHandler struct {
	topups *service.TopupService
}

// NewTopupHandler creates a new TopupHandler.
func NewTopupHandler(topups *service.TopupService) *TopupHandler {
	return &TopupHandler{topups: topups}
}

// topupRequest is the body of POST /topup and POST /api/v1/topup.
type topupRequest struct {
	ItemID    string `json:"item_id"`
	PartnerID string `json:"partner_id,omitempty"` // customer realm only
	TargetRef string `json:"target_ref"`
	ServerRef string `json:"server_ref,omitempty"`
}

// topupResponse is the success shape of both purchase endpoints.
type topupResponse struct {
	TransactionID    string `json:"transaction_id"`
	Status           string `json:"status"`
	RemainingBalance string `json:"remaining_balance"`
}

// CustomerTopup handles POST /topup. The customer buys through a partner
// shop; both the customer and the partner wallets are debited.
func (h *TopupHandler) CustomerTopup(w http.ResponseWriter, r *http.Request) {
	customerID, err := subjectIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req topupRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid JSON body"))
		return
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid item_id"))
		return
	}
	partnerID, err := uuid.Parse(req.PartnerID)
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid partner_id"))
		return
	}

	result, err := h.topups.Purchase(r.Context(), service.PurchaseRequest{
		PartnerID:  partnerID,
		CustomerID: &customerID,
		ItemID:     itemID,
		TargetRef:  req.TargetRef,
		ServerRef:  req.ServerRef,
	})
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, topupResponse{
		TransactionID:    result.Transaction.ID.String(),
		Status:           string(result.Transaction.Status),
		RemainingBalance: result.RemainingBalance.String(),
	})
}

// PartnerTopup handles POST /api/v1/topup, the B2B path. The partner orders
// for its own customer and pays base cost from its wallet.
func (h *TopupHandler) PartnerTopup(w http.ResponseWriter, r *http.Request) {
	partnerID, err := subjectIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req topupRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid JSON body"))
		return
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid item_id"))
		return
	}

	result, err := h.topups.Purchase(r.Context(), service.PurchaseRequest{
		PartnerID: partnerID,
		ItemID:    itemID,
		TargetRef: req.TargetRef,
		ServerRef: req.ServerRef,
	})
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, topupResponse{
		TransactionID:    result.Transaction.ID.String(),
		Status:           string(result.Transaction.Status),
		RemainingBalance: result.RemainingBalance.String(),
	})
}

func subjectIDFromContext(r *http.Request) (uuid.UUID, error) {
	sub := auth.SubjectFromContext(r.Context())
	if sub == "" {
		return uuid.Nil, domain.ErrUnauthorized("no subject in context")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, domain.ErrUnauthorized("invalid subject")
	}
	return id, nil
}
