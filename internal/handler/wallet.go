package handler

import (
	"net/http"
	"strconv"

	"github.com/creditline/platform/internal/domain"
	"github.com/creditline/platform/internal/service"
)

// WalletHandler handles wallet balance and transaction endpoints.
type WalletHandler struct {
	wallets *service.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(wallets *service.WalletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// balanceResponse is the shape of GET /wallet/balance.
type balanceResponse struct {
	WalletID string `json:"wallet_id"`
	Balance  string `json:"balance"`
}

// GetBalance handles GET /wallet/balance.
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	partnerID, err := subjectIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	wallet, err := h.wallets.PartnerBalance(r.Context(), partnerID)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, balanceResponse{
		WalletID: wallet.ID.String(),
		Balance:  wallet.Balance.String(),
	})
}

// txListResponse wraps a list of transactions with cursor.
type txListResponse struct {
	Transactions []domain.Transaction `json:"transactions"`
	NextCursor   string               `json:"next_cursor,omitempty"`
}

// GetTransactions handles GET /wallet/transactions with cursor-based pagination.
func (h *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	partnerID, err := subjectIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	rows, next, err := h.wallets.ListTransactions(r.Context(), partnerID, cursor, limit)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, txListResponse{Transactions: rows, NextCursor: next})
}
