package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/creditline/platform/internal/domain"
	"github.com/creditline/platform/internal/service"
)

// AdminHandler handles the operator endpoints.
type AdminHandler struct {
	catalog *service.CatalogService
	wallets *service.WalletService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(catalog *service.CatalogService, wallets *service.WalletService) *AdminHandler {
	return &AdminHandler{catalog: catalog, wallets: wallets}
}

// syncRequest is the body of POST /admin/catalog/sync.
type syncRequest struct {
	Codes []string `json:"codes"`
}

// SyncCatalog handles POST /admin/catalog/sync.
func (h *AdminHandler) SyncCatalog(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid JSON body"))
		return
	}
	if len(req.Codes) == 0 {
		RespondError(w, domain.ErrValidation("codes required"))
		return
	}

	result, err := h.catalog.Sync(r.Context(), req.Codes)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

// ListCatalog handles GET /admin/catalog.
func (h *AdminHandler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListItems(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// overrideRequest is the body of PUT /admin/catalog/override.
type overrideRequest struct {
	PartnerID string `json:"partner_id"`
	ItemID    string `json:"item_id"`
	SellPrice string `json:"sell_price"`
}

// SetOverride handles PUT /admin/catalog/override.
func (h *AdminHandler) SetOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid JSON body"))
		return
	}

	partnerID, err := uuid.Parse(req.PartnerID)
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid partner_id"))
		return
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid item_id"))
		return
	}
	sellPrice, err := decimal.NewFromString(req.SellPrice)
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid sell_price"))
		return
	}

	if err := h.catalog.SetOverride(r.Context(), partnerID, itemID, sellPrice); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusNoContent, nil)
}

// PendingTransactions handles GET /admin/transactions/pending, the stale
// PENDING list for the reconciliation sweep.
func (h *AdminHandler) PendingTransactions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.wallets.ListStalePending(r.Context(), 100)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"transactions": rows})
}

// UpstreamBalance handles GET /admin/upstream/balance.
func (h *AdminHandler) UpstreamBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.wallets.UpstreamBalance(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{
		"ledger_balance":    balance.Ledger.String(),
		"available_balance": balance.Available.String(),
	})
}
