package stock

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kasapos/backend-kasa/internal/common"
)

// Handler wires the stock service to HTTP.
type Handler struct {
	Svc *Service
}

// Get handles GET /stock/{itemId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	itemID, err := common.ParseID(chi.URLParam(r, "itemId"))
	if err != nil {
		common.WriteError(w, common.Validation("invalid item id"))
		return
	}
	e, err := h.Svc.Get(r.Context(), itemID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": e})
}

// List handles GET /stock.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Svc.List(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": entries})
}

// Grouped handles GET /stock/grouped.
func (h *Handler) Grouped(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Svc.GroupedByCategory(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": groups})
}

// SetQuantity handles PUT /stock/{itemId}.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	itemID, err := common.ParseID(chi.URLParam(r, "itemId"))
	if err != nil {
		common.WriteError(w, common.Validation("invalid item id"))
		return
	}
	var payload struct {
		Quantity decimal.Decimal `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteError(w, common.Validation("invalid payload"))
		return
	}
	actor, _ := common.ActorFrom(r.Context())
	e, err := h.Svc.SetQuantity(r.Context(), itemID, payload.Quantity, actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": e})
}

// Adjust handles POST /stock/{itemId}/adjust.
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	itemID, err := common.ParseID(chi.URLParam(r, "itemId"))
	if err != nil {
		common.WriteError(w, common.Validation("invalid item id"))
		return
	}
	var payload struct {
		Delta decimal.Decimal `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteError(w, common.Validation("invalid payload"))
		return
	}
	actor, _ := common.ActorFrom(r.Context())
	e, err := h.Svc.Adjust(r.Context(), itemID, payload.Delta, actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": e})
}
