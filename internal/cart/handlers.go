package cart

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kasapos/backend-kasa/internal/common"
)

// Handler wires the cart service to HTTP.
type Handler struct {
	Svc *Service
}

func cartID(r *http.Request) (int64, error) {
	return common.ParseID(chi.URLParam(r, "id"))
}

// Create handles POST /carts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := common.ActorFrom(r.Context())
	c, err := h.Svc.Create(r.Context(), actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": c})
}

// Get handles GET /carts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := cartID(r)
	if err != nil {
		common.WriteError(w, common.Validation("invalid cart id"))
		return
	}
	v, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": v})
}

// ListDesks handles GET /carts/desks.
func (h *Handler) ListDesks(w http.ResponseWriter, r *http.Request) {
	carts, err := h.Svc.ListDesks(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": carts})
}

// GetByDesk handles GET /carts/desks/{deskNumber}.
func (h *Handler) GetByDesk(w http.ResponseWriter, r *http.Request) {
	v, err := h.Svc.GetByDesk(r.Context(), chi.URLParam(r, "deskNumber"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": v})
}

// SetDeskNumber handles PATCH /carts/{id}/desk. A null deskNumber clears
// the binding.
func (h *Handler) SetDeskNumber(w http.ResponseWriter, r *http.Request) {
	id, err := cartID(r)
	if err != nil {
		common.WriteError(w, common.Validation("invalid cart id"))
		return
	}
	var payload struct {
		DeskNumber *string `json:"deskNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteError(w, common.Validation("invalid payload"))
		return
	}
	actor, _ := common.ActorFrom(r.Context())
	c, err := h.Svc.SetDeskNumber(r.Context(), id, payload.DeskNumber, actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// AddItem handles POST /carts/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, err := cartID(r)
	if err != nil {
		common.WriteError(w, common.Validation("invalid cart id"))
		return
	}
	var payload struct {
		ItemID   int64           `json:"itemId"`
		Quantity decimal.Decimal `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteError(w, common.Validation("invalid payload"))
		return
	}
	actor, _ := common.ActorFrom(r.Context())
	ci, err := h.Svc.AddItem(r.Context(), id, payload.ItemID, payload.Quantity, actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": ci})
}

// UpdateItem handles PATCH /carts/{id}/items/{itemId}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := cartID(r)
	if err != nil {
		common.WriteError(w, common.Validation("invalid cart id"))
		return
	}
	cartItemID, err := common.ParseID(chi.URLParam(r, "itemId"))
	if err != nil {
		common.WriteError(w, common.Validation("invalid cart item id"))
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
	ci, err := h.Svc.UpdateItemQuantity(r.Context(), id, cartItemID, payload.Quantity, actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ci})
}

// ReturnItem handles DELETE /carts/{id}/items/{itemId}. An optional
// ?quantity= returns part of the line; omitted means the whole line.
func (h *Handler) ReturnItem(w http.ResponseWriter, r *http.Request) {
	id, err := cartID(r)
	if err != nil {
		common.WriteError(w, common.Validation("invalid cart id"))
		return
	}
	cartItemID, err := common.ParseID(chi.URLParam(r, "itemId"))
	if err != nil {
		common.WriteError(w, common.Validation("invalid cart item id"))
		return
	}
	var qty *decimal.Decimal
	if raw := r.URL.Query().Get("quantity"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			common.WriteError(w, common.Validation("invalid return quantity"))
			return
		}
		qty = &parsed
	}
	actor, _ := common.ActorFrom(r.Context())
	if err := h.Svc.ReturnItem(r.Context(), id, cartItemID, qty, actor); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"returned": true}})
}

// ClearItems handles DELETE /carts/{id}/items.
func (h *Handler) ClearItems(w http.ResponseWriter, r *http.Request) {
	id, err := cartID(r)
	if err != nil {
		common.WriteError(w, common.Validation("invalid cart id"))
		return
	}
	actor, _ := common.ActorFrom(r.Context())
	if err := h.Svc.ClearItems(r.Context(), id, actor); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"cleared": true}})
}

// Complete handles POST /carts/{id}/complete.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := cartID(r)
	if err != nil {
		common.WriteError(w, common.Validation("invalid cart id"))
		return
	}
	actor, _ := common.ActorFrom(r.Context())
	v, err := h.Svc.Complete(r.Context(), id, actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": v})
}

// Delete handles DELETE /carts/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := cartID(r)
	if err != nil {
		common.WriteError(w, common.Validation("invalid cart id"))
		return
	}
	actor, _ := common.ActorFrom(r.Context())
	c, err := h.Svc.Delete(r.Context(), id, actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}
