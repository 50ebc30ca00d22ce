package analytics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kasapos/backend-kasa/internal/common"
)

// Handler wires the analytics service to HTTP. Routes are mounted behind
// manager-gated middleware.
type Handler struct {
	Svc *Service
}

func window(r *http.Request) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if parsed, present, err := common.DateParam(r, "from"); err != nil {
		return nil, nil, common.Validation("invalid from date")
	} else if present {
		from = &parsed
	}
	if parsed, present, err := common.DateParam(r, "to"); err != nil {
		return nil, nil, common.Validation("invalid to date")
	} else if present {
		to = &parsed
	}
	return from, to, nil
}

// ItemSales handles GET /analytics/items/{itemId}.
func (h *Handler) ItemSales(w http.ResponseWriter, r *http.Request) {
	itemID, err := common.ParseID(chi.URLParam(r, "itemId"))
	if err != nil {
		common.WriteError(w, common.Validation("invalid item id"))
		return
	}
	from, to, err := window(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	stats, err := h.Svc.ItemSales(r.Context(), itemID, from, to)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": stats})
}

// TopSellers handles GET /analytics/top-sellers.
func (h *Handler) TopSellers(w http.ResponseWriter, r *http.Request) {
	from, to, err := window(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 10)
	rows, err := h.Svc.TopSellers(r.Context(), from, to, limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// SalesByCategory handles GET /analytics/categories.
func (h *Handler) SalesByCategory(w http.ResponseWriter, r *http.Request) {
	from, to, err := window(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	rows, err := h.Svc.SalesByCategory(r.Context(), from, to)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}
