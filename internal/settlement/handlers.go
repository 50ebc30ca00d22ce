package settlement

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kasapos/backend-kasa/internal/common"
)

// Handler wires the settlement service to HTTP.
type Handler struct {
	Svc *Service
}

// dateOrToday resolves the optional date query parameter, defaulting to the
// current UTC day.
func (h *Handler) dateOrToday(r *http.Request) (time.Time, error) {
	parsed, present, err := common.DateParam(r, "date")
	if err != nil {
		return time.Time{}, common.Validation("invalid date, want YYYY-MM-DD")
	}
	if !present {
		return h.Svc.now(), nil
	}
	return parsed, nil
}

// Close handles POST /daily-accounts/close. Any staff member may close the
// current day; closing an explicit past date is a manager action.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateOrToday(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	actor, _ := common.ActorFrom(r.Context())
	_, explicit, _ := common.DateParam(r, "date")
	if explicit && !actor.Role.Manager() {
		common.WriteError(w, common.Forbidden("closing a specific date requires a manager"))
		return
	}
	v, err := h.Svc.Close(r.Context(), date, actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": v})
}

// Open handles POST /daily-accounts/open.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateOrToday(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	actor, _ := common.ActorFrom(r.Context())
	account, err := h.Svc.Open(r.Context(), date, actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": account})
}

// Get handles GET /daily-accounts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.Validation("invalid account id"))
		return
	}
	v, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": v})
}

// GetByDate handles GET /daily-accounts/by-date.
func (h *Handler) GetByDate(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateOrToday(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	v, err := h.Svc.GetByDate(r.Context(), date)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": v})
}

// Summary handles GET /daily-accounts/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateOrToday(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	totals, err := h.Svc.Summary(r.Context(), date)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": totals})
}

// List handles GET /daily-accounts with optional from/to range or limit.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	from, fromSet, err := common.DateParam(r, "from")
	if err != nil {
		common.WriteError(w, common.Validation("invalid from date"))
		return
	}
	to, toSet, err := common.DateParam(r, "to")
	if err != nil {
		common.WriteError(w, common.Validation("invalid to date"))
		return
	}
	if fromSet && toSet {
		accounts, err := h.Svc.ListRange(r.Context(), from, to)
		if err != nil {
			common.WriteError(w, err)
			return
		}
		common.JSON(w, http.StatusOK, map[string]any{"data": accounts})
		return
	}
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 30)
	accounts, err := h.Svc.List(r.Context(), limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": accounts})
}
