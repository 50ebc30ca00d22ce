package timeentry

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/kasapos/backend-kasa/internal/common"
)

// Handler wires the time entry service to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

func (h *Handler) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.Validation("invalid payload")
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(v); err != nil {
			return common.Validation(err.Error())
		}
	}
	return nil
}

func actorFrom(r *http.Request) common.Actor {
	actor, _ := common.ActorFrom(r.Context())
	return actor
}

// Create handles POST /time-entries.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := h.decode(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	entry, err := h.Svc.Create(r.Context(), in, actorFrom(r))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": entry})
}

// Get handles GET /time-entries/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.Validation("invalid time entry id"))
		return
	}
	entry, err := h.Svc.Get(r.Context(), id, actorFrom(r))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": entry})
}

// ListMine handles GET /time-entries/mine.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Svc.ListMine(r.Context(), actorFrom(r))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": entries})
}

// ListRange handles GET /time-entries?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *Handler) ListRange(w http.ResponseWriter, r *http.Request) {
	from, _, err := common.DateParam(r, "from")
	if err != nil {
		common.WriteError(w, common.Validation("invalid from date"))
		return
	}
	to, _, err := common.DateParam(r, "to")
	if err != nil {
		common.WriteError(w, common.Validation("invalid to date"))
		return
	}
	entries, err := h.Svc.ListRange(r.Context(), from, to)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": entries})
}

// Review handles POST /time-entries/{id}/review.
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.Validation("invalid time entry id"))
		return
	}
	var in ReviewInput
	if err := h.decode(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	entry, err := h.Svc.Review(r.Context(), id, in, actorFrom(r))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": entry})
}
