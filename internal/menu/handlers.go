package menu

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/kasapos/backend-kasa/internal/common"
)

// Handler wires the menu service to HTTP.
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

// Create handles POST /menu.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := h.decode(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	m, err := h.Svc.Create(r.Context(), in, actorFrom(r))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": m})
}

// Get handles GET /menu/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.Validation("invalid menu item id"))
		return
	}
	m, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": m})
}

// List handles GET /menu. Staff see every entry, ?active=true narrows to
// live ones.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	onlyActive := r.URL.Query().Get("active") == "true"
	entries, err := h.Svc.List(r.Context(), onlyActive)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": entries})
}

// Public handles GET /public/menu, the unauthenticated board view grouped
// by section.
func (h *Handler) Public(w http.ResponseWriter, r *http.Request) {
	sections, err := h.Svc.Sections(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sections})
}

// Update handles PATCH /menu/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.Validation("invalid menu item id"))
		return
	}
	var in UpdateInput
	if err := h.decode(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	m, err := h.Svc.Update(r.Context(), id, in, actorFrom(r))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": m})
}

// Delete handles DELETE /menu/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.Validation("invalid menu item id"))
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
