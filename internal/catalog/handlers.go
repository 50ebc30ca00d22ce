package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/kasapos/backend-kasa/internal/common"
)

// Handler wires the catalog service to HTTP.
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

// CreateCategory handles POST /categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in CreateCategoryInput
	if err := h.decode(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.Svc.CreateCategory(r.Context(), in, actorFrom(r))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": c})
}

// GetCategory handles GET /categories/{id}.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.Validation("invalid category id"))
		return
	}
	c, err := h.Svc.GetCategory(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// ListCategories handles GET /categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Svc.ListCategories(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": categories})
}

// UpdateCategory handles PATCH /categories/{id}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.Validation("invalid category id"))
		return
	}
	var in UpdateCategoryInput
	if err := h.decode(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.Svc.UpdateCategory(r.Context(), id, in, actorFrom(r))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// DeleteCategory handles DELETE /categories/{id}.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.Validation("invalid category id"))
		return
	}
	if err := h.Svc.DeleteCategory(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
}

// CreateItem handles POST /items.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var in CreateItemInput
	if err := h.decode(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	it, err := h.Svc.CreateItem(r.Context(), in, actorFrom(r))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": it})
}

// GetItem handles GET /items/{id}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.Validation("invalid item id"))
		return
	}
	it, err := h.Svc.GetItem(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": it})
}

// ListItems handles GET /items with an optional categoryId filter.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	var categoryID *int64
	if raw := r.URL.Query().Get("categoryId"); raw != "" {
		id, err := common.ParseID(raw)
		if err != nil {
			common.WriteError(w, common.Validation("invalid categoryId"))
			return
		}
		categoryID = &id
	}
	items, err := h.Svc.ListItems(r.Context(), categoryID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// UpdateItem handles PATCH /items/{id}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.Validation("invalid item id"))
		return
	}
	var in UpdateItemInput
	if err := h.decode(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	it, err := h.Svc.UpdateItem(r.Context(), id, in, actorFrom(r))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": it})
}

// DeleteItem handles DELETE /items/{id}.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.Validation("invalid item id"))
		return
	}
	if err := h.Svc.DeleteItem(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
}
