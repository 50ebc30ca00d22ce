package user

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/kasapos/backend-kasa/internal/common"
	"github.com/kasapos/backend-kasa/internal/store"
)

// Handler wires the user service to HTTP.
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

func pathID(r *http.Request) (int64, error) {
	return common.ParseID(chi.URLParam(r, "id"))
}

// Create handles POST /users.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := h.decode(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	u, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": u})
}

// Get handles GET /users/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteError(w, common.Validation("invalid user id"))
		return
	}
	u, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": u})
}

// List handles GET /users.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Svc.List(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": users})
}

// Update handles PATCH /users/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteError(w, common.Validation("invalid user id"))
		return
	}
	var in UpdateInput
	if err := h.decode(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	u, err := h.Svc.Update(r.Context(), id, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": u})
}

type setStatusInput struct {
	Status string `json:"status" validate:"required,oneof=active disabled deleted"`
}

// SetStatus handles PATCH /users/{id}/status.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteError(w, common.Validation("invalid user id"))
		return
	}
	var in setStatusInput
	if err := h.decode(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	actor, _ := common.ActorFrom(r.Context())
	u, err := h.Svc.SetStatus(r.Context(), id, store.UserStatus(in.Status), actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": u})
}

type resetPasswordInput struct {
	Password string `json:"password" validate:"required,min=8"`
}

// ResetPassword handles POST /users/{id}/password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteError(w, common.Validation("invalid user id"))
		return
	}
	var in resetPasswordInput
	if err := h.decode(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.Svc.ResetPassword(r.Context(), id, in.Password); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /users/{id} as a soft delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		common.WriteError(w, common.Validation("invalid user id"))
		return
	}
	actor, _ := common.ActorFrom(r.Context())
	if _, err := h.Svc.SetStatus(r.Context(), id, store.UserDeleted, actor); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
