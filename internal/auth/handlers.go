package auth

import (
	"encoding/json"
	"net/http"
	"strconv"

	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	limiter "github.com/ulule/limiter/v3"

	"github.com/kasapos/backend-kasa/internal/common"
)

// Handler wires the auth service to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
	// LoginLimiter throttles credential attempts per client IP. Nil disables
	// throttling.
	LoginLimiter *limiter.Limiter
	// Attempts is an optional Prometheus collector labelled by result.
	Attempts *prometheus.CounterVec
}

type loginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type changePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
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

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.allowAttempt(w, r) {
		return
	}
	var in loginInput
	if err := h.decode(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.Svc.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		h.countAttempt("failure")
		common.WriteError(w, err)
		return
	}
	h.countAttempt("success")
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// Refresh handles POST /auth/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshInput
	if err := h.decode(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.Svc.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var in refreshInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.WriteError(w, common.Validation("invalid payload"))
		return
	}
	if err := h.Svc.Logout(r.Context(), in.RefreshToken); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := common.ActorFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	user, err := h.Svc.Me(r.Context(), actor.ID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": user})
}

// ChangePassword handles POST /auth/password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := common.ActorFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var in changePasswordInput
	if err := h.decode(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.Svc.ChangePassword(r.Context(), actor.ID, in.CurrentPassword, in.NewPassword); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) countAttempt(result string) {
	if h.Attempts != nil {
		h.Attempts.WithLabelValues(result).Inc()
	}
}

func (h *Handler) allowAttempt(w http.ResponseWriter, r *http.Request) bool {
	if h.LoginLimiter == nil {
		return true
	}
	lctx, err := h.LoginLimiter.Get(r.Context(), "login:"+common.ClientIP(r))
	if err != nil {
		return true
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
	headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))
	if lctx.Reached {
		common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many login attempts", nil)
		return false
	}
	return true
}
