package users

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/platform/httpx"
	"github.com/gatewarden/gatewarden/internal/shared"
)

// Handler manages profile, dashboard, and admin user-management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	gate    auth.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gate auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, gate: gate}
}

// MountRoutes registers user routes. All routes require authentication;
// the admin subtree additionally requires the admin role claim.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAuth)
		r.Get("/profile", h.getProfile)
		r.Put("/profile", h.updateProfile)
		r.Get("/dashboard", h.dashboard)

		r.Group(func(r chi.Router) {
			r.Use(h.gate.RequireAdmin)
			r.Get("/admin/users", h.listUsers)
			r.Get("/admin/users/{id}", h.getUser)
			r.Put("/admin/users/{id}", h.updateUser)
			r.Delete("/admin/users/{id}", h.deleteUser)
		})
	})
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requesterID(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": user})
}

type updateProfileRequest struct {
	Username *string `json:"username"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requesterID(w, r)
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, shared.ErrValidation.Error())
		return
	}

	var user *User
	var err error
	if req.Username != nil {
		user, err = h.service.UpdateProfile(r.Context(), userID, *req.Username)
	} else {
		user, err = h.service.GetProfile(r.Context(), userID)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	userID, ok := h.requesterID(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Welcome to your dashboard, %s!", user.Username),
		"user":    user,
		"role":    claims.Role,
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", shared.DefaultPerPage)

	items, pagination, err := h.service.ListUsers(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"users":        items,
		"total":        pagination.Total,
		"pages":        pagination.TotalPages,
		"current_page": pagination.Page,
	})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": user})
}

type adminUpdateRequest struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req adminUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, shared.ErrValidation.Error())
		return
	}

	user, err := h.service.UpdateUser(r.Context(), id, AdminUpdate{Role: req.Role, IsActive: req.IsActive})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("user updated by admin", slog.Int64("user_id", id))
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "User updated successfully",
		"user":    user,
	})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	requesterID, ok := h.requesterID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteUser(r.Context(), id, requesterID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("user deleted by admin", slog.Int64("user_id", id), slog.Int64("requester_id", requesterID))
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

// requesterID resolves the authenticated user's identity from the verified
// claims placed in context by the gate.
func (h *Handler) requesterID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httpx.Error(w, http.StatusUnauthorized, shared.ErrUnauthenticated.Error())
		return 0, false
	}
	id, err := claims.UserID()
	if err != nil {
		httpx.Error(w, http.StatusUnauthorized, shared.ErrUnauthenticated.Error())
		return 0, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, shared.ErrValidation.Error())
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
