package handlers

import (
	"net/http"

	"github.com/baharkarakas/market-backend/internal/api/httpx"
	"github.com/baharkarakas/market-backend/internal/middleware"
	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/baharkarakas/market-backend/internal/services"
)

type RoleHandler struct {
	Svc *services.RoleService
}

func NewRoleHandler(svc *services.RoleService) *RoleHandler {
	return &RoleHandler{Svc: svc}
}

// List returns every role, or the roles of ?user_id=.
func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, err := httpx.QueryInt64(r, "user_id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	var roles []models.Role
	if uid > 0 {
		roles, err = h.Svc.ListForUser(r.Context(), middleware.UserID(r.Context()), uid)
	} else {
		roles, err = h.Svc.List(r.Context())
	}
	if err != nil {
		httpx.WriteListError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, roles)
}

func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.Role
	if !httpx.Decode(w, r, &req) {
		return
	}
	role, err := h.Svc.Create(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, role)
}

type roleUpdateReq struct {
	ID int64 `json:"id"`
	models.RoleUpdate
}

func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req roleUpdateReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	role, err := h.Svc.Update(r.Context(), middleware.UserID(r.Context()), req.ID, req.RoleUpdate)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, role)
}

func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.QueryInt64(r, "id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	if err := h.Svc.Delete(r.Context(), middleware.UserID(r.Context()), id); err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

type assignReq struct {
	UserID int64 `json:"user_id"`
	RoleID int64 `json:"role_id"`
}

func (h *RoleHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	created, err := h.Svc.Assign(r.Context(), middleware.UserID(r.Context()), req.UserID, req.RoleID)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	if !created {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Role already assigned"})
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Role assigned"})
}

func (h *RoleHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	var req assignReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	if err := h.Svc.Unassign(r.Context(), middleware.UserID(r.Context()), req.UserID, req.RoleID); err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Role removed"})
}

// Permissions serves the catalog, a role's flagged view, a user's effective set or overrides.
func (h *RoleHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	roleID, err := httpx.QueryInt64(r, "role_id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	userID, err := httpx.QueryInt64(r, "user_id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	ctx := r.Context()
	var out any
	switch {
	case userID > 0 && r.URL.Query().Get("action") == "overrides":
		out, err = h.Svc.Overrides(ctx, userID)
	case userID > 0:
		out, err = h.Svc.UserPermissions(ctx, middleware.UserID(ctx), userID)
	case roleID > 0:
		out, err = h.Svc.RolePermissions(ctx, roleID)
	default:
		out, err = h.Svc.Permissions(ctx)
	}
	if err != nil {
		httpx.WriteListError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type grantReq struct {
	RoleID       int64 `json:"role_id"`
	PermissionID int64 `json:"permission_id"`
}

func (h *RoleHandler) Grant(w http.ResponseWriter, r *http.Request) {
	var req grantReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	created, err := h.Svc.Grant(r.Context(), middleware.UserID(r.Context()), req.RoleID, req.PermissionID)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	httpx.WriteJSON(w, status, map[string]any{"success": true})
}

func (h *RoleHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	var req grantReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	if err := h.Svc.Revoke(r.Context(), middleware.UserID(r.Context()), req.RoleID, req.PermissionID); err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *RoleHandler) SetOverride(w http.ResponseWriter, r *http.Request) {
	var req models.PermissionOverride
	if !httpx.Decode(w, r, &req) {
		return
	}
	o, err := h.Svc.SetOverride(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *RoleHandler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	var req models.PermissionOverride
	if !httpx.Decode(w, r, &req) {
		return
	}
	if err := h.Svc.DeleteOverride(r.Context(), middleware.UserID(r.Context()), req.UserID, req.PermissionID); err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}
