package handlers

import (
	"net/http"

	"github.com/baharkarakas/market-backend/internal/api/httpx"
	"github.com/baharkarakas/market-backend/internal/api/validate"
	"github.com/baharkarakas/market-backend/internal/middleware"
	"github.com/baharkarakas/market-backend/internal/services"
)

type AuthHandler struct {
	Svc *services.AuthService
}

func NewAuthHandler(svc *services.AuthService) *AuthHandler {
	return &AuthHandler{Svc: svc}
}

func clientInfo(r *http.Request) services.ClientInfo {
	return services.ClientInfo{Device: r.UserAgent(), IP: httpx.ClientIP(r)}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if !httpx.Decode(w, r, &req) {
		return
	}
	if err := validate.Collect(
		validate.Required("email", req.Email),
		validate.Required("full_name", req.FullName),
		validate.MinLen("password", req.Password, 8),
	); err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	u, err := h.Svc.Register(r.Context(), req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, u)
}

type loginReq struct {
	EmailOrPhone string `json:"emailOrPhone"`
	Password     string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	res, err := h.Svc.Login(r.Context(), req.EmailOrPhone, req.Password, clientInfo(r))
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type verifyLoginReq struct {
	TempToken string `json:"temp_token"`
	Code      string `json:"code"`
}

func (h *AuthHandler) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req verifyLoginReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	res, err := h.Svc.VerifyLogin(r.Context(), req.TempToken, req.Code)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	res, err := h.Svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	if err := h.Svc.ChangePassword(r.Context(), middleware.UserID(r.Context()), req.CurrentPassword, req.NewPassword); err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Password changed"})
}

func (h *AuthHandler) GenerateTwoFactor(w http.ResponseWriter, r *http.Request) {
	secret, url, err := h.Svc.GenerateTwoFactor(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"secret": secret, "otpauth_url": url})
}

type enableTwoFactorReq struct {
	Secret string `json:"secret"`
	Code   string `json:"code"`
}

func (h *AuthHandler) EnableTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req enableTwoFactorReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	if err := h.Svc.EnableTwoFactor(r.Context(), middleware.UserID(r.Context()), req.Secret, req.Code); err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "two_factor_enabled": true})
}

func (h *AuthHandler) DisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.DisableTwoFactor(r.Context(), middleware.UserID(r.Context())); err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "two_factor_enabled": false})
}

func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	u := middleware.FromCtx(r.Context())
	list, err := h.Svc.ListSessions(r.Context(), u.UserID, u.SessionID)
	if err != nil {
		httpx.WriteListError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *AuthHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	if err := h.Svc.DeleteSession(r.Context(), middleware.UserID(r.Context()), id); err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AuthHandler) DeleteOtherSessions(w http.ResponseWriter, r *http.Request) {
	u := middleware.FromCtx(r.Context())
	if err := h.Svc.DeleteOtherSessions(r.Context(), u.UserID, u.SessionID); err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}
