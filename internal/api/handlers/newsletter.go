package handlers

import (
	"net/http"
	"strconv"

	"github.com/baharkarakas/market-backend/internal/api/httpx"
	"github.com/baharkarakas/market-backend/internal/middleware"
	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/baharkarakas/market-backend/internal/services"
)

type NewsletterHandler struct {
	Svc *services.NewsletterService
}

func NewNewsletterHandler(svc *services.NewsletterService) *NewsletterHandler {
	return &NewsletterHandler{Svc: svc}
}

type subscribeReq struct {
	Email  string `json:"email"`
	Source string `json:"source"`
}

func (h *NewsletterHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	sub := models.Subscription{Email: req.Email, Source: req.Source}
	if ip := httpx.ClientIP(r); ip != "" {
		sub.IPAddress = &ip
	}
	if ua := r.UserAgent(); ua != "" {
		sub.UserAgent = &ua
	}
	if uid := middleware.UserID(r.Context()); uid > 0 {
		sub.UserID = &uid
	}
	out, err := h.Svc.Subscribe(r.Context(), sub)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "subscription": out})
}

func (h *NewsletterHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	activeOnly := true
	if v := r.URL.Query().Get("active_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "bad_request", "active_only must be a boolean", nil)
			return
		}
		activeOnly = b
	}
	limit, err := httpx.QueryInt(r, "limit", 100)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	offset, err := httpx.QueryInt(r, "offset", 0)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	page, err := h.Svc.Subscribers(r.Context(), activeOnly, limit, offset)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *NewsletterHandler) ErrorReport(w http.ResponseWriter, r *http.Request) {
	var req services.ErrorReport
	if !httpx.Decode(w, r, &req) {
		return
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}
	h.Svc.ReportError(req, middleware.UserID(r.Context()))
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
