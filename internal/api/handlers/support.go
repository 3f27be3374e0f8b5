package handlers

import (
	"net/http"

	"github.com/baharkarakas/market-backend/internal/api/httpx"
	"github.com/baharkarakas/market-backend/internal/middleware"
	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/baharkarakas/market-backend/internal/services"
)

type SupportHandler struct {
	Svc *services.SupportService
}

func NewSupportHandler(svc *services.SupportService) *SupportHandler {
	return &SupportHandler{Svc: svc}
}

// Tickets returns ?ticket_id= with its thread, otherwise the visible ticket list.
func (h *SupportHandler) Tickets(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UserID(r.Context())
	id, err := httpx.QueryInt64(r, "ticket_id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	if id > 0 {
		t, err := h.Svc.GetTicket(r.Context(), uid, id)
		if err != nil {
			httpx.WriteServiceError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, t)
		return
	}
	q := r.URL.Query()
	list, err := h.Svc.ListTickets(r.Context(), uid, models.TicketFilter{Status: q.Get("status"), Category: q.Get("category")})
	if err != nil {
		httpx.WriteListError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *SupportHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req models.Ticket
	if !httpx.Decode(w, r, &req) {
		return
	}
	req.UserID = middleware.UserID(r.Context())
	t, err := h.Svc.CreateTicket(r.Context(), req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, t)
}

type ticketUpdateReq struct {
	TicketID int64 `json:"ticket_id"`
	models.TicketUpdate
}

func (h *SupportHandler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	var req ticketUpdateReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	t, err := h.Svc.UpdateTicket(r.Context(), middleware.UserID(r.Context()), req.TicketID, req.TicketUpdate)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *SupportHandler) AddMessage(w http.ResponseWriter, r *http.Request) {
	var req models.TicketMessage
	if !httpx.Decode(w, r, &req) {
		return
	}
	req.UserID = middleware.UserID(r.Context())
	m, err := h.Svc.AddMessage(r.Context(), req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, m)
}
