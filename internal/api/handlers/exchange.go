package handlers

import (
	"context"
	"net/http"

	"github.com/baharkarakas/market-backend/internal/api/httpx"
	"github.com/baharkarakas/market-backend/internal/middleware"
	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/baharkarakas/market-backend/internal/services"
)

type ExchangeHandler struct {
	Svc *services.ExchangeService
}

func NewExchangeHandler(svc *services.ExchangeService) *ExchangeHandler {
	return &ExchangeHandler{Svc: svc}
}

// ---------- services ----------

func (h *ExchangeHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req models.Service
	if !httpx.Decode(w, r, &req) {
		return
	}
	req.FreelancerID = middleware.UserID(r.Context())
	svc, err := h.Svc.CreateService(r.Context(), req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, svc)
}

func (h *ExchangeHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	f := models.ServiceFilter{Category: r.URL.Query().Get("category")}
	fid, err := httpx.QueryInt64(r, "freelancer_id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	if fid > 0 {
		f.FreelancerID = &fid
	}
	list, err := h.Svc.ListServices(r.Context(), f)
	if err != nil {
		httpx.WriteListError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// ---------- orders ----------

func (h *ExchangeHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.Order
	if !httpx.Decode(w, r, &req) {
		return
	}
	req.ClientID = middleware.UserID(r.Context())
	o, err := h.Svc.CreateOrder(r.Context(), req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, o)
}

func (h *ExchangeHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.OrderFilter{Status: models.OrderStatus(q.Get("status")), Category: q.Get("category")}
	if f.Category == "all" {
		f.Category = ""
	}
	cid, err := httpx.QueryInt64(r, "client_id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	if cid > 0 {
		f.ClientID = &cid
	}
	if f.Limit, err = httpx.QueryInt(r, "limit", 50); err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	list, err := h.Svc.ListOrders(r.Context(), f)
	if err != nil {
		httpx.WriteListError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *ExchangeHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	var viewer *int64
	if uid := middleware.UserID(r.Context()); uid > 0 {
		viewer = &uid
	}
	o, err := h.Svc.GetOrder(r.Context(), id, viewer, httpx.ClientIP(r))
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *ExchangeHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.QueryInt64(r, "order_id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	var req models.OrderUpdate
	if !httpx.Decode(w, r, &req) {
		return
	}
	o, err := h.Svc.UpdateOrder(r.Context(), middleware.UserID(r.Context()), id, req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *ExchangeHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.QueryInt64(r, "order_id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	o, err := h.Svc.CancelOrder(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Order cancelled", "order": o})
}

// ---------- proposals ----------

func (h *ExchangeHandler) SubmitProposal(w http.ResponseWriter, r *http.Request) {
	var req models.Proposal
	if !httpx.Decode(w, r, &req) {
		return
	}
	uid := middleware.UserID(r.Context())
	if req.FreelancerID != 0 && req.FreelancerID != uid {
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "freelancer_id does not match the caller", nil)
		return
	}
	req.FreelancerID = uid
	p, err := h.Svc.SubmitProposal(r.Context(), req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, p)
}

// ListProposals serves ?order_id= or ?freelancer_id=.
func (h *ExchangeHandler) ListProposals(w http.ResponseWriter, r *http.Request) {
	orderID, err := httpx.QueryInt64(r, "order_id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	freelancerID, err := httpx.QueryInt64(r, "freelancer_id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	var list []models.Proposal
	switch {
	case orderID > 0:
		list, err = h.Svc.OrderProposals(r.Context(), orderID)
	case freelancerID > 0:
		list, err = h.Svc.FreelancerProposals(r.Context(), freelancerID)
	default:
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "order_id or freelancer_id is required", nil)
		return
	}
	if err != nil {
		httpx.WriteListError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *ExchangeHandler) WithdrawProposal(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	p, err := h.Svc.WithdrawProposal(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

type acceptReq struct {
	ProposalID int64 `json:"proposal_id"`
	OrderID    int64 `json:"order_id"`
}

func (h *ExchangeHandler) AcceptProposal(w http.ResponseWriter, r *http.Request) {
	var req acceptReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	d, err := h.Svc.AcceptProposal(r.Context(), middleware.UserID(r.Context()), req.OrderID, req.ProposalID)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, d)
}

// ---------- deals ----------

func (h *ExchangeHandler) ListDeals(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.ListDeals(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		httpx.WriteListError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *ExchangeHandler) GetDeal(w http.ResponseWriter, r *http.Request) {
	h.dealAction(w, r, h.Svc.GetDeal)
}

func (h *ExchangeHandler) CompleteDeal(w http.ResponseWriter, r *http.Request) {
	h.dealAction(w, r, h.Svc.CompleteDeal)
}

func (h *ExchangeHandler) CancelDeal(w http.ResponseWriter, r *http.Request) {
	h.dealAction(w, r, h.Svc.CancelDeal)
}

type dealFunc func(ctx context.Context, userID, dealID int64) (models.Deal, error)

func (h *ExchangeHandler) dealAction(w http.ResponseWriter, r *http.Request, fn dealFunc) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	d, err := fn(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

func (h *ExchangeHandler) DealMessages(w http.ResponseWriter, r *http.Request) {
	dealID, err := httpx.QueryInt64(r, "deal_id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	list, err := h.Svc.DealMessages(r.Context(), middleware.UserID(r.Context()), dealID)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *ExchangeHandler) PostDealMessage(w http.ResponseWriter, r *http.Request) {
	var req models.DealMessage
	if !httpx.Decode(w, r, &req) {
		return
	}
	uid := middleware.UserID(r.Context())
	req.SenderID = &uid
	m, err := h.Svc.PostDealMessage(r.Context(), req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, m)
}

// ---------- reviews, portfolio, skills ----------

func (h *ExchangeHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req models.Review
	if !httpx.Decode(w, r, &req) {
		return
	}
	req.ReviewerID = middleware.UserID(r.Context())
	rev, err := h.Svc.CreateReview(r.Context(), req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, rev)
}

func (h *ExchangeHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	fid, err := httpx.QueryInt64(r, "freelancer_id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	list, err := h.Svc.Reviews(r.Context(), fid)
	if err != nil {
		httpx.WriteListError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *ExchangeHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	fid, err := httpx.QueryInt64(r, "freelancer_id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	list, err := h.Svc.Portfolio(r.Context(), fid)
	if err != nil {
		httpx.WriteListError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *ExchangeHandler) AddPortfolioItem(w http.ResponseWriter, r *http.Request) {
	var req models.PortfolioItem
	if !httpx.Decode(w, r, &req) {
		return
	}
	req.FreelancerID = middleware.UserID(r.Context())
	p, err := h.Svc.AddPortfolioItem(r.Context(), req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, p)
}

func (h *ExchangeHandler) Skills(w http.ResponseWriter, r *http.Request) {
	fid, err := httpx.QueryInt64(r, "freelancer_id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	list, err := h.Svc.Skills(r.Context(), fid)
	if err != nil {
		httpx.WriteListError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

type skillsReq struct {
	Skills []models.Skill `json:"skills"`
}

func (h *ExchangeHandler) ReplaceSkills(w http.ResponseWriter, r *http.Request) {
	var req skillsReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	list, err := h.Svc.ReplaceSkills(r.Context(), middleware.UserID(r.Context()), req.Skills)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}
