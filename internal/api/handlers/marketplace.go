package handlers

import (
	"net/http"

	"github.com/baharkarakas/market-backend/internal/api/httpx"
	"github.com/baharkarakas/market-backend/internal/middleware"
	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/baharkarakas/market-backend/internal/services"
)

type MarketplaceHandler struct {
	Svc *services.MarketplaceService
}

func NewMarketplaceHandler(svc *services.MarketplaceService) *MarketplaceHandler {
	return &MarketplaceHandler{Svc: svc}
}

func (h *MarketplaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.MarketItem
	if !httpx.Decode(w, r, &req) {
		return
	}
	req.SellerID = middleware.UserID(r.Context())
	item, err := h.Svc.CreateItem(r.Context(), req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, item)
}

// List returns one item for ?item_id=, otherwise the approved catalog.
func (h *MarketplaceHandler) List(w http.ResponseWriter, r *http.Request) {
	itemID, err := httpx.QueryInt64(r, "item_id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	if itemID > 0 {
		item, err := h.Svc.GetItem(r.Context(), itemID)
		if err != nil {
			httpx.WriteServiceError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, item)
		return
	}

	q := r.URL.Query()
	f := models.ItemFilter{Category: q.Get("category"), Search: q.Get("search")}
	if f.Category == "all" {
		f.Category = ""
	}
	if seller, err := httpx.QueryInt64(r, "seller_id"); err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	} else if seller > 0 {
		f.SellerID = &seller
	}
	if f.Limit, err = httpx.QueryInt(r, "limit", 50); err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	items, err := h.Svc.ListItems(r.Context(), f)
	if err != nil {
		httpx.WriteListError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

type moderateReq struct {
	Status string `json:"status"`
}

func (h *MarketplaceHandler) Moderate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	var req moderateReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	item, err := h.Svc.Moderate(r.Context(), middleware.UserID(r.Context()), id, req.Status)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

type purchaseReq struct {
	ItemID int64 `json:"item_id"`
}

func (h *MarketplaceHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	p, err := h.Svc.Purchase(r.Context(), middleware.UserID(r.Context()), req.ItemID)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, p)
}

func (h *MarketplaceHandler) Purchases(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.Purchases(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		httpx.WriteListError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *MarketplaceHandler) Earnings(w http.ResponseWriter, r *http.Request) {
	total, err := h.Svc.Earnings(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"earnings": total})
}

func (h *MarketplaceHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	var req models.ItemReview
	if !httpx.Decode(w, r, &req) {
		return
	}
	req.UserID = middleware.UserID(r.Context())
	rev, err := h.Svc.AddReview(r.Context(), req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, rev)
}

func (h *MarketplaceHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	itemID, err := httpx.QueryInt64(r, "item_id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	list, err := h.Svc.Reviews(r.Context(), itemID)
	if err != nil {
		httpx.WriteListError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}
