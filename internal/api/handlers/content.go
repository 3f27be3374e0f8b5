package handlers

import (
	"net/http"

	"github.com/baharkarakas/market-backend/internal/api/httpx"
	"github.com/baharkarakas/market-backend/internal/middleware"
	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/baharkarakas/market-backend/internal/services"
)

type ContentHandler struct {
	Bots   *services.BotService
	Blocks *services.BlockService
}

func NewContentHandler(bots *services.BotService, blocks *services.BlockService) *ContentHandler {
	return &ContentHandler{Bots: bots, Blocks: blocks}
}

// ---------- bots ----------

func (h *ContentHandler) CreateBot(w http.ResponseWriter, r *http.Request) {
	var req models.Bot
	if !httpx.Decode(w, r, &req) {
		return
	}
	req.UserID = middleware.UserID(r.Context())
	b, err := h.Bots.Create(r.Context(), req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, b)
}

// ListBots returns ?bot_id= or the caller's bots.
func (h *ContentHandler) ListBots(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.QueryInt64(r, "bot_id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	if id > 0 {
		b, err := h.Bots.Get(r.Context(), id)
		if err != nil {
			httpx.WriteServiceError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, b)
		return
	}
	list, err := h.Bots.ListByUser(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		httpx.WriteListError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *ContentHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	botID, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	var req models.BotNode
	if !httpx.Decode(w, r, &req) {
		return
	}
	req.BotID = botID
	n, err := h.Bots.AddNode(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, n)
}

func (h *ContentHandler) Nodes(w http.ResponseWriter, r *http.Request) {
	botID, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	list, err := h.Bots.Nodes(r.Context(), botID)
	if err != nil {
		httpx.WriteListError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *ContentHandler) Connect(w http.ResponseWriter, r *http.Request) {
	botID, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	var req models.BotConnection
	if !httpx.Decode(w, r, &req) {
		return
	}
	req.BotID = botID
	c, err := h.Bots.Connect(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, c)
}

func (h *ContentHandler) Connections(w http.ResponseWriter, r *http.Request) {
	botID, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	list, err := h.Bots.Connections(r.Context(), botID)
	if err != nil {
		httpx.WriteListError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// ---------- blocks ----------

func (h *ContentHandler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	var req models.Block
	if !httpx.Decode(w, r, &req) {
		return
	}
	b, err := h.Blocks.Create(r.Context(), req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, b)
}

func (h *ContentHandler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	pageID, err := httpx.QueryInt64(r, "page_id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	list, err := h.Blocks.ListByPage(r.Context(), pageID)
	if err != nil {
		httpx.WriteListError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

type blockUpdateReq struct {
	BlockID int64 `json:"block_id"`
	models.BlockUpdate
}

func (h *ContentHandler) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	var req blockUpdateReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	b, err := h.Blocks.Update(r.Context(), req.BlockID, req.BlockUpdate)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *ContentHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	if err := h.Blocks.Delete(r.Context(), id); err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}
