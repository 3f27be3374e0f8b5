package handlers

import (
	"net/http"

	"github.com/baharkarakas/market-backend/internal/api/httpx"
	"github.com/baharkarakas/market-backend/internal/middleware"
	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/baharkarakas/market-backend/internal/services"
)

type ProfileHandler struct {
	Svc *services.ProfileService
}

func NewProfileHandler(svc *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{Svc: svc}
}

type profileResp struct {
	ID              int64   `json:"id"`
	FullName        string  `json:"full_name"`
	Email           string  `json:"email"`
	Phone           *string `json:"phone"`
	Company         *string `json:"company"`
	About           *string `json:"about"`
	ProfilePhotoURL *string `json:"profile_photo_url"`
	Rating          float64 `json:"rating"`
}

func toProfile(u models.User) profileResp {
	return profileResp{
		ID: u.ID, FullName: u.FullName, Email: u.Email, Phone: u.Phone,
		Company: u.Company, About: u.About, ProfilePhotoURL: u.ProfilePhotoURL, Rating: u.Rating,
	}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.Svc.Get(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProfile(u))
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.ProfileUpdate
	if !httpx.Decode(w, r, &req) {
		return
	}
	u, err := h.Svc.Update(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProfile(u))
}

func (h *ProfileHandler) Balance(w http.ResponseWriter, r *http.Request) {
	limit, err := httpx.QueryInt(r, "limit", 50)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	offset, err := httpx.QueryInt(r, "offset", 0)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	b, err := h.Svc.Balance(r.Context(), middleware.UserID(r.Context()), limit, offset)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}
