package handlers

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/baharkarakas/market-backend/internal/api/httpx"
	"github.com/baharkarakas/market-backend/internal/middleware"
	"github.com/baharkarakas/market-backend/internal/services"
)

type FileHandler struct {
	Svc *services.FileService
}

func NewFileHandler(svc *services.FileService) *FileHandler {
	return &FileHandler{Svc: svc}
}

type uploadReq struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	FileData string `json:"file_data"`
}

// Upload accepts a multipart "file" field or a JSON body carrying base64 data.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	limit := h.Svc.MaxBytes()
	if limit > 0 {
		// base64 and multipart framing inflate the payload
		r.Body = http.MaxBytesReader(w, r.Body, limit*4/3+64<<10)
	}

	var (
		name, ctype string
		data        []byte
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(limit); err != nil {
			httpx.WriteServiceError(w, r, uploadErr(err))
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "bad_request", "File data is required", nil)
			return
		}
		defer f.Close()
		if data, err = io.ReadAll(f); err != nil {
			httpx.WriteServiceError(w, r, uploadErr(err))
			return
		}
		name, ctype = hdr.Filename, hdr.Header.Get("Content-Type")
	} else {
		var req uploadReq
		if !httpx.Decode(w, r, &req) {
			return
		}
		raw := req.FileData
		// data URLs carry a "data:<type>;base64," prefix
		if i := strings.Index(raw, ","); i >= 0 && strings.HasPrefix(raw, "data:") {
			raw = raw[i+1:]
		}
		var err error
		if data, err = base64.StdEncoding.DecodeString(raw); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "bad_request", "file_data must be base64", nil)
			return
		}
		name, ctype = req.FileName, req.FileType
	}

	f, err := h.Svc.Upload(r.Context(), middleware.UserID(r.Context()), name, ctype, data)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"url": f.URL, "id": f.ID})
}

func uploadErr(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
		return services.Fail(services.ErrTooLarge, "File is too large")
	}
	return services.Fail(services.ErrBadRequest, "File data is required")
}

// Serve streams a stored upload by its public path.
func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	f, err := h.Svc.Open(r.Context(), r.URL.Path)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", f.FileType)
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Data)
}
