package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/market-backend/internal/api/validate"
	"github.com/baharkarakas/market-backend/internal/repository"
	"github.com/baharkarakas/market-backend/internal/services"
)

type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// Status classifies an error returned by the service layer.
func Status(err error) (int, string) {
	var verrs validate.Errs
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest, "validation_failed"
	case errors.As(err, &tooBig), errors.Is(err, services.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, services.ErrBadRequest), errors.Is(err, services.ErrInvalidState):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, repository.ErrUnavailable):
		return http.StatusServiceUnavailable, "db_unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}

// WriteServiceError maps err onto a status and writes the error body.
// Only messages meant for clients are echoed back.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := Status(err)
	msg := http.StatusText(status)
	var details interface{}

	var se *services.Error
	var verrs validate.Errs
	switch {
	case errors.As(err, &verrs):
		msg, details = "Validation failed", verrs
	case errors.As(err, &se):
		msg = se.Msg
	case status == http.StatusServiceUnavailable:
		msg = "Database connection error"
	case status == http.StatusRequestEntityTooLarge:
		msg = "Request body too large"
	case status == http.StatusNotFound:
		msg = "Not found"
	case status == http.StatusConflict:
		msg = "Already exists"
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	WriteError(w, status, code, msg, details)
}

// WriteListError lets list endpoints degrade to an empty array while the database is down.
func WriteListError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, repository.ErrUnavailable) {
		slog.Warn("list degraded to empty", "path", r.URL.Path, "err", err)
		WriteJSON(w, http.StatusOK, []struct{}{})
		return
	}
	WriteServiceError(w, r, err)
}

// Decode reads a JSON body into v. It writes a 400 and returns false on malformed input.
func Decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		WriteServiceError(w, r, err)
		return false
	}
	WriteError(w, http.StatusBadRequest, "bad_request", "Invalid JSON body", nil)
	return false
}

// QueryInt64 parses an optional integer query parameter. Missing yields 0.
func QueryInt64(r *http.Request, key string) (int64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, validate.Errs{{Field: key, Msg: "must be an integer"}}
	}
	return n, nil
}

// QueryInt is QueryInt64 with a default for missing values.
func QueryInt(r *http.Request, key string, def int) (int, error) {
	if r.URL.Query().Get(key) == "" {
		return def, nil
	}
	n, err := QueryInt64(r, key)
	return int(n), err
}

// URLInt64 parses a chi path parameter.
func URLInt64(r *http.Request, key string) (int64, error) {
	n, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || n <= 0 {
		return 0, validate.Errs{{Field: key, Msg: "must be a positive integer"}}
	}
	return n, nil
}

// ClientIP prefers the first X-Forwarded-For hop over the socket address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if i := strings.LastIndex(r.RemoteAddr, ":"); i > 0 {
		return r.RemoteAddr[:i]
	}
	return r.RemoteAddr
}
