package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/baharkarakas/market-backend/internal/api/validate"
	"github.com/baharkarakas/market-backend/internal/repository"
	"github.com/baharkarakas/market-backend/internal/services"
)

func TestStatus(t *testing.T) {
	Convey("Service errors map onto HTTP statuses", t, func() {
		cases := []struct {
			err  error
			want int
		}{
			{validate.Errs{{Field: "title", Msg: "required"}}, http.StatusBadRequest},
			{services.Fail(services.ErrBadRequest, "x"), http.StatusBadRequest},
			{services.Fail(services.ErrInvalidState, "x"), http.StatusBadRequest},
			{services.Fail(services.ErrUnauthorized, "x"), http.StatusUnauthorized},
			{services.Fail(services.ErrForbidden, "x"), http.StatusForbidden},
			{services.Fail(services.ErrNotFound, "x"), http.StatusNotFound},
			{services.Fail(services.ErrConflict, "x"), http.StatusConflict},
			{services.Fail(services.ErrTooLarge, "x"), http.StatusRequestEntityTooLarge},
			{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
			{fmt.Errorf("get order: %w", repository.ErrUnavailable), http.StatusServiceUnavailable},
			{errors.New("boom"), http.StatusInternalServerError},
		}
		for _, c := range cases {
			got, _ := Status(c.err)
			So(got, ShouldEqual, c.want)
		}
	})
}

func TestWriteServiceError(t *testing.T) {
	Convey("Given a recorder", t, func() {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/x", nil)
		var body APIError

		Convey("client messages are echoed", func() {
			WriteServiceError(w, r, services.Fail(services.ErrNotFound, "Order not found"))
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Error, ShouldEqual, "Order not found")
			So(body.Code, ShouldEqual, "not_found")
		})

		Convey("internal errors stay hidden", func() {
			WriteServiceError(w, r, errors.New("pq: secret detail"))
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldNotContainSubstring, "secret")
		})

		Convey("an outage says so", func() {
			WriteServiceError(w, r, repository.ErrUnavailable)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Error, ShouldEqual, "Database connection error")
		})

		Convey("lists degrade to an empty array during an outage", func() {
			WriteListError(w, r, repository.ErrUnavailable)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})

		Convey("lists still report other failures", func() {
			WriteListError(w, r, services.Fail(services.ErrBadRequest, "unknown status"))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestDecodeAndParams(t *testing.T) {
	Convey("Decode", t, func() {
		var v struct{ Title string }
		w := httptest.NewRecorder()

		Convey("accepts an empty body", func() {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			So(Decode(w, r, &v), ShouldBeTrue)
		})

		Convey("rejects malformed JSON with 400", func() {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{nope"))
			So(Decode(w, r, &v), ShouldBeFalse)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("reports an oversized body as 413", func() {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Title":"`+strings.Repeat("x", 64)+`"}`))
			r.Body = http.MaxBytesReader(w, r.Body, 8)
			So(Decode(w, r, &v), ShouldBeFalse)
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
		})
	})

	Convey("Query parameters", t, func() {
		r := httptest.NewRequest(http.MethodGet, "/?id=42&bad=x", nil)
		n, err := QueryInt64(r, "id")
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 42)
		n, err = QueryInt64(r, "missing")
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 0)
		_, err = QueryInt64(r, "bad")
		So(err, ShouldHaveSameTypeAs, validate.Errs{})
		limit, err := QueryInt(r, "limit", 50)
		So(err, ShouldBeNil)
		So(limit, ShouldEqual, 50)
	})

	Convey("ClientIP prefers the forwarded address", t, func() {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1:5555"
		So(ClientIP(r), ShouldEqual, "10.0.0.1")
		r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		So(ClientIP(r), ShouldEqual, "203.0.113.7")
	})
}
