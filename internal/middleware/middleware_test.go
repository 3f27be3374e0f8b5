package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/baharkarakas/market-backend/internal/repository"
	"github.com/baharkarakas/market-backend/internal/services"
)

type tokens map[string]int64

func (t tokens) Authenticate(_ context.Context, token string) (services.Identity, error) {
	if id, ok := t[token]; ok {
		return services.Identity{UserID: id, SessionID: "s-" + token}, nil
	}
	return services.Identity{}, services.Fail(services.ErrUnauthorized, "invalid access token")
}

type roleTable map[int64]string

func (rt roleTable) HasAnyRole(_ context.Context, userID int64, names ...string) (bool, error) {
	if userID == 500 {
		return false, repository.ErrUnavailable
	}
	for _, n := range names {
		if rt[userID] == n {
			return true, nil
		}
	}
	return false, nil
}

// whoami reports the resolved identity in response headers.
var whoami = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	u := FromCtx(r.Context())
	w.Header().Set("X-Seen-User", strconv.FormatInt(u.UserID, 10))
	w.Header().Set("X-Seen-Session", u.SessionID)
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestIdentify(t *testing.T) {
	Convey("Given Identify in dev mode", t, func() {
		h := Identify(tokens{"good": 7}, true)(whoami)

		Convey("a valid bearer token resolves the user and session", func() {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", "Bearer good")
			w := serve(h, r)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("X-Seen-User"), ShouldEqual, "7")
			So(w.Header().Get("X-Seen-Session"), ShouldEqual, "s-good")
		})

		Convey("an invalid bearer token is rejected outright", func() {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", "Bearer forged")
			r.Header.Set("X-User-Id", "9")
			So(serve(h, r).Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("the dev header is trusted", func() {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("X-User-Id", "9")
			So(serve(h, r).Header().Get("X-Seen-User"), ShouldEqual, "9")
		})

		Convey("a user_id filter never names the caller", func() {
			r := httptest.NewRequest(http.MethodGet, "/?user_id=11", nil)
			So(serve(h, r).Header().Get("X-Seen-User"), ShouldEqual, "0")

			r = httptest.NewRequest(http.MethodGet, "/?user_id=11", nil)
			r.Header.Set("X-User-Id", "9")
			So(serve(h, r).Header().Get("X-Seen-User"), ShouldEqual, "9")
		})

		Convey("anonymous requests pass through", func() {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			w := serve(h, r)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("X-Seen-User"), ShouldEqual, "0")
		})
	})

	Convey("Outside dev the identity header is ignored", t, func() {
		h := Identify(tokens{}, false)(whoami)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-User-Id", "9")
		So(serve(h, r).Header().Get("X-Seen-User"), ShouldEqual, "0")
	})
}

func TestRequireAuthAndRole(t *testing.T) {
	Convey("Given protected handlers", t, func() {
		authed := RequireAuth(whoami)
		admin := RequireRole(roleTable{1: "admin", 2: "user"}, "owner", "admin")(whoami)
		as := func(uid int64) *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			return r.WithContext(WithUser(r.Context(), UserCtx{UserID: uid}))
		}

		So(serve(authed, httptest.NewRequest(http.MethodGet, "/", nil)).Code, ShouldEqual, http.StatusUnauthorized)
		So(serve(authed, as(2)).Code, ShouldEqual, http.StatusOK)

		So(serve(admin, httptest.NewRequest(http.MethodGet, "/", nil)).Code, ShouldEqual, http.StatusUnauthorized)
		So(serve(admin, as(2)).Code, ShouldEqual, http.StatusForbidden)
		So(serve(admin, as(1)).Code, ShouldEqual, http.StatusOK)
		So(serve(admin, as(500)).Code, ShouldEqual, http.StatusServiceUnavailable)
	})
}

func TestRequestID(t *testing.T) {
	Convey("Given the request id middleware", t, func() {
		var seen string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { seen = RequestIDFrom(r.Context()) }))

		Convey("a fresh id is minted and echoed", func() {
			w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
			So(seen, ShouldNotBeEmpty)
			So(w.Header().Get(RequestIDHeader), ShouldEqual, seen)
		})

		Convey("a valid incoming id is kept", func() {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set(RequestIDHeader, "9b2c1f0e-6a7d-4c1e-8f2a-3b4c5d6e7f80")
			serve(h, r)
			So(seen, ShouldEqual, "9b2c1f0e-6a7d-4c1e-8f2a-3b4c5d6e7f80")
		})

		Convey("garbage is replaced", func() {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set(RequestIDHeader, "<script>")
			serve(h, r)
			So(seen, ShouldNotEqual, "<script>")
		})
	})
}

func TestRateLimitAndRecover(t *testing.T) {
	Convey("A client over its budget gets 429", t, func() {
		h := RateLimit(2)(whoami)
		codes := []int{}
		for i := 0; i < 3; i++ {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = "198.51.100.4:1000"
			codes = append(codes, serve(h, r).Code)
		}
		So(codes, ShouldResemble, []int{200, 200, 429})

		other := httptest.NewRequest(http.MethodGet, "/", nil)
		other.RemoteAddr = "198.51.100.5:1000"
		So(serve(h, other).Code, ShouldEqual, http.StatusOK)
	})

	Convey("A disabled limiter lets everything through", t, func() {
		h := RateLimit(0)(whoami)
		for i := 0; i < 10; i++ {
			So(serve(h, httptest.NewRequest(http.MethodGet, "/", nil)).Code, ShouldEqual, http.StatusOK)
		}
	})

	Convey("Panics become a 500", t, func() {
		h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic(errors.New("boom")) }))
		So(serve(h, httptest.NewRequest(http.MethodGet, "/", nil)).Code, ShouldEqual, http.StatusInternalServerError)
	})
}
