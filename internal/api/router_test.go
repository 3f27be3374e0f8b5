package api_test

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/baharkarakas/market-backend/internal/testutil"
)

func TestHealthAndMetrics(t *testing.T) {
	h, _ := testutil.NewRouter()

	w := testutil.Do(h, testutil.MakeRequest(http.MethodGet, "/health", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	if w.Header().Get("X-Request-Id") == "" {
		t.Error("expected a request id header")
	}

	w = testutil.Do(h, testutil.MakeRequest(http.MethodGet, "/metrics", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
}

func TestAuthFlow(t *testing.T) {
	Convey("Given the public API", t, func() {
		h, _ := testutil.NewRouter()

		w := testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/register", map[string]any{
			"email": "ada@example.com", "password": "correct-horse", "full_name": "Ada",
		}, nil))
		So(w.Code, ShouldEqual, http.StatusCreated)
		So(w.Body.String(), ShouldNotContainSubstring, "password")

		Convey("missing fields fail validation", func() {
			w := testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/register", map[string]any{"email": "x@example.com"}, nil))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "validation_failed")
		})

		Convey("login returns a bearer token that opens the profile", func() {
			w := testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/login", map[string]any{
				"emailOrPhone": "ada@example.com", "password": "correct-horse",
			}, nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			var res struct {
				Token  string `json:"token"`
				UserID int64  `json:"userId"`
			}
			testutil.DecodeJSON(t, w, &res)
			So(res.Token, ShouldNotBeEmpty)

			w = testutil.Do(h, testutil.MakeRequest(http.MethodGet, "/api/profile", nil, map[string]string{"Authorization": "Bearer " + res.Token}))
			So(w.Code, ShouldEqual, http.StatusOK)
			var me models.User
			testutil.DecodeJSON(t, w, &me)
			So(me.ID, ShouldEqual, res.UserID)

			w = testutil.Do(h, testutil.MakeRequest(http.MethodGet, "/api/login/sessions", nil, map[string]string{"Authorization": "Bearer " + res.Token}))
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("a forged token is rejected", func() {
			w := testutil.Do(h, testutil.MakeRequest(http.MethodGet, "/api/profile", nil, map[string]string{"Authorization": "Bearer nope"}))
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("wrong credentials are 401", func() {
			w := testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/login", map[string]any{
				"emailOrPhone": "ada@example.com", "password": "bad-password",
			}, nil))
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("protected routes need a caller", func() {
			w := testutil.Do(h, testutil.MakeRequest(http.MethodGet, "/api/profile", nil, nil))
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})
	})
}

func TestExchangeFlow(t *testing.T) {
	Convey("Given a client and a freelancer", t, func() {
		h, s := testutil.NewRouter()
		client := s.SeedUser(models.User{Email: "client@example.com", FullName: "Client"})
		dev := s.SeedUser(models.User{Email: "dev@example.com", FullName: "Dev"})
		as := testutil.As

		w := testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/exchange/orders", map[string]any{
			"title": "Build an API", "budget_min": 100, "budget_max": 900,
		}, as(client.ID)))
		So(w.Code, ShouldEqual, http.StatusCreated)
		var order models.Order
		testutil.DecodeJSON(t, w, &order)
		So(order.Status, ShouldEqual, models.OrderOpen)

		Convey("anonymous callers can browse but not post", func() {
			w := testutil.Do(h, testutil.MakeRequest(http.MethodGet, "/api/exchange/orders", nil, nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			var list []models.Order
			testutil.DecodeJSON(t, w, &list)
			So(len(list), ShouldEqual, 1)

			w = testutil.Do(h, testutil.MakeRequest(http.MethodGet, fmt.Sprintf("/api/exchange/orders/%d", order.ID), nil, nil))
			So(w.Code, ShouldEqual, http.StatusOK)

			w = testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/exchange/orders", map[string]any{"title": "x"}, nil))
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("a proposal cannot be filed in someone else's name", func() {
			w := testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/exchange/proposals", map[string]any{
				"order_id": order.ID, "freelancer_id": client.ID, "price": 500,
			}, as(dev.ID)))
			So(w.Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("the full deal lifecycle works end to end", func() {
			w := testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/exchange/proposals", map[string]any{
				"order_id": order.ID, "price": 500, "message": "I can do it",
			}, as(dev.ID)))
			So(w.Code, ShouldEqual, http.StatusCreated)
			var prop models.Proposal
			testutil.DecodeJSON(t, w, &prop)

			w = testutil.Do(h, testutil.MakeRequest(http.MethodGet, fmt.Sprintf("/api/exchange/proposals?order_id=%d", order.ID), nil, nil))
			So(w.Code, ShouldEqual, http.StatusOK)

			w = testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/exchange/proposals/accept", map[string]any{
				"order_id": order.ID, "proposal_id": prop.ID,
			}, as(dev.ID)))
			So(w.Code, ShouldEqual, http.StatusForbidden)

			w = testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/exchange/proposals/accept", map[string]any{
				"order_id": order.ID, "proposal_id": prop.ID,
			}, as(client.ID)))
			So(w.Code, ShouldEqual, http.StatusCreated)
			var deal models.Deal
			testutil.DecodeJSON(t, w, &deal)
			So(deal.EscrowStatus, ShouldEqual, models.EscrowHolding)

			w = testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/exchange/deals/messages", map[string]any{
				"deal_id": deal.ID, "message": "Started",
			}, as(dev.ID)))
			So(w.Code, ShouldEqual, http.StatusCreated)

			w = testutil.Do(h, testutil.MakeRequest(http.MethodGet, fmt.Sprintf("/api/exchange/deals/messages?deal_id=%d", deal.ID), nil, as(client.ID)))
			So(w.Code, ShouldEqual, http.StatusOK)
			var msgs []models.DealMessage
			testutil.DecodeJSON(t, w, &msgs)
			So(len(msgs), ShouldEqual, 2)

			w = testutil.Do(h, testutil.MakeRequest(http.MethodPost, fmt.Sprintf("/api/exchange/deals/%d/complete", deal.ID), nil, as(client.ID)))
			So(w.Code, ShouldEqual, http.StatusOK)
			testutil.DecodeJSON(t, w, &deal)
			So(deal.Status, ShouldEqual, models.DealCompleted)

			w = testutil.Do(h, testutil.MakeRequest(http.MethodGet, "/api/balance", nil, as(dev.ID)))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "500")

			w = testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/exchange/reviews", map[string]any{
				"deal_id": deal.ID, "reviewee_id": dev.ID, "rating": 5,
			}, as(client.ID)))
			So(w.Code, ShouldEqual, http.StatusCreated)

			w = testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/exchange/reviews", map[string]any{
				"deal_id": deal.ID, "reviewee_id": dev.ID, "rating": 5,
			}, as(client.ID)))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "Review already submitted")

			w = testutil.Do(h, testutil.MakeRequest(http.MethodGet, fmt.Sprintf("/api/exchange/reviews?freelancer_id=%d", dev.ID), nil, nil))
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("cancelling an order answers with a confirmation", func() {
			w := testutil.Do(h, testutil.MakeRequest(http.MethodDelete, fmt.Sprintf("/api/exchange/orders?order_id=%d", order.ID), nil, as(client.ID)))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "Order cancelled")
		})

		Convey("unknown orders are 404 and bad ids are 400", func() {
			w := testutil.Do(h, testutil.MakeRequest(http.MethodGet, "/api/exchange/orders/99999", nil, nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
			w = testutil.Do(h, testutil.MakeRequest(http.MethodGet, "/api/exchange/orders/abc", nil, nil))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("while the database is down", func() {
			s.SetDown(true)

			Convey("lists degrade to an empty array", func() {
				w := testutil.Do(h, testutil.MakeRequest(http.MethodGet, "/api/exchange/orders", nil, nil))
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			})

			Convey("writes report 503", func() {
				w := testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/exchange/orders", map[string]any{"title": "x"}, as(client.ID)))
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Body.String(), ShouldContainSubstring, "Database connection error")
			})
		})
	})
}

func TestStaffRoutes(t *testing.T) {
	Convey("Given a user and a support agent", t, func() {
		h, s := testutil.NewRouter()
		user := s.SeedUser(models.User{Email: "u@example.com", FullName: "User"})
		agent := s.SeedUser(models.User{Email: "a@example.com", FullName: "Agent"})
		s.GrantRole(agent.ID, models.RoleSupport)

		Convey("subscriber lists are staff only", func() {
			w := testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/newsletter/subscribe", map[string]any{"email": "r@example.com"}, nil))
			So(w.Code, ShouldEqual, http.StatusCreated)
			w = testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/newsletter/subscribe", map[string]any{"email": "R@example.com"}, nil))
			So(w.Code, ShouldEqual, http.StatusConflict)

			w = testutil.Do(h, testutil.MakeRequest(http.MethodGet, "/api/newsletter/subscribers", nil, testutil.As(user.ID)))
			So(w.Code, ShouldEqual, http.StatusForbidden)
			w = testutil.Do(h, testutil.MakeRequest(http.MethodGet, "/api/newsletter/subscribers", nil, testutil.As(agent.ID)))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"total":1`)
		})

		Convey("role administration needs an admin", func() {
			w := testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/roles", map[string]any{"name": "mod", "display_name": "Mod"}, testutil.As(agent.ID)))
			So(w.Code, ShouldEqual, http.StatusForbidden)
			s.GrantRole(agent.ID, models.RoleAdmin)
			w = testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/roles", map[string]any{"name": "mod", "display_name": "Mod"}, testutil.As(agent.ID)))
			So(w.Code, ShouldEqual, http.StatusCreated)
		})

		Convey("reading another user's roles needs staff", func() {
			path := fmt.Sprintf("/api/roles?user_id=%d", agent.ID)
			w := testutil.Do(h, testutil.MakeRequest(http.MethodGet, path, nil, testutil.As(user.ID)))
			So(w.Code, ShouldEqual, http.StatusForbidden)
			w = testutil.Do(h, testutil.MakeRequest(http.MethodGet, fmt.Sprintf("/api/roles?user_id=%d", user.ID), nil, nil))
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
			w = testutil.Do(h, testutil.MakeRequest(http.MethodGet, path, nil, testutil.As(agent.ID)))
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("support tickets flow between user and agent", func() {
			w := testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/support/tickets", map[string]any{
				"subject": "Help", "description": "Cannot log in",
			}, testutil.As(user.ID)))
			So(w.Code, ShouldEqual, http.StatusCreated)
			var ticket models.Ticket
			testutil.DecodeJSON(t, w, &ticket)

			w = testutil.Do(h, testutil.MakeRequest(http.MethodGet, "/api/support/tickets", nil, testutil.As(agent.ID)))
			So(w.Code, ShouldEqual, http.StatusOK)
			var list []models.Ticket
			testutil.DecodeJSON(t, w, &list)
			So(len(list), ShouldEqual, 1)

			w = testutil.Do(h, testutil.MakeRequest(http.MethodGet, fmt.Sprintf("/api/support/tickets?ticket_id=%d", ticket.ID), nil, testutil.As(user.ID)))
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("client error reports are accepted anonymously", func() {
			w := testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/error-report", map[string]any{"message": "TypeError"}, nil))
			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestFileRoutes(t *testing.T) {
	Convey("Given a signed in user", t, func() {
		h, s := testutil.NewRouter()
		user := s.SeedUser(models.User{Email: "u@example.com", FullName: "User"})

		Convey("a base64 upload is served back", func() {
			w := testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/files/upload", map[string]any{
				"file_name": "notes.txt",
				"file_data": "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hello")),
			}, testutil.As(user.ID)))
			So(w.Code, ShouldEqual, http.StatusCreated)
			var res struct {
				URL string `json:"url"`
			}
			testutil.DecodeJSON(t, w, &res)
			So(res.URL, ShouldStartWith, fmt.Sprintf("/uploads/%d/notes_", user.ID))

			w = testutil.Do(h, testutil.MakeRequest(http.MethodGet, res.URL, nil, nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldEqual, "hello")
			So(w.Header().Get("Cache-Control"), ShouldContainSubstring, "max-age=31536000")
		})

		Convey("a multipart upload works too", func() {
			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			part, err := mw.CreateFormFile("file", "logo.png")
			So(err, ShouldBeNil)
			_, _ = part.Write([]byte("png"))
			So(mw.Close(), ShouldBeNil)

			r := httptest.NewRequest(http.MethodPost, "/api/files/upload", &body)
			r.Header.Set("Content-Type", mw.FormDataContentType())
			r.Header.Set("X-User-Id", fmt.Sprint(user.ID))
			w := testutil.Do(h, r)
			So(w.Code, ShouldEqual, http.StatusCreated)
		})

		Convey("oversized files are 413", func() {
			w := testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/files/upload", map[string]any{
				"file_name": "big.bin",
				"file_data": base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("x"), 2048)),
			}, testutil.As(user.ID)))
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
		})

		Convey("a zero cap leaves uploads unlimited", func() {
			cfg := testutil.TestConfig()
			cfg.UploadMaxBytes = 0
			open, s := testutil.NewRouterWith(cfg)
			owner := s.SeedUser(models.User{Email: "big@example.com", FullName: "Big"})
			w := testutil.Do(open, testutil.MakeRequest(http.MethodPost, "/api/files/upload", map[string]any{
				"file_name": "big.bin",
				"file_data": base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("x"), 100<<10)),
			}, testutil.As(owner.ID)))
			So(w.Code, ShouldEqual, http.StatusCreated)
		})

		Convey("anonymous uploads are 401", func() {
			w := testutil.Do(h, testutil.MakeRequest(http.MethodPost, "/api/files/upload", map[string]any{"file_name": "a.txt", "file_data": "aGk="}, nil))
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("missing files are 404", func() {
			w := testutil.Do(h, testutil.MakeRequest(http.MethodGet, "/uploads/1/nope.txt", nil, nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
