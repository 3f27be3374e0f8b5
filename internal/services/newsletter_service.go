package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/baharkarakas/market-backend/internal/models"
	repo "github.com/baharkarakas/market-backend/internal/repository"
	"github.com/baharkarakas/market-backend/internal/worker"
)

type NewsletterService struct {
	repo repo.Newsletter
	wp   *worker.Pool
}

func NewNewsletterService(r repo.Newsletter, wp *worker.Pool) *NewsletterService {
	return &NewsletterService{repo: r, wp: wp}
}

func (s *NewsletterService) Subscribe(ctx context.Context, sub models.Subscription) (models.Subscription, error) {
	sub.Email = strings.ToLower(strings.TrimSpace(sub.Email))
	if !strings.Contains(sub.Email, "@") {
		return models.Subscription{}, Fail(ErrBadRequest, "Invalid email")
	}
	if sub.Source == "" {
		sub.Source = "footer"
	}
	out, err := s.repo.Subscribe(ctx, sub)
	if errors.Is(err, repo.ErrConflict) {
		return models.Subscription{}, Fail(ErrConflict, "Email already subscribed")
	}
	return out, err
}

// SubscriberPage is one page of the subscriber list.
type SubscriberPage struct {
	Subscribers []models.Subscription `json:"subscribers"`
	Total       int                   `json:"total"`
	Limit       int                   `json:"limit"`
	Offset      int                   `json:"offset"`
}

func (s *NewsletterService) Subscribers(ctx context.Context, activeOnly bool, limit, offset int) (SubscriberPage, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	subs, total, err := s.repo.List(ctx, activeOnly, limit, offset)
	if err != nil {
		return SubscriberPage{}, err
	}
	return SubscriberPage{Subscribers: subs, Total: total, Limit: limit, Offset: offset}, nil
}

// ErrorReport is a client side error forwarded by the frontend.
type ErrorReport struct {
	Message   string         `json:"message"`
	Stack     string         `json:"stack"`
	URL       string         `json:"url"`
	UserAgent string         `json:"userAgent"`
	Extra     map[string]any `json:"extra"`
}

// ReportError logs the report off the request path.
func (s *NewsletterService) ReportError(r ErrorReport, userID int64) {
	task := func(context.Context) error {
		slog.Error("client error report",
			"message", r.Message, "url", r.URL, "user_agent", r.UserAgent, "user_id", userID, "stack", r.Stack, "extra", r.Extra)
		return nil
	}
	if s.wp == nil || !s.wp.Submit("error_report", task) {
		_ = task(context.Background())
	}
}
