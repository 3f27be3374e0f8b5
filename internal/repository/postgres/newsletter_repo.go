package postgres

import (
	"context"

	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type newsletterRepo struct{ pool *pgxpool.Pool }

func (r *newsletterRepo) Subscribe(ctx context.Context, s models.Subscription) (models.Subscription, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO newsletter_subscriptions(email, source, ip_address, user_agent, user_id) VALUES($1,$2,$3,$4,$5)
		 RETURNING id, is_active, subscribed_at`, s.Email, s.Source, s.IPAddress, s.UserAgent, s.UserID,
	).Scan(&s.ID, &s.IsActive, &s.SubscribedAt)
	return s, mapErr(err)
}

func (r *newsletterRepo) List(ctx context.Context, activeOnly bool, limit, offset int) ([]models.Subscription, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM newsletter_subscriptions WHERE ($1 = false OR is_active)`, activeOnly).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, source, ip_address, user_agent, user_id, is_active, subscribed_at
		 FROM newsletter_subscriptions WHERE ($1 = false OR is_active)
		 ORDER BY subscribed_at DESC LIMIT $2 OFFSET $3`, activeOnly, limit, offset)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	out := []models.Subscription{}
	for rows.Next() {
		var s models.Subscription
		if err := rows.Scan(&s.ID, &s.Email, &s.Source, &s.IPAddress, &s.UserAgent, &s.UserID, &s.IsActive, &s.SubscribedAt); err != nil {
			return nil, 0, mapErr(err)
		}
		out = append(out, s)
	}
	return out, total, mapErr(rows.Err())
}
