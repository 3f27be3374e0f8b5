package postgres

import (
	"context"

	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type balancesRepo struct{ pool *pgxpool.Pool }

func (r *balancesRepo) Get(ctx context.Context, userID int64) (float64, error) {
	var amount float64
	err := r.pool.QueryRow(ctx, `SELECT balance FROM users WHERE id=$1`, userID).Scan(&amount)
	return amount, mapErr(err)
}

func (r *balancesRepo) ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, deal_id, type, amount, currency, created_at FROM balance_transactions
		 WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.DealID, &t.Type, &t.Amount, &t.Currency, &t.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, t)
	}
	return out, mapErr(rows.Err())
}
