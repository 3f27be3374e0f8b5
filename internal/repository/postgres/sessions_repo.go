package postgres

import (
	"context"

	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type sessionsRepo struct{ pool *pgxpool.Pool }

const sessionColumns = `id, user_id, token_id, verified, device_info, ip_address, expires_at, last_active, created_at`

func scanSession(row pgx.Row) (models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.UserID, &s.TokenID, &s.Verified, &s.DeviceInfo, &s.IPAddress, &s.ExpiresAt,
		&s.LastActive, &s.CreatedAt)
	return s, mapErr(err)
}

func (r *sessionsRepo) Create(ctx context.Context, s models.Session) (models.Session, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`INSERT INTO user_sessions(user_id, token_id, verified, device_info, ip_address, expires_at)
		 VALUES($1,$2,$3,$4,$5,$6) RETURNING `+sessionColumns,
		s.UserID, s.TokenID, s.Verified, s.DeviceInfo, s.IPAddress, s.ExpiresAt))
}

func (r *sessionsRepo) GetByToken(ctx context.Context, tokenID string) (models.Session, error) {
	return scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM user_sessions WHERE token_id=$1`, tokenID))
}

func (r *sessionsRepo) Verify(ctx context.Context, tokenID string, s models.Session) error {
	return expectOne(r.pool.Exec(ctx,
		`UPDATE user_sessions SET token_id=$2, verified=true, expires_at=$3, last_active=now()
		 WHERE token_id=$1 AND verified=false`,
		tokenID, s.TokenID, s.ExpiresAt))
}

func (r *sessionsRepo) Touch(ctx context.Context, tokenID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE user_sessions SET last_active=now() WHERE token_id=$1`, tokenID)
	return mapErr(err)
}

func (r *sessionsRepo) ListActive(ctx context.Context, userID int64) ([]models.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM user_sessions
		 WHERE user_id=$1 AND verified AND expires_at > now() ORDER BY last_active DESC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, mapErr(rows.Err())
}

func (r *sessionsRepo) Delete(ctx context.Context, userID, id int64) error {
	return expectOne(r.pool.Exec(ctx, `DELETE FROM user_sessions WHERE id=$1 AND user_id=$2`, id, userID))
}

func (r *sessionsRepo) DeleteAllExcept(ctx context.Context, userID int64, keepTokenID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_sessions WHERE user_id=$1 AND token_id<>$2`, userID, keepTokenID)
	return mapErr(err)
}
