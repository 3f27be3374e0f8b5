package postgres

import (
	"context"

	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/baharkarakas/market-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type usersRepo struct{ pool *pgxpool.Pool }

func NewUsers(pool *pgxpool.Pool) repository.Users {
	return &usersRepo{pool: pool}
}

const userColumns = `id, email, phone, full_name, password_hash, user_type, company, about, profile_photo_url,
	avatar_url, rating, balance, two_factor_enabled, two_factor_secret, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.FullName, &u.PasswordHash, &u.UserType, &u.Company, &u.About,
		&u.ProfilePhotoURL, &u.AvatarURL, &u.Rating, &u.Balance, &u.TwoFactorEnabled, &u.TwoFactorSecret,
		&u.CreatedAt, &u.UpdatedAt)
	return u, mapErr(err)
}

func (r *usersRepo) Create(ctx context.Context, u models.User) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`INSERT INTO users(email, phone, full_name, password_hash, user_type)
		 VALUES($1,$2,$3,$4,$5) RETURNING `+userColumns,
		u.Email, u.Phone, u.FullName, u.PasswordHash, u.UserType,
	))
}

func (r *usersRepo) GetByID(ctx context.Context, id int64) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *usersRepo) GetByLogin(ctx context.Context, emailOrPhone string) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1) OR phone=$1 LIMIT 1`, emailOrPhone))
}

func (r *usersRepo) UpdateProfile(ctx context.Context, id int64, p models.ProfileUpdate) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`UPDATE users SET
			full_name = COALESCE($2, full_name),
			phone = COALESCE($3, phone),
			company = COALESCE($4, company),
			about = COALESCE($5, about),
			profile_photo_url = COALESCE($6, profile_photo_url),
			updated_at = now()
		 WHERE id=$1 RETURNING `+userColumns,
		id, p.FullName, p.Phone, p.Company, p.About, p.ProfilePhotoURL,
	))
}

func (r *usersRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return expectOne(r.pool.Exec(ctx, `UPDATE users SET password_hash=$2, updated_at=now() WHERE id=$1`, id, hash))
}

func (r *usersRepo) SetTwoFactor(ctx context.Context, id int64, secret *string, enabled bool) error {
	return expectOne(r.pool.Exec(ctx,
		`UPDATE users SET two_factor_secret=$2, two_factor_enabled=$3, updated_at=now() WHERE id=$1`,
		id, secret, enabled))
}
