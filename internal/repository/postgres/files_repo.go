package postgres

import (
	"context"

	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type filesRepo struct{ pool *pgxpool.Pool }

func (r *filesRepo) Save(ctx context.Context, f models.StoredFile) (models.StoredFile, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO file_storage(user_id, file_name, file_type, file_size, url, data) VALUES($1,$2,$3,$4,$5,$6)
		 RETURNING id, created_at`, f.UserID, f.FileName, f.FileType, f.FileSize, f.URL, f.Data).Scan(&f.ID, &f.CreatedAt)
	return f, mapErr(err)
}

func (r *filesRepo) GetByURL(ctx context.Context, url string) (models.StoredFile, error) {
	var f models.StoredFile
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, file_name, file_type, file_size, url, data, created_at FROM file_storage WHERE url=$1`, url,
	).Scan(&f.ID, &f.UserID, &f.FileName, &f.FileType, &f.FileSize, &f.URL, &f.Data, &f.CreatedAt)
	return f, mapErr(err)
}
