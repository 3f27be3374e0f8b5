package postgres

import (
	"context"
	"encoding/json"

	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type blocksRepo struct{ pool *pgxpool.Pool }

const blockColumns = `id, page_id, type, content, styles, position, parent_id, created_at, updated_at`

// jsonArg passes raw JSON as text so an absent document becomes SQL NULL.
func jsonArg(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}

func scanBlock(row pgx.Row) (models.Block, error) {
	var b models.Block
	err := row.Scan(&b.ID, &b.PageID, &b.Type, &b.Content, &b.Styles, &b.Position, &b.ParentID, &b.CreatedAt, &b.UpdatedAt)
	return b, mapErr(err)
}

func (r *blocksRepo) Create(ctx context.Context, b models.Block) (models.Block, error) {
	return scanBlock(r.pool.QueryRow(ctx,
		`INSERT INTO blocks(page_id, type, content, styles, position, parent_id)
		 VALUES($1,$2,COALESCE($3::jsonb, '{}'::jsonb),COALESCE($4::jsonb, '{}'::jsonb),$5,$6)
		 RETURNING `+blockColumns,
		b.PageID, b.Type, jsonArg(b.Content), jsonArg(b.Styles), b.Position, b.ParentID))
}

func (r *blocksRepo) ListByPage(ctx context.Context, pageID int64) ([]models.Block, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+blockColumns+` FROM blocks WHERE page_id=$1 ORDER BY position, id`, pageID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.Block{}
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, mapErr(rows.Err())
}

func (r *blocksRepo) Update(ctx context.Context, id int64, u models.BlockUpdate) (models.Block, error) {
	return scanBlock(r.pool.QueryRow(ctx,
		`UPDATE blocks SET
			content = COALESCE($2::jsonb, content),
			styles = COALESCE($3::jsonb, styles),
			position = COALESCE($4, position),
			updated_at = now()
		 WHERE id=$1 RETURNING `+blockColumns,
		id, jsonArg(u.Content), jsonArg(u.Styles), u.Position))
}

func (r *blocksRepo) Delete(ctx context.Context, id int64) error {
	return expectOne(r.pool.Exec(ctx, `DELETE FROM blocks WHERE id=$1`, id))
}
