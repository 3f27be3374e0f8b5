package postgres

import (
	"context"

	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type botsRepo struct{ pool *pgxpool.Pool }

const botColumns = `id, user_id, name, description, platform, settings, created_at, updated_at`

func scanBot(row pgx.Row) (models.Bot, error) {
	var b models.Bot
	err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Description, &b.Platform, &b.Settings, &b.CreatedAt, &b.UpdatedAt)
	return b, mapErr(err)
}

func (r *botsRepo) Create(ctx context.Context, b models.Bot) (models.Bot, error) {
	return scanBot(r.pool.QueryRow(ctx,
		`INSERT INTO bots(user_id, name, description, platform, settings)
		 VALUES($1,$2,$3,$4,COALESCE($5::jsonb, '{}'::jsonb)) RETURNING `+botColumns,
		b.UserID, b.Name, b.Description, b.Platform, jsonArg(b.Settings)))
}

func (r *botsRepo) Get(ctx context.Context, id int64) (models.Bot, error) {
	return scanBot(r.pool.QueryRow(ctx, `SELECT `+botColumns+` FROM bots WHERE id=$1`, id))
}

func (r *botsRepo) ListByUser(ctx context.Context, userID int64) ([]models.Bot, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+botColumns+` FROM bots WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.Bot{}
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, mapErr(rows.Err())
}

func (r *botsRepo) AddNode(ctx context.Context, n models.BotNode) (models.BotNode, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO bot_nodes(bot_id, node_type, title, content, position_x, position_y)
		 VALUES($1,$2,$3,COALESCE($4::jsonb, '{}'::jsonb),$5,$6) RETURNING id, content, created_at`,
		n.BotID, n.NodeType, n.Title, jsonArg(n.Content), n.PositionX, n.PositionY,
	).Scan(&n.ID, &n.Content, &n.CreatedAt)
	return n, mapErr(err)
}

func (r *botsRepo) ListNodes(ctx context.Context, botID int64) ([]models.BotNode, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, bot_id, node_type, title, content, position_x, position_y, created_at
		 FROM bot_nodes WHERE bot_id=$1 ORDER BY id`, botID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.BotNode{}
	for rows.Next() {
		var n models.BotNode
		if err := rows.Scan(&n.ID, &n.BotID, &n.NodeType, &n.Title, &n.Content, &n.PositionX, &n.PositionY, &n.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, n)
	}
	return out, mapErr(rows.Err())
}

func (r *botsRepo) AddConnection(ctx context.Context, c models.BotConnection) (models.BotConnection, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO bot_connections(bot_id, source_node_id, target_node_id, condition_type, condition_value)
		 SELECT $1,$2,$3,$4,$5
		 WHERE EXISTS(SELECT 1 FROM bot_nodes WHERE id=$2 AND bot_id=$1)
		   AND EXISTS(SELECT 1 FROM bot_nodes WHERE id=$3 AND bot_id=$1)
		 RETURNING id, created_at`,
		c.BotID, c.SourceNodeID, c.TargetNodeID, c.ConditionType, c.ConditionValue,
	).Scan(&c.ID, &c.CreatedAt)
	return c, mapErr(err)
}

func (r *botsRepo) ListConnections(ctx context.Context, botID int64) ([]models.BotConnection, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, bot_id, source_node_id, target_node_id, condition_type, condition_value, created_at
		 FROM bot_connections WHERE bot_id=$1 ORDER BY id`, botID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.BotConnection{}
	for rows.Next() {
		var c models.BotConnection
		if err := rows.Scan(&c.ID, &c.BotID, &c.SourceNodeID, &c.TargetNodeID, &c.ConditionType, &c.ConditionValue, &c.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, c)
	}
	return out, mapErr(rows.Err())
}
