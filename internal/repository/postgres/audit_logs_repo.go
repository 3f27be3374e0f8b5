package postgres

import (
	"context"

	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type auditLogsRepo struct{ pool *pgxpool.Pool }

func (r *auditLogsRepo) Create(ctx context.Context, l models.AuditLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs(entity_type, entity_id, actor_id, action, details) VALUES($1,$2,$3,$4,$5)`,
		l.EntityType, l.EntityID, l.ActorID, l.Action, l.Details)
	return mapErr(err)
}
