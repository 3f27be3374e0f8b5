package services

import (
	"context"
	"log/slog"

	"github.com/baharkarakas/market-backend/internal/models"
	repo "github.com/baharkarakas/market-backend/internal/repository"
	"github.com/baharkarakas/market-backend/internal/worker"
)

// Auditor writes audit log entries in the background.
type Auditor struct {
	log repo.AuditLogs
	wp  *worker.Pool
}

func NewAuditor(l repo.AuditLogs, wp *worker.Pool) *Auditor { return &Auditor{log: l, wp: wp} }

func (a *Auditor) Record(entityType string, entityID, actorID int64, action string, details map[string]any) {
	if a == nil || a.log == nil {
		return
	}
	entry := models.AuditLog{
		EntityType: entityType,
		EntityID:   &entityID,
		ActorID:    &actorID,
		Action:     action,
		Details:    details,
	}
	task := func(ctx context.Context) error { return a.log.Create(ctx, entry) }
	if a.wp == nil {
		if err := task(context.Background()); err != nil {
			slog.Warn("audit log write failed", "entity", entityType, "action", action, "err", err)
		}
		return
	}
	a.wp.Submit("audit_log", task)
}
