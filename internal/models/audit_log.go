package models

import "time"

type AuditLog struct {
	ID         int64          `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   *int64         `json:"entity_id"`
	ActorID    *int64         `json:"actor_id"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}
