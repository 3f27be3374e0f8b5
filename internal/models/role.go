package models

import "time"

// Role names that grant staff access to support and moderation.
const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleSupport = "support"
)

var StaffRoles = []string{RoleOwner, RoleAdmin, RoleSupport}

type Role struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	DisplayName      string    `json:"display_name"`
	Description      *string   `json:"description"`
	IsSystem         bool      `json:"is_system"`
	UsersCount       int       `json:"users_count"`
	PermissionsCount int       `json:"permissions_count"`
	CreatedAt        time.Time `json:"created_at"`
}

type RoleUpdate struct {
	DisplayName *string `json:"display_name"`
	Description *string `json:"description"`
}

type UserRole struct {
	UserID     int64     `json:"user_id"`
	RoleID     int64     `json:"role_id"`
	AssignedBy *int64    `json:"assigned_by"`
	AssignedAt time.Time `json:"assigned_at"`
}

type Permission struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	DisplayName   string  `json:"display_name"`
	Category      string  `json:"category"`
	Description   *string `json:"description"`
	HasPermission *bool   `json:"has_permission,omitempty"`
}

type PermissionOverride struct {
	UserID       int64     `json:"user_id"`
	PermissionID int64     `json:"permission_id"`
	Name         string    `json:"name,omitempty"`
	IsGranted    bool      `json:"is_granted"`
	GrantedBy    *int64    `json:"granted_by"`
	CreatedAt    time.Time `json:"created_at"`
}
