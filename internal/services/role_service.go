package services

import (
	"context"
	"errors"
	"strings"

	"github.com/baharkarakas/market-backend/internal/models"
	repo "github.com/baharkarakas/market-backend/internal/repository"
)

type RoleService struct {
	roles repo.Roles
	audit *Auditor
}

func NewRoleService(r repo.Roles, a *Auditor) *RoleService { return &RoleService{roles: r, audit: a} }

func (s *RoleService) HasAnyRole(ctx context.Context, userID int64, names ...string) (bool, error) {
	return s.roles.HasAnyRole(ctx, userID, names...)
}

// IsStaff reports whether the user holds owner, admin or support.
func (s *RoleService) IsStaff(ctx context.Context, userID int64) (bool, error) {
	return s.roles.HasAnyRole(ctx, userID, models.StaffRoles...)
}

func (s *RoleService) List(ctx context.Context) ([]models.Role, error) { return s.roles.List(ctx) }

// ListForUser lets users read their own roles; staff may read anyone's.
func (s *RoleService) ListForUser(ctx context.Context, actorID, userID int64) ([]models.Role, error) {
	if actorID != userID {
		staff, err := s.IsStaff(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if !staff {
			return nil, Fail(ErrForbidden, "Access denied")
		}
	}
	return s.roles.ListForUser(ctx, userID)
}

func (s *RoleService) Create(ctx context.Context, actorID int64, r models.Role) (models.Role, error) {
	r.Name = strings.ToLower(strings.TrimSpace(r.Name))
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	if r.Name == "" || r.DisplayName == "" {
		return models.Role{}, Fail(ErrBadRequest, "name and display_name are required")
	}
	created, err := s.roles.Create(ctx, r)
	if errors.Is(err, repo.ErrConflict) {
		return models.Role{}, Fail(ErrConflict, "Role already exists")
	}
	if err != nil {
		return models.Role{}, err
	}
	s.audit.Record("role", created.ID, actorID, "created", map[string]any{"name": created.Name})
	return created, nil
}

func (s *RoleService) Update(ctx context.Context, actorID, id int64, u models.RoleUpdate) (models.Role, error) {
	if id == 0 {
		return models.Role{}, Fail(ErrBadRequest, "id is required")
	}
	r, err := s.roles.Update(ctx, id, u)
	if err != nil {
		return models.Role{}, notFound(err, "Role not found or is system role")
	}
	s.audit.Record("role", id, actorID, "updated", nil)
	return r, nil
}

func (s *RoleService) Delete(ctx context.Context, actorID, id int64) error {
	if id == 0 {
		return Fail(ErrBadRequest, "id is required")
	}
	if err := s.roles.Delete(ctx, id); err != nil {
		return notFound(err, "Role not found or is system role")
	}
	s.audit.Record("role", id, actorID, "deleted", nil)
	return nil
}

func (s *RoleService) Assign(ctx context.Context, actorID, userID, roleID int64) (bool, error) {
	if userID == 0 || roleID == 0 {
		return false, Fail(ErrBadRequest, "user_id and role_id are required")
	}
	created, err := s.roles.Assign(ctx, models.UserRole{UserID: userID, RoleID: roleID, AssignedBy: &actorID})
	if err != nil {
		return false, err
	}
	if created {
		s.audit.Record("user_role", userID, actorID, "assigned", map[string]any{"role_id": roleID})
	}
	return created, nil
}

func (s *RoleService) Unassign(ctx context.Context, actorID, userID, roleID int64) error {
	if userID == 0 || roleID == 0 {
		return Fail(ErrBadRequest, "user_id and role_id are required")
	}
	if err := s.roles.Unassign(ctx, userID, roleID); err != nil {
		return notFound(err, "Role assignment not found")
	}
	s.audit.Record("user_role", userID, actorID, "unassigned", map[string]any{"role_id": roleID})
	return nil
}

func (s *RoleService) Permissions(ctx context.Context) ([]models.Permission, error) {
	return s.roles.ListPermissions(ctx)
}

func (s *RoleService) RolePermissions(ctx context.Context, roleID int64) ([]models.Permission, error) {
	return s.roles.ListRolePermissions(ctx, roleID)
}

func (s *RoleService) UserPermissions(ctx context.Context, actorID, userID int64) ([]models.Permission, error) {
	if actorID != userID {
		staff, err := s.IsStaff(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if !staff {
			return nil, Fail(ErrForbidden, "Access denied")
		}
	}
	return s.roles.ListUserPermissions(ctx, userID)
}

func (s *RoleService) Overrides(ctx context.Context, userID int64) ([]models.PermissionOverride, error) {
	return s.roles.ListOverrides(ctx, userID)
}

func (s *RoleService) Grant(ctx context.Context, actorID, roleID, permissionID int64) (bool, error) {
	if roleID == 0 || permissionID == 0 {
		return false, Fail(ErrBadRequest, "role_id and permission_id are required")
	}
	created, err := s.roles.GrantToRole(ctx, roleID, permissionID)
	if err != nil {
		return false, err
	}
	s.audit.Record("role", roleID, actorID, "permission_granted", map[string]any{"permission_id": permissionID})
	return created, nil
}

func (s *RoleService) Revoke(ctx context.Context, actorID, roleID, permissionID int64) error {
	if roleID == 0 || permissionID == 0 {
		return Fail(ErrBadRequest, "role_id and permission_id are required")
	}
	if err := s.roles.RevokeFromRole(ctx, roleID, permissionID); err != nil {
		return notFound(err, "Permission not assigned to role")
	}
	s.audit.Record("role", roleID, actorID, "permission_revoked", map[string]any{"permission_id": permissionID})
	return nil
}

func (s *RoleService) SetOverride(ctx context.Context, actorID int64, o models.PermissionOverride) (models.PermissionOverride, error) {
	if o.UserID == 0 || o.PermissionID == 0 {
		return models.PermissionOverride{}, Fail(ErrBadRequest, "user_id and permission_id are required")
	}
	o.GrantedBy = &actorID
	out, err := s.roles.SetOverride(ctx, o)
	if err != nil {
		return models.PermissionOverride{}, err
	}
	s.audit.Record("user", o.UserID, actorID, "permission_override", map[string]any{
		"permission_id": o.PermissionID, "is_granted": o.IsGranted,
	})
	return out, nil
}

func (s *RoleService) DeleteOverride(ctx context.Context, actorID, userID, permissionID int64) error {
	if userID == 0 || permissionID == 0 {
		return Fail(ErrBadRequest, "user_id and permission_id are required")
	}
	return notFound(s.roles.DeleteOverride(ctx, userID, permissionID), "Override not found")
}
