package postgres

import (
	"context"

	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rolesRepo struct{ pool *pgxpool.Pool }

const roleSelect = `SELECT r.id, r.name, r.display_name, r.description, r.is_system, r.created_at,
	(SELECT COUNT(*) FROM user_roles ur WHERE ur.role_id = r.id),
	(SELECT COUNT(*) FROM role_permissions rp WHERE rp.role_id = r.id)
	FROM roles r`

func scanRole(row pgx.Row) (models.Role, error) {
	var ro models.Role
	err := row.Scan(&ro.ID, &ro.Name, &ro.DisplayName, &ro.Description, &ro.IsSystem, &ro.CreatedAt,
		&ro.UsersCount, &ro.PermissionsCount)
	return ro, mapErr(err)
}

func (r *rolesRepo) queryRoles(ctx context.Context, sql string, args ...any) ([]models.Role, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.Role{}
	for rows.Next() {
		ro, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ro)
	}
	return out, mapErr(rows.Err())
}

func (r *rolesRepo) List(ctx context.Context) ([]models.Role, error) {
	return r.queryRoles(ctx, roleSelect+` ORDER BY r.is_system DESC, r.name`)
}

func (r *rolesRepo) ListForUser(ctx context.Context, userID int64) ([]models.Role, error) {
	return r.queryRoles(ctx, roleSelect+` JOIN user_roles u ON u.role_id = r.id WHERE u.user_id=$1 ORDER BY r.name`, userID)
}

func (r *rolesRepo) Create(ctx context.Context, ro models.Role) (models.Role, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO roles(name, display_name, description, is_system) VALUES($1,$2,$3,false) RETURNING id`,
		ro.Name, ro.DisplayName, ro.Description).Scan(&id)
	if err != nil {
		return models.Role{}, mapErr(err)
	}
	return scanRole(r.pool.QueryRow(ctx, roleSelect+` WHERE r.id=$1`, id))
}

func (r *rolesRepo) Update(ctx context.Context, id int64, u models.RoleUpdate) (models.Role, error) {
	err := expectOne(r.pool.Exec(ctx,
		`UPDATE roles SET display_name=COALESCE($2, display_name), description=COALESCE($3, description), updated_at=now()
		 WHERE id=$1 AND NOT is_system`, id, u.DisplayName, u.Description))
	if err != nil {
		return models.Role{}, err
	}
	return scanRole(r.pool.QueryRow(ctx, roleSelect+` WHERE r.id=$1`, id))
}

func (r *rolesRepo) Delete(ctx context.Context, id int64) error {
	return expectOne(r.pool.Exec(ctx, `DELETE FROM roles WHERE id=$1 AND NOT is_system`, id))
}

func (r *rolesRepo) Assign(ctx context.Context, ur models.UserRole) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO user_roles(user_id, role_id, assigned_by) VALUES($1,$2,$3) ON CONFLICT DO NOTHING`,
		ur.UserID, ur.RoleID, ur.AssignedBy)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *rolesRepo) Unassign(ctx context.Context, userID, roleID int64) error {
	return expectOne(r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id=$1 AND role_id=$2`, userID, roleID))
}

func (r *rolesRepo) HasAnyRole(ctx context.Context, userID int64, names ...string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_roles ur JOIN roles ro ON ro.id = ur.role_id
		 WHERE ur.user_id=$1 AND ro.name = ANY($2))`, userID, names).Scan(&ok)
	return ok, mapErr(err)
}

func scanPermissions(rows pgx.Rows, withFlag bool) ([]models.Permission, error) {
	defer rows.Close()
	out := []models.Permission{}
	for rows.Next() {
		var p models.Permission
		dest := []any{&p.ID, &p.Name, &p.DisplayName, &p.Category, &p.Description}
		if withFlag {
			var has bool
			p.HasPermission = &has
			dest = append(dest, p.HasPermission)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, p)
	}
	return out, mapErr(rows.Err())
}

func (r *rolesRepo) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, display_name, category, description FROM permissions ORDER BY category, name`)
	if err != nil {
		return nil, mapErr(err)
	}
	return scanPermissions(rows, false)
}

func (r *rolesRepo) ListRolePermissions(ctx context.Context, roleID int64) ([]models.Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.name, p.display_name, p.category, p.description,
			EXISTS(SELECT 1 FROM role_permissions rp WHERE rp.role_id=$1 AND rp.permission_id=p.id)
		 FROM permissions p ORDER BY p.category, p.name`, roleID)
	if err != nil {
		return nil, mapErr(err)
	}
	return scanPermissions(rows, true)
}

// ListUserPermissions returns role permissions plus granted overrides, minus denied overrides.
func (r *rolesRepo) ListUserPermissions(ctx context.Context, userID int64) ([]models.Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.name, p.display_name, p.category, p.description FROM permissions p
		 WHERE (
			EXISTS(SELECT 1 FROM role_permissions rp JOIN user_roles ur ON ur.role_id = rp.role_id
				WHERE ur.user_id=$1 AND rp.permission_id=p.id)
			OR EXISTS(SELECT 1 FROM user_permission_overrides o
				WHERE o.user_id=$1 AND o.permission_id=p.id AND o.is_granted)
		 )
		 AND NOT EXISTS(SELECT 1 FROM user_permission_overrides o
			WHERE o.user_id=$1 AND o.permission_id=p.id AND NOT o.is_granted)
		 ORDER BY p.category, p.name`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	return scanPermissions(rows, false)
}

func (r *rolesRepo) GrantToRole(ctx context.Context, roleID, permissionID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO role_permissions(role_id, permission_id) VALUES($1,$2) ON CONFLICT DO NOTHING`, roleID, permissionID)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *rolesRepo) RevokeFromRole(ctx context.Context, roleID, permissionID int64) error {
	return expectOne(r.pool.Exec(ctx,
		`DELETE FROM role_permissions WHERE role_id=$1 AND permission_id=$2`, roleID, permissionID))
}

func (r *rolesRepo) ListOverrides(ctx context.Context, userID int64) ([]models.PermissionOverride, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT o.user_id, o.permission_id, p.name, o.is_granted, o.granted_by, o.created_at
		 FROM user_permission_overrides o JOIN permissions p ON p.id = o.permission_id
		 WHERE o.user_id=$1 ORDER BY p.name`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.PermissionOverride{}
	for rows.Next() {
		var o models.PermissionOverride
		if err := rows.Scan(&o.UserID, &o.PermissionID, &o.Name, &o.IsGranted, &o.GrantedBy, &o.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, o)
	}
	return out, mapErr(rows.Err())
}

func (r *rolesRepo) SetOverride(ctx context.Context, o models.PermissionOverride) (models.PermissionOverride, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO user_permission_overrides(user_id, permission_id, is_granted, granted_by)
		 VALUES($1,$2,$3,$4)
		 ON CONFLICT (user_id, permission_id) DO UPDATE SET is_granted=EXCLUDED.is_granted, granted_by=EXCLUDED.granted_by
		 RETURNING created_at`,
		o.UserID, o.PermissionID, o.IsGranted, o.GrantedBy).Scan(&o.CreatedAt)
	return o, mapErr(err)
}

func (r *rolesRepo) DeleteOverride(ctx context.Context, userID, permissionID int64) error {
	return expectOne(r.pool.Exec(ctx,
		`DELETE FROM user_permission_overrides WHERE user_id=$1 AND permission_id=$2`, userID, permissionID))
}
