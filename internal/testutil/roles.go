package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/baharkarakas/market-backend/internal/models"
	repo "github.com/baharkarakas/market-backend/internal/repository"
)

type rolesMem Store

func (m *rolesMem) s() *Store { return (*Store)(m) }

func (s *Store) roleView(r *models.Role) models.Role {
	out := *r
	for k := range s.userRoles {
		if k[1] == r.ID {
			out.UsersCount++
		}
	}
	for k := range s.rolePerms {
		if k[0] == r.ID {
			out.PermissionsCount++
		}
	}
	return out
}

func (m *rolesMem) List(_ context.Context) ([]models.Role, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.Role{}
	for _, r := range s.roles {
		out = append(out, s.roleView(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *rolesMem) ListForUser(_ context.Context, userID int64) ([]models.Role, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.Role{}
	for k := range s.userRoles {
		if k[0] == userID {
			out = append(out, s.roleView(s.roles[k[1]]))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *rolesMem) Create(_ context.Context, r models.Role) (models.Role, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Role{}, err
	}
	defer s.unlock()
	for _, ex := range s.roles {
		if ex.Name == r.Name {
			return models.Role{}, repo.ErrConflict
		}
	}
	r.ID, r.IsSystem, r.CreatedAt = s.next(), false, time.Now()
	s.roles[r.ID] = &r
	return r, nil
}

func (m *rolesMem) Update(_ context.Context, id int64, u models.RoleUpdate) (models.Role, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Role{}, err
	}
	defer s.unlock()
	r, ok := s.roles[id]
	if !ok || r.IsSystem {
		return models.Role{}, repo.ErrNotFound
	}
	if u.DisplayName != nil {
		r.DisplayName = *u.DisplayName
	}
	if u.Description != nil {
		r.Description = u.Description
	}
	return s.roleView(r), nil
}

func (m *rolesMem) Delete(_ context.Context, id int64) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	r, ok := s.roles[id]
	if !ok || r.IsSystem {
		return repo.ErrNotFound
	}
	delete(s.roles, id)
	return nil
}

func (m *rolesMem) Assign(_ context.Context, ur models.UserRole) (bool, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.unlock()
	if _, ok := s.roles[ur.RoleID]; !ok {
		return false, repo.ErrNotFound
	}
	key := [2]int64{ur.UserID, ur.RoleID}
	if _, ok := s.userRoles[key]; ok {
		return false, nil
	}
	ur.AssignedAt = time.Now()
	s.userRoles[key] = ur
	return true, nil
}

func (m *rolesMem) Unassign(_ context.Context, userID, roleID int64) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	key := [2]int64{userID, roleID}
	if _, ok := s.userRoles[key]; !ok {
		return repo.ErrNotFound
	}
	delete(s.userRoles, key)
	return nil
}

func (m *rolesMem) HasAnyRole(_ context.Context, userID int64, names ...string) (bool, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.unlock()
	for k := range s.userRoles {
		if k[0] != userID {
			continue
		}
		for _, n := range names {
			if r := s.roles[k[1]]; r != nil && r.Name == n {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Store) sortedPermissions() []models.Permission {
	out := []models.Permission{}
	for _, p := range s.permissions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *rolesMem) ListPermissions(_ context.Context) ([]models.Permission, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	return s.sortedPermissions(), nil
}

func (m *rolesMem) ListRolePermissions(_ context.Context, roleID int64) ([]models.Permission, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := s.sortedPermissions()
	for i := range out {
		has := s.rolePerms[[2]int64{roleID, out[i].ID}]
		out[i].HasPermission = &has
	}
	return out, nil
}

func (m *rolesMem) ListUserPermissions(_ context.Context, userID int64) ([]models.Permission, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.Permission{}
	for _, p := range s.sortedPermissions() {
		granted := false
		for k := range s.userRoles {
			if k[0] == userID && s.rolePerms[[2]int64{k[1], p.ID}] {
				granted = true
			}
		}
		if o, ok := s.overrides[[2]int64{userID, p.ID}]; ok {
			granted = o.IsGranted
		}
		if granted {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *rolesMem) GrantToRole(_ context.Context, roleID, permissionID int64) (bool, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.unlock()
	key := [2]int64{roleID, permissionID}
	if s.rolePerms[key] {
		return false, nil
	}
	s.rolePerms[key] = true
	return true, nil
}

func (m *rolesMem) RevokeFromRole(_ context.Context, roleID, permissionID int64) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	key := [2]int64{roleID, permissionID}
	if !s.rolePerms[key] {
		return repo.ErrNotFound
	}
	delete(s.rolePerms, key)
	return nil
}

func (m *rolesMem) ListOverrides(_ context.Context, userID int64) ([]models.PermissionOverride, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.PermissionOverride{}
	for k, o := range s.overrides {
		if k[0] == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PermissionID < out[j].PermissionID })
	return out, nil
}

func (m *rolesMem) SetOverride(_ context.Context, o models.PermissionOverride) (models.PermissionOverride, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.PermissionOverride{}, err
	}
	defer s.unlock()
	p, ok := s.permissions[o.PermissionID]
	if !ok {
		return models.PermissionOverride{}, repo.ErrNotFound
	}
	o.Name, o.CreatedAt = p.Name, time.Now()
	s.overrides[[2]int64{o.UserID, o.PermissionID}] = o
	return o, nil
}

func (m *rolesMem) DeleteOverride(_ context.Context, userID, permissionID int64) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	key := [2]int64{userID, permissionID}
	if _, ok := s.overrides[key]; !ok {
		return repo.ErrNotFound
	}
	delete(s.overrides, key)
	return nil
}
