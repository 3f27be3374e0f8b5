package services_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/baharkarakas/market-backend/internal/services"
	"github.com/baharkarakas/market-backend/internal/testutil"
)

func TestRoles(t *testing.T) {
	Convey("Given an admin and a regular user", t, func() {
		s := testutil.NewStore()
		repos := s.Repos()
		svc := services.NewRoleService(repos.Roles, services.NewAuditor(repos.AuditLogs, nil))
		ctx := context.Background()
		admin := s.SeedUser(models.User{Email: "admin@example.com", FullName: "Admin"})
		user := s.SeedUser(models.User{Email: "user@example.com", FullName: "User"})
		s.GrantRole(admin.ID, models.RoleAdmin)

		roleID := func(name string) int64 {
			roles, err := svc.List(ctx)
			So(err, ShouldBeNil)
			for _, r := range roles {
				if r.Name == name {
					return r.ID
				}
			}
			return 0
		}
		perms, err := svc.Permissions(ctx)
		So(err, ShouldBeNil)
		So(len(perms), ShouldBeGreaterThan, 0)

		Convey("staff is resolved from roles", func() {
			ok, err := svc.IsStaff(ctx, admin.ID)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			ok, _ = svc.IsStaff(ctx, user.ID)
			So(ok, ShouldBeFalse)
		})

		Convey("system roles are protected", func() {
			err := svc.Delete(ctx, admin.ID, roleID(models.RoleOwner))
			So(errors.Is(err, services.ErrNotFound), ShouldBeTrue)
		})

		Convey("custom roles can be created once and removed", func() {
			r, err := svc.Create(ctx, admin.ID, models.Role{Name: " Moderator ", DisplayName: "Moderator"})
			So(err, ShouldBeNil)
			So(r.Name, ShouldEqual, "moderator")
			_, err = svc.Create(ctx, admin.ID, models.Role{Name: "moderator", DisplayName: "Again"})
			So(errors.Is(err, services.ErrConflict), ShouldBeTrue)

			name := "Mods"
			updated, err := svc.Update(ctx, admin.ID, r.ID, models.RoleUpdate{DisplayName: &name})
			So(err, ShouldBeNil)
			So(updated.DisplayName, ShouldEqual, "Mods")

			So(svc.Delete(ctx, admin.ID, r.ID), ShouldBeNil)
			So(s.AuditActions(), ShouldContain, "role:deleted")
		})

		Convey("assigning twice reports the existing grant", func() {
			created, err := svc.Assign(ctx, admin.ID, user.ID, roleID(models.RoleSupport))
			So(err, ShouldBeNil)
			So(created, ShouldBeTrue)
			created, err = svc.Assign(ctx, admin.ID, user.ID, roleID(models.RoleSupport))
			So(err, ShouldBeNil)
			So(created, ShouldBeFalse)

			So(svc.Unassign(ctx, admin.ID, user.ID, roleID(models.RoleSupport)), ShouldBeNil)
			err = svc.Unassign(ctx, admin.ID, user.ID, roleID(models.RoleSupport))
			So(errors.Is(err, services.ErrNotFound), ShouldBeTrue)
		})

		Convey("overrides beat role permissions", func() {
			_, err := svc.Grant(ctx, admin.ID, roleID(models.RoleAdmin), perms[0].ID)
			So(err, ShouldBeNil)
			got, err := svc.UserPermissions(ctx, admin.ID, admin.ID)
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 1)

			_, err = svc.SetOverride(ctx, admin.ID, models.PermissionOverride{UserID: admin.ID, PermissionID: perms[0].ID, IsGranted: false})
			So(err, ShouldBeNil)
			got, _ = svc.UserPermissions(ctx, admin.ID, admin.ID)
			So(len(got), ShouldEqual, 0)

			So(svc.DeleteOverride(ctx, admin.ID, admin.ID, perms[0].ID), ShouldBeNil)
			got, _ = svc.UserPermissions(ctx, admin.ID, admin.ID)
			So(len(got), ShouldEqual, 1)
		})

		Convey("users cannot read other users' permissions", func() {
			_, err := svc.UserPermissions(ctx, user.ID, admin.ID)
			So(errors.Is(err, services.ErrForbidden), ShouldBeTrue)
			_, err = svc.ListForUser(ctx, user.ID, admin.ID)
			So(errors.Is(err, services.ErrForbidden), ShouldBeTrue)
		})
	})
}
