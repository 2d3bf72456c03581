package identity

import (
	"context"
	"testing"

	"project-management-api/internal/apperr"
	"project-management-api/internal/models"
	"project-management-api/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.MustDB(t)
	return NewService(testutil.Logger(), db), db
}

func memberRoleID(t *testing.T, db *gorm.DB) uint {
	t.Helper()
	var role models.Role
	require.NoError(t, db.Where("name = ?", models.RoleMember).First(&role).Error)
	return role.ID
}

func validRegistration(roleID uint) Registration {
	return Registration{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "Ada@Example.com",
		PhoneNumber:     "(555) 123-4567",
		Password:        "Engine#1843",
		PasswordConfirm: "Engine#1843",
		RoleID:          roleID,
	}
}

func TestRegister_Success(t *testing.T) {
	svc, db := newService(t)
	view, err := svc.Register(context.Background(), validRegistration(memberRoleID(t, db)))
	require.NoError(t, err)
	require.NotZero(t, view.ID)
	require.Equal(t, "ada@example.com", view.Email)
	require.Equal(t, models.RoleMember, view.Role.Name)

	var stored models.Employee
	require.NoError(t, db.First(&stored, view.ID).Error)
	require.NotEqual(t, "Engine#1843", stored.PasswordHash)
}

func TestRegister_Validation(t *testing.T) {
	svc, db := newService(t)
	roleID := memberRoleID(t, db)

	tests := []struct {
		name    string
		mutate  func(r *Registration)
		wantErr error
	}{
		{"bad email", func(r *Registration) { r.Email = "not-an-email" }, ErrInvalidEmail},
		{"bad phone", func(r *Registration) { r.PhoneNumber = "5551234567" }, ErrInvalidPhone},
		{"mismatch", func(r *Registration) { r.PasswordConfirm = "Other#1843" }, ErrPasswordMismatch},
		{"weak", func(r *Registration) { r.Password, r.PasswordConfirm = "password", "password" }, ErrWeakPassword},
		{"no name", func(r *Registration) { r.FirstName = "  " }, ErrNameRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := validRegistration(roleID)
			tt.mutate(&reg)
			_, err := svc.Register(context.Background(), reg)
			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestRegister_DuplicateEmailAndPhone(t *testing.T) {
	svc, db := newService(t)
	roleID := memberRoleID(t, db)
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegistration(roleID))
	require.NoError(t, err)

	_, err = svc.Register(ctx, validRegistration(roleID))
	require.ErrorIs(t, err, ErrEmailTaken)
	require.ErrorIs(t, err, apperr.ErrConflict)

	reg := validRegistration(roleID)
	reg.Email = "other@example.com"
	_, err = svc.Register(ctx, reg)
	require.ErrorIs(t, err, ErrPhoneTaken)

	var count int64
	require.NoError(t, db.Model(&models.Employee{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestRegister_UnknownRole(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Register(context.Background(), validRegistration(999))
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAuthenticate(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	created, err := svc.Register(ctx, validRegistration(memberRoleID(t, db)))
	require.NoError(t, err)

	view, err := svc.Authenticate(ctx, " ADA@example.com ", "Engine#1843")
	require.NoError(t, err)
	require.Equal(t, created.ID, view.ID)

	_, err = svc.Authenticate(ctx, "ada@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "Engine#1843")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAssignRole(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	e := testutil.SeedEmployee(t, db, "bob")

	var admin models.Role
	require.NoError(t, db.Where("name = ?", models.RoleAdmin).First(&admin).Error)

	view, err := svc.AssignRole(ctx, e.ID, admin.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, view.Role.Name)

	got, err := svc.GetEmployee(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, admin.ID, got.Role.ID)

	_, err = svc.AssignRole(ctx, e.ID, 999)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.AssignRole(ctx, 999, admin.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRoles(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	roles, err := svc.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 3)

	created, err := svc.CreateRole(ctx, " auditor ")
	require.NoError(t, err)
	require.Equal(t, "AUDITOR", created.Name)

	_, err = svc.CreateRole(ctx, "Auditor")
	require.ErrorIs(t, err, ErrRoleExists)

	_, err = svc.CreateRole(ctx, "")
	require.ErrorIs(t, err, ErrRoleNameRequired)

	require.NoError(t, svc.DeleteRole(ctx, created.ID))
	_, err = svc.GetRole(ctx, created.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	testutil.SeedEmployee(t, db, "carol")
	err = svc.DeleteRole(ctx, memberRoleID(t, db))
	require.ErrorIs(t, err, ErrRoleInUse)
	require.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestFindByEmail(t *testing.T) {
	svc, db := newService(t)
	e := testutil.SeedEmployee(t, db, "dave")

	view, err := svc.FindByEmail(context.Background(), e.Email)
	require.NoError(t, err)
	require.Equal(t, e.ID, view.ID)

	_, err = svc.FindByEmail(context.Background(), "missing@example.com")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
