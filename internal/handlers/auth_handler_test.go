package handlers_test

import (
	"net/http"
	"testing"

	"project-management-api/internal/identity"
	"project-management-api/internal/models"
	"project-management-api/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestRegisterLoginLogout(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/register", "", map[string]any{
		"firstName":       "Ada",
		"lastName":        "Lovelace",
		"email":           "Ada@Example.com",
		"phoneNumber":     "(555) 123-4567",
		"password":        "Engine#1843",
		"passwordConfirm": "Engine#1843",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[identity.EmployeeView](t, w)
	require.Equal(t, "ada@example.com", created.Email)
	require.Equal(t, models.RoleMember, created.Role.Name)

	w = s.do(http.MethodPost, "/api/login", "", map[string]string{"email": "ada@example.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w))

	w = s.do(http.MethodPost, "/api/login", "", map[string]string{"email": "ada@example.com", "password": "Engine#1843"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[struct {
		Token    string                `json:"token"`
		Employee identity.EmployeeView `json:"employee"`
	}](t, w)
	require.NotEmpty(t, login.Token)
	require.Equal(t, created.ID, login.Employee.ID)

	w = s.do(http.MethodGet, "/api/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, created.ID, decode[identity.EmployeeView](t, w).ID)

	w = s.do(http.MethodPost, "/api/logout", login.Token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/api/me", login.Token, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_Rejections(t *testing.T) {
	s := newServer(t)
	existing := testutil.SeedEmployee(t, s.db, "grace")

	tests := []struct {
		name     string
		body     map[string]any
		wantCode int
		wantErr  string
	}{
		{"malformed body", map[string]any{"firstName": "x"}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad phone", map[string]any{
			"firstName": "A", "lastName": "B", "email": "a@example.com", "phoneNumber": "555",
			"password": "Engine#1843", "passwordConfirm": "Engine#1843",
		}, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"duplicate email", map[string]any{
			"firstName": "A", "lastName": "B", "email": existing.Email, "phoneNumber": "(555) 999-0000",
			"password": "Engine#1843", "passwordConfirm": "Engine#1843",
		}, http.StatusConflict, "CONFLICT"},
		{"unknown role", map[string]any{
			"firstName": "A", "lastName": "B", "email": "new@example.com", "phoneNumber": "(555) 999-0001",
			"password": "Engine#1843", "passwordConfirm": "Engine#1843", "roleId": 999,
		}, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/register", "", tt.body)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			require.Equal(t, tt.wantErr, errorCode(t, w))
		})
	}
}

func TestAdminRoutes(t *testing.T) {
	s := newServer(t)
	e := testutil.SeedEmployee(t, s.db, "linus")

	w := s.do(http.MethodPost, "/api/roles", s.as(e, models.RoleMember), map[string]string{"name": "auditor"})
	require.Equal(t, http.StatusForbidden, w.Code)

	admin := s.as(e, models.RoleAdmin)
	w = s.do(http.MethodPost, "/api/roles", admin, map[string]string{"name": "auditor"})
	require.Equal(t, http.StatusCreated, w.Code)
	role := decode[identity.RoleView](t, w)
	require.Equal(t, "AUDITOR", role.Name)

	w = s.do(http.MethodPost, "/api/roles", admin, map[string]string{"name": "Auditor"})
	require.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPut, "/api/employees/"+itoa(e.ID)+"/role", admin, map[string]uint{"roleId": role.ID})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "AUDITOR", decode[identity.EmployeeView](t, w).Role.Name)

	w = s.do(http.MethodDelete, "/api/roles/"+itoa(role.ID), admin, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
