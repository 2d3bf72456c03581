package handlers

import (
	"net/http"

	"project-management-api/internal/identity"
	"project-management-api/internal/team"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EmployeeHandler serves employees and the role catalogue.
type EmployeeHandler struct {
	base
	identity *identity.Service
	teams    *team.Service
}

func NewEmployeeHandler(logger *zap.SugaredLogger, ids *identity.Service, teams *team.Service) *EmployeeHandler {
	return &EmployeeHandler{
		base:     base{logger: logger},
		identity: ids,
		teams:    teams,
	}
}

func (h *EmployeeHandler) ListEmployees(c *gin.Context) {
	employees, err := h.identity.ListEmployees(c.Request.Context())
	if err != nil {
		h.fail(c, "ListEmployees", err)
		return
	}
	c.JSON(http.StatusOK, employees)
}

func (h *EmployeeHandler) GetEmployee(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	employee, err := h.identity.GetEmployee(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "GetEmployee", err)
		return
	}
	c.JSON(http.StatusOK, employee)
}

// TeamsOf lists the teams the employee belongs to.
// GET /api/employees/:id/teams
func (h *EmployeeHandler) TeamsOf(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.identity.GetEmployee(c.Request.Context(), id); err != nil {
		h.fail(c, "TeamsOf", err)
		return
	}
	teams, err := h.teams.TeamsOf(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "TeamsOf", err)
		return
	}
	c.JSON(http.StatusOK, teams)
}

type assignRoleReq struct {
	RoleID uint `json:"roleId" binding:"required"`
}

// AssignRole changes the role of an employee. Admin only.
// PUT /api/employees/:id/role
func (h *EmployeeHandler) AssignRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req assignRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	employee, err := h.identity.AssignRole(c.Request.Context(), id, req.RoleID)
	if err != nil {
		h.fail(c, "AssignRole", err)
		return
	}
	c.JSON(http.StatusOK, employee)
}

func (h *EmployeeHandler) ListRoles(c *gin.Context) {
	roles, err := h.identity.ListRoles(c.Request.Context())
	if err != nil {
		h.fail(c, "ListRoles", err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

type createRoleReq struct {
	Name string `json:"name" binding:"required"`
}

func (h *EmployeeHandler) CreateRole(c *gin.Context) {
	var req createRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	role, err := h.identity.CreateRole(c.Request.Context(), req.Name)
	if err != nil {
		h.fail(c, "CreateRole", err)
		return
	}
	c.JSON(http.StatusCreated, role)
}

func (h *EmployeeHandler) DeleteRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.identity.DeleteRole(c.Request.Context(), id); err != nil {
		h.fail(c, "DeleteRole", err)
		return
	}
	c.Status(http.StatusNoContent)
}
