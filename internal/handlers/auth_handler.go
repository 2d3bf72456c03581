package handlers

import (
	"net/http"
	"time"

	"project-management-api/internal/auth"
	"project-management-api/internal/handlers/apierr"
	"project-management-api/internal/identity"
	"project-management-api/internal/middleware"
	"project-management-api/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	base
	identity *identity.Service
	tokens   *auth.Tokens
}

func NewAuthHandler(logger *zap.SugaredLogger, ids *identity.Service, tokens *auth.Tokens) *AuthHandler {
	return &AuthHandler{
		base:     base{logger: logger},
		identity: ids,
		tokens:   tokens,
	}
}

type registerReq struct {
	FirstName       string `json:"firstName" binding:"required"`
	LastName        string `json:"lastName" binding:"required"`
	Email           string `json:"email" binding:"required"`
	PhoneNumber     string `json:"phoneNumber" binding:"required"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
	RoleID          uint   `json:"roleId"`
}

// Register creates an employee. Without a roleId the MEMBER role is used.
// POST /api/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	if req.RoleID == 0 {
		roles, err := h.identity.ListRoles(c.Request.Context())
		if err != nil {
			h.fail(c, "Register", err)
			return
		}
		for _, r := range roles {
			if r.Name == models.RoleMember {
				req.RoleID = r.ID
			}
		}
	}

	employee, err := h.identity.Register(c.Request.Context(), identity.Registration{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		PhoneNumber:     req.PhoneNumber,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		RoleID:          req.RoleID,
	})
	if err != nil {
		h.fail(c, "Register", err)
		return
	}
	c.JSON(http.StatusCreated, employee)
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResp struct {
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expiresAt"`
	Employee  identity.EmployeeView `json:"employee"`
}

// Login exchanges credentials for a bearer token.
// POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	employee, err := h.identity.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, "Login", err)
		return
	}

	token, claims, err := h.tokens.Generate(employee.ID, employee.Email, employee.Role.Name)
	if err != nil {
		h.logger.Errorw("failed to generate token", "employeeID", employee.ID, "err", err)
		apierr.WriteApiErrJSON(c, http.StatusInternalServerError, apierr.InternalServerError)
		return
	}

	c.JSON(http.StatusOK, loginResp{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Employee:  employee,
	})
}

// Logout revokes the presented token until it expires.
// POST /api/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		apierr.WriteApiErrJSON(c, http.StatusUnauthorized, apierr.Unauthorized)
		return
	}
	h.tokens.Revoke(claims)
	h.logger.Infow("employee logged out", "employeeID", claims.EmployeeID)
	c.Status(http.StatusNoContent)
}

// Me returns the authenticated employee.
// GET /api/me
func (h *AuthHandler) Me(c *gin.Context) {
	employee, err := h.identity.GetEmployee(c.Request.Context(), middleware.EmployeeID(c))
	if err != nil {
		h.fail(c, "Me", err)
		return
	}
	c.JSON(http.StatusOK, employee)
}
