package handlers

import (
	"context"
	"net/http"
	"strings"

	"project-management-api/internal/apperr"
	"project-management-api/internal/models"
	"project-management-api/internal/realtime"
	"project-management-api/internal/team"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TeamHandler serves teams and their memberships.
type TeamHandler struct {
	base
	teams *team.Service
}

func NewTeamHandler(logger *zap.SugaredLogger, events Publisher, teams *team.Service) *TeamHandler {
	return &TeamHandler{
		base:  base{logger: logger, events: events},
		teams: teams,
	}
}

type createTeamReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateTeamReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type addMemberReq struct {
	TeamID     uint   `json:"teamId" binding:"required"`
	EmployeeID uint   `json:"employeeId" binding:"required"`
	Role       string `json:"role"`
}

type changeRoleReq struct {
	Role string `json:"role" binding:"required"`
}

// GetTeams lists teams, or searches them by name when q is given.
// GET /api/teams
func (h *TeamHandler) GetTeams(c *gin.Context) {
	var (
		teams []team.TeamView
		err   error
	)
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		teams, err = h.teams.SearchTeams(c.Request.Context(), q)
	} else {
		teams, err = h.teams.ListTeams(c.Request.Context())
	}
	if err != nil {
		h.fail(c, "GetTeams", err)
		return
	}
	c.JSON(http.StatusOK, teams)
}

func (h *TeamHandler) GetTeamByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := h.teams.GetTeam(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "GetTeamByID", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TeamHandler) CreateTeam(c *gin.Context) {
	var req createTeamReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	t, err := h.teams.CreateTeam(c.Request.Context(), team.TeamDraft{Name: req.Name, Description: req.Description})
	if err != nil {
		h.fail(c, "CreateTeam", err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateTeamReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	t, err := h.teams.UpdateTeam(c.Request.Context(), id, team.TeamPatch{Name: req.Name, Description: req.Description})
	if err != nil {
		h.fail(c, "UpdateTeam", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// DeleteTeam removes a team that no project references.
func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.teams.DeleteTeam(c.Request.Context(), id); err != nil {
		h.fail(c, "DeleteTeam", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMembers lists memberships by teamId, employeeId or role. At least one
// filter is required.
// GET /api/team-members
func (h *TeamHandler) GetMembers(c *gin.Context) {
	teamID, err := queryUint(c, "teamId")
	if err != nil {
		h.fail(c, "GetMembers", err)
		return
	}
	employeeID, err := queryUint(c, "employeeId")
	if err != nil {
		h.fail(c, "GetMembers", err)
		return
	}
	role, err := optionalEnum(queryString(c, "role"), models.ParseTeamRole)
	if err != nil {
		h.fail(c, "GetMembers", err)
		return
	}

	ctx := c.Request.Context()
	var members []team.MemberView
	switch {
	case teamID != nil && role != nil:
		members, err = h.teams.ListByTeamAndRole(ctx, *teamID, *role)
	case teamID != nil:
		members, err = h.teams.ListMembers(ctx, *teamID)
	case employeeID != nil:
		members, err = h.teams.ListMemberships(ctx, *employeeID)
	case role != nil:
		members, err = h.teams.ListByRole(ctx, *role)
	default:
		err = apperr.Validation("one of teamId, employeeId or role is required")
	}
	if err != nil {
		h.fail(c, "GetMembers", err)
		return
	}

	if employeeID != nil && teamID != nil {
		members = filterMembers(members, func(m team.MemberView) bool { return m.Employee.ID == *employeeID })
	}
	if role != nil && employeeID != nil && teamID == nil {
		members = filterMembers(members, func(m team.MemberView) bool { return m.Role == *role })
	}
	c.JSON(http.StatusOK, members)
}

// AddMember puts an employee on a team.
// POST /api/team-members
func (h *TeamHandler) AddMember(c *gin.Context) {
	var req addMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	role := models.TeamRoleMember
	if req.Role != "" {
		var err error
		if role, err = models.ParseTeamRole(req.Role); err != nil {
			h.fail(c, "AddMember", err)
			return
		}
	}

	member, err := h.teams.AddMember(c.Request.Context(), req.TeamID, req.EmployeeID, role)
	if err != nil {
		h.fail(c, "AddMember", err)
		return
	}
	h.publish(c, realtime.MemberAdded, member.ID, member, h.teamAudience(c.Request.Context(), member.TeamID))
	c.JSON(http.StatusCreated, member)
}

// ChangeRole updates the role of a membership.
// PATCH /api/team-members/:id
func (h *TeamHandler) ChangeRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req changeRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	role, err := models.ParseTeamRole(req.Role)
	if err != nil {
		h.fail(c, "ChangeRole", err)
		return
	}

	member, err := h.teams.ChangeRole(c.Request.Context(), id, role)
	if err != nil {
		h.fail(c, "ChangeRole", err)
		return
	}
	h.publish(c, realtime.MemberUpdated, member.ID, member, h.teamAudience(c.Request.Context(), member.TeamID))
	c.JSON(http.StatusOK, member)
}

// RemoveMember deletes a membership. Unknown ids are not an error.
// DELETE /api/team-members/:id
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	removed, err := h.teams.RemoveMember(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "RemoveMember", err)
		return
	}
	if removed != nil {
		audience := append(h.teamAudience(c.Request.Context(), removed.TeamID), removed.Employee.ID)
		h.publish(c, realtime.MemberRemoved, removed.ID, removed, audience)
	}
	c.Status(http.StatusNoContent)
}

func (h *TeamHandler) teamAudience(ctx context.Context, teamID uint) []uint {
	members, err := h.teams.ListMembers(ctx, teamID)
	if err != nil {
		h.logger.Warnw("failed to resolve team audience", "teamID", teamID, "err", err)
		return nil
	}
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.Employee.ID)
	}
	return ids
}

func filterMembers(in []team.MemberView, keep func(team.MemberView) bool) []team.MemberView {
	out := in[:0]
	for _, m := range in {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func queryString(c *gin.Context, name string) *string {
	v, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}
