package handlers

import (
	"net/http"
	"strings"

	"project-management-api/internal/middleware"
	"project-management-api/internal/models"
	"project-management-api/internal/realtime"
	"project-management-api/internal/work"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProjectHandler struct {
	base
	work *work.Service
}

func NewProjectHandler(logger *zap.SugaredLogger, events Publisher, ws *work.Service) *ProjectHandler {
	return &ProjectHandler{
		base: base{logger: logger, events: events},
		work: ws,
	}
}

// CreateProjectRequest is the payload of POST /api/projects. Exactly one
// of employeeId and teamId should be set.
type CreateProjectRequest struct {
	Name              string  `json:"name" binding:"required"`
	Description       string  `json:"description"`
	Status            string  `json:"status"`
	Priority          string  `json:"priority"`
	StartDate         *string `json:"startDate"`
	EndDate           *string `json:"endDate"`
	Progress          float64 `json:"progress"`
	AssignedManagerID *uint   `json:"assignedManagerId"`
	EmployeeID        *uint   `json:"employeeId"`
	TeamID            *uint   `json:"teamId"`
}

// UpdateProjectRequest only applies the keys present in the body. An
// employeeId or teamId of 0 clears that owner.
type UpdateProjectRequest struct {
	Name              *string  `json:"name"`
	Description       *string  `json:"description"`
	Status            *string  `json:"status"`
	Priority          *string  `json:"priority"`
	StartDate         *string  `json:"startDate"`
	EndDate           *string  `json:"endDate"`
	ActualEndDate     *string  `json:"actualEndDate"`
	Progress          *float64 `json:"progress"`
	AssignedManagerID *uint    `json:"assignedManagerId"`
	EmployeeID        *uint    `json:"employeeId"`
	TeamID            *uint    `json:"teamId"`
}

type progressReq struct {
	Progress *float64 `json:"progress" binding:"required"`
}

func (r CreateProjectRequest) draft(actor uint) (work.ProjectDraft, error) {
	start, err := optionalDate("startDate", r.StartDate)
	if err != nil {
		return work.ProjectDraft{}, err
	}
	end, err := optionalDate("endDate", r.EndDate)
	if err != nil {
		return work.ProjectDraft{}, err
	}
	return work.ProjectDraft{
		Name:              r.Name,
		Description:       r.Description,
		Status:            models.Status(strings.ToUpper(r.Status)),
		Priority:          models.Priority(strings.ToUpper(r.Priority)),
		StartDate:         start,
		EndDate:           end,
		Progress:          r.Progress,
		CreatedByID:       &actor,
		AssignedManagerID: r.AssignedManagerID,
		EmployeeID:        r.EmployeeID,
		TeamID:            r.TeamID,
	}, nil
}

func (r UpdateProjectRequest) patch() (work.ProjectPatch, error) {
	p := work.ProjectPatch{
		Name:              r.Name,
		Description:       r.Description,
		Progress:          r.Progress,
		AssignedManagerID: r.AssignedManagerID,
		EmployeeID:        r.EmployeeID,
		TeamID:            r.TeamID,
	}
	var err error
	if p.Status, err = optionalEnum(r.Status, models.ParseStatus); err != nil {
		return p, err
	}
	if p.Priority, err = optionalEnum(r.Priority, models.ParsePriority); err != nil {
		return p, err
	}
	if p.StartDate, err = optionalDate("startDate", r.StartDate); err != nil {
		return p, err
	}
	if p.EndDate, err = optionalDate("endDate", r.EndDate); err != nil {
		return p, err
	}
	if p.ActualEndDate, err = optionalDate("actualEndDate", r.ActualEndDate); err != nil {
		return p, err
	}
	return p, nil
}

// GetProjects lists projects, optionally filtered by status, priority,
// employeeId, managerId and teamId.
// GET /api/projects
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	var (
		f   work.ProjectFilter
		err error
	)
	if f.Status, err = queryStatus(c, "status"); err != nil {
		h.fail(c, "GetProjects", err)
		return
	}
	if f.Priority, err = queryPriority(c, "priority"); err != nil {
		h.fail(c, "GetProjects", err)
		return
	}
	if f.EmployeeID, err = queryUint(c, "employeeId"); err != nil {
		h.fail(c, "GetProjects", err)
		return
	}
	if f.ManagerID, err = queryUint(c, "managerId"); err != nil {
		h.fail(c, "GetProjects", err)
		return
	}
	if f.TeamID, err = queryUint(c, "teamId"); err != nil {
		h.fail(c, "GetProjects", err)
		return
	}

	projects, err := h.work.ListProjects(c.Request.Context(), f)
	if err != nil {
		h.fail(c, "GetProjects", err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) GetProjectByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	project, err := h.work.GetProject(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "GetProjectByID", err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	draft, err := req.draft(middleware.EmployeeID(c))
	if err != nil {
		h.fail(c, "CreateProject", err)
		return
	}

	project, err := h.work.CreateProject(c.Request.Context(), draft)
	if err != nil {
		h.fail(c, "CreateProject", err)
		return
	}
	h.publish(c, realtime.ProjectCreated, project.ID, project, project.Audience())
	c.JSON(http.StatusCreated, project)
}

// UpdateProject serves both PUT and PATCH; absent keys are left alone.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		h.fail(c, "UpdateProject", err)
		return
	}

	project, err := h.work.UpdateProject(c.Request.Context(), id, patch)
	if err != nil {
		h.fail(c, "UpdateProject", err)
		return
	}
	h.publish(c, realtime.ProjectUpdated, project.ID, project, project.Audience())
	c.JSON(http.StatusOK, project)
}

// UpdateProgress sets the completion percentage; 100 marks the project done.
// PUT /api/projects/:id/progress
func (h *ProjectHandler) UpdateProgress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req progressReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	project, err := h.work.UpdateProgress(c.Request.Context(), id, *req.Progress)
	if err != nil {
		h.fail(c, "UpdateProgress", err)
		return
	}
	h.publish(c, realtime.ProjectUpdated, project.ID, project, project.Audience())
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	project, err := h.work.DeleteProject(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "DeleteProject", err)
		return
	}
	h.publish(c, realtime.ProjectDeleted, project.ID, nil, project.Audience())
	c.Status(http.StatusNoContent)
}
