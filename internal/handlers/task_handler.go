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

type TaskHandler struct {
	base
	work *work.Service
}

func NewTaskHandler(logger *zap.SugaredLogger, events Publisher, ws *work.Service) *TaskHandler {
	return &TaskHandler{
		base: base{logger: logger, events: events},
		work: ws,
	}
}

// CreateTaskRequest represents the request payload for creating a task
type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	ProjectID   uint    `json:"projectId" binding:"required"`
	AssigneeIDs []uint  `json:"assigneeIds"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
}

// UpdateTaskRequest represents the request payload for updating a task.
// assigneeIds, when present, replaces the whole assignment set.
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	ProjectID   *uint   `json:"projectId"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
	AssigneeIDs *[]uint `json:"assigneeIds"`
}

type assigneesReq struct {
	EmployeeIDs []uint `json:"employeeIds" binding:"required,min=1"`
}

func (r CreateTaskRequest) draft(actor uint) (work.TaskDraft, error) {
	start, err := optionalDate("startDate", r.StartDate)
	if err != nil {
		return work.TaskDraft{}, err
	}
	end, err := optionalDate("endDate", r.EndDate)
	if err != nil {
		return work.TaskDraft{}, err
	}
	return work.TaskDraft{
		Title:       r.Title,
		Description: r.Description,
		Priority:    models.Priority(strings.ToUpper(r.Priority)),
		ProjectID:   r.ProjectID,
		CreatedByID: actor,
		AssigneeIDs: r.AssigneeIDs,
		StartDate:   start,
		EndDate:     end,
	}, nil
}

func (r UpdateTaskRequest) patch() (work.TaskPatch, error) {
	p := work.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		ProjectID:   r.ProjectID,
		AssigneeIDs: r.AssigneeIDs,
	}
	var err error
	if p.Priority, err = optionalEnum(r.Priority, models.ParsePriority); err != nil {
		return p, err
	}
	if p.StartDate, err = optionalDate("startDate", r.StartDate); err != nil {
		return p, err
	}
	if p.EndDate, err = optionalDate("endDate", r.EndDate); err != nil {
		return p, err
	}
	return p, nil
}

// GetTasks lists tasks filtered by projectId, employeeId, createdBy and priority.
// GET /api/tasks
func (h *TaskHandler) GetTasks(c *gin.Context) {
	var (
		f   work.TaskFilter
		err error
	)
	if f.ProjectID, err = queryUint(c, "projectId"); err != nil {
		h.fail(c, "GetTasks", err)
		return
	}
	if f.EmployeeID, err = queryUint(c, "employeeId"); err != nil {
		h.fail(c, "GetTasks", err)
		return
	}
	if f.CreatedByID, err = queryUint(c, "createdBy"); err != nil {
		h.fail(c, "GetTasks", err)
		return
	}
	if f.Priority, err = queryPriority(c, "priority"); err != nil {
		h.fail(c, "GetTasks", err)
		return
	}

	tasks, err := h.work.ListTasks(c.Request.Context(), f)
	if err != nil {
		h.fail(c, "GetTasks", err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GetTaskByID returns a task with its assignees and subtasks.
// GET /api/tasks/:id
func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	task, err := h.work.GetTask(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "GetTaskByID", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// CreateTask creates a task under a project. The caller is recorded as creator.
// POST /api/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	draft, err := req.draft(middleware.EmployeeID(c))
	if err != nil {
		h.fail(c, "CreateTask", err)
		return
	}

	task, err := h.work.CreateTask(c.Request.Context(), draft)
	if err != nil {
		h.fail(c, "CreateTask", err)
		return
	}
	h.publish(c, realtime.TaskCreated, task.ID, task, task.Audience())
	c.JSON(http.StatusCreated, task)
}

// UpdateTask updates an existing task
// PUT /api/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		h.fail(c, "UpdateTask", err)
		return
	}

	task, err := h.work.UpdateTask(c.Request.Context(), id, patch)
	if err != nil {
		h.fail(c, "UpdateTask", err)
		return
	}
	h.publish(c, realtime.TaskUpdated, task.ID, task, task.Audience())
	c.JSON(http.StatusOK, task)
}

// AssignEmployees adds employees to the task; existing assignments are kept.
// POST /api/tasks/:id/assignees
func (h *TaskHandler) AssignEmployees(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req assigneesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	task, err := h.work.AssignEmployees(c.Request.Context(), id, req.EmployeeIDs)
	if err != nil {
		h.fail(c, "AssignEmployees", err)
		return
	}
	h.publish(c, realtime.TaskUpdated, task.ID, task, task.Audience())
	c.JSON(http.StatusOK, task)
}

// UnassignEmployee removes one assignment.
// DELETE /api/tasks/:id/assignees/:employeeId
func (h *TaskHandler) UnassignEmployee(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	employeeID, ok := pathID(c, "employeeId")
	if !ok {
		return
	}

	task, err := h.work.UnassignEmployee(c.Request.Context(), id, employeeID)
	if err != nil {
		h.fail(c, "UnassignEmployee", err)
		return
	}
	h.publish(c, realtime.TaskUpdated, task.ID, task, append(task.Audience(), employeeID))
	c.JSON(http.StatusOK, task)
}

// DeleteTask deletes a task with its subtasks and attachments
// DELETE /api/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	task, err := h.work.DeleteTask(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "DeleteTask", err)
		return
	}
	h.publish(c, realtime.TaskDeleted, task.ID, nil, task.Audience())
	c.Status(http.StatusNoContent)
}
