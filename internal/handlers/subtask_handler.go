package handlers

import (
	"net/http"
	"strings"

	"project-management-api/internal/models"
	"project-management-api/internal/realtime"
	"project-management-api/internal/work"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SubTaskHandler struct {
	base
	work *work.Service
}

func NewSubTaskHandler(logger *zap.SugaredLogger, events Publisher, ws *work.Service) *SubTaskHandler {
	return &SubTaskHandler{
		base: base{logger: logger, events: events},
		work: ws,
	}
}

type CreateSubTaskRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Status       string `json:"status"`
	AssignedToID *uint  `json:"assignedToId"`
	TaskID       uint   `json:"taskId" binding:"required"`
}

// UpdateSubTaskRequest only applies present keys. assignedToId 0 clears the assignee.
type UpdateSubTaskRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Status       *string `json:"status"`
	AssignedToID *uint   `json:"assignedToId"`
}

// UpdateSubTaskStatusRequest represents a minimal request to change status
type UpdateSubTaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// GetSubTasks lists subtasks filtered by taskId, status and assignedTo.
// GET /api/subtasks
func (h *SubTaskHandler) GetSubTasks(c *gin.Context) {
	var (
		f   work.SubTaskFilter
		err error
	)
	if f.TaskID, err = queryUint(c, "taskId"); err != nil {
		h.fail(c, "GetSubTasks", err)
		return
	}
	if f.Status, err = queryStatus(c, "status"); err != nil {
		h.fail(c, "GetSubTasks", err)
		return
	}
	if f.AssignedToID, err = queryUint(c, "assignedTo"); err != nil {
		h.fail(c, "GetSubTasks", err)
		return
	}

	subtasks, err := h.work.ListSubTasks(c.Request.Context(), f)
	if err != nil {
		h.fail(c, "GetSubTasks", err)
		return
	}
	c.JSON(http.StatusOK, subtasks)
}

func (h *SubTaskHandler) GetSubTaskByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	st, err := h.work.GetSubTask(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "GetSubTaskByID", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *SubTaskHandler) CreateSubTask(c *gin.Context) {
	var req CreateSubTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	st, err := h.work.CreateSubTask(c.Request.Context(), work.SubTaskDraft{
		Name:         req.Name,
		Description:  req.Description,
		Status:       models.Status(strings.ToUpper(req.Status)),
		AssignedToID: req.AssignedToID,
		TaskID:       req.TaskID,
	})
	if err != nil {
		h.fail(c, "CreateSubTask", err)
		return
	}
	h.publish(c, realtime.SubTaskCreated, st.ID, st, st.Audience())
	c.JSON(http.StatusCreated, st)
}

func (h *SubTaskHandler) UpdateSubTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateSubTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	status, err := optionalEnum(req.Status, models.ParseStatus)
	if err != nil {
		h.fail(c, "UpdateSubTask", err)
		return
	}

	st, err := h.work.UpdateSubTask(c.Request.Context(), id, work.SubTaskPatch{
		Name:         req.Name,
		Description:  req.Description,
		Status:       status,
		AssignedToID: req.AssignedToID,
	})
	if err != nil {
		h.fail(c, "UpdateSubTask", err)
		return
	}
	h.publish(c, realtime.SubTaskUpdated, st.ID, st, st.Audience())
	c.JSON(http.StatusOK, st)
}

// UpdateSubTaskStatus moves a subtask to a new status. Moving to DONE stamps
// the end date, moving away clears it.
// PATCH /api/subtasks/:id/status
func (h *SubTaskHandler) UpdateSubTaskStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateSubTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		h.fail(c, "UpdateSubTaskStatus", err)
		return
	}

	st, err := h.work.UpdateSubTaskStatus(c.Request.Context(), id, status)
	if err != nil {
		h.fail(c, "UpdateSubTaskStatus", err)
		return
	}
	h.publish(c, realtime.SubTaskStatusChanged, st.ID, st, st.Audience())
	c.JSON(http.StatusOK, st)
}

func (h *SubTaskHandler) DeleteSubTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	st, err := h.work.DeleteSubTask(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "DeleteSubTask", err)
		return
	}
	h.publish(c, realtime.SubTaskDeleted, st.ID, nil, st.Audience())
	c.Status(http.StatusNoContent)
}

// Progress reports how many subtasks of a task are done.
// GET /api/tasks/:id/subtasks/progress
func (h *SubTaskHandler) Progress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	progress, err := h.work.SubTaskProgress(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Progress", err)
		return
	}
	c.JSON(http.StatusOK, progress)
}
