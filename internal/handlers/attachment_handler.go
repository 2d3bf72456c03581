package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"project-management-api/internal/apperr"
	"project-management-api/internal/attachment"
	"project-management-api/internal/middleware"
	"project-management-api/internal/realtime"
	"project-management-api/internal/work"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxUploadBytes = 32 << 20

type AttachmentHandler struct {
	base
	attachments *attachment.Service
	work        *work.Service
}

func NewAttachmentHandler(logger *zap.SugaredLogger, events Publisher, attachments *attachment.Service, ws *work.Service) *AttachmentHandler {
	return &AttachmentHandler{
		base:        base{logger: logger, events: events},
		attachments: attachments,
		work:        ws,
	}
}

type addAttachmentReq struct {
	TaskID         uint    `json:"taskId" binding:"required"`
	RevisionNumber float64 `json:"revisionNumber"`
	FileURL        string  `json:"fileUrl"`
	FileName       string  `json:"fileName"`
}

// GetAttachments lists attachments by taskId, uploadedBy or fileName.
// GET /api/attachments
func (h *AttachmentHandler) GetAttachments(c *gin.Context) {
	taskID, err := queryUint(c, "taskId")
	if err != nil {
		h.fail(c, "GetAttachments", err)
		return
	}
	uploadedBy, err := queryUint(c, "uploadedBy")
	if err != nil {
		h.fail(c, "GetAttachments", err)
		return
	}

	ctx := c.Request.Context()
	var list []attachment.View
	switch fileName := queryString(c, "fileName"); {
	case taskID != nil:
		list, err = h.attachments.ListByTask(ctx, *taskID)
	case uploadedBy != nil:
		list, err = h.attachments.ListByUploader(ctx, *uploadedBy)
	case fileName != nil:
		list, err = h.attachments.ListByFileName(ctx, *fileName)
	default:
		err = apperr.Validation("one of taskId, uploadedBy or fileName is required")
	}
	if err != nil {
		h.fail(c, "GetAttachments", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *AttachmentHandler) GetAttachmentByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.attachments.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "GetAttachmentByID", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetByRevision returns the attachment of a task with the given revision.
// GET /api/tasks/:id/attachments/revisions/:revision
func (h *AttachmentHandler) GetByRevision(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	revision, err := strconv.ParseFloat(c.Param("revision"), 64)
	if err != nil {
		h.fail(c, "GetByRevision", apperr.Validation("revision %q is not a number", c.Param("revision")))
		return
	}
	view, err := h.attachments.GetByTaskAndRevision(c.Request.Context(), taskID, revision)
	if err != nil {
		h.fail(c, "GetByRevision", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// AddAttachment records a revision whose file is already hosted elsewhere.
// POST /api/attachments
func (h *AttachmentHandler) AddAttachment(c *gin.Context) {
	var req addAttachmentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	view, err := h.attachments.AddAttachment(c.Request.Context(), attachment.Draft{
		TaskID:         req.TaskID,
		UploadedByID:   middleware.EmployeeID(c),
		RevisionNumber: req.RevisionNumber,
		FileURL:        req.FileURL,
		FileName:       req.FileName,
	})
	if err != nil {
		h.fail(c, "AddAttachment", err)
		return
	}
	h.publish(c, realtime.AttachmentAdded, view.ID, view, h.taskAudience(c.Request.Context(), view.TaskID))
	c.JSON(http.StatusCreated, view)
}

// Upload stores a multipart "file" field as a new revision. The form also
// carries taskId and revisionNumber.
// POST /api/attachments/upload
func (h *AttachmentHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	taskID, err := strconv.ParseUint(c.PostForm("taskId"), 10, 64)
	if err != nil || taskID == 0 {
		h.fail(c, "Upload", apperr.Validation("taskId must be a positive integer"))
		return
	}
	revision, err := strconv.ParseFloat(c.PostForm("revisionNumber"), 64)
	if err != nil {
		h.fail(c, "Upload", apperr.Validation("revisionNumber must be a number"))
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		h.badRequest(c, err)
		return
	}
	file, err := header.Open()
	if err != nil {
		h.badRequest(c, err)
		return
	}
	defer file.Close()

	view, err := h.attachments.Upload(c.Request.Context(), attachment.UploadRequest{
		TaskID:         uint(taskID),
		UploadedByID:   middleware.EmployeeID(c),
		RevisionNumber: revision,
		FileName:       header.Filename,
		Content:        file,
	})
	if err != nil {
		h.fail(c, "Upload", err)
		return
	}
	h.publish(c, realtime.AttachmentAdded, view.ID, view, h.taskAudience(c.Request.Context(), view.TaskID))
	c.JSON(http.StatusCreated, view)
}

// Download streams a stored file, or redirects to an external one.
// GET /api/attachments/:id/download
func (h *AttachmentHandler) Download(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rc, view, err := h.attachments.Open(c.Request.Context(), id)
	if errors.Is(err, attachment.ErrExternalFile) {
		c.Redirect(http.StatusFound, view.FileURL)
		return
	}
	if err != nil {
		h.fail(c, "Download", err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(filepath.Ext(view.FileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": view.FileName}))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.logger.Warnw("download interrupted", "attachmentID", id, "err", err)
	}
}

func (h *AttachmentHandler) DeleteAttachment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.attachments.DeleteAttachment(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "DeleteAttachment", err)
		return
	}
	h.publish(c, realtime.AttachmentDeleted, view.ID, nil, h.taskAudience(c.Request.Context(), view.TaskID))
	c.Status(http.StatusNoContent)
}

func (h *AttachmentHandler) taskAudience(ctx context.Context, taskID uint) []uint {
	task, err := h.work.GetTask(ctx, taskID)
	if err != nil {
		h.logger.Warnw("failed to resolve task audience", "taskID", taskID, "err", err)
		return nil
	}
	return task.Audience()
}
