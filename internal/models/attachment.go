package models

import (
	"strings"
	"time"

	"project-management-api/internal/apperr"

	"gorm.io/gorm"
)

var (
	ErrAttachmentFileRequired    = apperr.New(apperr.ErrInvalidState, "attachment needs a file url and a file name")
	ErrAttachmentRevisionInvalid = apperr.New(apperr.ErrValidation, "revision number must be positive")
	ErrAttachmentOwnersRequired  = apperr.New(apperr.ErrInvalidState, "attachment must reference a task and an uploader")
	ErrAttachmentFieldTooLong    = apperr.New(apperr.ErrValidation, "attachment file url or name too long")
)

// TaskAttachment is one file revision of a task. (task, revision) is unique.
type TaskAttachment struct {
	ID             uint      `gorm:"primaryKey"`
	FileURL        string    `gorm:"column:file_url;size:500;not null"`
	FileName       string    `gorm:"size:255;not null;index"`
	RevisionNumber float64   `gorm:"not null;uniqueIndex:idx_attachment_task_revision,priority:2"`
	UploadedAt     time.Time `gorm:"<-:create;not null"`
	TaskID         uint      `gorm:"not null;uniqueIndex:idx_attachment_task_revision,priority:1"`
	Task           *Task     `gorm:"foreignKey:TaskID"`
	UploadedByID   uint      `gorm:"not null;index"`
	UploadedBy     *Employee `gorm:"foreignKey:UploadedByID"`
}

// TableName specifies the table name for TaskAttachment Model
func (TaskAttachment) TableName() string {
	return "attachments"
}

func (a *TaskAttachment) BeforeCreate(tx *gorm.DB) error {
	a.FileURL = strings.TrimSpace(a.FileURL)
	a.FileName = strings.TrimSpace(a.FileName)
	switch {
	case a.FileURL == "" || a.FileName == "":
		return ErrAttachmentFileRequired
	case len(a.FileURL) > 500 || len(a.FileName) > 255:
		return ErrAttachmentFieldTooLong
	case a.RevisionNumber <= 0:
		return ErrAttachmentRevisionInvalid
	case a.TaskID == 0 || a.UploadedByID == 0:
		return ErrAttachmentOwnersRequired
	}
	if a.UploadedAt.IsZero() {
		a.UploadedAt = tx.NowFunc()
	}
	return nil
}
