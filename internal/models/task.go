package models

import (
	"strings"
	"time"

	"project-management-api/internal/apperr"

	"gorm.io/gorm"
)

var (
	ErrTaskTitleRequired   = apperr.New(apperr.ErrInvalidState, "task title is required")
	ErrTaskTitleTooLong    = apperr.New(apperr.ErrValidation, "task title must be at most 200 characters")
	ErrTaskProjectRequired = apperr.New(apperr.ErrInvalidState, "task must belong to a project")
	ErrTaskCreatorRequired = apperr.New(apperr.ErrInvalidState, "task must record its creator")
)

// Task belongs to one project and owns its subtasks.
type Task struct {
	ID                uint             `gorm:"primaryKey"`
	Title             string           `gorm:"size:200;not null"`
	Description       string           `gorm:"type:text"`
	Priority          Priority         `gorm:"size:20;index"`
	ProjectID         uint             `gorm:"not null;index"`
	Project           *Project         `gorm:"foreignKey:ProjectID"`
	CreatedByID       uint             `gorm:"not null;index"`
	CreatedBy         *Employee        `gorm:"foreignKey:CreatedByID"`
	AssignedEmployees []Employee       `gorm:"many2many:task_assignments"`
	SubTasks          []SubTask        `gorm:"foreignKey:TaskID"`
	Attachments       []TaskAttachment `gorm:"foreignKey:TaskID"`
	StartDate         *time.Time
	EndDate           *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

func (t *Task) BeforeSave(tx *gorm.DB) error {
	t.Title = strings.TrimSpace(t.Title)
	switch {
	case t.Title == "":
		return ErrTaskTitleRequired
	case len([]rune(t.Title)) > 200:
		return ErrTaskTitleTooLong
	case t.ProjectID == 0:
		return ErrTaskProjectRequired
	case t.CreatedByID == 0:
		return ErrTaskCreatorRequired
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	return nil
}

// TaskAssignment is a row of the task_assignments join table behind
// Task.AssignedEmployees. It is written directly so assignment changes never
// upsert employee rows.
type TaskAssignment struct {
	TaskID     uint `gorm:"primaryKey"`
	EmployeeID uint `gorm:"primaryKey"`
}

// TableName specifies the table name for TaskAssignment Model
func (TaskAssignment) TableName() string {
	return "task_assignments"
}
