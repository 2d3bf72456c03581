package models

import (
	"strings"
	"time"

	"project-management-api/internal/apperr"

	"gorm.io/gorm"
)

var (
	ErrSubTaskNameRequired = apperr.New(apperr.ErrInvalidState, "subtask name is required")
	ErrSubTaskNameTooLong  = apperr.New(apperr.ErrValidation, "subtask name must be at most 200 characters")
	ErrSubTaskTaskRequired = apperr.New(apperr.ErrInvalidState, "subtask must belong to a task")
)

// SubTask is owned by exactly one task and deleted with it.
type SubTask struct {
	ID           uint      `gorm:"primaryKey"`
	Name         string    `gorm:"size:200;not null"`
	Description  string    `gorm:"type:text"`
	AssignedToID *uint     `gorm:"index"`
	AssignedTo   *Employee `gorm:"foreignKey:AssignedToID"`
	Status       Status    `gorm:"size:20;not null;default:'TODO';index"`
	StartDate    *time.Time
	EndDate      *time.Time
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false"`
	TaskID       uint      `gorm:"not null;index"`
	Task         *Task     `gorm:"foreignKey:TaskID"`

	// set by TransitionTo, consumed by the next save hook
	closing bool
}

// TableName specifies the table name for SubTask Model
func (SubTask) TableName() string {
	return "subtasks"
}

// TransitionTo changes the status. Moving to DONE makes the next save stamp
// EndDate with the same instant as UpdatedAt, every time.
func (s *SubTask) TransitionTo(status Status) {
	s.Status = status
	s.closing = status == StatusDone
}

func (s *SubTask) BeforeCreate(tx *gorm.DB) error {
	if err := s.validate(); err != nil {
		return err
	}
	now := tx.NowFunc()
	if s.Status == "" {
		s.Status = StatusTodo
	}
	start := now
	s.StartDate = &start
	s.UpdatedAt = now
	if s.Status == StatusDone {
		s.closing = true
	}
	s.stampEnd(now)
	return nil
}

func (s *SubTask) BeforeUpdate(tx *gorm.DB) error {
	if err := s.validate(); err != nil {
		return err
	}
	now := tx.NowFunc()
	s.UpdatedAt = now
	s.stampEnd(now)
	return nil
}

func (s *SubTask) stampEnd(now time.Time) {
	if !s.closing {
		return
	}
	end := now
	s.EndDate = &end
	s.closing = false
}

func (s *SubTask) validate() error {
	s.Name = strings.TrimSpace(s.Name)
	switch {
	case s.Name == "":
		return ErrSubTaskNameRequired
	case len([]rune(s.Name)) > 200:
		return ErrSubTaskNameTooLong
	case s.TaskID == 0:
		return ErrSubTaskTaskRequired
	}
	return nil
}
