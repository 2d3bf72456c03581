package models

import (
	"strings"
	"time"

	"project-management-api/internal/apperr"

	"gorm.io/gorm"
)

var (
	ErrProjectDoubleAssigned = apperr.New(apperr.ErrInvalidState, "a project cannot be assigned to both an employee and a team")
	ErrProjectUnassigned     = apperr.New(apperr.ErrInvalidState, "a project must be assigned to an employee or a team")
	ErrProjectNameRequired   = apperr.New(apperr.ErrInvalidState, "project name is required")
	ErrProgressOutOfRange    = apperr.New(apperr.ErrValidation, "progress must be between 0 and 100")
)

// Project is the central aggregate. It is owned by exactly one of Employee or Team.
type Project struct {
	ID                uint      `gorm:"primaryKey"`
	Name              string    `gorm:"size:200;not null;index"`
	Description       string    `gorm:"type:text"`
	Status            Status    `gorm:"size:20;not null;default:'TODO';index"`
	Priority          Priority  `gorm:"size:10;not null;default:'MEDIUM';index"`
	StartDate         *time.Time
	EndDate           *time.Time
	ActualEndDate     *time.Time
	Progress          float64   `gorm:"type:decimal(5,2);not null;default:0"`
	CreatedByID       *uint     `gorm:"index"`
	CreatedBy         *Employee `gorm:"foreignKey:CreatedByID"`
	AssignedManagerID *uint     `gorm:"index"`
	AssignedManager   *Employee `gorm:"foreignKey:AssignedManagerID"`
	EmployeeID        *uint     `gorm:"index"`
	Employee          *Employee `gorm:"foreignKey:EmployeeID"`
	TeamID            *uint     `gorm:"index"`
	Team              *Team     `gorm:"foreignKey:TeamID"`
	Tasks             []Task    `gorm:"foreignKey:ProjectID"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName specifies the table name for Project Model
func (Project) TableName() string {
	return "projects"
}

// AssignToEmployee makes the employee the single owner, clearing any team.
func (p *Project) AssignToEmployee(employeeID uint) {
	id := employeeID
	p.EmployeeID = &id
	p.Employee = nil
	p.TeamID = nil
	p.Team = nil
}

// AssignToTeam makes the team the single owner, clearing any employee.
func (p *Project) AssignToTeam(teamID uint) {
	id := teamID
	p.TeamID = &id
	p.Team = nil
	p.EmployeeID = nil
	p.Employee = nil
}

// ValidateAssignment enforces (employee != nil) XOR (team != nil).
func (p *Project) ValidateAssignment() error {
	hasEmployee := p.EmployeeID != nil && *p.EmployeeID != 0
	hasTeam := p.TeamID != nil && *p.TeamID != 0
	switch {
	case hasEmployee && hasTeam:
		return ErrProjectDoubleAssigned
	case !hasEmployee && !hasTeam:
		return ErrProjectUnassigned
	}
	return nil
}

// BeforeSave runs for both inserts and updates, inside the write's transaction,
// so a project violating its invariants never reaches the table.
func (p *Project) BeforeSave(tx *gorm.DB) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return ErrProjectNameRequired
	}
	if p.Status == "" {
		p.Status = StatusTodo
	}
	if p.Priority == "" {
		p.Priority = PriorityMedium
	}
	if p.Progress < 0 || p.Progress > 100 {
		return ErrProgressOutOfRange
	}
	return p.ValidateAssignment()
}
