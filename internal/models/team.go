package models

import (
	"strings"
	"time"

	"project-management-api/internal/apperr"

	"gorm.io/gorm"
)

var ErrTeamNameRequired = apperr.New(apperr.ErrInvalidState, "team name is required")

// Team is a named group of employees that can own projects.
type Team struct {
	ID          uint         `gorm:"primaryKey"`
	Name        string       `gorm:"size:200;not null;index"`
	Description string       `gorm:"type:text"`
	Members     []TeamMember `gorm:"foreignKey:TeamID"`
	Projects    []Project    `gorm:"foreignKey:TeamID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName specifies the table name for Team Model
func (Team) TableName() string {
	return "teams"
}

func (t *Team) BeforeSave(tx *gorm.DB) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return ErrTeamNameRequired
	}
	return nil
}

// TeamMember links one employee to one team. The (team, employee) pair is
// unique and JoinedAt is written once.
type TeamMember struct {
	ID         uint      `gorm:"primaryKey"`
	TeamID     uint      `gorm:"not null;uniqueIndex:idx_team_member_pair,priority:1"`
	Team       *Team     `gorm:"foreignKey:TeamID"`
	EmployeeID uint      `gorm:"not null;uniqueIndex:idx_team_member_pair,priority:2;index"`
	Employee   *Employee `gorm:"foreignKey:EmployeeID"`
	Role       TeamRole  `gorm:"size:30;not null;default:'MEMBER'"`
	JoinedAt   time.Time `gorm:"<-:create;not null"`
}

// TableName specifies the table name for TeamMember Model
func (TeamMember) TableName() string {
	return "team_members"
}

func (m *TeamMember) BeforeCreate(tx *gorm.DB) error {
	if m.Role == "" {
		m.Role = TeamRoleMember
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = tx.NowFunc()
	}
	return nil
}
