package models

import (
	"strings"

	"project-management-api/internal/apperr"
)

// Status is the work state shared by projects and subtasks.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Priority represents the priority of a project or task
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// TeamRole is the role an employee holds inside one team.
type TeamRole string

const (
	TeamRoleMember TeamRole = "MEMBER"
	TeamRoleLead   TeamRole = "TEAM_LEAD"
)

// Default role names seeded on migrate.
const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleMember  = "MEMBER"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func (r TeamRole) Valid() bool {
	return r == TeamRoleMember || r == TeamRoleLead
}

// ParseStatus accepts the canonical names case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", apperr.Validation("invalid status %q", s)
	}
	return st, nil
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", apperr.Validation("invalid priority %q", s)
	}
	return p, nil
}

func ParseTeamRole(s string) (TeamRole, error) {
	r := TeamRole(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", apperr.Validation("invalid team role %q", s)
	}
	return r, nil
}
