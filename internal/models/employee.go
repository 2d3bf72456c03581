package models

import (
	"time"
)

// Role is a name tag referenced by employees (ADMIN, MANAGER, MEMBER...).
type Role struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:50;not null;uniqueIndex"`
}

// TableName specifies the table name for Role Model
func (Role) TableName() string {
	return "roles"
}

// Employee represents an employee in the system
type Employee struct {
	ID           uint   `gorm:"primaryKey"`
	FirstName    string `gorm:"size:100;not null"`
	LastName     string `gorm:"size:100;not null"`
	Email        string `gorm:"size:255;not null;uniqueIndex"`
	PhoneNumber  string `gorm:"size:20;not null;uniqueIndex"`
	PasswordHash string `gorm:"column:password_hash;not null"`
	RoleID       uint   `gorm:"not null;index"`
	Role         *Role  `gorm:"foreignKey:RoleID"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName specifies the table name for Employee Model
func (Employee) TableName() string {
	return "employees"
}

// FullName joins first and last name.
func (e Employee) FullName() string {
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}
