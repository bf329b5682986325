package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string // staff permission level

const (
	RoleAdvisor UserRole = "advisor" // works reports
	RoleAdmin   UserRole = "admin"   // manages staff and clients
)

func (r UserRole) Valid() bool {
	return r == RoleAdvisor || r == RoleAdmin
}

// User is a staff member of the practice. Every audit entry points at one.
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Name         string         `gorm:"not null" json:"name"`
	Role         UserRole       `gorm:"type:varchar(20);default:'advisor'" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// Actor returns the audit identity of the user.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Name: u.Name}
}
