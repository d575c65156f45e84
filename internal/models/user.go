package models

import (
	"time"

	"gorm.io/gorm"
)

// UserGroup is the permission tier of an account.
type UserGroup string

const (
	GroupUser      UserGroup = "USER"
	GroupModerator UserGroup = "MODERATOR"
	GroupAdmin     UserGroup = "ADMIN"
)

// User represents an account of the cinema.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null"`
	IsActive  bool      `json:"is_active" gorm:"not null;default:false"`
	Group     UserGroup `json:"group" gorm:"type:varchar(20);not null;default:USER"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	newID(&u.ID)
	if u.Group == "" {
		u.Group = GroupUser
	}
	return nil
}

// IsStaff reports whether the user may manage the catalog.
func (u *User) IsStaff() bool {
	return u.Group == GroupModerator || u.Group == GroupAdmin
}

// ActivationToken confirms ownership of the email used at registration.
type ActivationToken struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"uniqueIndex;type:varchar(36);not null"`
	Token     string    `gorm:"index;type:varchar(64);not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

func (t *ActivationToken) BeforeCreate(tx *gorm.DB) error {
	newID(&t.ID)
	return nil
}

// PasswordResetToken authorises a single password reset.
type PasswordResetToken struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"uniqueIndex;type:varchar(36);not null"`
	Token     string    `gorm:"index;type:varchar(64);not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

func (t *PasswordResetToken) BeforeCreate(tx *gorm.DB) error {
	newID(&t.ID)
	return nil
}

// UserProfile holds optional personal details of a user.
type UserProfile struct {
	ID          string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string     `json:"user_id" gorm:"uniqueIndex;type:varchar(36);not null"`
	FirstName   string     `json:"first_name" gorm:"type:varchar(100)"`
	LastName    string     `json:"last_name" gorm:"type:varchar(100)"`
	Avatar      string     `json:"-" gorm:"type:varchar(255)"`
	Gender      string     `json:"gender" gorm:"type:varchar(10)"`
	DateOfBirth *time.Time `json:"date_of_birth" gorm:"type:date"`
	Info        string     `json:"info" gorm:"type:text"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	newID(&p.ID)
	return nil
}
