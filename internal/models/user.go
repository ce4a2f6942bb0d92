package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "usuario"
)

type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"size:254;index" json:"email"`
	FirstName    string     `gorm:"size:150" json:"first_name"`
	LastName     string     `gorm:"size:150" json:"last_name"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	IsStaff      bool       `gorm:"not null" json:"is_staff"`
	IsSuperuser  bool       `gorm:"not null" json:"is_superuser"`
	DateJoined   time.Time  `gorm:"autoCreateTime;index" json:"date_joined"`
	LastLogin    *time.Time `json:"last_login"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Profile *UserProfile `gorm:"constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

// Role derivado de is_staff.
func (u *User) Role() UserRole {
	if u.IsStaff {
		return RoleAdmin
	}
	return RoleUser
}

// FullName nome + sobrenome, vazio quando nenhum dos dois foi informado.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// DisplayName retorna o nome completo ou, na falta dele, o username.
func (u *User) DisplayName() string {
	if name := u.FullName(); name != "" {
		return name
	}
	return u.Username
}

// AfterCreate garante o perfil 1:1 na mesma transação da criação do usuário.
func (u *User) AfterCreate(tx *gorm.DB) error {
	if u.Profile != nil {
		return nil
	}
	profile := &UserProfile{UserID: u.ID}
	if err := tx.Create(profile).Error; err != nil {
		return err
	}
	u.Profile = profile
	return nil
}
