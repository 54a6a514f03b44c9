package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string     `gorm:"not null"                 json:"name"`
	Email        string     `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string     `gorm:"not null"                 json:"-"`
	Role         string     `gorm:"not null;default:user"    json:"role"`
	Active       bool       `gorm:"not null;default:true"    json:"active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type Product struct {
	ID          uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"not null"                 json:"name"`
	Description string         `gorm:"not null"                 json:"description"`
	Category    string         `gorm:"index;not null"           json:"category"`
	Price       float64        `gorm:"not null"                 json:"price"`
	Count       uint           `json:"count"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index"                    json:"-"`
}
