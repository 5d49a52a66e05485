package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User represents the user model stored in the database
type User struct {
	ID          uint              `json:"id" gorm:"primaryKey"`
	TenantID    *uint             `json:"tenant_id,omitempty" gorm:"index"` // Nil until onboarded into a tenant
	Name        string            `json:"name" gorm:"type:varchar(100)"`
	Email       string            `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password    string            `json:"-" gorm:"type:varchar(255)"`
	Role        string            `json:"role" gorm:"type:varchar(20);default:'view'"`
	Permissions datatypes.JSONMap `json:"permissions"` // area -> none|read|write
	Active      bool              `json:"active" gorm:"default:true"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	DeletedAt   gorm.DeletedAt    `json:"-" gorm:"index"`
}
