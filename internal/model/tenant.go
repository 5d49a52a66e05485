package model

import (
	"time"

	"gorm.io/gorm"
)

// Tenant subscription plans and statuses
const (
	TenantPlanStarter    = "starter"
	TenantPlanGrowth     = "growth"
	TenantPlanEnterprise = "enterprise"

	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
)

// Tenant represents the tenant model stored in the database
// This is the core of our multi-tenant architecture
type Tenant struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(100);index;not null"`
	Plan      string         `json:"plan" gorm:"type:varchar(20);default:'starter'"`
	Status    string         `json:"status" gorm:"type:varchar(20);default:'active'"`
	OwnerID   uint           `json:"owner_id" gorm:"index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
