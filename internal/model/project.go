package model

import (
	"time"

	"gorm.io/gorm"
)

// Project types
const (
	ProjectTypeField = "Field"
	ProjectTypeShop  = "Shop"
	ProjectTypeBoth  = "Both"
)

// Project statuses
const (
	ProjectStatusActive    = "Active"
	ProjectStatusInactive  = "Inactive"
	ProjectStatusOnHold    = "On Hold"
	ProjectStatusCompleted = "Completed"
	ProjectStatusCancelled = "Cancelled"
)

// ValidProjectType reports whether t is a known project type
func ValidProjectType(t string) bool {
	return t == ProjectTypeField || t == ProjectTypeShop || t == ProjectTypeBoth
}

// ValidProjectStatus reports whether s is a known project status
func ValidProjectStatus(s string) bool {
	switch s {
	case ProjectStatusActive, ProjectStatusInactive, ProjectStatusOnHold,
		ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

// Project represents a construction project stored in the database
type Project struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	TenantID      uint           `json:"tenant_id" gorm:"index;not null;uniqueIndex:idx_tenant_job_number;comment:'Tenant this project belongs to'"`
	JobNumber     string         `json:"job_number" gorm:"type:varchar(50);uniqueIndex:idx_tenant_job_number;not null"` // Unique per tenant
	JobName       string         `json:"job_name" gorm:"type:varchar(255);not null"`
	Customer      string         `json:"customer" gorm:"type:varchar(255)"`
	Type          string         `json:"type" gorm:"type:varchar(10);default:'Field'"`
	ContractValue float64        `json:"contract_value" gorm:"default:0"` // Base contract, change orders add on top
	Status        string         `json:"status" gorm:"type:varchar(20);default:'Active'"`
	CreatedBy     uint           `json:"created_by" gorm:"index"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
