package model

import (
	"time"

	"gorm.io/gorm"
)

// Employee represents a labor resource with billing rates. An employee
// scoped to a project is only selectable for that project's labor entries;
// a nil ProjectID makes the employee available tenant-wide.
type Employee struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	TenantID     uint           `json:"tenant_id" gorm:"index;not null;comment:'Tenant this employee belongs to'"`
	ProjectID    *uint          `json:"project_id,omitempty" gorm:"index"` // Nil = available to all projects
	Name         string         `json:"name" gorm:"type:varchar(100);not null"`
	StandardRate float64        `json:"standard_rate" gorm:"default:0"`
	OTRate       float64        `json:"ot_rate" gorm:"default:0"`
	DTRate       float64        `json:"dt_rate" gorm:"default:0"`
	MobRate      float64        `json:"mob_rate" gorm:"default:0"`
	Active       bool           `json:"active" gorm:"default:true"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
