package model

import (
	"time"

	"gorm.io/gorm"
)

// ChangeOrder represents a contract amendment adding scope and value to a
// project. Costs and invoices reference one optionally; a nil reference
// means the base contract.
type ChangeOrder struct {
	ID                      uint           `json:"id" gorm:"primaryKey"`
	TenantID                uint           `json:"tenant_id" gorm:"index;not null;comment:'Tenant this change order belongs to'"`
	ProjectID               uint           `json:"project_id" gorm:"index;not null"`
	Name                    string         `json:"name" gorm:"type:varchar(100);not null"`
	Description             string         `json:"description" gorm:"type:text"`
	AdditionalContractValue float64        `json:"additional_contract_value" gorm:"default:0"`
	CreatedBy               uint           `json:"created_by" gorm:"index"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
	DeletedAt               gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
