package model

import (
	"time"

	"gorm.io/gorm"
)

// CustomerInvoice represents an amount billed to the customer against a
// project, optionally scoped to a change order.
type CustomerInvoice struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	TenantID      uint           `json:"tenant_id" gorm:"index;not null;comment:'Tenant this invoice belongs to'"`
	ProjectID     uint           `json:"project_id" gorm:"index;not null"`
	ChangeOrderID *uint          `json:"change_order_id,omitempty" gorm:"index"` // Nil = base contract
	InvoiceNumber string         `json:"invoice_number" gorm:"type:varchar(100);not null"`
	Amount        float64        `json:"amount" gorm:"default:0"`
	DateBilled    time.Time      `json:"date_billed"`
	InSystem      bool           `json:"in_system" gorm:"default:false"`
	CreatedBy     uint           `json:"created_by" gorm:"index"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
