package model

import (
	"time"

	"gorm.io/gorm"
)

// CostCategory identifies one of the seven cost tracking categories
type CostCategory string

const (
	CategoryMaterial      CostCategory = "material"
	CategoryLabor         CostCategory = "labor"
	CategoryEquipment     CostCategory = "equipment"
	CategorySubcontractor CostCategory = "subcontractor"
	CategoryOthers        CostCategory = "others"
	CategoryCapLeases     CostCategory = "cap_leases"
	CategoryConsumable    CostCategory = "consumable"
)

// AllCostCategories lists every cost category in display order
var AllCostCategories = []CostCategory{
	CategoryMaterial,
	CategoryLabor,
	CategoryEquipment,
	CategorySubcontractor,
	CategoryOthers,
	CategoryCapLeases,
	CategoryConsumable,
}

// ValidCostCategory reports whether c is a known cost category
func ValidCostCategory(c CostCategory) bool {
	for _, known := range AllCostCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ProjectCost represents a single cost entry against a project.
// Non-labor categories store the amount directly in Cost. Labor entries
// carry hour and rate components; their Cost column is a cache of
// LaborLineTotal and is refreshed on every save.
type ProjectCost struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	TenantID      uint           `json:"tenant_id" gorm:"index;not null;comment:'Tenant this cost belongs to'"`
	ProjectID     uint           `json:"project_id" gorm:"index;not null"`
	Category      CostCategory   `json:"category" gorm:"type:varchar(20);index;not null"`
	ChangeOrderID *uint          `json:"change_order_id,omitempty" gorm:"index"` // Nil = base contract
	EmployeeID    *uint          `json:"employee_id,omitempty" gorm:"index"`     // Labor only
	Date          time.Time      `json:"date"`
	Vendor        string         `json:"vendor" gorm:"type:varchar(255)"`
	InvoiceNumber string         `json:"invoice_number" gorm:"type:varchar(100)"`
	Description   string         `json:"description" gorm:"type:text"`
	Subcontractor string         `json:"subcontractor_name,omitempty" gorm:"column:subcontractor_name;type:varchar(255)"`
	Cost          float64        `json:"cost" gorm:"default:0"`
	InSystem      bool           `json:"in_system" gorm:"default:false"`
	STHours       float64        `json:"st_hours" gorm:"default:0"`
	STRate        float64        `json:"st_rate" gorm:"default:0"`
	OTHours       float64        `json:"ot_hours" gorm:"default:0"`
	OTRate        float64        `json:"ot_rate" gorm:"default:0"`
	DTHours       float64        `json:"dt_hours" gorm:"default:0"`
	DTRate        float64        `json:"dt_rate" gorm:"default:0"`
	PerDiem       float64        `json:"per_diem" gorm:"default:0"`
	MobQty        float64        `json:"mob_qty" gorm:"default:0"`
	MobRate       float64        `json:"mob_rate" gorm:"default:0"`
	CreatedBy     uint           `json:"created_by" gorm:"index"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// LaborLineTotal computes the labor amount from its components:
// straight, overtime and double time hours at their rates, plus per diem
// and mobilization. The stored Cost column caches this value.
func (c *ProjectCost) LaborLineTotal() float64 {
	return c.STHours*c.STRate +
		c.OTHours*c.OTRate +
		c.DTHours*c.DTRate +
		c.PerDiem +
		c.MobQty*c.MobRate
}

// LineTotal returns the amount a cost row contributes to project totals.
// Labor is always recomputed from components; other categories use the
// stored cost as-is, negatives included.
func (c *ProjectCost) LineTotal() float64 {
	if c.Category == CategoryLabor {
		return c.LaborLineTotal()
	}
	return c.Cost
}
