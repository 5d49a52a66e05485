package model

import "time"

// ProjectBudget holds the per-category budget ceilings for one project.
// Exactly one row exists per (tenant, project); writes are upserts.
type ProjectBudget struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	TenantID      uint      `json:"tenant_id" gorm:"index;not null;uniqueIndex:idx_tenant_project_budget"`
	ProjectID     uint      `json:"project_id" gorm:"not null;uniqueIndex:idx_tenant_project_budget"`
	Material      float64   `json:"material" gorm:"default:0"`
	Labor         float64   `json:"labor" gorm:"default:0"`
	Equipment     float64   `json:"equipment" gorm:"default:0"`
	Subcontractor float64   `json:"subcontractor" gorm:"default:0"`
	Others        float64   `json:"others" gorm:"default:0"`
	CapLeases     float64   `json:"cap_leases" gorm:"default:0"`
	Consumable    float64   `json:"consumable" gorm:"default:0"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ForCategory returns the budget ceiling stored for a cost category
func (b *ProjectBudget) ForCategory(category CostCategory) float64 {
	switch category {
	case CategoryMaterial:
		return b.Material
	case CategoryLabor:
		return b.Labor
	case CategoryEquipment:
		return b.Equipment
	case CategorySubcontractor:
		return b.Subcontractor
	case CategoryOthers:
		return b.Others
	case CategoryCapLeases:
		return b.CapLeases
	case CategoryConsumable:
		return b.Consumable
	}
	return 0
}

// Total sums the ceilings across all categories
func (b *ProjectBudget) Total() float64 {
	var total float64
	for _, category := range AllCostCategories {
		total += b.ForCategory(category)
	}
	return total
}
