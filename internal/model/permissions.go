package model

import "gorm.io/datatypes"

// Area is a functional area gated by the permission map
type Area string

const (
	AreaMaterial      Area = "material"
	AreaLabor         Area = "labor"
	AreaEquipment     Area = "equipment"
	AreaSubcontractor Area = "subcontractor"
	AreaOthers        Area = "others"
	AreaCapLeases     Area = "capLeases"
	AreaConsumable    Area = "consumable"
	AreaInvoices      Area = "invoices"
	AreaProjects      Area = "projects"
	AreaUsers         Area = "users"
)

// AllAreas lists every permission area in display order
var AllAreas = []Area{
	AreaMaterial,
	AreaLabor,
	AreaEquipment,
	AreaSubcontractor,
	AreaOthers,
	AreaCapLeases,
	AreaConsumable,
	AreaInvoices,
	AreaProjects,
	AreaUsers,
}

// PermissionLevel is the access level stored per area
type PermissionLevel string

const (
	PermissionNone  PermissionLevel = "none"
	PermissionRead  PermissionLevel = "read"
	PermissionWrite PermissionLevel = "write"
)

// User roles
const (
	RoleMaster = "master"
	RoleEntry  = "entry"
	RoleView   = "view"
)

// ValidRole reports whether role is one of the known roles
func ValidRole(role string) bool {
	return role == RoleMaster || role == RoleEntry || role == RoleView
}

// HasPermission evaluates whether the user may access an area at the
// requested level. A master role always passes regardless of the stored
// permission map. For everyone else the stored level must be "write", or
// "read" when only read access is requested.
func (u *User) HasPermission(area Area, level PermissionLevel) bool {
	if u == nil {
		return false
	}
	if u.Role == RoleMaster {
		return true
	}

	raw, ok := u.Permissions[string(area)]
	if !ok {
		return false
	}
	stored, _ := raw.(string)

	switch level {
	case PermissionRead:
		return stored == string(PermissionRead) || stored == string(PermissionWrite)
	case PermissionWrite:
		return stored == string(PermissionWrite)
	default:
		return false
	}
}

// CanRead reports read access to an area
func (u *User) CanRead(area Area) bool {
	return u.HasPermission(area, PermissionRead)
}

// CanWrite reports write access to an area
func (u *User) CanWrite(area Area) bool {
	return u.HasPermission(area, PermissionWrite)
}

// AreaForCategory maps a cost category to the permission area that gates it
func AreaForCategory(category CostCategory) Area {
	if category == CategoryCapLeases {
		return AreaCapLeases
	}
	return Area(category)
}

// DefaultPermissions returns the permission map template for a role.
// Masters bypass the map entirely, but a full map is stored anyway so a
// later role downgrade leaves sensible grants in place.
func DefaultPermissions(role string) datatypes.JSONMap {
	perms := datatypes.JSONMap{}
	switch role {
	case RoleMaster:
		for _, area := range AllAreas {
			perms[string(area)] = string(PermissionWrite)
		}
	case RoleEntry:
		for _, area := range AllAreas {
			perms[string(area)] = string(PermissionWrite)
		}
		perms[string(AreaProjects)] = string(PermissionRead)
		perms[string(AreaUsers)] = string(PermissionNone)
	default:
		for _, area := range AllAreas {
			perms[string(area)] = string(PermissionRead)
		}
		perms[string(AreaUsers)] = string(PermissionNone)
	}
	return perms
}
