package model

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Attachment entity types
const (
	AttachmentEntityCost    = "cost"
	AttachmentEntityInvoice = "invoice"
)

// ValidAttachmentEntity reports whether t is an attachable entity type
func ValidAttachmentEntity(t string) bool {
	return t == AttachmentEntityCost || t == AttachmentEntityInvoice
}

// Attachment represents file metadata tied to a cost or invoice row. The
// blob itself lives in external object storage under a tenant-prefixed path.
type Attachment struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	TenantID    uint           `json:"tenant_id" gorm:"index;not null"`
	EntityType  string         `json:"entity_type" gorm:"type:varchar(20);index:idx_attachment_entity;not null"`
	EntityID    uint           `json:"entity_id" gorm:"index:idx_attachment_entity;not null"`
	FileName    string         `json:"file_name" gorm:"type:varchar(255);not null"`
	FileSize    int64          `json:"file_size" gorm:"default:0"`
	ContentType string         `json:"content_type" gorm:"type:varchar(100)"`
	StoragePath string         `json:"storage_path" gorm:"type:varchar(512);not null"`
	UploadedBy  uint           `json:"uploaded_by" gorm:"index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// TenantStoragePrefix returns the object-storage prefix all of a tenant's
// attachment paths must live under.
func TenantStoragePrefix(tenantID uint) string {
	return fmt.Sprintf("tenants/%d/", tenantID)
}

// HasValidStoragePath checks the path-prefix rule that keeps one tenant's
// files from being addressed by another.
func (a *Attachment) HasValidStoragePath() bool {
	return strings.HasPrefix(a.StoragePath, TenantStoragePrefix(a.TenantID))
}
