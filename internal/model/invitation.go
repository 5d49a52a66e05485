package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Invitation statuses. Expiry is not a stored status; it is derived from
// ExpiresAt on every read.
const (
	InvitationStatusPending   = "pending"
	InvitationStatusAccepted  = "accepted"
	InvitationStatusCancelled = "cancelled"
)

// UserInvitation represents a pending invite for someone to join a tenant.
// The token is the only credential an invitee holds; it is consumed exactly
// once by acceptance.
type UserInvitation struct {
	ID          uint              `json:"id" gorm:"primaryKey"`
	TenantID    uint              `json:"tenant_id" gorm:"index;not null"`
	Email       string            `json:"email" gorm:"type:varchar(100);index;not null"`
	Role        string            `json:"role" gorm:"type:varchar(20);not null"`
	Permissions datatypes.JSONMap `json:"permissions"` // Snapshot applied to the user on acceptance
	Token       string            `json:"-" gorm:"type:varchar(64);uniqueIndex"`
	Status      string            `json:"status" gorm:"type:varchar(20);index;default:'pending'"`
	ExpiresAt   time.Time         `json:"expires_at"`
	InvitedBy   uint              `json:"invited_by" gorm:"index"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	DeletedAt   gorm.DeletedAt    `json:"-" gorm:"index"`
}

// BeforeCreate hook will be called before creating a new UserInvitation record
func (i *UserInvitation) BeforeCreate(tx *gorm.DB) (err error) {
	if i.Token == "" {
		i.Token = generateSecureToken()
	}
	if i.Status == "" {
		i.Status = InvitationStatusPending
	}
	return nil
}

// Regenerate issues a fresh token and pushes the expiry out by ttl,
// invalidating any previously mailed link
func (i *UserInvitation) Regenerate(ttl time.Duration) {
	i.Token = generateSecureToken()
	i.ExpiresAt = time.Now().Add(ttl)
}

// IsExpired checks if the invitation is past its expiry. The check is
// strictly after: an ExpiresAt equal to the current instant is still live.
func (i *UserInvitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

// IsValid checks if the invitation can still be accepted
func (i *UserInvitation) IsValid() bool {
	return i.Status == InvitationStatusPending && !i.IsExpired()
}
