package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInvitationIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "future expiry is live",
			expiresAt: time.Now().Add(time.Hour),
			want:      false,
		},
		{
			name:      "past expiry is expired",
			expiresAt: time.Now().Add(-time.Second),
			want:      true,
		},
		{
			// Strictly-after boundary: an expiry a comfortable margin ahead
			// of "now" at call time must not read as expired
			name:      "boundary margin ahead is live",
			expiresAt: time.Now().Add(50 * time.Millisecond),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &UserInvitation{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, inv.IsExpired())
		})
	}
}

func TestInvitationIsValid(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name string
		inv  UserInvitation
		want bool
	}{
		{"pending and live", UserInvitation{Status: InvitationStatusPending, ExpiresAt: future}, true},
		{"pending but expired", UserInvitation{Status: InvitationStatusPending, ExpiresAt: past}, false},
		{"accepted", UserInvitation{Status: InvitationStatusAccepted, ExpiresAt: future}, false},
		{"cancelled", UserInvitation{Status: InvitationStatusCancelled, ExpiresAt: future}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.inv.IsValid())
		})
	}
}

func TestInvitationBeforeCreateGeneratesToken(t *testing.T) {
	inv := &UserInvitation{Email: "new@example.com", Role: RoleEntry}

	err := inv.BeforeCreate(nil)
	assert.NoError(t, err)
	assert.NotEmpty(t, inv.Token)
	assert.Equal(t, InvitationStatusPending, inv.Status)

	// Tokens are unique between invitations
	other := &UserInvitation{Email: "other@example.com", Role: RoleView}
	assert.NoError(t, other.BeforeCreate(nil))
	assert.NotEqual(t, inv.Token, other.Token)
}

func TestInvitationBeforeCreateKeepsExistingToken(t *testing.T) {
	inv := &UserInvitation{Token: "preset-token", Status: InvitationStatusPending}

	err := inv.BeforeCreate(nil)
	assert.NoError(t, err)
	assert.Equal(t, "preset-token", inv.Token)
}
