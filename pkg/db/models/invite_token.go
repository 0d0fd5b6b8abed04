package models

import (
	"time"

	"github.com/google/uuid"
)

// InviteToken is a single-use, time-limited credential binding an email to a
// pending collaborator slot. Only the argon2id hash of the secret is stored;
// the raw secret leaves the system once, in the issuance response.
type InviteToken struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	RegistryID     uuid.UUID `gorm:"column:registry_id;type:uuid;not null;index:invite_tokens_registry_idx"`
	CollaboratorID uuid.UUID `gorm:"column:collaborator_id;type:uuid;not null;index:invite_tokens_collaborator_idx"`
	Email          string    `gorm:"column:email;not null"`
	SecretHash     string    `gorm:"column:secret_hash;not null"`
	ExpiresAt      time.Time `gorm:"column:expires_at;not null"`
	Used           bool      `gorm:"column:used;not null;default:false"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Live reports whether the token can still be consumed at the given time.
func (t InviteToken) Live(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
