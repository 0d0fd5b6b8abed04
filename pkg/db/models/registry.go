package models

import (
	"time"

	"github.com/google/uuid"
)

// Registry is a named collection of collaborators and their gift lists for
// one occasion.
type Registry struct {
	ID                     uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title                  string     `gorm:"column:title;not null"`
	Description            *string    `gorm:"column:description"`
	OwnerUserID            uuid.UUID  `gorm:"column:owner_user_id;type:uuid;not null;index:registries_owner_idx"`
	EventDate              *time.Time `gorm:"column:event_date"`
	CollaboratorsCanInvite bool       `gorm:"column:collaborators_can_invite;not null;default:false"`
	AllowSecretGifts       bool       `gorm:"column:allow_secret_gifts;not null;default:true"`
	CreatedAt              time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	Collaborators []Collaborator `gorm:"foreignKey:RegistryID"`
}
