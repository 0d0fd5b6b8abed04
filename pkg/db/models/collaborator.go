package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/giftloop/giftloop-backend/pkg/enums"
)

// Collaborator is a registry member, one per email. UserID stays null until
// the invite is accepted. Each collaborator owns exactly one sub-list.
type Collaborator struct {
	ID         uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RegistryID uuid.UUID                `gorm:"column:registry_id;type:uuid;not null;index:collaborators_registry_idx;uniqueIndex:collaborators_registry_email_key"`
	UserID     *uuid.UUID               `gorm:"column:user_id;type:uuid;index:collaborators_user_idx"`
	Email      string                   `gorm:"column:email;not null;uniqueIndex:collaborators_registry_email_key"`
	Status     enums.CollaboratorStatus `gorm:"column:status;not null;default:pending"`
	AcceptedAt *time.Time               `gorm:"column:accepted_at"`
	CreatedAt  time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time                `gorm:"column:updated_at;autoUpdateTime"`

	SubList *SubList `gorm:"foreignKey:CollaboratorID"`
}
