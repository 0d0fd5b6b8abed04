package models

import (
	"time"

	"github.com/google/uuid"
)

// SubList is the gift list belonging to one collaborator, created atomically
// with it.
type SubList struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CollaboratorID uuid.UUID `gorm:"column:collaborator_id;type:uuid;not null;uniqueIndex:sub_lists_collaborator_key"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Items []Item `gorm:"foreignKey:SubListID"`
}
