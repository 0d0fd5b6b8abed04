package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the minimal identity record the backend keeps about an
// authenticated person. Credentials live with the external identity provider;
// this row exists so claimants can be expanded into public profiles.
type User struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email       string    `gorm:"column:email;not null;uniqueIndex:users_email_key"`
	DisplayName string    `gorm:"column:display_name;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
