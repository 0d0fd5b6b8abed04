package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/giftloop/giftloop-backend/pkg/enums"
)

// Item is a single giftable entry with optional claim/purchase state.
//
// Deletion is soft (DeletedAt/DeletedByUserID) and never clears claim fields,
// so a claimant can still back out of a deleted item. The claim fields form
// one unit: unclaimed implies all of them null, bought implies claimant and
// BoughtAt set.
type Item struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SubListID   uuid.UUID `gorm:"column:sub_list_id;type:uuid;not null;index:items_sub_list_idx"`
	Label       string    `gorm:"column:label;not null"`
	URL         *string   `gorm:"column:url"`
	Description *string   `gorm:"column:description"`
	PriceCents  *int      `gorm:"column:price_cents"`
	IsSecret    bool      `gorm:"column:is_secret;not null;default:false"`

	CreatedByUserID uuid.UUID  `gorm:"column:created_by_user_id;type:uuid;not null"`
	DeletedAt       *time.Time `gorm:"column:deleted_at"`
	DeletedByUserID *uuid.UUID `gorm:"column:deleted_by_user_id;type:uuid"`

	Status          enums.ClaimStatus `gorm:"column:status;not null;default:unclaimed"`
	ClaimedByUserID *uuid.UUID        `gorm:"column:claimed_by_user_id;type:uuid;index:items_claimed_by_idx"`
	ClaimedAt       *time.Time        `gorm:"column:claimed_at"`
	BoughtAt        *time.Time        `gorm:"column:bought_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Deleted reports whether the item has been soft-deleted.
func (i Item) Deleted() bool {
	return i.DeletedAt != nil
}
