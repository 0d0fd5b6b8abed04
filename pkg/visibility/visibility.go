package visibility

import (
	"time"

	"github.com/google/uuid"

	"github.com/giftloop/giftloop-backend/pkg/db/models"
	"github.com/giftloop/giftloop-backend/pkg/enums"
	pkgerrors "github.com/giftloop/giftloop-backend/pkg/errors"
)

// ClaimFields enumerates every response field derived from claim state. The
// owner view nulls exactly this set; adding a claim-derived field to the API
// without extending this list is a bug.
var ClaimFields = []string{"status", "claimed_by", "claimed_at", "bought_at"}

// PublicProfile is the claimant identity shown to non-owner viewers.
type PublicProfile struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// ItemProjection is the wire form of an item after visibility rules run.
// Claim fields are pointers so the owner view serializes them as nulls rather
// than zero values.
type ItemProjection struct {
	ID          uuid.UUID  `json:"id"`
	SubListID   uuid.UUID  `json:"sub_list_id"`
	Label       string     `json:"label"`
	URL         *string    `json:"url"`
	Description *string    `json:"description"`
	PriceCents  *int       `json:"price_cents"`
	IsSecret    bool       `json:"is_secret"`
	Deleted     bool       `json:"deleted"`
	CreatedAt   time.Time  `json:"created_at"`

	Status    *enums.ClaimStatus `json:"status"`
	ClaimedBy *PublicProfile     `json:"claimed_by"`
	ClaimedAt *time.Time         `json:"claimed_at"`
	BoughtAt  *time.Time         `json:"bought_at"`
}

// ProfileLookup resolves a user id to the claimant profile exposed to
// non-owner viewers.
type ProfileLookup func(userID uuid.UUID) (PublicProfile, error)

// ProjectItem applies the visibility rules for one item.
//
// ownerView is true when viewerID owns the sub-list the item sits on. Owners
// never see claim state: every field in ClaimFields comes back null, and
// secret items someone else added are withheld entirely (include=false).
// Everyone else gets the full claim state with the claimant expanded through
// lookup.
func ProjectItem(item models.Item, viewerID uuid.UUID, ownerView bool, lookup ProfileLookup) (proj ItemProjection, include bool, err error) {
	if ownerView && item.IsSecret && item.CreatedByUserID != viewerID {
		return ItemProjection{}, false, nil
	}

	proj = ItemProjection{
		ID:          item.ID,
		SubListID:   item.SubListID,
		Label:       item.Label,
		URL:         item.URL,
		Description: item.Description,
		PriceCents:  item.PriceCents,
		IsSecret:    item.IsSecret,
		Deleted:     item.Deleted(),
		CreatedAt:   item.CreatedAt,
	}

	if ownerView {
		return proj, true, nil
	}

	status := item.Status
	proj.Status = &status
	proj.ClaimedAt = item.ClaimedAt
	proj.BoughtAt = item.BoughtAt

	if item.ClaimedByUserID != nil {
		if lookup == nil {
			return ItemProjection{}, false, pkgerrors.New(pkgerrors.CodeInternal, "claimant lookup is required for non-owner views")
		}
		profile, lookupErr := lookup(*item.ClaimedByUserID)
		if lookupErr != nil {
			return ItemProjection{}, false, lookupErr
		}
		proj.ClaimedBy = &profile
	}

	return proj, true, nil
}

// ProjectItems applies ProjectItem across a slice, dropping withheld items.
func ProjectItems(items []models.Item, viewerID uuid.UUID, ownerView bool, lookup ProfileLookup) ([]ItemProjection, error) {
	out := make([]ItemProjection, 0, len(items))
	for _, item := range items {
		proj, include, err := ProjectItem(item, viewerID, ownerView, lookup)
		if err != nil {
			return nil, err
		}
		if include {
			out = append(out, proj)
		}
	}
	return out, nil
}
