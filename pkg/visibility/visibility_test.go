package visibility

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/giftloop/giftloop-backend/pkg/db/models"
	"github.com/giftloop/giftloop-backend/pkg/enums"
	pkgerrors "github.com/giftloop/giftloop-backend/pkg/errors"
)

func claimedItem(claimant uuid.UUID) models.Item {
	now := time.Now()
	return models.Item{
		ID:              uuid.New(),
		SubListID:       uuid.New(),
		Label:           "espresso machine",
		CreatedByUserID: uuid.New(),
		Status:          enums.ClaimStatusClaimed,
		ClaimedByUserID: &claimant,
		ClaimedAt:       &now,
	}
}

func TestProjectItemOwnerNeverSeesClaimState(t *testing.T) {
	owner := uuid.New()
	claimant := uuid.New()
	item := claimedItem(claimant)
	item.CreatedByUserID = owner

	proj, include, err := ProjectItem(item, owner, true, nil)
	require.NoError(t, err)
	require.True(t, include)

	require.Nil(t, proj.Status)
	require.Nil(t, proj.ClaimedBy)
	require.Nil(t, proj.ClaimedAt)
	require.Nil(t, proj.BoughtAt)
	require.Equal(t, "espresso machine", proj.Label)
}

func TestProjectItemWithholdsSecretFromOwner(t *testing.T) {
	owner := uuid.New()
	item := claimedItem(uuid.New())
	item.IsSecret = true

	_, include, err := ProjectItem(item, owner, true, nil)
	require.NoError(t, err)
	require.False(t, include)
}

func TestProjectItemOwnSecretItemStaysVisible(t *testing.T) {
	owner := uuid.New()
	item := models.Item{ID: uuid.New(), Label: "surprise", IsSecret: true, CreatedByUserID: owner, Status: enums.ClaimStatusUnclaimed}

	_, include, err := ProjectItem(item, owner, true, nil)
	require.NoError(t, err)
	require.True(t, include)
}

func TestProjectItemNonOwnerSeesClaimantProfile(t *testing.T) {
	claimant := uuid.New()
	viewer := uuid.New()
	item := claimedItem(claimant)

	lookup := func(userID uuid.UUID) (PublicProfile, error) {
		require.Equal(t, claimant, userID)
		return PublicProfile{ID: userID, Name: "Ben", Email: "ben@example.com"}, nil
	}

	proj, include, err := ProjectItem(item, viewer, false, lookup)
	require.NoError(t, err)
	require.True(t, include)

	require.NotNil(t, proj.Status)
	require.Equal(t, enums.ClaimStatusClaimed, *proj.Status)
	require.NotNil(t, proj.ClaimedBy)
	require.Equal(t, claimant, proj.ClaimedBy.ID)
	require.Equal(t, "Ben", proj.ClaimedBy.Name)
	require.NotNil(t, proj.ClaimedAt)
}

func TestProjectItemNonOwnerUnclaimedHasNoClaimant(t *testing.T) {
	item := models.Item{ID: uuid.New(), Label: "book", Status: enums.ClaimStatusUnclaimed, CreatedByUserID: uuid.New()}

	proj, include, err := ProjectItem(item, uuid.New(), false, nil)
	require.NoError(t, err)
	require.True(t, include)
	require.NotNil(t, proj.Status)
	require.Equal(t, enums.ClaimStatusUnclaimed, *proj.Status)
	require.Nil(t, proj.ClaimedBy)
}

func TestProjectItemMissingLookupIsInternal(t *testing.T) {
	item := claimedItem(uuid.New())

	_, _, err := ProjectItem(item, uuid.New(), false, nil)
	require.Error(t, err)

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeInternal, appErr.Code())
}

func TestProjectItemsDropsWithheldAndKeepsOrder(t *testing.T) {
	owner := uuid.New()
	visible := models.Item{ID: uuid.New(), Label: "a", CreatedByUserID: owner, Status: enums.ClaimStatusUnclaimed}
	secret := models.Item{ID: uuid.New(), Label: "b", IsSecret: true, CreatedByUserID: uuid.New(), Status: enums.ClaimStatusUnclaimed}
	deleted := visible
	deleted.ID = uuid.New()
	deleted.Label = "c"
	now := time.Now()
	deleted.DeletedAt = &now

	out, err := ProjectItems([]models.Item{visible, secret, deleted}, owner, true, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "a", out[0].Label)
	require.Equal(t, "c", out[1].Label)
	require.True(t, out[1].Deleted)
}
