package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/giftloop/giftloop-backend/api/responses"
	"github.com/giftloop/giftloop-backend/internal/claims"
	"github.com/giftloop/giftloop-backend/pkg/db/models"
	"github.com/giftloop/giftloop-backend/pkg/logger"
	"github.com/giftloop/giftloop-backend/pkg/visibility"
)

// ClaimProfileSource expands claimant ids in claim responses. The users
// repository satisfies it.
type ClaimProfileSource interface {
	PublicProfile(ctx context.Context, id uuid.UUID) (visibility.PublicProfile, error)
}

type claimTransition func(ctx context.Context, actorID, itemID uuid.UUID) (*models.Item, error)

// claimHandler runs one claim transition and responds with the item as the
// acting (non-owner) viewer sees it.
func claimHandler(transition claimTransition, profiles ClaimProfileSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := transition(r.Context(), actor, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		proj, _, err := visibility.ProjectItem(*item, actor, false, func(userID uuid.UUID) (visibility.PublicProfile, error) {
			return profiles.PublicProfile(r.Context(), userID)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, proj)
	}
}

func ItemClaim(svc claims.Service, profiles ClaimProfileSource, logg *logger.Logger) http.HandlerFunc {
	return claimHandler(svc.Claim, profiles, logg)
}

func ItemRelease(svc claims.Service, profiles ClaimProfileSource, logg *logger.Logger) http.HandlerFunc {
	return claimHandler(svc.Release, profiles, logg)
}

func ItemMarkBought(svc claims.Service, profiles ClaimProfileSource, logg *logger.Logger) http.HandlerFunc {
	return claimHandler(svc.MarkBought, profiles, logg)
}
