package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/giftloop/giftloop-backend/api/responses"
	"github.com/giftloop/giftloop-backend/api/validators"
	"github.com/giftloop/giftloop-backend/internal/items"
	"github.com/giftloop/giftloop-backend/pkg/db/models"
	"github.com/giftloop/giftloop-backend/pkg/logger"
)

// itemContentDTO is the wire form for content endpoints. Claim state is
// deliberately absent; it only travels through the redacted registry view and
// the claim endpoints.
type itemContentDTO struct {
	ID          uuid.UUID `json:"id"`
	SubListID   uuid.UUID `json:"sub_list_id"`
	Label       string    `json:"label"`
	URL         *string   `json:"url"`
	Description *string   `json:"description"`
	PriceCents  *int      `json:"price_cents"`
	IsSecret    bool      `json:"is_secret"`
	Deleted     bool      `json:"deleted"`
	CreatedAt   time.Time `json:"created_at"`
}

func itemContentToDTO(item *models.Item) itemContentDTO {
	return itemContentDTO{
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
}

type addItemRequest struct {
	Label       string  `json:"label" validate:"required,max=300"`
	URL         *string `json:"url"`
	Description *string `json:"description"`
	PriceCents  *int    `json:"price_cents"`
	IsSecret    bool    `json:"is_secret"`
}

type updateItemRequest struct {
	Label       *string `json:"label" validate:"omitempty,max=300"`
	URL         *string `json:"url"`
	Description *string `json:"description"`
	PriceCents  *int    `json:"price_cents"`
}

func ItemAdd(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subListID, err := pathUUID(r, "subListId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req addItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Add(r.Context(), actor, subListID, items.AddInput{
			Label:       req.Label,
			URL:         req.URL,
			Description: req.Description,
			PriceCents:  req.PriceCents,
			IsSecret:    req.IsSecret,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, itemContentToDTO(item))
	}
}

func ItemUpdate(svc items.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req updateItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), actor, itemID, items.UpdateInput{
			Label:       req.Label,
			URL:         req.URL,
			Description: req.Description,
			PriceCents:  req.PriceCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, itemContentToDTO(item))
	}
}

func ItemDelete(svc items.Service, logg *logger.Logger) http.HandlerFunc {
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

		item, err := svc.Delete(r.Context(), actor, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, itemContentToDTO(item))
	}
}
