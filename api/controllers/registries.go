package controllers

import (
	"net/http"
	"time"

	"github.com/giftloop/giftloop-backend/api/responses"
	"github.com/giftloop/giftloop-backend/api/validators"
	"github.com/giftloop/giftloop-backend/internal/registries"
	"github.com/giftloop/giftloop-backend/pkg/logger"
)

type createRegistryRequest struct {
	Title                  string     `json:"title" validate:"required,max=200"`
	Description            *string    `json:"description"`
	EventDate              *time.Time `json:"event_date"`
	CollaboratorsCanInvite bool       `json:"collaborators_can_invite"`
	AllowSecretGifts       bool       `json:"allow_secret_gifts"`
}

type updateRegistryRequest struct {
	Title                  *string    `json:"title" validate:"omitempty,max=200"`
	Description            *string    `json:"description"`
	EventDate              *time.Time `json:"event_date"`
	CollaboratorsCanInvite *bool      `json:"collaborators_can_invite"`
	AllowSecretGifts       *bool      `json:"allow_secret_gifts"`
}

func RegistryCreate(svc registries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createRegistryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), actor, registries.CreateInput{
			Title:                  req.Title,
			Description:            req.Description,
			EventDate:              req.EventDate,
			CollaboratorsCanInvite: req.CollaboratorsCanInvite,
			AllowSecretGifts:       req.AllowSecretGifts,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func RegistryList(svc registries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// RegistryDetail returns the viewer-specific registry tree: every sub-list
// with its items run through the visibility rules for this viewer.
func RegistryDetail(svc registries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		registryID, err := pathUUID(r, "registryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetView(r.Context(), actor, registryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func RegistryUpdate(svc registries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		registryID, err := pathUUID(r, "registryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateRegistryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), actor, registryID, registries.UpdateInput{
			Title:                  req.Title,
			Description:            req.Description,
			EventDate:              req.EventDate,
			CollaboratorsCanInvite: req.CollaboratorsCanInvite,
			AllowSecretGifts:       req.AllowSecretGifts,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func RegistryDelete(svc registries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		registryID, err := pathUUID(r, "registryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), actor, registryID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
