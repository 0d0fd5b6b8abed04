package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/giftloop/giftloop-backend/api/responses"
	"github.com/giftloop/giftloop-backend/internal/collaborators"
	"github.com/giftloop/giftloop-backend/pkg/db/models"
	"github.com/giftloop/giftloop-backend/pkg/enums"
	"github.com/giftloop/giftloop-backend/pkg/logger"
)

type collaboratorDTO struct {
	ID         uuid.UUID                `json:"id"`
	RegistryID uuid.UUID                `json:"registry_id"`
	UserID     *uuid.UUID               `json:"user_id"`
	Email      string                   `json:"email"`
	Status     enums.CollaboratorStatus `json:"status"`
	AcceptedAt *time.Time               `json:"accepted_at"`
	CreatedAt  time.Time                `json:"created_at"`
}

func collaboratorToDTO(collab models.Collaborator) collaboratorDTO {
	return collaboratorDTO{
		ID:         collab.ID,
		RegistryID: collab.RegistryID,
		UserID:     collab.UserID,
		Email:      collab.Email,
		Status:     collab.Status,
		AcceptedAt: collab.AcceptedAt,
		CreatedAt:  collab.CreatedAt,
	}
}

func CollaboratorList(svc collaborators.Service, logg *logger.Logger) http.HandlerFunc {
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

		collabs, err := svc.List(r.Context(), actor, registryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]collaboratorDTO, 0, len(collabs))
		for _, collab := range collabs {
			out = append(out, collaboratorToDTO(collab))
		}
		responses.WriteSuccess(w, out)
	}
}

// CollaboratorRemove evicts a collaborator and reports what the cleanup did.
func CollaboratorRemove(svc collaborators.Service, logg *logger.Logger) http.HandlerFunc {
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
		collaboratorID, err := pathUUID(r, "collaboratorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Remove(r.Context(), actor, registryID, collaboratorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
