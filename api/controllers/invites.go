package controllers

import (
	"net/http"
	"time"

	"github.com/giftloop/giftloop-backend/api/middleware"
	"github.com/giftloop/giftloop-backend/api/responses"
	"github.com/giftloop/giftloop-backend/api/validators"
	"github.com/giftloop/giftloop-backend/internal/invites"
	"github.com/giftloop/giftloop-backend/pkg/logger"
)

type issueInviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type issuedInviteResponse struct {
	Token        string          `json:"token"`
	ExpiresAt    time.Time       `json:"expires_at"`
	Collaborator collaboratorDTO `json:"collaborator"`
}

type acceptInviteRequest struct {
	Token string `json:"token" validate:"required"`
}

// InviteIssue mints a single-use invite token. The raw token appears in this
// response and nowhere else.
func InviteIssue(svc invites.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req issueInviteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		issued, err := svc.Issue(r.Context(), actor, registryID, req.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, issuedInviteResponse{
			Token:        issued.Token,
			ExpiresAt:    issued.ExpiresAt,
			Collaborator: collaboratorToDTO(issued.Collaborator),
		})
	}
}

// InviteAccept consumes an invite token for the authenticated user.
func InviteAccept(svc invites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req acceptInviteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		email := middleware.UserEmailFromContext(r.Context())
		collab, err := svc.Accept(r.Context(), actor, email, req.Token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, collaboratorToDTO(*collab))
	}
}
