package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/giftloop/giftloop-backend/api/middleware"
	"github.com/giftloop/giftloop-backend/api/responses"
	"github.com/giftloop/giftloop-backend/api/validators"
	pkgauth "github.com/giftloop/giftloop-backend/pkg/auth"
	"github.com/giftloop/giftloop-backend/pkg/config"
	pkgerrors "github.com/giftloop/giftloop-backend/pkg/errors"
	"github.com/giftloop/giftloop-backend/pkg/logger"
)

type devTokenRequest struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required"`
}

// DevToken mints an access token for local development. Production relies on
// the external identity provider and never mounts this route.
func DevToken(cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req devTokenRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := uuid.New()
		if req.UserID != "" {
			parsed, err := uuid.Parse(req.UserID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid user_id"))
				return
			}
			userID = parsed
		}

		token, err := pkgauth.MintAccessToken(cfg, time.Now(), pkgauth.AccessTokenPayload{
			UserID:      userID,
			Email:       req.Email,
			DisplayName: req.DisplayName,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token"))
			return
		}

		responses.WriteSuccess(w, map[string]string{
			"token":   token,
			"user_id": userID.String(),
		})
	}
}

// Me echoes the authenticated identity back to the caller.
func Me(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"id":           id.String(),
			"email":        middleware.UserEmailFromContext(r.Context()),
			"display_name": middleware.UserNameFromContext(r.Context()),
		})
	}
}
