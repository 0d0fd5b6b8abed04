package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/giftloop/giftloop-backend/api/responses"
	pkgauth "github.com/giftloop/giftloop-backend/pkg/auth"
	"github.com/giftloop/giftloop-backend/pkg/config"
	pkgerrors "github.com/giftloop/giftloop-backend/pkg/errors"
	"github.com/giftloop/giftloop-backend/pkg/logger"
)

// IdentitySyncer mirrors the token identity into the users table so profile
// lookups never dangle. The users repository satisfies it.
type IdentitySyncer interface {
	Sync(ctx context.Context, id uuid.UUID, email, displayName string) error
}

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, identities IdentitySyncer, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.UserID == uuid.Nil || claims.Email == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "token missing identity"))
				return
			}

			if identities != nil {
				if err := identities.Sync(r.Context(), claims.UserID, claims.Email, claims.DisplayName); err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync identity"))
					return
				}
			}

			ctx := WithUser(r.Context(), claims.UserID.String(), claims.Email, claims.DisplayName)
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
