package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/giftloop/giftloop-backend/api/controllers"
	"github.com/giftloop/giftloop-backend/api/middleware"
	"github.com/giftloop/giftloop-backend/internal/claims"
	"github.com/giftloop/giftloop-backend/internal/collaborators"
	"github.com/giftloop/giftloop-backend/internal/invites"
	"github.com/giftloop/giftloop-backend/internal/items"
	"github.com/giftloop/giftloop-backend/internal/registries"
	"github.com/giftloop/giftloop-backend/pkg/config"
	"github.com/giftloop/giftloop-backend/pkg/logger"
	pkgredis "github.com/giftloop/giftloop-backend/pkg/redis"
)

// Deps carries everything the router mounts.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	DBPinger   controllers.Pinger
	Redis      *pkgredis.Client
	Identities middleware.IdentitySyncer
	Profiles   controllers.ClaimProfileSource

	Registries    registries.Service
	Collaborators collaborators.Service
	Invites       invites.Service
	Items         items.Service
	Claims        claims.Service

	Metrics http.Handler
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": deps.DBPinger,
			"redis":    pingerOrNil(deps.Redis),
		}))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	if !cfg.App.IsProd() {
		r.Post("/api/v1/auth/token", controllers.DevToken(cfg.JWT, logg))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Identities, logg))
		r.Use(middleware.Idempotency(idempotencyStore(deps.Redis), logg))

		r.Get("/v1/me", controllers.Me(logg))

		r.Route("/v1/registries", func(r chi.Router) {
			r.Get("/", controllers.RegistryList(deps.Registries, logg))
			r.Post("/", controllers.RegistryCreate(deps.Registries, logg))
			r.Route("/{registryId}", func(r chi.Router) {
				r.Get("/", controllers.RegistryDetail(deps.Registries, logg))
				r.Patch("/", controllers.RegistryUpdate(deps.Registries, logg))
				r.Delete("/", controllers.RegistryDelete(deps.Registries, logg))

				r.Get("/collaborators", controllers.CollaboratorList(deps.Collaborators, logg))
				r.Delete("/collaborators/{collaboratorId}", controllers.CollaboratorRemove(deps.Collaborators, logg))

				r.Post("/invites", controllers.InviteIssue(deps.Invites, logg))
			})
		})

		r.Post("/v1/invites/accept", controllers.InviteAccept(deps.Invites, logg))

		r.Post("/v1/sub-lists/{subListId}/items", controllers.ItemAdd(deps.Items, logg))

		r.Route("/v1/items/{itemId}", func(r chi.Router) {
			r.Patch("/", controllers.ItemUpdate(deps.Items, logg))
			r.Delete("/", controllers.ItemDelete(deps.Items, logg))

			r.Post("/claim", controllers.ItemClaim(deps.Claims, deps.Profiles, logg))
			r.Post("/release", controllers.ItemRelease(deps.Claims, deps.Profiles, logg))
			r.Post("/bought", controllers.ItemMarkBought(deps.Claims, deps.Profiles, logg))
		})
	})

	return r
}

// Typed nils must not leak into interface fields; a nil *Client wrapped in an
// interface would dodge the middleware's nil checks.
func pingerOrNil(client *pkgredis.Client) controllers.Pinger {
	if client == nil {
		return nil
	}
	return client
}

func idempotencyStore(client *pkgredis.Client) pkgredis.IdempotencyStore {
	if client == nil {
		return nil
	}
	return client
}
