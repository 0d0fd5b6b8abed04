package invites

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftloop/giftloop-backend/internal/collaborators"
	"github.com/giftloop/giftloop-backend/internal/users"
	"github.com/giftloop/giftloop-backend/pkg/config"
	"github.com/giftloop/giftloop-backend/pkg/db/models"
	"github.com/giftloop/giftloop-backend/pkg/enums"
	pkgerrors "github.com/giftloop/giftloop-backend/pkg/errors"
	"github.com/giftloop/giftloop-backend/pkg/logger"
	"github.com/giftloop/giftloop-backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type registrySource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Registry, error)
}

// Issued is the one-time response to an invite issuance. Token carries the
// raw secret and is never reconstructable afterwards.
type Issued struct {
	Token        string              `json:"token"`
	Collaborator models.Collaborator `json:"collaborator"`
	ExpiresAt    time.Time           `json:"expires_at"`
}

// Service manages the invite token lifecycle.
type Service interface {
	Issue(ctx context.Context, actorID, registryID uuid.UUID, email string) (*Issued, error)
	Accept(ctx context.Context, userID uuid.UUID, userEmail, wireToken string) (*models.Collaborator, error)
}

type service struct {
	tx         txRunner
	repo       *Repository
	collabs    *collaborators.Repository
	registries registrySource
	cfg        config.InviteConfig
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds an invites service with the provided dependencies.
func NewService(tx txRunner, repo *Repository, collabs *collaborators.Repository, registries registrySource, cfg config.InviteConfig, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("invites repository required")
	}
	if collabs == nil {
		return nil, fmt.Errorf("collaborators repository required")
	}
	if registries == nil {
		return nil, fmt.Errorf("registry source required")
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("invite token ttl must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:         tx,
		repo:       repo,
		collabs:    collabs,
		registries: registries,
		cfg:        cfg,
		logg:       logg,
		now:        time.Now,
	}, nil
}

// Issue mints a single-use invite for an email. Issuing again for the same
// email reuses the pending slot and kills every earlier live token, so only
// the newest invite works.
func (s *service) Issue(ctx context.Context, actorID, registryID uuid.UUID, email string) (*Issued, error) {
	ctx = s.logg.WithRegistryID(ctx, registryID.String())

	registry, err := s.registries.FindByID(ctx, registryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "registry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load registry")
	}

	if err := s.authorizeIssue(ctx, registry, actorID); err != nil {
		return nil, err
	}

	email = users.NormalizeEmail(email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	var issued Issued
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		collabRepo := s.collabs.WithTx(tx)
		tokenRepo := s.repo.WithTx(tx)

		collab, err := collabRepo.FindByRegistryAndEmail(ctx, registryID, email)
		switch {
		case err == nil:
			if collab.Status == enums.CollaboratorStatusAccepted {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "email already belongs to an accepted collaborator")
			}
			if _, err := tokenRepo.InvalidateLiveFor(ctx, collab.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalidate earlier invites")
			}
		case collaborators.IsNotFound(err):
			collab, err = collabRepo.CreatePending(ctx, registryID, email)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create collaborator slot")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up collaborator slot")
		}

		id, wire, secretHash, err := security.GenerateInviteToken()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate invite token")
		}

		expiresAt := s.now().Add(s.cfg.TokenTTL)
		token := models.InviteToken{
			ID:             id,
			RegistryID:     registryID,
			CollaboratorID: collab.ID,
			Email:          email,
			SecretHash:     secretHash,
			ExpiresAt:      expiresAt,
		}
		if err := tokenRepo.Create(ctx, &token); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store invite token")
		}

		issued = Issued{Token: wire, Collaborator: *collab, ExpiresAt: expiresAt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, fmt.Sprintf("issued invite for collaborator %s", issued.Collaborator.ID))
	return &issued, nil
}

func (s *service) authorizeIssue(ctx context.Context, registry *models.Registry, actorID uuid.UUID) error {
	if registry.OwnerUserID == actorID {
		return nil
	}
	if !registry.CollaboratorsCanInvite {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the registry owner can invite")
	}
	collab, err := s.collabs.FindByRegistryAndUser(ctx, registry.ID, actorID)
	if err != nil {
		if collaborators.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this registry")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	if collab.Status != enums.CollaboratorStatusAccepted {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this registry")
	}
	return nil
}

// Accept consumes a wire token and binds the authenticated user to the
// pending collaborator slot. Token validity and the email binding are both
// checked before anything is written.
func (s *service) Accept(ctx context.Context, userID uuid.UUID, userEmail, wireToken string) (*models.Collaborator, error) {
	tokenID, secret, err := security.SplitWireToken(wireToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed invite token")
	}

	var accepted *models.Collaborator
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		tokenRepo := s.repo.WithTx(tx)
		collabRepo := s.collabs.WithTx(tx)

		token, err := tokenRepo.FindByID(ctx, tokenID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "invite not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invite token")
		}

		ok, err := security.VerifySecret(secret, token.SecretHash)
		if err != nil || !ok {
			// A bad secret looks identical to a missing invite on purpose.
			return pkgerrors.New(pkgerrors.CodeNotFound, "invite not found")
		}

		if token.Used {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "invite already used")
		}
		if !token.Live(s.now()) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "invite expired")
		}

		collab, err := collabRepo.FindByID(ctx, token.CollaboratorID)
		if err != nil {
			if collaborators.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeInternal, "invite references missing collaborator")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load collaborator")
		}

		if users.NormalizeEmail(userEmail) != collab.Email {
			return pkgerrors.New(pkgerrors.CodeForbidden, "invite was issued to a different email")
		}

		if collab.Status == enums.CollaboratorStatusAccepted {
			if collab.UserID != nil && *collab.UserID == userID {
				// Re-accepting with the same account is harmless.
				accepted = collab
				return tokenRepo.MarkUsed(ctx, token.ID)
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "invite already accepted by another account")
		}

		now := s.now()
		if err := collabRepo.Accept(ctx, collab.ID, userID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept collaborator")
		}
		if err := tokenRepo.MarkUsed(ctx, token.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume invite token")
		}

		collab.UserID = &userID
		collab.Status = enums.CollaboratorStatusAccepted
		collab.AcceptedAt = &now
		accepted = collab
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithRegistryID(ctx, accepted.RegistryID.String())
	s.logg.Info(ctx, fmt.Sprintf("invite accepted by user %s", userID))
	return accepted, nil
}
