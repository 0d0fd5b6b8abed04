package collaborators

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftloop/giftloop-backend/pkg/db/models"
	"github.com/giftloop/giftloop-backend/pkg/enums"
	pkgerrors "github.com/giftloop/giftloop-backend/pkg/errors"
	"github.com/giftloop/giftloop-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type registrySource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Registry, error)
}

// RemovalSummary reports everything a removal cleaned up.
type RemovalSummary struct {
	ClaimsReleased    int64 `json:"claims_released"`
	ItemsDeleted      int64 `json:"items_deleted"`
	TokensInvalidated int64 `json:"tokens_invalidated"`
}

// Service exposes collaborator lifecycle operations.
type Service interface {
	List(ctx context.Context, actorID, registryID uuid.UUID) ([]models.Collaborator, error)
	Remove(ctx context.Context, actorID, registryID, collaboratorID uuid.UUID) (*RemovalSummary, error)
}

type service struct {
	tx         txRunner
	repo       *Repository
	registries registrySource
	logg       *logger.Logger
}

// NewService builds a collaborators service with the provided dependencies.
func NewService(tx txRunner, repo *Repository, registries registrySource, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("collaborators repository required")
	}
	if registries == nil {
		return nil, fmt.Errorf("registry source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{tx: tx, repo: repo, registries: registries, logg: logg}, nil
}

func (s *service) List(ctx context.Context, actorID, registryID uuid.UUID) ([]models.Collaborator, error) {
	registry, err := s.loadRegistry(ctx, registryID)
	if err != nil {
		return nil, err
	}

	if registry.OwnerUserID != actorID {
		if _, err := s.repo.FindByRegistryAndUser(ctx, registryID, actorID); err != nil {
			if IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this registry")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
		}
	}

	collabs, err := s.repo.ListByRegistry(ctx, registryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list collaborators")
	}
	return collabs, nil
}

// Remove tears a collaborator out of a registry in a single transaction:
// releases claims they hold elsewhere in the registry, deletes their sub-list
// with all its items, invalidates their live invite tokens, and drops the
// collaborator row. Either all of it happens or none of it does.
func (s *service) Remove(ctx context.Context, actorID, registryID, collaboratorID uuid.UUID) (*RemovalSummary, error) {
	ctx = s.logg.WithRegistryID(ctx, registryID.String())

	registry, err := s.loadRegistry(ctx, registryID)
	if err != nil {
		return nil, err
	}
	if registry.OwnerUserID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the registry owner can remove collaborators")
	}

	var summary RemovalSummary
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		collab, err := repo.FindByID(ctx, collaboratorID)
		if err != nil {
			if IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "collaborator not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load collaborator")
		}
		if collab.RegistryID != registryID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "collaborator not found")
		}
		if collab.Status == enums.CollaboratorStatusRemoved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "collaborator already removed")
		}
		if collab.UserID != nil && *collab.UserID == actorID {
			return pkgerrors.New(pkgerrors.CodeValidation, "owners cannot remove their own collaborator entry")
		}

		if collab.UserID != nil {
			released, err := repo.ReleaseClaimsHeldBy(ctx, registryID, *collab.UserID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release held claims")
			}
			summary.ClaimsReleased = released
		}

		subList, err := repo.SubListFor(ctx, collab.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sub-list")
		}
		if err == nil {
			deleted, err := repo.DeleteSubListItems(ctx, subList.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete sub-list items")
			}
			summary.ItemsDeleted = deleted

			if err := repo.DeleteSubList(ctx, subList.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete sub-list")
			}
		}

		invalidated, err := repo.InvalidateTokens(ctx, collab.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalidate invite tokens")
		}
		summary.TokensInvalidated = invalidated

		if err := repo.Delete(ctx, collab.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete collaborator")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, fmt.Sprintf("removed collaborator %s: released=%d deleted=%d tokens=%d",
		collaboratorID, summary.ClaimsReleased, summary.ItemsDeleted, summary.TokensInvalidated))
	return &summary, nil
}

func (s *service) loadRegistry(ctx context.Context, registryID uuid.UUID) (*models.Registry, error) {
	registry, err := s.registries.FindByID(ctx, registryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "registry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load registry")
	}
	return registry, nil
}
