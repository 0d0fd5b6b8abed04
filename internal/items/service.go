package items

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftloop/giftloop-backend/internal/ownership"
	"github.com/giftloop/giftloop-backend/pkg/db/models"
	"github.com/giftloop/giftloop-backend/pkg/enums"
	pkgerrors "github.com/giftloop/giftloop-backend/pkg/errors"
	"github.com/giftloop/giftloop-backend/pkg/logger"
)

type membershipSource interface {
	FindByRegistryAndUser(ctx context.Context, registryID, userID uuid.UUID) (*models.Collaborator, error)
}

// AddInput captures the fields accepted when adding an item.
type AddInput struct {
	Label       string
	URL         *string
	Description *string
	PriceCents  *int
	IsSecret    bool
}

// UpdateInput captures the editable item fields; nil means keep.
type UpdateInput struct {
	Label       *string
	URL         *string
	Description *string
	PriceCents  *int
}

// Service exposes item content operations. Claim state is owned by the
// claims service and never touched here.
type Service interface {
	Add(ctx context.Context, actorID, subListID uuid.UUID, input AddInput) (*models.Item, error)
	Update(ctx context.Context, actorID, itemID uuid.UUID, input UpdateInput) (*models.Item, error)
	Delete(ctx context.Context, actorID, itemID uuid.UUID) (*models.Item, error)
}

type service struct {
	repo     *Repository
	resolver *ownership.Resolver
	members  membershipSource
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds an items service with the provided dependencies.
func NewService(repo *Repository, resolver *ownership.Resolver, members membershipSource, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("items repository required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("ownership resolver required")
	}
	if members == nil {
		return nil, fmt.Errorf("membership source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, resolver: resolver, members: members, logg: logg, now: time.Now}, nil
}

// Add places an item on a sub-list. On your own list anything goes except
// secrecy; on someone else's list only secret surprises are allowed, and only
// when the registry permits them.
func (s *service) Add(ctx context.Context, actorID, subListID uuid.UUID, input AddInput) (*models.Item, error) {
	label := strings.TrimSpace(input.Label)
	if label == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "label is required")
	}
	if input.PriceCents != nil && *input.PriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	chain, err := s.repo.ResolveSubList(ctx, subListID)
	if err != nil {
		return nil, err
	}

	ownList := chain.Collaborator.UserID != nil && *chain.Collaborator.UserID == actorID
	if ownList {
		if input.IsSecret {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot add secret items to your own list")
		}
	} else {
		if err := s.requireMembership(ctx, chain.Registry, actorID); err != nil {
			return nil, err
		}
		if !input.IsSecret {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only secret gifts can be added to another member's list")
		}
		if !chain.Registry.AllowSecretGifts {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "secret gifts are disabled for this registry")
		}
	}

	item := models.Item{
		ID:              uuid.New(),
		SubListID:       subListID,
		Label:           label,
		URL:             input.URL,
		Description:     input.Description,
		PriceCents:      input.PriceCents,
		IsSecret:        input.IsSecret,
		CreatedByUserID: actorID,
		Status:          enums.ClaimStatusUnclaimed,
	}
	if err := s.repo.Create(ctx, &item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
	}

	s.logg.Info(s.logg.WithItemID(ctx, item.ID.String()), "item added")
	return &item, nil
}

// Update edits item content. Only the creator may edit, and deleted items
// are frozen.
func (s *service) Update(ctx context.Context, actorID, itemID uuid.UUID, input UpdateInput) (*models.Item, error) {
	own, err := s.resolver.ResolveItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	item := own.Item

	if item.CreatedByUserID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the item's creator can edit it")
	}
	if item.Deleted() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "item has been deleted")
	}

	if input.Label != nil {
		label := strings.TrimSpace(*input.Label)
		if label == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "label cannot be blank")
		}
		item.Label = label
	}
	if input.URL != nil {
		item.URL = input.URL
	}
	if input.Description != nil {
		item.Description = input.Description
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		item.PriceCents = input.PriceCents
	}

	if err := s.repo.UpdateContent(ctx, &item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item")
	}
	return &item, nil
}

// Delete soft-deletes an item. The creator or the sub-list owner may delete;
// claim fields are left alone so a claimant can still release. Deleting an
// already-deleted item is a no-op.
func (s *service) Delete(ctx context.Context, actorID, itemID uuid.UUID) (*models.Item, error) {
	own, err := s.resolver.ResolveItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	item := own.Item

	if item.CreatedByUserID != actorID && !own.IsSubListOwner(actorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the creator or the list owner can delete an item")
	}
	if item.Deleted() {
		return &item, nil
	}

	now := s.now()
	item.DeletedAt = &now
	item.DeletedByUserID = &actorID
	if err := s.repo.SoftDelete(ctx, &item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete item")
	}

	s.logg.Info(s.logg.WithItemID(ctx, item.ID.String()), "item soft-deleted")
	return &item, nil
}

func (s *service) requireMembership(ctx context.Context, registry models.Registry, actorID uuid.UUID) error {
	if registry.OwnerUserID == actorID {
		return nil
	}
	collab, err := s.members.FindByRegistryAndUser(ctx, registry.ID, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this registry")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	if collab.Status != enums.CollaboratorStatusAccepted {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this registry")
	}
	return nil
}
