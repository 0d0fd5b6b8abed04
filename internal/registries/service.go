package registries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftloop/giftloop-backend/internal/collaborators"
	"github.com/giftloop/giftloop-backend/pkg/db/models"
	"github.com/giftloop/giftloop-backend/pkg/enums"
	pkgerrors "github.com/giftloop/giftloop-backend/pkg/errors"
	"github.com/giftloop/giftloop-backend/pkg/logger"
	"github.com/giftloop/giftloop-backend/pkg/visibility"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type profileSource interface {
	PublicProfile(ctx context.Context, id uuid.UUID) (visibility.PublicProfile, error)
}

// CreateInput captures the fields accepted when creating a registry.
type CreateInput struct {
	Title                  string
	Description            *string
	EventDate              *time.Time
	CollaboratorsCanInvite bool
	AllowSecretGifts       bool
}

// UpdateInput captures the mutable registry fields; nil means keep.
type UpdateInput struct {
	Title                  *string
	Description            *string
	EventDate              *time.Time
	CollaboratorsCanInvite *bool
	AllowSecretGifts       *bool
}

// Service exposes registry operations.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*RegistryDTO, error)
	Update(ctx context.Context, actorID, registryID uuid.UUID, input UpdateInput) (*RegistryDTO, error)
	Delete(ctx context.Context, actorID, registryID uuid.UUID) error
	List(ctx context.Context, actorID uuid.UUID) ([]RegistryDTO, error)
	GetView(ctx context.Context, actorID, registryID uuid.UUID) (*RegistryView, error)
}

type service struct {
	tx       txRunner
	repo     *Repository
	collabs  *collaborators.Repository
	profiles profileSource
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a registries service with the provided dependencies.
func NewService(tx txRunner, repo *Repository, collabs *collaborators.Repository, profiles profileSource, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("registries repository required")
	}
	if collabs == nil {
		return nil, fmt.Errorf("collaborators repository required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{tx: tx, repo: repo, collabs: collabs, profiles: profiles, logg: logg, now: time.Now}, nil
}

// Create inserts a registry and seats the owner as its first accepted
// collaborator with a sub-list of their own, so the owner can receive gifts
// like everyone else.
func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*RegistryDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}

	owner, err := s.profiles.PublicProfile(ctx, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load owner profile")
	}

	registry := models.Registry{
		ID:                     uuid.New(),
		Title:                  title,
		Description:            input.Description,
		OwnerUserID:            actorID,
		EventDate:              input.EventDate,
		CollaboratorsCanInvite: input.CollaboratorsCanInvite,
		AllowSecretGifts:       input.AllowSecretGifts,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &registry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create registry")
		}
		if _, err := s.collabs.WithTx(tx).CreateAccepted(ctx, registry.ID, owner.Email, actorID, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seat owner collaborator")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithRegistryID(ctx, registry.ID.String()), "registry created")
	return FromModel(&registry), nil
}

// Delete tears down a registry and everything under it in one transaction.
func (s *service) Delete(ctx context.Context, actorID, registryID uuid.UUID) error {
	registry, err := s.load(ctx, registryID)
	if err != nil {
		return err
	}
	if registry.OwnerUserID != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the registry owner can delete it")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).DeleteCascade(ctx, registryID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete registry")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logg.Info(s.logg.WithRegistryID(ctx, registryID.String()), "registry deleted")
	return nil
}

func (s *service) Update(ctx context.Context, actorID, registryID uuid.UUID, input UpdateInput) (*RegistryDTO, error) {
	registry, err := s.load(ctx, registryID)
	if err != nil {
		return nil, err
	}
	if registry.OwnerUserID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the registry owner can update it")
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be blank")
		}
		registry.Title = title
	}
	if input.Description != nil {
		registry.Description = input.Description
	}
	if input.EventDate != nil {
		registry.EventDate = input.EventDate
	}
	if input.CollaboratorsCanInvite != nil {
		registry.CollaboratorsCanInvite = *input.CollaboratorsCanInvite
	}
	if input.AllowSecretGifts != nil {
		registry.AllowSecretGifts = *input.AllowSecretGifts
	}

	if err := s.repo.Update(ctx, registry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update registry")
	}
	return FromModel(registry), nil
}

func (s *service) List(ctx context.Context, actorID uuid.UUID) ([]RegistryDTO, error) {
	registries, err := s.repo.ListForUser(ctx, actorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list registries")
	}

	out := make([]RegistryDTO, 0, len(registries))
	for i := range registries {
		out = append(out, *FromModel(&registries[i]))
	}
	return out, nil
}

// GetView assembles the registry page for one viewer. Each sub-list is
// projected through the visibility rules with the viewer's relationship to
// that particular sub-list, so the same request never leaks claim state on
// the viewer's own list.
func (s *service) GetView(ctx context.Context, actorID, registryID uuid.UUID) (*RegistryView, error) {
	registry, err := s.load(ctx, registryID)
	if err != nil {
		return nil, err
	}

	collabs, err := s.collabs.ListByRegistry(ctx, registryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list collaborators")
	}

	if err := s.authorizeView(registry, collabs, actorID); err != nil {
		return nil, err
	}

	collabIDs := make([]uuid.UUID, 0, len(collabs))
	for _, collab := range collabs {
		collabIDs = append(collabIDs, collab.ID)
	}

	subLists, err := s.repo.SubListsByCollaborator(ctx, collabIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sub-lists")
	}

	subListIDs := make([]uuid.UUID, 0, len(subLists))
	for _, subList := range subLists {
		subListIDs = append(subListIDs, subList.ID)
	}
	itemsBySubList, err := s.repo.ItemsBySubList(ctx, subListIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load items")
	}

	lookup := s.memoizedProfiles(ctx)

	view := RegistryView{Registry: FromModel(registry), SubLists: make([]SubListView, 0, len(collabs))}
	for _, collab := range collabs {
		subList, ok := subLists[collab.ID]
		if !ok {
			// Collaborator slots always carry a sub-list; a missing one is a
			// broken invariant, not a user error.
			return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("collaborator %s has no sub-list", collab.ID))
		}

		ownerView := collab.UserID != nil && *collab.UserID == actorID
		projected, err := visibility.ProjectItems(itemsBySubList[subList.ID], actorID, ownerView, lookup)
		if err != nil {
			return nil, err
		}

		entry := SubListView{
			SubListID:         subList.ID,
			CollaboratorID:    collab.ID,
			CollaboratorEmail: collab.Email,
			Status:            collab.Status,
			IsOwn:             ownerView,
			Items:             projected,
		}
		if collab.UserID != nil {
			profile, err := lookup(*collab.UserID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve collaborator profile")
			}
			entry.CollaboratorUser = &profile
		}
		view.SubLists = append(view.SubLists, entry)
	}

	return &view, nil
}

func (s *service) authorizeView(registry *models.Registry, collabs []models.Collaborator, actorID uuid.UUID) error {
	if registry.OwnerUserID == actorID {
		return nil
	}
	for _, collab := range collabs {
		if collab.UserID != nil && *collab.UserID == actorID && collab.Status == enums.CollaboratorStatusAccepted {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this registry")
}

func (s *service) memoizedProfiles(ctx context.Context) visibility.ProfileLookup {
	cache := make(map[uuid.UUID]visibility.PublicProfile)
	return func(userID uuid.UUID) (visibility.PublicProfile, error) {
		if profile, ok := cache[userID]; ok {
			return profile, nil
		}
		profile, err := s.profiles.PublicProfile(ctx, userID)
		if err != nil {
			return visibility.PublicProfile{}, err
		}
		cache[userID] = profile
		return profile, nil
	}
}

func (s *service) load(ctx context.Context, registryID uuid.UUID) (*models.Registry, error) {
	registry, err := s.repo.FindByID(ctx, registryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "registry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load registry")
	}
	return registry, nil
}
