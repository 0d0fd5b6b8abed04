package items

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftloop/giftloop-backend/pkg/db/models"
	pkgerrors "github.com/giftloop/giftloop-backend/pkg/errors"
)

// Repository encapsulates item persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an items repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts an item.
func (r *Repository) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindByID loads an item by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateContent persists the editable item fields, leaving claim and
// deletion state untouched.
func (r *Repository) UpdateContent(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"label":       item.Label,
			"url":         item.URL,
			"description": item.Description,
			"price_cents": item.PriceCents,
		}).Error
}

// SoftDelete marks an item deleted while keeping the row and its claim
// fields, so an existing claimant can still release it.
func (r *Repository) SoftDelete(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"deleted_at":         item.DeletedAt,
			"deleted_by_user_id": item.DeletedByUserID,
		}).Error
}

// SubListChain is the sub-list with the collaborator and registry above it.
type SubListChain struct {
	SubList      models.SubList
	Collaborator models.Collaborator
	Registry     models.Registry
}

// ResolveSubList walks sub-list -> collaborator -> registry.
func (r *Repository) ResolveSubList(ctx context.Context, subListID uuid.UUID) (SubListChain, error) {
	var chain SubListChain

	if err := r.db.WithContext(ctx).Where("id = ?", subListID).First(&chain.SubList).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SubListChain{}, pkgerrors.New(pkgerrors.CodeNotFound, "sub-list not found")
		}
		return SubListChain{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sub-list")
	}

	if err := r.db.WithContext(ctx).Where("id = ?", chain.SubList.CollaboratorID).First(&chain.Collaborator).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SubListChain{}, pkgerrors.New(pkgerrors.CodeInternal, "sub-list references missing collaborator")
		}
		return SubListChain{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load collaborator")
	}

	if err := r.db.WithContext(ctx).Where("id = ?", chain.Collaborator.RegistryID).First(&chain.Registry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SubListChain{}, pkgerrors.New(pkgerrors.CodeInternal, "collaborator references missing registry")
		}
		return SubListChain{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load registry")
	}

	return chain, nil
}
