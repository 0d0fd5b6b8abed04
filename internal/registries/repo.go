package registries

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftloop/giftloop-backend/pkg/db/models"
	"github.com/giftloop/giftloop-backend/pkg/enums"
)

// Repository encapsulates registry persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a registries repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a registry.
func (r *Repository) Create(ctx context.Context, registry *models.Registry) error {
	return r.db.WithContext(ctx).Create(registry).Error
}

// FindByID loads a registry by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Registry, error) {
	var registry models.Registry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&registry).Error; err != nil {
		return nil, err
	}
	return &registry, nil
}

// Update persists the mutable registry fields.
func (r *Repository) Update(ctx context.Context, registry *models.Registry) error {
	return r.db.WithContext(ctx).
		Model(&models.Registry{}).
		Where("id = ?", registry.ID).
		Updates(map[string]any{
			"title":                    registry.Title,
			"description":              registry.Description,
			"event_date":               registry.EventDate,
			"collaborators_can_invite": registry.CollaboratorsCanInvite,
			"allow_secret_gifts":       registry.AllowSecretGifts,
		}).Error
}

// DeleteCascade removes a registry with everything hanging off it: items,
// sub-lists, invite tokens, collaborator slots, then the registry row. Callers
// run this inside a transaction.
func (r *Repository) DeleteCascade(ctx context.Context, registryID uuid.UUID) error {
	db := r.db.WithContext(ctx)

	if err := db.Exec(`
DELETE FROM items WHERE sub_list_id IN (
  SELECT sl.id FROM sub_lists sl
  JOIN collaborators c ON c.id = sl.collaborator_id
  WHERE c.registry_id = ?
)`, registryID).Error; err != nil {
		return err
	}
	if err := db.Exec(`
DELETE FROM sub_lists WHERE collaborator_id IN (
  SELECT id FROM collaborators WHERE registry_id = ?
)`, registryID).Error; err != nil {
		return err
	}
	if err := db.Where("registry_id = ?", registryID).Delete(&models.InviteToken{}).Error; err != nil {
		return err
	}
	if err := db.Where("registry_id = ?", registryID).Delete(&models.Collaborator{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", registryID).Delete(&models.Registry{}).Error
}

// ListForUser returns registries the user owns plus those they collaborate on.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Registry, error) {
	var registries []models.Registry
	err := r.db.WithContext(ctx).
		Where("owner_user_id = ?", userID).
		Or("id IN (SELECT registry_id FROM collaborators WHERE user_id = ? AND status = ?)", userID, enums.CollaboratorStatusAccepted).
		Order("created_at DESC").
		Find(&registries).Error
	if err != nil {
		return nil, err
	}
	return registries, nil
}

// ItemsBySubList loads every item for a set of sub-lists, grouped by sub-list.
func (r *Repository) ItemsBySubList(ctx context.Context, subListIDs []uuid.UUID) (map[uuid.UUID][]models.Item, error) {
	grouped := make(map[uuid.UUID][]models.Item, len(subListIDs))
	if len(subListIDs) == 0 {
		return grouped, nil
	}

	var items []models.Item
	err := r.db.WithContext(ctx).
		Where("sub_list_id IN ?", subListIDs).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		grouped[item.SubListID] = append(grouped[item.SubListID], item)
	}
	return grouped, nil
}

// SubListsByCollaborator loads the sub-lists for a set of collaborators.
func (r *Repository) SubListsByCollaborator(ctx context.Context, collaboratorIDs []uuid.UUID) (map[uuid.UUID]models.SubList, error) {
	byCollab := make(map[uuid.UUID]models.SubList, len(collaboratorIDs))
	if len(collaboratorIDs) == 0 {
		return byCollab, nil
	}

	var subLists []models.SubList
	err := r.db.WithContext(ctx).
		Where("collaborator_id IN ?", collaboratorIDs).
		Find(&subLists).Error
	if err != nil {
		return nil, err
	}

	for _, subList := range subLists {
		byCollab[subList.CollaboratorID] = subList
	}
	return byCollab, nil
}
