package collaborators

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftloop/giftloop-backend/pkg/db/models"
	"github.com/giftloop/giftloop-backend/pkg/enums"
)

// Repository encapsulates collaborator and sub-list persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a collaborators repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads a collaborator by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Collaborator, error) {
	var collab models.Collaborator
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&collab).Error; err != nil {
		return nil, err
	}
	return &collab, nil
}

// FindByRegistryAndEmail loads the collaborator slot for an email, if any.
func (r *Repository) FindByRegistryAndEmail(ctx context.Context, registryID uuid.UUID, email string) (*models.Collaborator, error) {
	var collab models.Collaborator
	err := r.db.WithContext(ctx).
		Where("registry_id = ? AND email = ?", registryID, email).
		First(&collab).Error
	if err != nil {
		return nil, err
	}
	return &collab, nil
}

// FindByRegistryAndUser loads the collaborator row binding a user to a registry.
func (r *Repository) FindByRegistryAndUser(ctx context.Context, registryID, userID uuid.UUID) (*models.Collaborator, error) {
	var collab models.Collaborator
	err := r.db.WithContext(ctx).
		Where("registry_id = ? AND user_id = ?", registryID, userID).
		First(&collab).Error
	if err != nil {
		return nil, err
	}
	return &collab, nil
}

// ListByRegistry returns every collaborator slot on a registry.
func (r *Repository) ListByRegistry(ctx context.Context, registryID uuid.UUID) ([]models.Collaborator, error) {
	var collabs []models.Collaborator
	err := r.db.WithContext(ctx).
		Where("registry_id = ?", registryID).
		Order("created_at ASC").
		Find(&collabs).Error
	if err != nil {
		return nil, err
	}
	return collabs, nil
}

// CreatePending inserts a pending collaborator slot together with its empty
// sub-list. Every collaborator gets exactly one sub-list for life.
func (r *Repository) CreatePending(ctx context.Context, registryID uuid.UUID, email string) (*models.Collaborator, error) {
	collab := models.Collaborator{
		ID:         uuid.New(),
		RegistryID: registryID,
		Email:      email,
		Status:     enums.CollaboratorStatusPending,
	}
	if err := r.db.WithContext(ctx).Create(&collab).Error; err != nil {
		return nil, err
	}

	subList := models.SubList{ID: uuid.New(), CollaboratorID: collab.ID}
	if err := r.db.WithContext(ctx).Create(&subList).Error; err != nil {
		return nil, err
	}
	return &collab, nil
}

// CreateAccepted inserts an already-bound collaborator slot with its sub-list.
// Used for the registry owner, who never goes through the invite flow.
func (r *Repository) CreateAccepted(ctx context.Context, registryID uuid.UUID, email string, userID uuid.UUID, at time.Time) (*models.Collaborator, error) {
	collab := models.Collaborator{
		ID:         uuid.New(),
		RegistryID: registryID,
		Email:      email,
		UserID:     &userID,
		Status:     enums.CollaboratorStatusAccepted,
		AcceptedAt: &at,
	}
	if err := r.db.WithContext(ctx).Create(&collab).Error; err != nil {
		return nil, err
	}

	subList := models.SubList{ID: uuid.New(), CollaboratorID: collab.ID}
	if err := r.db.WithContext(ctx).Create(&subList).Error; err != nil {
		return nil, err
	}
	return &collab, nil
}

// Accept binds a user to a pending collaborator slot.
func (r *Repository) Accept(ctx context.Context, collaboratorID, userID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Collaborator{}).
		Where("id = ?", collaboratorID).
		Updates(map[string]any{
			"user_id":     userID,
			"status":      enums.CollaboratorStatusAccepted,
			"accepted_at": at,
		}).Error
}

// SubListFor returns the sub-list owned by a collaborator.
func (r *Repository) SubListFor(ctx context.Context, collaboratorID uuid.UUID) (*models.SubList, error) {
	var subList models.SubList
	err := r.db.WithContext(ctx).
		Where("collaborator_id = ?", collaboratorID).
		First(&subList).Error
	if err != nil {
		return nil, err
	}
	return &subList, nil
}

// ReleaseClaimsHeldBy clears every claim the user holds on other sub-lists in
// the registry, bought or not, and reports how many were reset. Runs as one
// UPDATE so a removal cannot leave half the claims behind.
func (r *Repository) ReleaseClaimsHeldBy(ctx context.Context, registryID, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
UPDATE items SET
  status = ?,
  claimed_by_user_id = NULL,
  claimed_at = NULL,
  bought_at = NULL
WHERE claimed_by_user_id = ?
  AND sub_list_id IN (
    SELECT sl.id FROM sub_lists sl
    JOIN collaborators c ON c.id = sl.collaborator_id
    WHERE c.registry_id = ?
  )`, enums.ClaimStatusUnclaimed, userID, registryID)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteSubListItems removes every item on the collaborator's sub-list and
// reports the count.
func (r *Repository) DeleteSubListItems(ctx context.Context, subListID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("sub_list_id = ?", subListID).
		Delete(&models.Item{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteSubList removes the collaborator's sub-list row.
func (r *Repository) DeleteSubList(ctx context.Context, subListID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", subListID).
		Delete(&models.SubList{}).Error
}

// Delete removes the collaborator row itself.
func (r *Repository) Delete(ctx context.Context, collaboratorID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", collaboratorID).
		Delete(&models.Collaborator{}).Error
}

// InvalidateTokens marks every live invite token for the collaborator as used
// and reports the count.
func (r *Repository) InvalidateTokens(ctx context.Context, collaboratorID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InviteToken{}).
		Where("collaborator_id = ? AND used = ?", collaboratorID, false).
		Update("used", true)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// IsNotFound reports whether err is the repository's missing-record error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
