package invites

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftloop/giftloop-backend/pkg/db/models"
)

// Repository encapsulates invite token persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an invites repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create stores a freshly minted token.
func (r *Repository) Create(ctx context.Context, token *models.InviteToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// FindByID loads a token by its public id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InviteToken, error) {
	var token models.InviteToken
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// MarkUsed consumes a token.
func (r *Repository) MarkUsed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.InviteToken{}).
		Where("id = ?", id).
		Update("used", true).Error
}

// InvalidateLiveFor marks every unused token for a collaborator as used, so a
// reissue leaves exactly one live token in play.
func (r *Repository) InvalidateLiveFor(ctx context.Context, collaboratorID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InviteToken{}).
		Where("collaborator_id = ? AND used = ?", collaboratorID, false).
		Update("used", true)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
