package claims

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/giftloop/giftloop-backend/internal/ownership"
	"github.com/giftloop/giftloop-backend/pkg/db/models"
	"github.com/giftloop/giftloop-backend/pkg/enums"
	pkgerrors "github.com/giftloop/giftloop-backend/pkg/errors"
)

// Repository is the persistence surface the claim service arbitrates over.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ResolveItem(ctx context.Context, itemID uuid.UUID) (ownership.Ownership, error)
	FindForUpdate(ctx context.Context, itemID uuid.UUID) (models.Item, error)
	Save(ctx context.Context, item *models.Item) error
	IsAcceptedMember(ctx context.Context, registryID, userID uuid.UUID) (bool, error)
}

type repository struct {
	db       *gorm.DB
	resolver *ownership.Resolver
}

// NewRepository constructs a claims repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db, resolver: ownership.NewResolver(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx, resolver: r.resolver.WithTx(tx)}
}

func (r *repository) ResolveItem(ctx context.Context, itemID uuid.UUID) (ownership.Ownership, error) {
	return r.resolver.ResolveItem(ctx, itemID)
}

// FindForUpdate re-reads the item under a row lock so concurrent claim
// attempts serialize on the database. SQLite has no FOR UPDATE and already
// serializes writers, so the locking clause only applies on Postgres.
func (r *repository) FindForUpdate(ctx context.Context, itemID uuid.UUID) (models.Item, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var item models.Item
	if err := query.Where("id = ?", itemID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Item{}, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return models.Item{}, err
	}
	return item, nil
}

func (r *repository) Save(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"status":             item.Status,
			"claimed_by_user_id": item.ClaimedByUserID,
			"claimed_at":         item.ClaimedAt,
			"bought_at":          item.BoughtAt,
		}).Error
}

func (r *repository) IsAcceptedMember(ctx context.Context, registryID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Collaborator{}).
		Where("registry_id = ? AND user_id = ? AND status = ?", registryID, userID, enums.CollaboratorStatusAccepted).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
