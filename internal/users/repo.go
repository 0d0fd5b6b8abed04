package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/giftloop/giftloop-backend/pkg/db/models"
	"github.com/giftloop/giftloop-backend/pkg/visibility"
)

// Repository encapsulates user persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// EnsureUser upserts a user row keyed by email and returns the stored record.
// Display name follows the latest value the identity provider handed us.
func (r *Repository) EnsureUser(ctx context.Context, email, displayName string) (*models.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, gorm.ErrInvalidValue
	}

	user := models.User{ID: uuid.New(), Email: email, DisplayName: displayName}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "updated_at"}),
		}).
		Create(&user).Error
	if err != nil {
		return nil, err
	}

	// OnConflict does not reliably populate the id on every dialect; re-read.
	var stored models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// Sync upserts the user row keyed by the token subject id, so the first
// authenticated request provisions the account and later ones keep the
// profile fields in step with the identity provider.
func (r *Repository) Sync(ctx context.Context, id uuid.UUID, email, displayName string) error {
	email = NormalizeEmail(email)
	if id == uuid.Nil || email == "" {
		return gorm.ErrInvalidValue
	}

	user := models.User{ID: id, Email: email, DisplayName: displayName}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "updated_at"}),
		}).
		Create(&user).Error
}

// FindByID loads a user by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail loads a user by normalized email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// PublicProfile resolves the claimant identity exposed to non-owner viewers.
func (r *Repository) PublicProfile(ctx context.Context, id uuid.UUID) (visibility.PublicProfile, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return visibility.PublicProfile{}, err
	}
	return visibility.PublicProfile{ID: user.ID, Name: user.DisplayName, Email: user.Email}, nil
}

// NormalizeEmail lowercases and trims an address so equality checks behave.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
