package ownership

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftloop/giftloop-backend/pkg/db/models"
	pkgerrors "github.com/giftloop/giftloop-backend/pkg/errors"
)

// Ownership is the fully-resolved chain above an item: the sub-list it sits
// on, the collaborator that sub-list belongs to, and the registry.
type Ownership struct {
	Item         models.Item
	SubList      models.SubList
	Collaborator models.Collaborator
	Registry     models.Registry
}

// OwnerUserID returns the sub-list owner's user id, nil while the
// collaborator is still pending acceptance.
func (o Ownership) OwnerUserID() *uuid.UUID {
	return o.Collaborator.UserID
}

// IsSubListOwner reports whether userID owns the sub-list the item sits on.
func (o Ownership) IsSubListOwner(userID uuid.UUID) bool {
	return o.Collaborator.UserID != nil && *o.Collaborator.UserID == userID
}

// IsRegistryOwner reports whether userID owns the registry.
func (o Ownership) IsRegistryOwner(userID uuid.UUID) bool {
	return o.Registry.OwnerUserID == userID
}

// Resolver walks item -> sub-list -> collaborator -> registry. Every
// permission and visibility decision goes through it so the chain is resolved
// one way everywhere.
type Resolver struct {
	db *gorm.DB
}

// NewResolver constructs a resolver bound to the provided gorm DB.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// WithTx returns a resolver bound to the supplied transaction.
func (r *Resolver) WithTx(tx *gorm.DB) *Resolver {
	return &Resolver{db: tx}
}

// ResolveItem loads the full ownership chain for an item. A missing item is
// NotFound; a missing link above an existing item means the database violated
// the schema's invariants and surfaces as an internal error.
func (r *Resolver) ResolveItem(ctx context.Context, itemID uuid.UUID) (Ownership, error) {
	var own Ownership

	if err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&own.Item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Ownership{}, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return Ownership{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}

	if err := r.db.WithContext(ctx).Where("id = ?", own.Item.SubListID).First(&own.SubList).Error; err != nil {
		return Ownership{}, chainBroken(err, fmt.Sprintf("item %s references missing sub-list %s", itemID, own.Item.SubListID))
	}

	if err := r.db.WithContext(ctx).Where("id = ?", own.SubList.CollaboratorID).First(&own.Collaborator).Error; err != nil {
		return Ownership{}, chainBroken(err, fmt.Sprintf("sub-list %s references missing collaborator %s", own.SubList.ID, own.SubList.CollaboratorID))
	}

	if err := r.db.WithContext(ctx).Where("id = ?", own.Collaborator.RegistryID).First(&own.Registry).Error; err != nil {
		return Ownership{}, chainBroken(err, fmt.Sprintf("collaborator %s references missing registry %s", own.Collaborator.ID, own.Collaborator.RegistryID))
	}

	return own, nil
}

// ResolveCollaborator loads a collaborator together with its registry.
func (r *Resolver) ResolveCollaborator(ctx context.Context, collaboratorID uuid.UUID) (models.Collaborator, models.Registry, error) {
	var collab models.Collaborator
	if err := r.db.WithContext(ctx).Where("id = ?", collaboratorID).First(&collab).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Collaborator{}, models.Registry{}, pkgerrors.New(pkgerrors.CodeNotFound, "collaborator not found")
		}
		return models.Collaborator{}, models.Registry{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load collaborator")
	}

	var registry models.Registry
	if err := r.db.WithContext(ctx).Where("id = ?", collab.RegistryID).First(&registry).Error; err != nil {
		return models.Collaborator{}, models.Registry{}, chainBroken(err, fmt.Sprintf("collaborator %s references missing registry %s", collab.ID, collab.RegistryID))
	}

	return collab, registry, nil
}

func chainBroken(err error, detail string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeInternal, "ownership chain broken: "+detail)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve ownership chain")
}
