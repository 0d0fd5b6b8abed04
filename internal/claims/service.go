package claims

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftloop/giftloop-backend/internal/ownership"
	dbpkg "github.com/giftloop/giftloop-backend/pkg/db"
	"github.com/giftloop/giftloop-backend/pkg/db/models"
	"github.com/giftloop/giftloop-backend/pkg/enums"
	pkgerrors "github.com/giftloop/giftloop-backend/pkg/errors"
	"github.com/giftloop/giftloop-backend/pkg/logger"
	"github.com/giftloop/giftloop-backend/pkg/metrics"
	"github.com/giftloop/giftloop-backend/pkg/visibility"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type profileSource interface {
	PublicProfile(ctx context.Context, id uuid.UUID) (visibility.PublicProfile, error)
}

// Service arbitrates claim-state transitions. Every transition runs in one
// transaction with the item row locked, so at most one claimant wins a race
// and losers get told who won.
type Service interface {
	Claim(ctx context.Context, actorID, itemID uuid.UUID) (*models.Item, error)
	Release(ctx context.Context, actorID, itemID uuid.UUID) (*models.Item, error)
	MarkBought(ctx context.Context, actorID, itemID uuid.UUID) (*models.Item, error)
}

type service struct {
	tx       txRunner
	repo     Repository
	profiles profileSource
	logg     *logger.Logger
	metrics  *metrics.ClaimMetrics
	now      func() time.Time
}

// NewService builds a claim service with the provided dependencies.
func NewService(tx txRunner, repo Repository, profiles profileSource, logg *logger.Logger, claimMetrics *metrics.ClaimMetrics) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("claims repository required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:       tx,
		repo:     repo,
		profiles: profiles,
		logg:     logg,
		metrics:  claimMetrics,
		now:      time.Now,
	}, nil
}

func (s *service) Claim(ctx context.Context, actorID, itemID uuid.UUID) (*models.Item, error) {
	return s.transition(ctx, "claim", actorID, itemID, s.applyClaim)
}

func (s *service) Release(ctx context.Context, actorID, itemID uuid.UUID) (*models.Item, error) {
	return s.transition(ctx, "release", actorID, itemID, s.applyRelease)
}

func (s *service) MarkBought(ctx context.Context, actorID, itemID uuid.UUID) (*models.Item, error) {
	return s.transition(ctx, "mark_bought", actorID, itemID, s.applyMarkBought)
}

type transitionFn func(ctx context.Context, actorID uuid.UUID, item *models.Item) (changed bool, err error)

func (s *service) transition(ctx context.Context, op string, actorID, itemID uuid.UUID, apply transitionFn) (*models.Item, error) {
	start := s.now()
	ctx = s.logg.WithItemID(ctx, itemID.String())

	var result models.Item
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		own, err := repo.ResolveItem(ctx, itemID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, repo, op, actorID, own); err != nil {
			return err
		}

		// Re-read under lock; the resolver's copy may be stale by the time
		// the lock is granted.
		item, err := repo.FindForUpdate(ctx, itemID)
		if err != nil {
			return err
		}

		changed, err := apply(ctx, actorID, &item)
		if err != nil {
			return err
		}
		if changed {
			if err := repo.Save(ctx, &item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist claim state")
			}
		}
		result = item
		return nil
	})

	s.observe(ctx, op, start, err)
	if err != nil {
		return nil, s.normalizeErr(err)
	}
	return &result, nil
}

// authorize enforces who may touch claim state: the actor must belong to the
// registry, and sub-list owners never operate on claims for their own items.
func (s *service) authorize(ctx context.Context, repo Repository, op string, actorID uuid.UUID, own ownership.Ownership) error {
	if own.IsSubListOwner(actorID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot manage claims on your own list")
	}

	if own.IsRegistryOwner(actorID) {
		return nil
	}
	member, err := repo.IsAcceptedMember(ctx, own.Registry.ID, actorID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check registry membership")
	}
	if !member {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this registry")
	}
	return nil
}

func (s *service) applyClaim(ctx context.Context, actorID uuid.UUID, item *models.Item) (bool, error) {
	if item.Deleted() {
		return false, pkgerrors.New(pkgerrors.CodeStateConflict, "item has been deleted")
	}

	switch item.Status {
	case enums.ClaimStatusUnclaimed:
		now := s.now()
		item.Status = enums.ClaimStatusClaimed
		item.ClaimedByUserID = &actorID
		item.ClaimedAt = &now
		item.BoughtAt = nil
		return true, nil

	case enums.ClaimStatusClaimed:
		if item.ClaimedByUserID != nil && *item.ClaimedByUserID == actorID {
			return false, nil
		}
		return false, s.alreadyClaimed(ctx, item)

	case enums.ClaimStatusBought:
		if item.ClaimedByUserID != nil && *item.ClaimedByUserID == actorID {
			return false, pkgerrors.New(pkgerrors.CodeStateConflict, "item already bought")
		}
		return false, s.alreadyClaimed(ctx, item)

	default:
		return false, s.invariantViolation(ctx, item, "unknown claim status")
	}
}

func (s *service) applyRelease(ctx context.Context, actorID uuid.UUID, item *models.Item) (bool, error) {
	switch item.Status {
	case enums.ClaimStatusUnclaimed:
		// Releasing an unclaimed item is a no-op so retries stay safe.
		return false, nil

	case enums.ClaimStatusClaimed:
		if item.ClaimedByUserID == nil {
			return false, s.invariantViolation(ctx, item, "claimed item has no claimant")
		}
		if *item.ClaimedByUserID != actorID {
			return false, pkgerrors.New(pkgerrors.CodeForbidden, "only the claimant can release an item")
		}
		item.Status = enums.ClaimStatusUnclaimed
		item.ClaimedByUserID = nil
		item.ClaimedAt = nil
		item.BoughtAt = nil
		return true, nil

	case enums.ClaimStatusBought:
		if item.ClaimedByUserID == nil {
			return false, s.invariantViolation(ctx, item, "bought item has no claimant")
		}
		if *item.ClaimedByUserID != actorID {
			return false, pkgerrors.New(pkgerrors.CodeForbidden, "only the claimant can release an item")
		}
		// The buyer can back out of a purchase; the item goes all the way
		// back to unclaimed.
		item.Status = enums.ClaimStatusUnclaimed
		item.ClaimedByUserID = nil
		item.ClaimedAt = nil
		item.BoughtAt = nil
		return true, nil

	default:
		return false, s.invariantViolation(ctx, item, "unknown claim status")
	}
}

func (s *service) applyMarkBought(ctx context.Context, actorID uuid.UUID, item *models.Item) (bool, error) {
	// Deleted items can still be marked bought; only claiming checks deletion,
	// so a claimant can settle up after the wish is withdrawn.
	switch item.Status {
	case enums.ClaimStatusUnclaimed:
		return false, pkgerrors.New(pkgerrors.CodeStateConflict, "claim the item before marking it bought")

	case enums.ClaimStatusClaimed:
		if item.ClaimedByUserID == nil {
			return false, s.invariantViolation(ctx, item, "claimed item has no claimant")
		}
		if *item.ClaimedByUserID != actorID {
			return false, pkgerrors.New(pkgerrors.CodeForbidden, "only the claimant can mark an item bought")
		}
		now := s.now()
		item.Status = enums.ClaimStatusBought
		item.BoughtAt = &now
		return true, nil

	case enums.ClaimStatusBought:
		if item.ClaimedByUserID != nil && *item.ClaimedByUserID == actorID {
			return false, nil
		}
		return false, pkgerrors.New(pkgerrors.CodeForbidden, "only the claimant can mark an item bought")

	default:
		return false, s.invariantViolation(ctx, item, "unknown claim status")
	}
}

// alreadyClaimed builds the lost-race conflict carrying the winner's public
// profile so the caller can render who got there first.
func (s *service) alreadyClaimed(ctx context.Context, item *models.Item) error {
	conflict := pkgerrors.New(pkgerrors.CodeConflict, "item already claimed")
	if item.ClaimedByUserID == nil {
		return conflict
	}

	profile, err := s.profiles.PublicProfile(ctx, *item.ClaimedByUserID)
	if err != nil {
		s.logg.Error(ctx, "resolve claimant profile for conflict details", err)
		return conflict
	}

	details := map[string]any{"claimed_by": profile}
	if item.ClaimedAt != nil {
		details["claimed_at"] = *item.ClaimedAt
	}
	return conflict.WithDetails(details)
}

func (s *service) invariantViolation(ctx context.Context, item *models.Item, detail string) error {
	err := pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("claim invariant violated: %s", detail))
	s.logg.Error(ctx, fmt.Sprintf("item %s: %s (status=%s)", item.ID, detail, item.Status), err)
	return err
}

// normalizeErr maps bounded-lock-wait timeouts to a retryable conflict so
// clients back off and retry instead of seeing a 500.
func (s *service) normalizeErr(err error) error {
	if dbpkg.IsLockTimeout(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "item is contended, retry")
	}
	return err
}

func (s *service) observe(ctx context.Context, op string, start time.Time, err error) {
	s.metrics.ObserveDuration(op, s.now().Sub(start))
	if err == nil {
		s.metrics.IncSuccess(op)
		return
	}
	if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeConflict {
		s.metrics.IncConflict(op)
		return
	}
	s.metrics.IncFailure(op)
}
