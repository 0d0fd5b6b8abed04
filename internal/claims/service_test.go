package claims

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftloop/giftloop-backend/internal/ownership"
	"github.com/giftloop/giftloop-backend/pkg/db/models"
	"github.com/giftloop/giftloop-backend/pkg/enums"
	pkgerrors "github.com/giftloop/giftloop-backend/pkg/errors"
	"github.com/giftloop/giftloop-backend/pkg/logger"
	"github.com/giftloop/giftloop-backend/pkg/metrics"
	"github.com/giftloop/giftloop-backend/pkg/visibility"
)

// serialTxRunner imitates row locking by holding a mutex for the duration of
// each transaction, so concurrent transitions observe each other's writes.
type serialTxRunner struct {
	mu sync.Mutex
}

func (r *serialTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(nil)
}

type stubRepo struct {
	mu         sync.Mutex
	own        ownership.Ownership
	item       models.Item
	members    map[uuid.UUID]bool
	resolveErr error
	saveErr    error
	saves      int
}

func (r *stubRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRepo) ResolveItem(ctx context.Context, itemID uuid.UUID) (ownership.Ownership, error) {
	if r.resolveErr != nil {
		return ownership.Ownership{}, r.resolveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	own := r.own
	own.Item = r.item
	return own, nil
}

func (r *stubRepo) FindForUpdate(ctx context.Context, itemID uuid.UUID) (models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.item, nil
}

func (r *stubRepo) Save(ctx context.Context, item *models.Item) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.item = *item
	r.saves++
	return nil
}

func (r *stubRepo) IsAcceptedMember(ctx context.Context, registryID, userID uuid.UUID) (bool, error) {
	return r.members[userID], nil
}

type stubProfiles struct {
	profiles map[uuid.UUID]visibility.PublicProfile
}

func (s *stubProfiles) PublicProfile(ctx context.Context, id uuid.UUID) (visibility.PublicProfile, error) {
	return s.profiles[id], nil
}

type fixture struct {
	svc      Service
	repo     *stubRepo
	ownerID  uuid.UUID
	listerID uuid.UUID
	memberA  uuid.UUID
	memberB  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ownerID := uuid.New()
	listerID := uuid.New()
	memberA := uuid.New()
	memberB := uuid.New()

	registry := models.Registry{ID: uuid.New(), OwnerUserID: ownerID}
	collab := models.Collaborator{ID: uuid.New(), RegistryID: registry.ID, UserID: &listerID, Status: enums.CollaboratorStatusAccepted}
	subList := models.SubList{ID: uuid.New(), CollaboratorID: collab.ID}
	item := models.Item{ID: uuid.New(), SubListID: subList.ID, Label: "toaster", CreatedByUserID: listerID, Status: enums.ClaimStatusUnclaimed}

	repo := &stubRepo{
		own:     ownership.Ownership{SubList: subList, Collaborator: collab, Registry: registry},
		item:    item,
		members: map[uuid.UUID]bool{listerID: true, memberA: true, memberB: true},
	}

	profiles := &stubProfiles{profiles: map[uuid.UUID]visibility.PublicProfile{
		memberA: {ID: memberA, Name: "Ann", Email: "ann@example.com"},
		memberB: {ID: memberB, Name: "Ben", Email: "ben@example.com"},
	}}

	logg := logger.New(logger.Options{ServiceName: "giftloop-test", Output: io.Discard})
	svc, err := NewService(&serialTxRunner{}, repo, profiles, logg, metrics.NewClaimMetrics(nil))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return &fixture{svc: svc, repo: repo, ownerID: ownerID, listerID: listerID, memberA: memberA, memberB: memberB}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected app error with code %s, got %v", code, err)
	}
	if appErr.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, appErr.Code(), err)
	}
	return appErr
}

func TestClaimUnclaimedItem(t *testing.T) {
	f := newFixture(t)

	item, err := f.svc.Claim(context.Background(), f.memberA, f.repo.item.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	if item.Status != enums.ClaimStatusClaimed {
		t.Fatalf("expected claimed, got %s", item.Status)
	}
	if item.ClaimedByUserID == nil || *item.ClaimedByUserID != f.memberA {
		t.Fatal("claimant not recorded")
	}
	if item.ClaimedAt == nil {
		t.Fatal("claimed_at not set")
	}
}

func TestClaimIsIdempotentForClaimant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Claim(ctx, f.memberA, f.repo.item.ID); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	savesAfterFirst := f.repo.saves

	item, err := f.svc.Claim(ctx, f.memberA, f.repo.item.ID)
	if err != nil {
		t.Fatalf("repeat claim: %v", err)
	}
	if item.Status != enums.ClaimStatusClaimed {
		t.Fatalf("expected claimed, got %s", item.Status)
	}
	if f.repo.saves != savesAfterFirst {
		t.Fatal("repeat claim must not write")
	}
}

func TestClaimConflictCarriesWinnerProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Claim(ctx, f.memberA, f.repo.item.ID); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	_, err := f.svc.Claim(ctx, f.memberB, f.repo.item.ID)
	appErr := requireCode(t, err, pkgerrors.CodeConflict)

	details, ok := appErr.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", appErr.Details())
	}
	winner, ok := details["claimed_by"].(visibility.PublicProfile)
	if !ok {
		t.Fatalf("expected claimed_by profile, got %T", details["claimed_by"])
	}
	if winner.ID != f.memberA || winner.Name != "Ann" {
		t.Fatalf("unexpected winner %+v", winner)
	}
	if _, ok := details["claimed_at"]; !ok {
		t.Fatal("expected claimed_at in details")
	}
}

func TestSubListOwnerCannotTouchClaims(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Claim(context.Background(), f.listerID, f.repo.item.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestNonMemberCannotClaim(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Claim(context.Background(), uuid.New(), f.repo.item.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestRegistryOwnerMayClaim(t *testing.T) {
	f := newFixture(t)

	item, err := f.svc.Claim(context.Background(), f.ownerID, f.repo.item.ID)
	if err != nil {
		t.Fatalf("owner claim: %v", err)
	}
	if item.ClaimedByUserID == nil || *item.ClaimedByUserID != f.ownerID {
		t.Fatal("registry owner claim not recorded")
	}
}

func TestClaimDeletedItemIsStateConflict(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.repo.item.DeletedAt = &now

	_, err := f.svc.Claim(context.Background(), f.memberA, f.repo.item.ID)
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestReleaseByClaimant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Claim(ctx, f.memberA, f.repo.item.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	item, err := f.svc.Release(ctx, f.memberA, f.repo.item.ID)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if item.Status != enums.ClaimStatusUnclaimed {
		t.Fatalf("expected unclaimed, got %s", item.Status)
	}
	if item.ClaimedByUserID != nil || item.ClaimedAt != nil || item.BoughtAt != nil {
		t.Fatal("release must clear all claim fields")
	}
}

func TestReleaseByNonClaimantForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Claim(ctx, f.memberA, f.repo.item.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	_, err := f.svc.Release(ctx, f.memberB, f.repo.item.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestReleaseUnclaimedIsNoOp(t *testing.T) {
	f := newFixture(t)

	item, err := f.svc.Release(context.Background(), f.memberA, f.repo.item.ID)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if item.Status != enums.ClaimStatusUnclaimed {
		t.Fatalf("expected unclaimed, got %s", item.Status)
	}
	if f.repo.saves != 0 {
		t.Fatal("no-op release must not write")
	}
}

func TestReleaseOnDeletedItemStillWorks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Claim(ctx, f.memberA, f.repo.item.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	now := time.Now()
	f.repo.item.DeletedAt = &now

	item, err := f.svc.Release(ctx, f.memberA, f.repo.item.ID)
	if err != nil {
		t.Fatalf("release deleted item: %v", err)
	}
	if item.Status != enums.ClaimStatusUnclaimed {
		t.Fatalf("expected unclaimed, got %s", item.Status)
	}
}

func TestMarkBoughtOnDeletedItemStillWorks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Claim(ctx, f.memberA, f.repo.item.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	now := time.Now()
	f.repo.item.DeletedAt = &now

	item, err := f.svc.MarkBought(ctx, f.memberA, f.repo.item.ID)
	if err != nil {
		t.Fatalf("mark bought deleted item: %v", err)
	}
	if item.Status != enums.ClaimStatusBought {
		t.Fatalf("expected bought, got %s", item.Status)
	}
}

func TestMarkBoughtLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Unclaimed first: buying before claiming is a state error.
	_, err := f.svc.MarkBought(ctx, f.memberA, f.repo.item.ID)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	if _, err := f.svc.Claim(ctx, f.memberA, f.repo.item.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	item, err := f.svc.MarkBought(ctx, f.memberA, f.repo.item.ID)
	if err != nil {
		t.Fatalf("mark bought: %v", err)
	}
	if item.Status != enums.ClaimStatusBought {
		t.Fatalf("expected bought, got %s", item.Status)
	}
	if item.BoughtAt == nil {
		t.Fatal("bought_at not set")
	}

	// Idempotent for the buyer: same outcome, bought_at untouched.
	firstBoughtAt := *item.BoughtAt
	item, err = f.svc.MarkBought(ctx, f.memberA, f.repo.item.ID)
	if err != nil {
		t.Fatalf("repeat mark bought: %v", err)
	}
	if item.BoughtAt == nil || !item.BoughtAt.Equal(firstBoughtAt) {
		t.Fatalf("repeat mark bought must not move bought_at: %v vs %v", item.BoughtAt, firstBoughtAt)
	}

	// Non-buyers cannot touch a bought item.
	_, err = f.svc.Release(ctx, f.memberB, f.repo.item.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
	_, err = f.svc.MarkBought(ctx, f.memberB, f.repo.item.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)

	// The buyer can back out, which resets the item entirely.
	item, err = f.svc.Release(ctx, f.memberA, f.repo.item.ID)
	if err != nil {
		t.Fatalf("release bought item: %v", err)
	}
	if item.Status != enums.ClaimStatusUnclaimed || item.ClaimedByUserID != nil || item.BoughtAt != nil {
		t.Fatalf("expected a full reset, got %+v", item)
	}
}

func TestMarkBoughtByNonClaimantForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Claim(ctx, f.memberA, f.repo.item.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	_, err := f.svc.MarkBought(ctx, f.memberB, f.repo.item.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestClaimAfterReleaseByDifferentMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Claim(ctx, f.memberA, f.repo.item.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := f.svc.Release(ctx, f.memberA, f.repo.item.ID); err != nil {
		t.Fatalf("release: %v", err)
	}

	item, err := f.svc.Claim(ctx, f.memberB, f.repo.item.ID)
	if err != nil {
		t.Fatalf("claim after release: %v", err)
	}
	if item.ClaimedByUserID == nil || *item.ClaimedByUserID != f.memberB {
		t.Fatal("second claimant not recorded")
	}
}
