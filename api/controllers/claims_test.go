package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/giftloop/giftloop-backend/api/middleware"
	"github.com/giftloop/giftloop-backend/pkg/db/models"
	"github.com/giftloop/giftloop-backend/pkg/enums"
	pkgerrors "github.com/giftloop/giftloop-backend/pkg/errors"
	"github.com/giftloop/giftloop-backend/pkg/types"
	"github.com/giftloop/giftloop-backend/pkg/visibility"
)

type stubClaims struct {
	item *models.Item
	err  error
}

func (s *stubClaims) Claim(_ context.Context, _, _ uuid.UUID) (*models.Item, error) {
	return s.item, s.err
}

func (s *stubClaims) Release(_ context.Context, _, _ uuid.UUID) (*models.Item, error) {
	return s.item, s.err
}

func (s *stubClaims) MarkBought(_ context.Context, _, _ uuid.UUID) (*models.Item, error) {
	return s.item, s.err
}

type stubProfiles struct{}

func (stubProfiles) PublicProfile(_ context.Context, id uuid.UUID) (visibility.PublicProfile, error) {
	return visibility.PublicProfile{ID: id, Name: "Carol", Email: "carol@example.com"}, nil
}

func doClaim(t *testing.T, svc *stubClaims) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	r.Post("/api/v1/items/{itemId}/claim", ItemClaim(svc, stubProfiles{}, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/"+uuid.NewString()+"/claim", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), uuid.NewString(), "ben@example.com", "Ben"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestItemClaimRespondsWithProjection(t *testing.T) {
	now := time.Now()
	claimant := uuid.New()
	svc := &stubClaims{item: &models.Item{
		ID: uuid.New(), SubListID: uuid.New(), Label: "kettle",
		CreatedByUserID: uuid.New(), Status: enums.ClaimStatusClaimed,
		ClaimedByUserID: &claimant, ClaimedAt: &now,
	}}

	w := doClaim(t, svc)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data := body.Data.(map[string]any)
	if data["status"] != string(enums.ClaimStatusClaimed) {
		t.Fatalf("expected claimed status, got %v", data["status"])
	}
	claimedBy := data["claimed_by"].(map[string]any)
	if claimedBy["name"] != "Carol" {
		t.Fatalf("expected expanded claimant, got %v", claimedBy)
	}
}

func TestItemClaimSurfacesConflict(t *testing.T) {
	svc := &stubClaims{err: pkgerrors.New(pkgerrors.CodeConflict, "item already claimed").
		WithDetails(map[string]any{"claimed_by": "Carol"})}

	w := doClaim(t, svc)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeConflict) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Details == nil {
		t.Fatalf("conflict must carry the winner")
	}
}

func TestItemClaimRequiresIdentity(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/items/{itemId}/claim", ItemClaim(&stubClaims{}, stubProfiles{}, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/"+uuid.NewString()+"/claim", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
