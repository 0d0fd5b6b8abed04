package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/giftloop/giftloop-backend/pkg/auth"
	"github.com/giftloop/giftloop-backend/pkg/config"
)

type recordingSyncer struct {
	calls int
	id    uuid.UUID
	email string
}

func (s *recordingSyncer) Sync(_ context.Context, id uuid.UUID, email, _ string) error {
	s.calls++
	s.id = id
	s.email = email
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "giftloop-test", ExpirationMinutes: 5}
}

func TestAuthRejectsMissingCredentials(t *testing.T) {
	handler := Auth(testJWTConfig(), nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthRejectsGarbageToken(t *testing.T) {
	handler := Auth(testJWTConfig(), nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthSeedsContextAndSyncsIdentity(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()
	token, err := pkgauth.MintAccessToken(cfg, time.Now(), pkgauth.AccessTokenPayload{
		UserID:      userID,
		Email:       "Ann@Example.com",
		DisplayName: "Ann",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	syncer := &recordingSyncer{}
	var gotID, gotEmail, gotName string
	handler := Auth(cfg, syncer, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = UserIDFromContext(r.Context())
		gotEmail = UserEmailFromContext(r.Context())
		gotName = UserNameFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotID != userID.String() {
		t.Fatalf("expected user id %s in context, got %q", userID, gotID)
	}
	if gotEmail != "ann@example.com" {
		t.Fatalf("expected lowercased email in context, got %q", gotEmail)
	}
	if gotName != "Ann" {
		t.Fatalf("expected display name in context, got %q", gotName)
	}
	if syncer.calls != 1 || syncer.id != userID {
		t.Fatalf("expected identity sync for %s, got %d calls for %s", userID, syncer.calls, syncer.id)
	}
}
