package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/giftloop/giftloop-backend/pkg/config"
	"github.com/giftloop/giftloop-backend/pkg/types"
)

func testDeps() Deps {
	return Deps{
		Config: &config.Config{
			App: config.AppConfig{Env: "dev", Port: "8080"},
			JWT: config.JWTConfig{Secret: "test-secret", Issuer: "giftloop-test", ExpirationMinutes: 5},
		},
	}
}

func TestHealthLive(t *testing.T) {
	router := NewRouter(testDeps())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-GiftLoop-Env") != "dev" {
		t.Fatalf("expected env header, got %q", w.Header().Get("X-GiftLoop-Env"))
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	router := NewRouter(testDeps())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestDevTokenRoundTrip(t *testing.T) {
	router := NewRouter(testDeps())

	body, _ := json.Marshal(map[string]string{
		"email":        "ann@example.com",
		"display_name": "Ann",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 minting a dev token, got %d: %s", w.Code, w.Body.String())
	}

	var minted types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&minted); err != nil {
		t.Fatalf("decode mint response: %v", err)
	}
	token := minted.Data.(map[string]any)["token"].(string)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with a fresh token, got %d: %s", w.Code, w.Body.String())
	}

	var me types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&me); err != nil {
		t.Fatalf("decode me response: %v", err)
	}
	if me.Data.(map[string]any)["email"] != "ann@example.com" {
		t.Fatalf("unexpected identity payload: %v", me.Data)
	}
}

func TestDevTokenRouteAbsentInProd(t *testing.T) {
	deps := testDeps()
	deps.Config.App.Env = "prod"
	router := NewRouter(deps)

	body, _ := json.Marshal(map[string]string{
		"email":        "ann@example.com",
		"display_name": "Ann",
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", bytes.NewReader(body)))

	if w.Code == http.StatusOK {
		t.Fatal("dev token route must not exist in prod")
	}
}
