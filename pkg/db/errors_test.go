package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	err := errors.New(`duplicate key value violates unique constraint "collaborators_registry_email_key"`)

	if !IsUniqueViolation(err, "") {
		t.Fatal("expected generic unique violation match")
	}
	if !IsUniqueViolation(err, "collaborators_registry_email_key") {
		t.Fatal("expected named constraint match")
	}
	if IsUniqueViolation(err, "invite_tokens_token_key") {
		t.Fatal("unexpected match for different constraint")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error must not match")
	}
}

func TestIsLockTimeoutDetectsPgconnCode(t *testing.T) {
	err := fmt.Errorf("claim tx: %w", &pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"})
	if !IsLockTimeout(err) {
		t.Fatal("expected pgconn lock timeout to match")
	}
}

func TestIsLockTimeoutDetectsPqCode(t *testing.T) {
	err := fmt.Errorf("claim tx: %w", &pq.Error{Code: "55P03"})
	if !IsLockTimeout(err) {
		t.Fatal("expected pq lock timeout to match")
	}
}

func TestIsLockTimeoutIgnoresOtherErrors(t *testing.T) {
	if IsLockTimeout(errors.New("connection refused")) {
		t.Fatal("unexpected match")
	}
	if IsLockTimeout(nil) {
		t.Fatal("nil must not match")
	}
}
