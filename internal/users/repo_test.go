package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  display_name TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	t.Cleanup(func() {
		db.Exec("DELETE FROM users")
	})
	return db
}

func TestEnsureUserCreatesAndNormalizes(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user, err := repo.EnsureUser(ctx, "  Ann@Example.COM ", "Ann")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, user.ID)
	require.Equal(t, "ann@example.com", user.Email)
	require.Equal(t, "Ann", user.DisplayName)
}

func TestEnsureUserIsIdempotentOnEmail(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first, err := repo.EnsureUser(ctx, "ann@example.com", "Ann")
	require.NoError(t, err)

	second, err := repo.EnsureUser(ctx, "ANN@example.com", "Annabel")
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Annabel", second.DisplayName)
}

func TestEnsureUserRejectsBlankEmail(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.EnsureUser(context.Background(), "   ", "Ann")
	require.Error(t, err)
}

func TestPublicProfile(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user, err := repo.EnsureUser(ctx, "ben@example.com", "Ben")
	require.NoError(t, err)

	profile, err := repo.PublicProfile(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, profile.ID)
	require.Equal(t, "Ben", profile.Name)
	require.Equal(t, "ben@example.com", profile.Email)
}

func TestSyncUpsertsByTokenSubject(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	id := uuid.New()
	require.NoError(t, repo.Sync(ctx, id, "Carol@Example.com", "Carol"))

	profile, err := repo.PublicProfile(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "carol@example.com", profile.Email)
	require.Equal(t, "Carol", profile.Name)

	// Same subject, fresh claims: the row follows the token.
	require.NoError(t, repo.Sync(ctx, id, "carol@example.com", "Caroline"))

	profile, err = repo.PublicProfile(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Caroline", profile.Name)
}

func TestSyncRejectsMissingIdentity(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.Error(t, repo.Sync(ctx, uuid.Nil, "ann@example.com", "Ann"))
	require.Error(t, repo.Sync(ctx, uuid.New(), "  ", "Ann"))
}

func TestFindByEmailMissing(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByEmail(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
