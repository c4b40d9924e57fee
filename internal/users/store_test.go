package users

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"shopcore/internal/auth"
	"shopcore/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return &Store{DB: db}
}

func TestStore_EmailNormalizedOnCreate(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()

	u := &models.User{Email: "  Shopper@Example.COM ", PasswordHash: "x", Status: models.StatusActive}
	require.NoError(t, s.Create(ctx, u))
	assert.Equal(t, "shopper@example.com", u.Email)

	found, err := s.FindByEmail(ctx, "SHOPPER@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
}

func TestStore_EmailNormalizedOnSave(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()

	u := &models.User{Email: "shopper@example.com", PasswordHash: "x", Status: models.StatusActive}
	require.NoError(t, s.Create(ctx, u))

	// An admin edit with a mixed-case email must not strand the account.
	u.Email = "Shopper@NewDomain.COM"
	require.NoError(t, s.Save(ctx, u))
	assert.Equal(t, "shopper@newdomain.com", u.Email)

	found, err := s.FindByEmail(ctx, "shopper@newdomain.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	// And a second account differing only in case stays a duplicate.
	dup := &models.User{Email: "SHOPPER@newdomain.com", PasswordHash: "x", Status: models.StatusActive}
	assert.ErrorIs(t, s.Create(ctx, dup), auth.ErrConflict)
}
