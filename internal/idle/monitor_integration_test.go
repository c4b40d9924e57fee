package idle

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"shopcore/internal/auth"
	"shopcore/internal/models"
	"shopcore/internal/session"
	"shopcore/internal/users"
)

// The monitor's forced logout ends the server-side session: after the idle
// countdown expires, the token the client was holding no longer resolves.
func TestMonitor_ForcedLogoutEndsServerSession(t *testing.T) {
	t.Parallel()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	mgr := &session.Manager{
		Sessions: &session.Store{DB: db},
		Users:    &users.Store{DB: db},
		Hasher:   auth.Hasher{Cost: bcrypt.MinCost},
		Lg:       zap.NewNop().Sugar(),
		Duration: 24 * time.Hour,
	}

	ctx := context.Background()
	hash, err := mgr.Hasher.Hash("secret")
	require.NoError(t, err)
	u := &models.User{Email: "shopper@example.com", PasswordHash: hash, Status: models.StatusActive}
	require.NoError(t, mgr.Users.Create(ctx, u))

	_, sess, err := mgr.Authenticate(ctx, "shopper@example.com", "secret", session.ClientMeta{})
	require.NoError(t, err)

	clock := newFakeClock()
	m := New(clock, testTimeout, testLead, Hooks{
		OnLogout: func() {
			require.NoError(t, mgr.EndSession(ctx, sess.Token))
		},
	})
	m.Start()

	// The token resolves right up until the forced logout fires.
	_, _, err = mgr.Resolve(ctx, sess.Token)
	require.NoError(t, err)

	clock.Advance(testTimeout)
	require.Equal(t, LoggedOut, m.State())

	_, _, err = mgr.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}
