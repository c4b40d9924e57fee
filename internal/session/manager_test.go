package session

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
	"shopcore/internal/users"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestManager(t *testing.T) (*Manager, *gorm.DB) {
	t.Helper()
	db := testDB(t)
	m := &Manager{
		Sessions: &Store{DB: db},
		Users:    &users.Store{DB: db},
		Hasher:   auth.Hasher{Cost: bcrypt.MinCost},
		Lg:       zap.NewNop().Sugar(),
		Duration: 24 * time.Hour,
	}
	return m, db
}

func createUser(t *testing.T, m *Manager, email, password, status string) *models.User {
	t.Helper()
	hash, err := m.Hasher.Hash(password)
	require.NoError(t, err)
	u := &models.User{Email: email, PasswordHash: hash, DisplayName: "Test User", Status: status}
	require.NoError(t, m.Users.Create(context.Background(), u))
	return u
}

func TestManager_AuthenticateThenResolve(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	ctx := context.Background()
	u := createUser(t, m, "shopper@example.com", "secret", models.StatusActive)

	authed, sess, err := m.Authenticate(ctx, "shopper@example.com", "secret", ClientMeta{IPAddress: "10.0.0.1", UserAgent: "go-test"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, authed.ID)
	assert.Len(t, sess.Token, 64)
	assert.NotNil(t, authed.LastLoginAt)
	require.NotNil(t, sess.IPAddress)
	assert.Equal(t, "10.0.0.1", *sess.IPAddress)

	resolved, rsess, err := m.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, resolved.ID)
	assert.Equal(t, sess.Token, rsess.Token)
}

func TestManager_AuthenticateFailuresIndistinguishable(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	ctx := context.Background()
	createUser(t, m, "shopper@example.com", "secret", models.StatusActive)

	_, _, wrongPass := m.Authenticate(ctx, "shopper@example.com", "nope", ClientMeta{})
	_, _, noUser := m.Authenticate(ctx, "ghost@example.com", "secret", ClientMeta{})

	assert.ErrorIs(t, wrongPass, auth.ErrInvalidCredentials)
	assert.ErrorIs(t, noUser, auth.ErrInvalidCredentials)
	assert.Equal(t, wrongPass.Error(), noUser.Error())
}

func TestManager_AuthenticateRejectsNonActiveAccounts(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	ctx := context.Background()

	for _, status := range []string{models.StatusSuspended, models.StatusInactive, models.StatusPending} {
		createUser(t, m, status+"@example.com", "secret", status)
		_, _, err := m.Authenticate(ctx, status+"@example.com", "secret", ClientMeta{})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials, "status %s", status)
	}
}

func TestManager_EmailCaseInsensitive(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	ctx := context.Background()
	createUser(t, m, "shopper@example.com", "secret", models.StatusActive)

	_, _, err := m.Authenticate(ctx, "Shopper@Example.COM", "secret", ClientMeta{})
	require.NoError(t, err)
}

func TestManager_SingleActiveSessionAfterRelogin(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	ctx := context.Background()
	u := createUser(t, m, "shopper@example.com", "secret", models.StatusActive)

	_, first, err := m.Authenticate(ctx, "shopper@example.com", "secret", ClientMeta{})
	require.NoError(t, err)
	_, second, err := m.Authenticate(ctx, "shopper@example.com", "secret", ClientMeta{})
	require.NoError(t, err)

	n, err := m.Sessions.ActiveCountForUser(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, _, err = m.Resolve(ctx, first.Token)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound, "first token must be dead")
	_, _, err = m.Resolve(ctx, second.Token)
	assert.NoError(t, err)
}

func TestManager_EndSessionIdempotent(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	ctx := context.Background()
	createUser(t, m, "shopper@example.com", "secret", models.StatusActive)

	_, sess, err := m.Authenticate(ctx, "shopper@example.com", "secret", ClientMeta{})
	require.NoError(t, err)

	require.NoError(t, m.EndSession(ctx, sess.Token))
	_, _, err = m.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)

	// Second logout, unknown token, empty token: all silently fine.
	assert.NoError(t, m.EndSession(ctx, sess.Token))
	assert.NoError(t, m.EndSession(ctx, "deadbeef"))
	assert.NoError(t, m.EndSession(ctx, ""))
}

func TestManager_EndAllSessions(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	ctx := context.Background()
	u := createUser(t, m, "shopper@example.com", "secret", models.StatusActive)

	_, sess, err := m.Authenticate(ctx, "shopper@example.com", "secret", ClientMeta{})
	require.NoError(t, err)
	require.NoError(t, m.EndAllSessions(ctx, u.ID))

	_, _, err = m.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)

	fresh, err := m.Users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, fresh.LastLogoutAt)
}

func TestManager_ResolveNoToken(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	_, _, err := m.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, auth.ErrNoToken)
}

func TestManager_ExpiredSessionFailsRegardlessOfActiveFlag(t *testing.T) {
	t.Parallel()

	m, db := newTestManager(t)
	ctx := context.Background()
	createUser(t, m, "shopper@example.com", "secret", models.StatusActive)

	_, sess, err := m.Authenticate(ctx, "shopper@example.com", "secret", ClientMeta{})
	require.NoError(t, err)

	// Force expiry in the past while leaving the row active.
	require.NoError(t, db.Model(&models.Session{}).
		Where("token = ?", sess.Token).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	_, _, err = m.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, auth.ErrSessionExpired)

	// Lazy enforcement deactivated the row; the next attempt reads as gone.
	_, _, err = m.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestManager_ExpiryViaVirtualClock(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	ctx := context.Background()
	createUser(t, m, "shopper@example.com", "secret", models.StatusActive)

	now := time.Now()
	m.Now = func() time.Time { return now }
	_, sess, err := m.Authenticate(ctx, "shopper@example.com", "secret", ClientMeta{})
	require.NoError(t, err)

	now = now.Add(m.Duration + time.Second)
	_, _, err = m.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, auth.ErrSessionExpired)
}

func TestManager_ResolveRefreshesActivity(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	ctx := context.Background()
	createUser(t, m, "shopper@example.com", "secret", models.StatusActive)

	now := time.Now().Truncate(time.Second)
	m.Now = func() time.Time { return now }
	_, sess, err := m.Authenticate(ctx, "shopper@example.com", "secret", ClientMeta{})
	require.NoError(t, err)

	now = now.Add(10 * time.Minute)
	_, rsess, err := m.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.True(t, rsess.LastActivity.After(sess.CreatedAt))

	stored, err := m.Sessions.FindActive(ctx, sess.Token)
	require.NoError(t, err)
	assert.WithinDuration(t, now, stored.LastActivity, time.Second)
}

func TestManager_ResolveRejectsSuspendedOwner(t *testing.T) {
	t.Parallel()

	m, db := newTestManager(t)
	ctx := context.Background()
	u := createUser(t, m, "shopper@example.com", "secret", models.StatusActive)

	_, sess, err := m.Authenticate(ctx, "shopper@example.com", "secret", ClientMeta{})
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.User{}).
		Where("id = ?", u.ID).Update("status", models.StatusSuspended).Error)

	_, _, err = m.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestManager_SweepExpired(t *testing.T) {
	t.Parallel()

	m, db := newTestManager(t)
	ctx := context.Background()
	createUser(t, m, "a@example.com", "secret", models.StatusActive)
	createUser(t, m, "b@example.com", "secret", models.StatusActive)

	_, stale, err := m.Authenticate(ctx, "a@example.com", "secret", ClientMeta{})
	require.NoError(t, err)
	_, live, err := m.Authenticate(ctx, "b@example.com", "secret", ClientMeta{})
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Session{}).
		Where("token = ?", stale.Token).
		Update("expires_at", time.Now().Add(-48*time.Hour)).Error)

	n, err := m.SweepExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// Idempotent at any frequency.
	n, err = m.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, _, err = m.Resolve(ctx, live.Token)
	assert.NoError(t, err)

	// Swept rows survive as audit trail, just inactive.
	var row models.Session
	require.NoError(t, db.First(&row, "token = ?", stale.Token).Error)
	assert.False(t, row.Active)
}
