package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopcore/internal/auth"
	"shopcore/internal/models"
	"shopcore/internal/users"
)

// tokenRetries bounds regeneration attempts after an insert collision.
const tokenRetries = 3

// ClientMeta is the best-effort request metadata stored on a session.
// Either field may be empty; resolving it never fails a login.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// Manager owns the authenticate → authorize → expire lifecycle. It composes
// the credential store, password hasher, token generator and session store;
// it holds no mutable state of its own, so every method is safe for
// concurrent use.
type Manager struct {
	Sessions *Store
	Users    *users.Store
	Hasher   auth.Hasher
	Lg       *zap.SugaredLogger
	Audit    auth.Auditor

	// Duration is the absolute session lifetime (expires_at = now + Duration).
	Duration time.Duration

	// Now is swappable for tests; zero value means time.Now.
	Now func() time.Time
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Authenticate verifies credentials and opens a new session. Unknown email
// and wrong password are deliberately indistinguishable. On success every
// prior session for the user is deactivated first, so the steady state is a
// single active session per user.
func (m *Manager) Authenticate(ctx context.Context, email, password string, meta ClientMeta) (*models.User, *models.Session, error) {
	u, err := m.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, nil, auth.ErrInvalidCredentials
		}
		return nil, nil, storeErr(err)
	}
	if err := m.Hasher.Check(u.PasswordHash, password); err != nil {
		return nil, nil, auth.ErrInvalidCredentials
	}
	if u.Status != models.StatusActive {
		m.Lg.Infow("login rejected for non-active account", "user_id", u.ID, "status", u.Status)
		return nil, nil, auth.ErrInvalidCredentials
	}

	if _, err := m.Sessions.DeactivateAllForUser(ctx, u.ID); err != nil {
		return nil, nil, storeErr(err)
	}

	now := m.now()
	sess := &models.Session{
		UserID:       u.ID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.Duration),
		LastActivity: now,
		Active:       true,
	}
	if meta.IPAddress != "" {
		sess.IPAddress = &meta.IPAddress
	}
	if meta.UserAgent != "" {
		sess.UserAgent = &meta.UserAgent
	}

	// A token collision is vanishingly rare; the store's uniqueness
	// constraint backstops it and we retry generation rather than fail the
	// login.
	var created bool
	for i := 0; i < tokenRetries && !created; i++ {
		tok, err := auth.NewToken()
		if err != nil {
			return nil, nil, err
		}
		sess.Token = tok
		switch err := m.Sessions.Create(ctx, sess); {
		case err == nil:
			created = true
		case errors.Is(err, auth.ErrConflict):
			m.Lg.Warnw("session token collision, regenerating")
		default:
			return nil, nil, storeErr(err)
		}
	}
	if !created {
		return nil, nil, auth.ErrStoreUnavailable
	}

	if err := m.Users.StampLogin(ctx, u.ID, now); err != nil {
		m.Lg.Warnw("last_login stamp failed", "user_id", u.ID, "error", err)
	}
	u.LastLoginAt = &now

	m.record(ctx, u.ID, "auth.login", map[string]any{"token": auth.RedactToken(sess.Token)})
	return u, sess, nil
}

// EndSession deactivates one session. Idempotent: an unknown or already
// inactive token is "already logged out", not an error, so callers learn
// nothing about whether a token ever existed.
func (m *Manager) EndSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sess, err := m.Sessions.FindActive(ctx, token)
	if errors.Is(err, auth.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return storeErr(err)
	}
	if _, err := m.Sessions.Deactivate(ctx, token); err != nil {
		return storeErr(err)
	}
	now := m.now()
	if err := m.Users.StampLogout(ctx, sess.UserID, now); err != nil {
		m.Lg.Warnw("last_logout stamp failed", "user_id", sess.UserID, "error", err)
	}
	m.record(ctx, sess.UserID, "auth.logout", map[string]any{"token": auth.RedactToken(token)})
	return nil
}

// EndAllSessions invalidates every standing session for a user. Used on
// password change, role change and account suspension.
func (m *Manager) EndAllSessions(ctx context.Context, userID string) error {
	n, err := m.Sessions.DeactivateAllForUser(ctx, userID)
	if err != nil {
		return storeErr(err)
	}
	if n > 0 {
		now := m.now()
		if err := m.Users.StampLogout(ctx, userID, now); err != nil {
			m.Lg.Warnw("last_logout stamp failed", "user_id", userID, "error", err)
		}
	}
	m.record(ctx, userID, "auth.logout_all", map[string]any{"sessions_ended": n})
	return nil
}

// Resolve maps a bearer token to its user and session, enforcing expiry
// lazily and refreshing last_activity. Every protected operation passes
// through here.
func (m *Manager) Resolve(ctx context.Context, token string) (*models.User, *models.Session, error) {
	if token == "" {
		return nil, nil, auth.ErrNoToken
	}
	sess, err := m.Sessions.FindActive(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			return nil, nil, err
		}
		return nil, nil, storeErr(err)
	}

	now := m.now()
	if now.After(sess.ExpiresAt) {
		if _, err := m.Sessions.Deactivate(ctx, token); err != nil {
			m.Lg.Warnw("expired session deactivation failed", "error", err)
		}
		return nil, nil, auth.ErrSessionExpired
	}

	u, err := m.Users.FindByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			// Orphaned session: owner was deleted. Close it out.
			_, _ = m.Sessions.Deactivate(ctx, token)
			return nil, nil, auth.ErrSessionNotFound
		}
		return nil, nil, storeErr(err)
	}
	if u.Status != models.StatusActive {
		_, _ = m.Sessions.Deactivate(ctx, token)
		return nil, nil, auth.ErrSessionNotFound
	}

	if err := m.Sessions.Touch(ctx, token, now); err != nil {
		m.Lg.Warnw("activity refresh failed", "error", err)
	}
	sess.LastActivity = now
	return u, sess, nil
}

// SweepExpired is the maintenance hook behind the periodic cron schedule.
func (m *Manager) SweepExpired(ctx context.Context) (int64, error) {
	n, err := m.Sessions.SweepExpired(ctx, m.now())
	if err != nil {
		return 0, storeErr(err)
	}
	if n > 0 {
		m.Lg.Infow("swept expired sessions", "count", n)
		m.record(ctx, "", "session.sweep", map[string]any{"count": n})
	}
	return n, nil
}

func (m *Manager) record(ctx context.Context, userID, action string, meta map[string]any) {
	if m.Audit == nil {
		return
	}
	var uid *string
	if userID != "" {
		uid = &userID
	}
	m.Audit.Record(ctx, uid, action, meta)
}

// storeErr folds unexpected persistence failures into ErrStoreUnavailable;
// typed auth errors pass through untouched.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, auth.ErrNotFound),
		errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrConflict):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return auth.ErrNotFound
	default:
		return errors.Join(auth.ErrStoreUnavailable, err)
	}
}
