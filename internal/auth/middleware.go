package auth

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"shopcore/internal/models"
)

// SessionResolver is the single choke point every protected request passes
// through. Implemented by session.Manager.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, *models.Session, error)
}

// PermissionChecker answers "does role R hold permission P". Implemented by
// rbac.Service.
type PermissionChecker interface {
	HasPermission(ctx context.Context, roleID, permission string) (bool, error)
}

// Auditor records security-relevant events. Implemented by audit.Recorder.
type Auditor interface {
	Record(ctx context.Context, userID *string, action string, meta map[string]any)
}

type cachedIdentity struct {
	userID    string
	roleName  string
	admin     bool
	expiresAt time.Time
}

// Gate resolves bearer tokens into identities and enforces permissions in
// front of every protected operation.
type Gate struct {
	sessions SessionResolver
	authz    PermissionChecker
	lg       *zap.SugaredLogger
	audit    Auditor

	mu    sync.Mutex
	cache map[string]cachedIdentity
}

func NewGate(sessions SessionResolver, authz PermissionChecker, lg *zap.SugaredLogger, audit Auditor) *Gate {
	return &Gate{
		sessions: sessions,
		authz:    authz,
		lg:       lg,
		audit:    audit,
		cache:    make(map[string]cachedIdentity),
	}
}

// SessionAuth authenticates the request's bearer token and attaches the
// resolved identity to the context. Expired and unknown tokens both read as
// "please log in"; only store outages surface differently.
func (g *Gate) SessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		raw := strings.TrimPrefix(h, "Bearer ")
		user, sess, err := g.sessions.Resolve(r.Context(), raw)
		if err != nil {
			if IsUnauthenticated(err) {
				http.Error(w, "invalid or expired session", http.StatusUnauthorized)
				return
			}
			g.lg.Errorw("session resolve failed", "error", err)
			http.Error(w, "temporarily unavailable, please retry", http.StatusServiceUnavailable)
			return
		}
		id := Identity{User: user, Session: sess, Token: raw}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequirePermission gates a route on a single permission name.
func (g *Gate) RequirePermission(permission string) func(http.Handler) http.Handler {
	return g.require(requireAll, permission)
}

// RequireAnyPermission allows the request if the caller's role holds at
// least one of the named permissions.
func (g *Gate) RequireAnyPermission(permissions ...string) func(http.Handler) http.Handler {
	return g.require(requireAny, permissions...)
}

// RequireAllPermissions allows the request only if the caller's role holds
// every named permission.
func (g *Gate) RequireAllPermissions(permissions ...string) func(http.Handler) http.Handler {
	return g.require(requireAll, permissions...)
}

type requireMode int

const (
	requireAll requireMode = iota
	requireAny
)

func (g *Gate) require(mode requireMode, permissions ...string) func(http.Handler) http.Handler {
	// A gate with nothing to check would allow everything in requireAll
	// mode. That is always a route-wiring mistake, so fail at startup.
	if len(permissions) == 0 {
		panic("auth: permission gate built with no permissions")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok || id.User == nil {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			roleID := id.RoleID()
			if roleID == "" {
				// Role-less users hold no permissions at all.
				http.Error(w, "you don't have permission for this action", http.StatusForbidden)
				return
			}

			allowed, err := g.check(r.Context(), roleID, mode, permissions)
			if err != nil {
				if !g.fallbackAllows(r.Context(), id, permissions, err) {
					http.Error(w, "temporarily unavailable, please retry", http.StatusServiceUnavailable)
					return
				}
			} else if !allowed {
				http.Error(w, "you don't have permission for this action", http.StatusForbidden)
				return
			} else {
				g.remember(id)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Gate) check(ctx context.Context, roleID string, mode requireMode, permissions []string) (bool, error) {
	for _, p := range permissions {
		ok, err := g.authz.HasPermission(ctx, roleID, p)
		if err != nil {
			return false, err
		}
		if mode == requireAny && ok {
			return true, nil
		}
		if mode == requireAll && !ok {
			return false, nil
		}
	}
	return mode == requireAll, nil
}

// remember caches the identity of a caller whose permission check fully
// succeeded, bounded by the session's own expiry. Entries for sessions that
// expired without an explicit logout are pruned here, so the cache tracks
// the live session population instead of growing with login history.
func (g *Gate) remember(id Identity) {
	if id.User == nil || id.Session == nil || id.User.Role == nil {
		return
	}
	role := id.User.Role
	now := time.Now()
	g.mu.Lock()
	for tok, c := range g.cache {
		if now.After(c.expiresAt) {
			delete(g.cache, tok)
		}
	}
	g.cache[id.Token] = cachedIdentity{
		userID:    id.User.ID,
		roleName:  role.Name,
		admin:     role.IsDefault && role.Name == models.RoleAdministrator,
		expiresAt: id.Session.ExpiresAt,
	}
	g.mu.Unlock()
}

// fallbackAllows is the one and only administrator bypass in the codebase.
// It applies only when the permission lookup itself failed technically (a
// denial never reaches here), only for an identity previously cached from a
// successful check, and only when that identity held the built-in
// administrator role. Every use is logged and audited.
func (g *Gate) fallbackAllows(ctx context.Context, id Identity, permissions []string, cause error) bool {
	g.mu.Lock()
	cached, ok := g.cache[id.Token]
	g.mu.Unlock()
	if !ok || !cached.admin || cached.userID != id.User.ID || time.Now().After(cached.expiresAt) {
		return false
	}
	g.lg.Warnw("permission lookup failed; honoring cached administrator identity",
		"user_id", cached.userID,
		"permissions", permissions,
		"error", cause,
	)
	if g.audit != nil {
		uid := cached.userID
		g.audit.Record(ctx, &uid, "authz.fallback", map[string]any{
			"permissions": permissions,
			"cause":       cause.Error(),
		})
	}
	return true
}

// Forget drops any cached identity for a token. Called on logout so a
// revoked session can never ride the fallback path.
func (g *Gate) Forget(token string) {
	g.mu.Lock()
	delete(g.cache, token)
	g.mu.Unlock()
}
