package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"shopcore/internal/auth"
	"shopcore/internal/models"
	"shopcore/internal/rbac"
	"shopcore/internal/session"
	"shopcore/internal/users"
)

type registerReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
}

// Register is storefront self-signup: new accounts get the Customer role
// and active status.
func Register(us *users.Store, authz *rbac.Service, hasher auth.Hasher, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || req.Password == "" {
			http.Error(w, "email and password required", http.StatusBadRequest)
			return
		}
		hash, err := hasher.Hash(req.Password)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		u := models.User{
			Email:        req.Email,
			PasswordHash: hash,
			DisplayName:  req.DisplayName,
			Status:       models.StatusActive,
		}
		if req.Phone != "" {
			u.Phone = &req.Phone
		}
		if role, err := rbac.RoleByName(r.Context(), authz.DB, models.RoleCustomer); err != nil {
			// The account is still created; it just holds no permissions
			// until an administrator assigns a role.
			lg.Warnw("customer role lookup failed, registering without role",
				"email", req.Email, "error", err)
		} else {
			u.RoleID = &role.ID
		}
		if err := us.Create(r.Context(), &u); err != nil {
			respondError(w, lg, err)
			return
		}
		respondStatus(w, http.StatusCreated, sanitizeUser(&u))
	}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Login(m *session.Manager, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		meta := session.ClientMeta{
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
		}
		u, sess, err := m.Authenticate(r.Context(), req.Email, req.Password, meta)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{
			"token":      sess.Token,
			"expires_at": sess.ExpiresAt,
			"user":       sanitizeUser(u),
		})
	}
}

// Logout ends the presented session. Always succeeds for authenticated
// callers; ending an already-ended session is not an error.
func Logout(m *session.Manager, gate *auth.Gate, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.FromContext(r.Context())
		if err := m.EndSession(r.Context(), id.Token); err != nil {
			respondError(w, lg, err)
			return
		}
		gate.Forget(id.Token)
		respondJSON(w, map[string]any{"logged_out": true})
	}
}

// LogoutAll ends every session the caller holds, on every device.
func LogoutAll(m *session.Manager, gate *auth.Gate, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.FromContext(r.Context())
		if err := m.EndAllSessions(r.Context(), id.User.ID); err != nil {
			respondError(w, lg, err)
			return
		}
		gate.Forget(id.Token)
		respondJSON(w, map[string]any{"logged_out": true})
	}
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword verifies the current password, rehashes, and invalidates
// every standing session so stolen tokens die with the old password.
func ChangePassword(m *session.Manager, us *users.Store, hasher auth.Hasher, gate *auth.Gate, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req changePasswordReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.NewPassword == "" {
			http.Error(w, "new password required", http.StatusBadRequest)
			return
		}
		id, _ := auth.FromContext(r.Context())
		if err := hasher.Check(id.User.PasswordHash, req.CurrentPassword); err != nil {
			http.Error(w, "incorrect email or password", http.StatusUnauthorized)
			return
		}
		hash, err := hasher.Hash(req.NewPassword)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		id.User.PasswordHash = hash
		if err := us.Save(r.Context(), id.User); err != nil {
			respondError(w, lg, err)
			return
		}
		if err := m.EndAllSessions(r.Context(), id.User.ID); err != nil {
			respondError(w, lg, err)
			return
		}
		gate.Forget(id.Token)
		respondJSON(w, map[string]any{"updated": true})
	}
}

// sanitizeUser is the projection handed to clients: never the hash, role
// name derived from the normalized reference at read time.
func sanitizeUser(u *models.User) map[string]any {
	out := map[string]any{
		"id":           u.ID,
		"email":        u.Email,
		"display_name": u.DisplayName,
		"status":       u.Status,
		"created_at":   u.CreatedAt,
	}
	if u.Phone != nil {
		out["phone"] = *u.Phone
	}
	if u.Role != nil {
		out["role"] = u.Role.Name
	}
	if u.LastLoginAt != nil {
		out["last_login_at"] = *u.LastLoginAt
	}
	return out
}

// clientIP degrades to empty on anything odd; session metadata is never
// worth failing a login over.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

type updateMeReq struct {
	DisplayName *string `json:"display_name"`
	Phone       *string `json:"phone"`
}

func Me(lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		out := sanitizeUser(id.User)
		out["session_expires_at"] = id.Session.ExpiresAt
		respondJSON(w, out)
	}
}

func UpdateMe(us *users.Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateMeReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		id, _ := auth.FromContext(r.Context())
		if req.DisplayName != nil {
			id.User.DisplayName = *req.DisplayName
		}
		if req.Phone != nil {
			id.User.Phone = req.Phone
		}
		id.User.UpdatedAt = time.Now()
		if err := us.Save(r.Context(), id.User); err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, sanitizeUser(id.User))
	}
}
