package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"shopcore/internal/auth"
	"shopcore/internal/models"
	"shopcore/internal/rbac"
	"shopcore/internal/session"
	"shopcore/internal/users"
)

func ListUsers(us *users.Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := us.List(r.Context())
		if err != nil {
			respondError(w, lg, err)
			return
		}
		out := make([]map[string]any, 0, len(list))
		for i := range list {
			out = append(out, sanitizeUser(&list[i]))
		}
		respondJSON(w, out)
	}
}

type adminCreateUserReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	RoleID      string `json:"role_id"`
	Status      string `json:"status"`
}

func CreateUser(us *users.Store, authz *rbac.Service, hasher auth.Hasher, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adminCreateUserReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Email == "" || req.Password == "" {
			http.Error(w, "email and password required", http.StatusBadRequest)
			return
		}
		hash, err := hasher.Hash(req.Password)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		status := req.Status
		if status == "" {
			status = models.StatusActive
		}
		u := models.User{Email: req.Email, PasswordHash: hash, DisplayName: req.DisplayName, Status: status}
		if req.RoleID != "" {
			if _, err := authz.GetRole(r.Context(), req.RoleID); err != nil {
				respondError(w, lg, err)
				return
			}
			u.RoleID = &req.RoleID
		}
		if err := us.Create(r.Context(), &u); err != nil {
			respondError(w, lg, err)
			return
		}
		respondStatus(w, http.StatusCreated, map[string]any{"id": u.ID})
	}
}

type adminUpdateUserReq struct {
	Email       *string `json:"email"`
	DisplayName *string `json:"display_name"`
	Phone       *string `json:"phone"`
	RoleID      *string `json:"role_id"`
	Status      *string `json:"status"`
	Password    *string `json:"password"`
}

// UpdateUser edits an account. Role and status changes immediately end the
// target user's sessions: a demoted or suspended account must not keep
// riding tokens minted under its old privileges.
func UpdateUser(us *users.Store, authz *rbac.Service, m *session.Manager, hasher auth.Hasher, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req adminUpdateUserReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		u, err := us.FindByID(r.Context(), id)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		invalidateSessions := false
		if req.Email != nil {
			u.Email = *req.Email
		}
		if req.DisplayName != nil {
			u.DisplayName = *req.DisplayName
		}
		if req.Phone != nil {
			u.Phone = req.Phone
		}
		if req.Password != nil && *req.Password != "" {
			hash, err := hasher.Hash(*req.Password)
			if err != nil {
				respondError(w, lg, err)
				return
			}
			u.PasswordHash = hash
			invalidateSessions = true
		}
		if req.RoleID != nil {
			if *req.RoleID == "" {
				u.RoleID = nil
			} else {
				if _, err := authz.GetRole(r.Context(), *req.RoleID); err != nil {
					respondError(w, lg, err)
					return
				}
				u.RoleID = req.RoleID
			}
			u.Role = nil
			invalidateSessions = true
		}
		if req.Status != nil {
			u.Status = *req.Status
			if *req.Status != models.StatusActive {
				invalidateSessions = true
			}
		}
		if err := us.Save(r.Context(), u); err != nil {
			respondError(w, lg, err)
			return
		}
		if invalidateSessions {
			if err := m.EndAllSessions(r.Context(), u.ID); err != nil {
				respondError(w, lg, err)
				return
			}
		}
		respondJSON(w, map[string]any{"updated": true})
	}
}

// DeleteUser is the explicit administrative hard-delete. Sessions are
// deactivated first so no live token outlives its owner.
func DeleteUser(us *users.Store, m *session.Manager, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := us.FindByID(r.Context(), id); err != nil {
			respondError(w, lg, err)
			return
		}
		if err := m.EndAllSessions(r.Context(), id); err != nil {
			respondError(w, lg, err)
			return
		}
		if err := us.Delete(r.Context(), id); err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{"deleted": true})
	}
}
