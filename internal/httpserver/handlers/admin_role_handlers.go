package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"shopcore/internal/rbac"
	"shopcore/internal/users"
)

func ListRoles(authz *rbac.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roles, err := authz.ListRoles(r.Context())
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, roles)
	}
}

func GetRole(authz *rbac.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		role, err := authz.GetRole(r.Context(), id)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		perms, err := authz.PermissionsForRole(r.Context(), id)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{"role": role, "permissions": perms})
	}
}

type roleReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func CreateRole(authz *rbac.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roleReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		name, desc := "", ""
		if req.Name != nil {
			name = *req.Name
		}
		if req.Description != nil {
			desc = *req.Description
		}
		role, err := authz.CreateRole(r.Context(), name, desc)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondStatus(w, http.StatusCreated, role)
	}
}

func UpdateRole(authz *rbac.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req roleReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		role, err := authz.UpdateRole(r.Context(), id, req.Name, req.Description)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, role)
	}
}

func DeleteRole(authz *rbac.Service, us *users.Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := authz.DeleteRole(r.Context(), id, us); err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{"deleted": true})
	}
}

type replacePermissionsReq struct {
	PermissionIDs []string `json:"permission_ids"`
}

// ReplaceRolePermissions swaps the role's whole permission set in one shot.
func ReplaceRolePermissions(authz *rbac.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req replacePermissionsReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := authz.ReplacePermissions(r.Context(), id, req.PermissionIDs); err != nil {
			respondError(w, lg, err)
			return
		}
		perms, err := authz.PermissionsForRole(r.Context(), id)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{"permissions": perms})
	}
}

func ListPermissions(authz *rbac.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		perms, err := authz.ListPermissions(r.Context())
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, perms)
	}
}

type permissionReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func CreatePermission(authz *rbac.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req permissionReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		perm, err := authz.CreatePermission(r.Context(), req.Name, req.Description, req.Category)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondStatus(w, http.StatusCreated, perm)
	}
}
