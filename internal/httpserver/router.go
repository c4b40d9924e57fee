package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopcore/internal/audit"
	"shopcore/internal/auth"
	"shopcore/internal/httpserver/handlers"
	"shopcore/internal/rbac"
	"shopcore/internal/session"
	"shopcore/internal/users"
)

// Deps bundles the wired services the router composes into routes.
type Deps struct {
	DB       *gorm.DB
	Lg       *zap.SugaredLogger
	Sessions *session.Manager
	Users    *users.Store
	Authz    *rbac.Service
	Gate     *auth.Gate
	Audit    *audit.Recorder
	Hasher   auth.Hasher
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)

	r.Post("/v1/auth/register", handlers.Register(d.Users, d.Authz, d.Hasher, d.Lg))
	r.Post("/v1/auth/login", handlers.Login(d.Sessions, d.Lg))

	r.Group(func(protected chi.Router) {
		protected.Use(d.Gate.SessionAuth)

		protected.Post("/v1/auth/logout", handlers.Logout(d.Sessions, d.Gate, d.Lg))
		protected.Post("/v1/auth/logout_all", handlers.LogoutAll(d.Sessions, d.Gate, d.Lg))
		protected.Post("/v1/auth/password", handlers.ChangePassword(d.Sessions, d.Users, d.Hasher, d.Gate, d.Lg))
		protected.Get("/v1/me", handlers.Me(d.Lg))
		protected.Patch("/v1/me", handlers.UpdateMe(d.Users, d.Lg))

		protected.With(d.Gate.RequirePermission("products.view")).
			Get("/v1/products", handlers.ListProducts(d.DB, d.Lg))
		protected.With(d.Gate.RequirePermission("products.view")).
			Get("/v1/products/{id}", handlers.GetProduct(d.DB, d.Lg))
		protected.With(d.Gate.RequirePermission("products.create")).
			Post("/v1/products", handlers.CreateProduct(d.DB, d.Lg))
		protected.With(d.Gate.RequirePermission("products.edit")).
			Patch("/v1/products/{id}", handlers.UpdateProduct(d.DB, d.Lg))
		protected.With(d.Gate.RequirePermission("products.delete")).
			Delete("/v1/products/{id}", handlers.DeleteProduct(d.DB, d.Lg))

		protected.Route("/v1/admin", func(admin chi.Router) {
			admin.With(d.Gate.RequirePermission("users.view")).
				Get("/users", handlers.ListUsers(d.Users, d.Lg))
			admin.With(d.Gate.RequirePermission("users.create")).
				Post("/users", handlers.CreateUser(d.Users, d.Authz, d.Hasher, d.Lg))
			admin.With(d.Gate.RequirePermission("users.edit")).
				Patch("/users/{id}", handlers.UpdateUser(d.Users, d.Authz, d.Sessions, d.Hasher, d.Lg))
			admin.With(d.Gate.RequirePermission("users.delete")).
				Delete("/users/{id}", handlers.DeleteUser(d.Users, d.Sessions, d.Lg))

			admin.With(d.Gate.RequirePermission("roles.view")).
				Get("/roles", handlers.ListRoles(d.Authz, d.Lg))
			admin.With(d.Gate.RequirePermission("roles.view")).
				Get("/roles/{id}", handlers.GetRole(d.Authz, d.Lg))
			admin.With(d.Gate.RequirePermission("roles.create")).
				Post("/roles", handlers.CreateRole(d.Authz, d.Lg))
			admin.With(d.Gate.RequirePermission("roles.edit")).
				Patch("/roles/{id}", handlers.UpdateRole(d.Authz, d.Lg))
			admin.With(d.Gate.RequirePermission("roles.delete")).
				Delete("/roles/{id}", handlers.DeleteRole(d.Authz, d.Users, d.Lg))
			admin.With(d.Gate.RequirePermission("roles.edit")).
				Put("/roles/{id}/permissions", handlers.ReplaceRolePermissions(d.Authz, d.Lg))

			admin.With(d.Gate.RequirePermission("roles.view")).
				Get("/permissions", handlers.ListPermissions(d.Authz, d.Lg))
			admin.With(d.Gate.RequirePermission("roles.edit")).
				Post("/permissions", handlers.CreatePermission(d.Authz, d.Lg))

			admin.With(d.Gate.RequireAnyPermission("reports.view", "reports.export")).
				Get("/audit", handlers.AuditLogs(d.Audit, d.Lg))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}
