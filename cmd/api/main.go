package main

import (
	"context"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"shopcore/internal/audit"
	"shopcore/internal/auth"
	"shopcore/internal/config"
	"shopcore/internal/httpserver"
	"shopcore/internal/logger"
	"shopcore/internal/models"
	"shopcore/internal/rbac"
	"shopcore/internal/session"
	"shopcore/internal/users"
)

func main() {
	cfg := config.Load()
	lg := logger.New()
	defer lg.Sync()

	if cfg.DatabaseURL == "" {
		lg.Fatalw("DATABASE_URL is empty")
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}

	ctx := context.Background()
	if err := rbac.Seed(ctx, db); err != nil {
		lg.Fatalw("rbac seed failed", "error", err)
	}

	rec := &audit.Recorder{DB: db, Lg: lg}
	hasher := auth.Hasher{Cost: cfg.BcryptCost}
	userStore := &users.Store{DB: db}
	authz := &rbac.Service{DB: db, Lg: lg}
	mgr := &session.Manager{
		Sessions: &session.Store{DB: db},
		Users:    userStore,
		Hasher:   hasher,
		Lg:       lg,
		Audit:    rec,
		Duration: cfg.SessionDuration,
	}
	gate := auth.NewGate(mgr, authz, lg, rec)

	seedBootstrapAdmin(ctx, db, userStore, hasher, cfg, lg)

	c := cron.New()
	if _, err := c.AddFunc("@every "+cfg.SweepInterval.String(), func() {
		if _, err := mgr.SweepExpired(context.Background()); err != nil {
			lg.Warnw("session sweep failed", "error", err)
		}
	}); err != nil {
		lg.Fatalw("sweep schedule failed", "error", err)
	}
	c.Start()
	defer c.Stop()

	router := httpserver.NewRouter(httpserver.Deps{
		DB:       db,
		Lg:       lg,
		Sessions: mgr,
		Users:    userStore,
		Authz:    authz,
		Gate:     gate,
		Audit:    rec,
		Hasher:   hasher,
	})

	lg.Infow("listening", "port", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, router); err != nil {
		lg.Fatalw("server stopped", "error", err)
	}
}

// seedBootstrapAdmin creates the initial administrator account unless one
// already exists. Skipped entirely when ADMIN_PASSWORD is unset.
func seedBootstrapAdmin(ctx context.Context, db *gorm.DB, us *users.Store, hasher auth.Hasher, cfg config.Config, lg *zap.SugaredLogger) {
	if cfg.AdminPassword == "" {
		lg.Infow("ADMIN_PASSWORD unset, skipping bootstrap admin")
		return
	}
	if _, err := us.FindByEmail(ctx, cfg.AdminEmail); err == nil {
		return
	}
	role, err := rbac.RoleByName(ctx, db, models.RoleAdministrator)
	if err != nil {
		lg.Fatalw("administrator role missing", "error", err)
	}
	hash, err := hasher.Hash(cfg.AdminPassword)
	if err != nil {
		lg.Fatalw("bootstrap admin hash failed", "error", err)
	}
	u := models.User{
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		DisplayName:  "Administrator",
		RoleID:       &role.ID,
		Status:       models.StatusActive,
		CreatedAt:    time.Now(),
	}
	if err := us.Create(ctx, &u); err != nil {
		lg.Fatalw("bootstrap admin create failed", "error", err)
	}
	lg.Infow("seeded bootstrap admin", "email", cfg.AdminEmail)
}
