package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	DatabaseURL string
	HTTPPort    string

	BcryptCost int

	// SessionDuration bounds the absolute lifetime of a session row.
	SessionDuration time.Duration
	// InactivityTimeout and WarningLead drive the idle-logout state machine:
	// the warning appears at InactivityTimeout-WarningLead, the forced logout
	// at InactivityTimeout.
	InactivityTimeout time.Duration
	WarningLead       time.Duration

	SweepInterval time.Duration

	AdminEmail    string
	AdminPassword string
}

// Load reads .env (if present) and the process environment, applying the
// reference defaults where a variable is unset or unparsable.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		HTTPPort:          getenv("HTTP_PORT", "8080"),
		BcryptCost:        getint("BCRYPT_COST", bcrypt.DefaultCost),
		SessionDuration:   getdur("SESSION_DURATION", 24*time.Hour),
		InactivityTimeout: getdur("INACTIVITY_TIMEOUT", 15*time.Minute),
		WarningLead:       getdur("WARNING_LEAD", 2*time.Minute),
		SweepInterval:     getdur("SWEEP_INTERVAL", 15*time.Minute),
		AdminEmail:        getenv("ADMIN_EMAIL", "admin@shopcore.local"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
