package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Built-in role names seeded at boot. RoleAdministrator is the
// highest-privilege role; every permission is granted to it by data.
const (
	RoleAdministrator = "Administrator"
	RoleCustomer      = "Customer"
)

// User account statuses.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
	StatusPending   = "pending"
)

type Role struct {
	ID          string `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`
	// IsDefault marks built-in roles that must never be deleted.
	IsDefault bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Permission names are namespaced by category, e.g. "users.edit".
type Permission struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description string    `json:"description"`
	Category    string    `gorm:"index;not null" json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type RolePermission struct {
	RoleID       string `gorm:"type:uuid;primaryKey" json:"role_id"`
	PermissionID string `gorm:"type:uuid;primaryKey" json:"permission_id"`
}

type User struct {
	ID           string  `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string  `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string  `gorm:"not null" json:"-"`
	DisplayName  string  `json:"display_name"`
	Phone        *string `json:"phone,omitempty"`
	// RoleID is the single source of truth for the user's role. The Role
	// association is a read-time projection, never written independently.
	RoleID       *string    `gorm:"type:uuid;index" json:"role_id,omitempty"`
	Role         *Role      `json:"role,omitempty"`
	Status       string     `gorm:"not null;default:active" json:"status"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	LastLogoutAt *time.Time `json:"last_logout_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Session rows are soft-deactivated, never deleted, so the trail of who held
// a session and when survives logout and expiry.
type Session struct {
	Token        string    `gorm:"primaryKey;size:64" json:"-"`
	UserID       string    `gorm:"type:uuid;index;not null" json:"user_id"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
	LastActivity time.Time `gorm:"not null" json:"last_activity"`
	IPAddress    *string   `json:"ip_address,omitempty"`
	UserAgent    *string   `json:"user_agent,omitempty"`
	Active       bool      `gorm:"index;not null;default:true" json:"active"`
}

type AuditLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *string   `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action    string    `gorm:"not null" json:"action"`
	Metadata  JSONB     `gorm:"type:jsonb;default:'{}'" json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// Product is the storefront catalog row. Catalog CRUD carries no invariants
// of its own; it exists here as a consumer of the permission gate.
type Product struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `gorm:"not null" json:"price_cents"`
	Stock       int       `gorm:"not null;default:0" json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// All returns every model registered for migration.
func All() []any {
	return []any{
		&Role{}, &Permission{}, &RolePermission{}, &User{}, &Session{},
		&AuditLog{}, &Product{},
	}
}
