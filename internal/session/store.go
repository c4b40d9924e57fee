package session

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"shopcore/internal/auth"
	"shopcore/internal/models"
)

// Store persists session rows. Rows are only ever soft-deactivated; the
// sweep flips stale active flags but nothing here deletes.
type Store struct {
	DB *gorm.DB
}

func (s *Store) Create(ctx context.Context, sess *models.Session) error {
	err := s.DB.WithContext(ctx).Create(sess).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return auth.ErrConflict
	}
	return err
}

// FindActive returns the active session row for a token, regardless of
// expiry; expiry is the manager's call to make.
func (s *Store) FindActive(ctx context.Context, token string) (*models.Session, error) {
	var sess models.Session
	err := s.DB.WithContext(ctx).
		First(&sess, "token = ? AND active = ?", token, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auth.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Touch refreshes last_activity on every successful authorization check.
func (s *Store) Touch(ctx context.Context, token string, at time.Time) error {
	return s.DB.WithContext(ctx).Model(&models.Session{}).
		Where("token = ?", token).Update("last_activity", at).Error
}

// Deactivate flips one session inactive. Returns how many rows changed so
// the caller can tell "logged out now" from "was already logged out";
// both are success.
func (s *Store) Deactivate(ctx context.Context, token string) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Session{}).
		Where("token = ? AND active = ?", token, true).
		Update("active", false)
	return res.RowsAffected, res.Error
}

// DeactivateAllForUser invalidates every standing session for a user. Run
// before each login and on password change, role change and suspension.
func (s *Store) DeactivateAllForUser(ctx context.Context, userID string) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Session{}).
		Where("user_id = ? AND active = ?", userID, true).
		Update("active", false)
	return res.RowsAffected, res.Error
}

// SweepExpired deactivates active rows whose expiry has passed. Idempotent
// and safe at any frequency.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Session{}).
		Where("active = ? AND expires_at < ?", true, now).
		Update("active", false)
	return res.RowsAffected, res.Error
}

// ActiveCountForUser supports the single-active-session invariant checks.
func (s *Store) ActiveCountForUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Session{}).
		Where("user_id = ? AND active = ?", userID, true).Count(&n).Error
	return n, err
}
