package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopcore/internal/auth"
	"shopcore/internal/models"
)

// Store is the credential store: reads and writes of user records by ID or
// email. It never interprets passwords; hashing stays with auth.Hasher.
type Store struct {
	DB *gorm.DB
}

// FindByEmail matches case-insensitively; emails are stored lower-cased.
func (s *Store) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Preload("Role").
		First(&u, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Preload("Role").First(&u, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *Store) List(ctx context.Context) ([]models.User, error) {
	var us []models.User
	err := s.DB.WithContext(ctx).Preload("Role").Order("created_at desc").Find(&us).Error
	return us, err
}

func (s *Store) Create(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := s.DB.WithContext(ctx).Omit(clause.Associations).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return auth.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) Save(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.UpdatedAt = time.Now()
	if err := s.DB.WithContext(ctx).Omit(clause.Associations).Save(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return auth.ErrConflict
		}
		return err
	}
	return nil
}

// Delete is the explicit administrative hard-delete path; session rows are
// left behind, deactivated by the caller, for the audit trail.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error
}

func (s *Store) StampLogin(ctx context.Context, id string, at time.Time) error {
	return s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).Update("last_login_at", at).Error
}

func (s *Store) StampLogout(ctx context.Context, id string, at time.Time) error {
	return s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).Update("last_logout_at", at).Error
}

// CountWithRole reports how many users reference a role; used by the
// advisory role-deletion check.
func (s *Store) CountWithRole(ctx context.Context, roleID string) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("role_id = ?", roleID).Count(&n).Error
	return n, err
}

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return auth.ErrNotFound
	}
	return err
}
