package rbac

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopcore/internal/auth"
	"shopcore/internal/models"
)

// Service is the authorization model: roles, permissions and the links
// between them. The administrator role is all-powerful because it is linked
// to every permission by data, not because any code special-cases its name.
type Service struct {
	DB *gorm.DB
	Lg *zap.SugaredLogger
}

// HasPermission reports whether a RolePermission row links the role to the
// named permission.
func (s *Service) HasPermission(ctx context.Context, roleID, permission string) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.RolePermission{}).
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("role_permissions.role_id = ? AND permissions.name = ?", roleID, permission).
		Count(&n).Error
	if err != nil {
		return false, errors.Join(auth.ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

// PermissionsForRole lists the role's permissions, ordered by name.
func (s *Service) PermissionsForRole(ctx context.Context, roleID string) ([]models.Permission, error) {
	var perms []models.Permission
	err := s.DB.WithContext(ctx).Model(&models.Permission{}).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.name").
		Find(&perms).Error
	if err != nil {
		return nil, errors.Join(auth.ErrStoreUnavailable, err)
	}
	return perms, nil
}

func (s *Service) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := s.DB.WithContext(ctx).Order("name").Find(&roles).Error
	return roles, err
}

func (s *Service) GetRole(ctx context.Context, id string) (*models.Role, error) {
	var role models.Role
	if err := s.DB.WithContext(ctx).First(&role, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (s *Service) CreateRole(ctx context.Context, name, description string) (*models.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Join(auth.ErrConflict, errors.New("role name required"))
	}
	role := models.Role{Name: name, Description: description}
	if err := s.DB.WithContext(ctx).Create(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, auth.ErrConflict
		}
		return nil, err
	}
	return &role, nil
}

func (s *Service) UpdateRole(ctx context.Context, id string, name, description *string) (*models.Role, error) {
	role, err := s.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, errors.Join(auth.ErrConflict, errors.New("role name required"))
		}
		role.Name = trimmed
	}
	if description != nil {
		role.Description = *description
	}
	if err := s.DB.WithContext(ctx).Save(role).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, auth.ErrConflict
		}
		return nil, err
	}
	return role, nil
}

// UserCounter is satisfied by users.Store; it keeps the in-use check with
// the credential store without importing it here.
type UserCounter interface {
	CountWithRole(ctx context.Context, roleID string) (int64, error)
}

// DeleteRole refuses built-in roles and roles still referenced by users.
// The in-use check is advisory (check-then-delete), not a transactional
// guarantee; admin edits are low-contention by assumption.
func (s *Service) DeleteRole(ctx context.Context, id string, uc UserCounter) error {
	role, err := s.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsDefault {
		return errors.Join(auth.ErrConflict, errors.New("built-in role cannot be deleted"))
	}
	n, err := uc.CountWithRole(ctx, id)
	if err != nil {
		return errors.Join(auth.ErrStoreUnavailable, err)
	}
	if n > 0 {
		return errors.Join(auth.ErrConflict, errors.New("role still assigned to users"))
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.RolePermission{}, "role_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Role{}, "id = ?", id).Error
	})
}

// ReplacePermissions swaps a role's permission set wholesale: delete all
// links, insert the selected ones, inside one transaction so concurrent
// readers never observe the empty window. Idempotent by construction.
func (s *Service) ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if len(permissionIDs) > 0 {
			if err := tx.Model(&models.Permission{}).
				Where("id IN ?", permissionIDs).Count(&n).Error; err != nil {
				return err
			}
			if n != int64(len(permissionIDs)) {
				return auth.ErrNotFound
			}
		}
		if err := tx.Delete(&models.RolePermission{}, "role_id = ?", roleID).Error; err != nil {
			return err
		}
		for _, pid := range permissionIDs {
			if err := tx.Create(&models.RolePermission{RoleID: roleID, PermissionID: pid}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission
	err := s.DB.WithContext(ctx).Order("category, name").Find(&perms).Error
	return perms, err
}

// CreatePermission registers a custom permission alongside the seeded
// catalog.
func (s *Service) CreatePermission(ctx context.Context, name, description, category string) (*models.Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" || !strings.Contains(name, ".") {
		return nil, errors.Join(auth.ErrConflict, errors.New("permission name must be category.action"))
	}
	if category == "" {
		category = strings.SplitN(name, ".", 2)[0]
	}
	perm := models.Permission{Name: name, Description: description, Category: category}
	if err := s.DB.WithContext(ctx).Create(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, auth.ErrConflict
		}
		return nil, err
	}
	return &perm, nil
}
