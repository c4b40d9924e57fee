package rbac

import (
	"context"

	"gorm.io/gorm"

	"shopcore/internal/models"
)

// The seeded permission catalog. Administrators may add custom entries at
// runtime; these are the ones the built-in routes gate on.
var seedPermissions = []models.Permission{
	{Name: "users.view", Description: "List and inspect user accounts", Category: "users"},
	{Name: "users.create", Description: "Create user accounts", Category: "users"},
	{Name: "users.edit", Description: "Edit user accounts, roles and statuses", Category: "users"},
	{Name: "users.delete", Description: "Delete user accounts", Category: "users"},
	{Name: "roles.view", Description: "List roles and their permissions", Category: "roles"},
	{Name: "roles.create", Description: "Create roles", Category: "roles"},
	{Name: "roles.edit", Description: "Edit roles and permission sets", Category: "roles"},
	{Name: "roles.delete", Description: "Delete roles", Category: "roles"},
	{Name: "products.view", Description: "Browse the product catalog", Category: "products"},
	{Name: "products.create", Description: "Add catalog products", Category: "products"},
	{Name: "products.edit", Description: "Edit catalog products", Category: "products"},
	{Name: "products.delete", Description: "Remove catalog products", Category: "products"},
	{Name: "reports.view", Description: "View audit and activity reports", Category: "reports"},
	{Name: "reports.export", Description: "Export financial reports", Category: "reports"},
}

// Customer-facing storefront permissions granted to the default Customer
// role.
var customerPermissions = []string{"products.view"}

// Seed creates the built-in roles and permission catalog, then grants every
// permission to the administrator role. The grant is data: no code path
// consults the role name to decide access. Idempotent; safe on every boot.
func Seed(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		admin := models.Role{Name: models.RoleAdministrator, Description: "Full administrative access", IsDefault: true}
		if err := tx.Where("name = ?", admin.Name).FirstOrCreate(&admin).Error; err != nil {
			return err
		}
		customer := models.Role{Name: models.RoleCustomer, Description: "Storefront customer", IsDefault: true}
		if err := tx.Where("name = ?", customer.Name).FirstOrCreate(&customer).Error; err != nil {
			return err
		}

		byName := make(map[string]string, len(seedPermissions))
		for _, p := range seedPermissions {
			perm := p
			if err := tx.Where("name = ?", perm.Name).FirstOrCreate(&perm).Error; err != nil {
				return err
			}
			byName[perm.Name] = perm.ID
		}

		for _, pid := range byName {
			link := models.RolePermission{RoleID: admin.ID, PermissionID: pid}
			if err := tx.Where(&link).FirstOrCreate(&link).Error; err != nil {
				return err
			}
		}
		for _, name := range customerPermissions {
			link := models.RolePermission{RoleID: customer.ID, PermissionID: byName[name]}
			if err := tx.Where(&link).FirstOrCreate(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// RoleByName is a seeding/bootstrap helper; runtime checks go by ID.
func RoleByName(ctx context.Context, db *gorm.DB, name string) (*models.Role, error) {
	var role models.Role
	if err := db.WithContext(ctx).First(&role, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &role, nil
}
