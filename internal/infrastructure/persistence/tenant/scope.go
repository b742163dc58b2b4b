// Package tenant provides multi-tenant database scoping for GORM.
//
// Every invoicing query is restricted to one garage (tenant). Repositories
// apply the scope explicitly:
//
//	db.WithContext(ctx).Scopes(tenant.TenantScope(tenantID)).Find(&quotes)
package tenant

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when a tenant-scoped query has no tenant
var ErrTenantIDRequired = errors.New("tenant_id is required")

// TenantScope applies tenant filtering to GORM queries.
// A nil tenant ID fails the query instead of reading across tenants.
func TenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		return db.Where("tenant_id = ?", tenantID)
	}
}
