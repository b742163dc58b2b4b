package persistence

import (
	"github.com/garage/backoffice/internal/domain/shared"
	"gorm.io/gorm"
)

// applyPaging applies ordering and pagination from a normalized filter.
// Sort fields outside allowed fall back to created_at.
func applyPaging(query *gorm.DB, filter shared.Filter, allowed map[string]bool) *gorm.DB {
	filter = filter.Normalize()
	orderBy := ValidateSortField(filter.OrderBy, allowed, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	if orderBy != "id" {
		query = query.Order("id ASC")
	}
	return query.Offset(filter.Offset()).Limit(filter.PageSize)
}

// supportsRowLocks reports whether the dialect understands SELECT ... FOR UPDATE
func supportsRowLocks(db *gorm.DB) bool {
	return db.Dialector.Name() != "sqlite"
}
