package persistence

import (
	"errors"

	"github.com/garage/backoffice/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps storage errors onto domain errors.
// resource names the entity in NotFound messages.
func translateError(err error, resource string) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.NewNotFoundError(resource)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.NewConflictError(resource + " already exists")
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return shared.NewValidationError(resource + " violates a data constraint")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return shared.NewValidationError(resource + " references a record that does not exist")
	default:
		return shared.NewUnavailableError("Storage operation failed", err)
	}
}

// optimisticLockError reports a save that lost against a concurrent writer
func optimisticLockError(resource string) error {
	return shared.NewConflictError(resource + " has been modified by another transaction")
}
