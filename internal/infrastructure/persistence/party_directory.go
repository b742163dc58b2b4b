package persistence

import (
	"context"
	"errors"

	"github.com/garage/backoffice/internal/domain/invoicing"
	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/garage/backoffice/internal/infrastructure/persistence/models"
	"github.com/garage/backoffice/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPartyDirectory reads clients and vehicles from the directory tables.
// Lookup failures other than a missing row are returned unchanged for the
// caller to report as Unavailable.
type GormPartyDirectory struct {
	db *gorm.DB
}

// NewGormPartyDirectory creates a new GormPartyDirectory
func NewGormPartyDirectory(db *gorm.DB) *GormPartyDirectory {
	return &GormPartyDirectory{db: db}
}

// GetClient looks up a client of the tenant
func (d *GormPartyDirectory) GetClient(ctx context.Context, tenantID, clientID uuid.UUID) (*invoicing.Client, error) {
	var model models.ClientModel
	if err := d.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("id = ?", clientID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Client")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// GetVehicle looks up a vehicle of the tenant
func (d *GormPartyDirectory) GetVehicle(ctx context.Context, tenantID, vehicleID uuid.UUID) (*invoicing.Vehicle, error) {
	var model models.VehicleModel
	if err := d.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("id = ?", vehicleID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Vehicle")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

var (
	_ invoicing.ClientDirectory  = (*GormPartyDirectory)(nil)
	_ invoicing.VehicleDirectory = (*GormPartyDirectory)(nil)
)
