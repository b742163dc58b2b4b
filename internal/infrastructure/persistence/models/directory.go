package models

import (
	"github.com/garage/backoffice/internal/domain/invoicing"
	"github.com/google/uuid"
)

// ClientModel is the read model of the client directory. Rows are owned and
// written by the client management module; invoicing only reads them.
type ClientModel struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name     string    `gorm:"type:varchar(200);not null"`
	Email    string    `gorm:"type:varchar(200)"`
	Phone    string    `gorm:"type:varchar(50)"`
	Address  string    `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a directory Client.
func (m *ClientModel) ToDomain() *invoicing.Client {
	return &invoicing.Client{
		ID:      m.ID,
		Name:    m.Name,
		Email:   m.Email,
		Phone:   m.Phone,
		Address: m.Address,
	}
}

// VehicleModel is the read model of the vehicle directory.
type VehicleModel struct {
	BaseModel
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ClientID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Make        string    `gorm:"type:varchar(100)"`
	Model       string    `gorm:"type:varchar(100)"`
	PlateNumber string    `gorm:"type:varchar(20)"`
	VIN         string    `gorm:"column:vin;type:varchar(17)"`
}

// TableName returns the table name for GORM
func (VehicleModel) TableName() string {
	return "vehicles"
}

// ToDomain converts the persistence model to a directory Vehicle.
func (m *VehicleModel) ToDomain() *invoicing.Vehicle {
	return &invoicing.Vehicle{
		ID:          m.ID,
		ClientID:    m.ClientID,
		Make:        m.Make,
		Model:       m.Model,
		PlateNumber: m.PlateNumber,
		VIN:         m.VIN,
	}
}

// DirectoryModels lists the directory read models.
func DirectoryModels() []any {
	return []any{&ClientModel{}, &VehicleModel{}}
}
