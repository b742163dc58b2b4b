package invoicing

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Client is the read-only view of a client record owned by the client directory
type Client struct {
	ID      uuid.UUID
	Name    string
	Email   string
	Phone   string
	Address string
}

// Vehicle is the read-only view of a vehicle record owned by the vehicle directory
type Vehicle struct {
	ID          uuid.UUID
	ClientID    uuid.UUID
	Make        string
	Model       string
	PlateNumber string
	VIN         string
}

// Description renders the vehicle for documents, e.g. "Renault Clio (AB-123-CD)"
func (v *Vehicle) Description() string {
	desc := strings.TrimSpace(v.Make + " " + v.Model)
	if v.PlateNumber != "" {
		if desc == "" {
			return v.PlateNumber
		}
		desc += " (" + v.PlateNumber + ")"
	}
	return desc
}

// ClientDirectory looks up clients by identifier.
// A missing client is reported with shared.ErrNotFound.
type ClientDirectory interface {
	GetClient(ctx context.Context, tenantID, clientID uuid.UUID) (*Client, error)
}

// VehicleDirectory looks up vehicles by identifier.
// A missing vehicle is reported with shared.ErrNotFound.
type VehicleDirectory interface {
	GetVehicle(ctx context.Context, tenantID, vehicleID uuid.UUID) (*Vehicle, error)
}

// PartySnapshot freezes the client and vehicle data printed on an invoice
type PartySnapshot struct {
	ClientName         string `json:"client_name"`
	ClientEmail        string `json:"client_email,omitempty"`
	ClientPhone        string `json:"client_phone,omitempty"`
	ClientAddress      string `json:"client_address,omitempty"`
	VehicleDescription string `json:"vehicle_description"`
	VehiclePlate       string `json:"vehicle_plate,omitempty"`
	VehicleVIN         string `json:"vehicle_vin,omitempty"`
}

// NewPartySnapshot combines directory records with the quote's own vehicle description.
// vehicle may be nil when the quote does not reference a registered vehicle.
func NewPartySnapshot(q *Quote, client *Client, vehicle *Vehicle) PartySnapshot {
	snap := PartySnapshot{VehicleDescription: q.VehicleDescription}
	if client != nil {
		snap.ClientName = client.Name
		snap.ClientEmail = client.Email
		snap.ClientPhone = client.Phone
		snap.ClientAddress = client.Address
	}
	if vehicle != nil {
		if snap.VehicleDescription == "" {
			snap.VehicleDescription = vehicle.Description()
		}
		snap.VehiclePlate = vehicle.PlateNumber
		snap.VehicleVIN = vehicle.VIN
	}
	return snap
}
