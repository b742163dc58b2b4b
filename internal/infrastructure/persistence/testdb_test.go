package persistence

import (
	"context"
	"testing"

	"github.com/garage/backoffice/internal/domain/invoicing"
	"github.com/garage/backoffice/internal/infrastructure/config"
	"github.com/garage/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newSQLiteDB opens a migrated in-memory database private to the test
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := NewDatabase(&config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   ":memory:",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate())
	t.Cleanup(func() {
		_ = database.Close()
	})
	return database.DB
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// testQuoteContent prices to 270: (2 x 100 + 50) + 20% tax - 10% discount
func testQuoteContent(clientID uuid.UUID) invoicing.QuoteContent {
	return invoicing.QuoteContent{
		ClientID:           clientID,
		VehicleDescription: "Peugeot 208 (AB-123-CD)",
		Pricing: invoicing.Pricing{
			LineItems: []invoicing.LineItem{
				{Description: "Brake pads", Quantity: dec("2"), UnitPrice: dec("100")},
			},
			LaborCost:    dec("50"),
			TaxRate:      dec("20"),
			DiscountRate: dec("10"),
		},
	}
}

// seedClient inserts a directory client and returns its ID
func seedClient(t *testing.T, db *gorm.DB, tenantID uuid.UUID, name string) uuid.UUID {
	t.Helper()
	client := &models.ClientModel{
		TenantID: tenantID,
		Name:     name,
		Email:    "contact@example.com",
		Phone:    "+33 1 23 45 67 89",
		Address:  "1 rue de la Gare, Lyon",
	}
	client.ID = uuid.New()
	require.NoError(t, db.Create(client).Error)
	return client.ID
}

// seedVehicle inserts a directory vehicle and returns its ID
func seedVehicle(t *testing.T, db *gorm.DB, tenantID, clientID uuid.UUID) uuid.UUID {
	t.Helper()
	vehicle := &models.VehicleModel{
		TenantID:    tenantID,
		ClientID:    clientID,
		Make:        "Renault",
		Model:       "Clio",
		PlateNumber: "AB-123-CD",
		VIN:         "VF1RJA00000000001",
	}
	vehicle.ID = uuid.New()
	require.NoError(t, db.Create(vehicle).Error)
	return vehicle.ID
}

// seedAcceptedQuote stores a quote that has been sent and accepted
func seedAcceptedQuote(t *testing.T, db *gorm.DB, tenantID, clientID uuid.UUID, number string) *invoicing.Quote {
	t.Helper()
	quote, err := invoicing.NewQuote(tenantID, number, testQuoteContent(clientID), nil)
	require.NoError(t, err)
	require.NoError(t, quote.ChangeStatus(invoicing.QuoteStatusSent))
	require.NoError(t, quote.ChangeStatus(invoicing.QuoteStatusAccepted))
	require.NoError(t, NewGormQuoteRepository(db).Create(context.Background(), quote))
	return quote
}
