package dbtest

import (
	"testing"
	"time"

	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Fixture is a minimal laundry marketplace: one community with a laundry
// vendor, its operator account, a customer and two catalog items.
type Fixture struct {
	Community     models.Community
	VendorAccount models.User
	Customer      models.User
	Vendor        models.Vendor
	Profile       models.LaundryVendor
	Items         []models.LaundryItem
}

// SeedLaundry inserts a Fixture. Item prices are 50.00 and 30.00; surcharges
// are 20.00 pickup and 30.00 delivery with a 100.00 minimum.
func SeedLaundry(t *testing.T, conn *gorm.DB) Fixture {
	t.Helper()

	var f Fixture
	f.Community = models.Community{Name: "Palm Grove", Code: "COM" + uuid.NewString()[:8], Country: "India", IsActive: true}
	mustCreate(t, conn, &f.Community)

	communityID := f.Community.ID
	f.VendorAccount = SeedUser(t, conn, enums.UserRoleVendor, &communityID)
	f.Customer = SeedUser(t, conn, enums.UserRoleUser, &communityID)

	adminID := f.VendorAccount.ID
	f.Vendor = models.Vendor{
		Name:        "Fresh Fold",
		Type:        enums.VendorTypeLaundry,
		CommunityID: f.Community.ID,
		AdminID:     &adminID,
		IsActive:    true,
	}
	mustCreate(t, conn, &f.Vendor)

	f.Profile = models.LaundryVendor{
		VendorID:           f.Vendor.ID,
		BusinessName:       "Fresh Fold Laundry",
		PickupTimeStart:    "08:00",
		PickupTimeEnd:      "18:00",
		DeliveryTimeHours:  24,
		MinimumOrderAmount: decimal.RequireFromString("100.00"),
		PickupCharge:       decimal.RequireFromString("20.00"),
		DeliveryCharge:     decimal.RequireFromString("30.00"),
		IsActive:           true,
	}
	mustCreate(t, conn, &f.Profile)

	for _, row := range []struct{ name, category, price string }{
		{"Shirt", "wash", "50.00"},
		{"Trousers", "iron", "30.00"},
	} {
		item := models.LaundryItem{
			LaundryVendorID:    f.Profile.ID,
			Name:               row.name,
			Category:           row.category,
			PricePerPiece:      decimal.RequireFromString(row.price),
			EstimatedTimeHours: 24,
			IsAvailable:        true,
		}
		mustCreate(t, conn, &item)
		f.Items = append(f.Items, item)
	}
	return f
}

// SeedUser inserts an active user with the given role.
func SeedUser(t *testing.T, conn *gorm.DB, role enums.UserRole, communityID *uuid.UUID) models.User {
	t.Helper()
	user := models.User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		FirstName:    string(role),
		LastName:     "Tester",
		Role:         role,
		CommunityID:  communityID,
		IsActive:     true,
	}
	mustCreate(t, conn, &user)
	return user
}

// SeedOrder inserts a pending order for the fixture customer with a single
// item line. created sets CreatedAt; status and total override the defaults.
func SeedOrder(t *testing.T, conn *gorm.DB, f Fixture, created time.Time, status enums.LaundryOrderStatus, total string) models.LaundryOrder {
	t.Helper()
	amount := decimal.RequireFromString(total)
	order := models.LaundryOrder{
		ID:              uuid.New(),
		UserID:          f.Customer.ID,
		LaundryVendorID: f.Profile.ID,
		OrderNumber:     "LND-" + created.Format("20060102") + "-" + uuid.NewString()[:6],
		PickupAddress:   "Tower B, 1204",
		PickupDate:      created,
		PickupTimeSlot:  "09:00-11:00",
		DeliveryAddress: "Tower B, 1204",
		Status:          status,
		Subtotal:        amount,
		PickupCharge:    decimal.Zero,
		DeliveryCharge:  decimal.Zero,
		TaxAmount:       decimal.Zero,
		TotalAmount:     amount,
		PaymentStatus:   enums.PaymentStatusPending,
		CreatedAt:       created,
		UpdatedAt:       created,
		Items: []models.LaundryOrderItem{{
			LaundryItemID: f.Items[0].ID,
			Quantity:      1,
			UnitPrice:     amount,
			TotalPrice:    amount,
			ItemName:      f.Items[0].Name,
			ItemCategory:  f.Items[0].Category,
		}},
	}
	mustCreate(t, conn, &order)
	return order
}

func mustCreate(t *testing.T, conn *gorm.DB, value any) {
	t.Helper()
	if err := conn.Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}
