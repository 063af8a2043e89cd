// Package pricing computes laundry order totals from catalog prices and
// vendor surcharges. It performs no I/O.
package pricing

import (
	"fmt"

	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MinorUnitPlaces is the number of decimal places carried by every amount.
const MinorUnitPlaces = 2

// Line is one requested item.
type Line struct {
	ItemID              uuid.UUID
	Quantity            int
	SpecialInstructions *string
}

// CatalogItem is the catalog state the engine prices against.
type CatalogItem struct {
	ID          uuid.UUID
	VendorID    uuid.UUID
	Name        string
	Category    string
	Description *string
	UnitPrice   decimal.Decimal
	Available   bool
}

// Surcharges are the vendor-level fees added on top of the item subtotal.
type Surcharges struct {
	PickupCharge   decimal.Decimal
	DeliveryCharge decimal.Decimal
}

// PricedLine freezes the unit price of a line at quote time.
type PricedLine struct {
	Item                CatalogItem
	Quantity            int
	UnitPrice           decimal.Decimal
	LineTotal           decimal.Decimal
	SpecialInstructions *string
}

// Quote is the full monetary breakdown of an order.
type Quote struct {
	Subtotal       decimal.Decimal
	PickupCharge   decimal.Decimal
	DeliveryCharge decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
	Lines          []PricedLine
}

// Engine prices orders at a fixed tax rate.
type Engine struct {
	taxRate decimal.Decimal
}

// NewEngine validates the rate, which must lie in [0, 1).
func NewEngine(taxRate decimal.Decimal) (*Engine, error) {
	if taxRate.IsNegative() || taxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("tax rate must be within [0, 1), got %s", taxRate)
	}
	return &Engine{taxRate: taxRate}, nil
}

// TaxRate returns the configured rate.
func (e *Engine) TaxRate() decimal.Decimal {
	return e.taxRate
}

// Price builds a quote for lines sold by vendorID. catalog holds the current
// catalog entries keyed by item id; an id missing from it, or owned by
// another vendor, is NOT_FOUND.
func (e *Engine) Price(vendorID uuid.UUID, lines []Line, catalog map[uuid.UUID]CatalogItem, surcharges Surcharges) (*Quote, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	if surcharges.PickupCharge.IsNegative() || surcharges.DeliveryCharge.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "surcharges must not be negative")
	}

	quote := &Quote{
		Subtotal:       decimal.Zero,
		PickupCharge:   surcharges.PickupCharge,
		DeliveryCharge: surcharges.DeliveryCharge,
		Lines:          make([]PricedLine, 0, len(lines)),
	}

	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be a positive integer").
				WithDetails(map[string]any{"index": i, "item_id": line.ItemID.String(), "quantity": line.Quantity})
		}
		item, ok := catalog[line.ItemID]
		if !ok || item.VendorID != vendorID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("item %s not found", line.ItemID))
		}
		if !item.Available {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %s is not available", line.ItemID)).
				WithDetails(map[string]any{"item_id": line.ItemID.String()})
		}
		if item.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %s has an invalid price", line.ItemID))
		}

		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		quote.Subtotal = quote.Subtotal.Add(lineTotal)
		quote.Lines = append(quote.Lines, PricedLine{
			Item:                item,
			Quantity:            line.Quantity,
			UnitPrice:           item.UnitPrice,
			LineTotal:           lineTotal,
			SpecialInstructions: line.SpecialInstructions,
		})
	}

	taxable := quote.Subtotal.Add(quote.PickupCharge).Add(quote.DeliveryCharge)
	quote.TaxAmount = RoundHalfUp(taxable.Mul(e.taxRate))
	quote.TotalAmount = taxable.Add(quote.TaxAmount)
	return quote, nil
}

// RoundHalfUp rounds a non-negative amount to the minor unit, halves going up.
func RoundHalfUp(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MinorUnitPlaces)
}
