package app

import (
	"math"

	"guest_booking/internal/domain"
)

// DefaultTaxPercent applies when the room record carries no tax percentage.
const DefaultTaxPercent = 18.0

// PriceOptions control the variable terms of a quote.
type PriceOptions struct {
	// IncludeCommission adds the commission line into the grand total. The
	// commission amount is computed either way so callers can display it.
	IncludeCommission bool
	// Discount is externally supplied (promotions etc.), whole units.
	Discount int64
	Currency string
}

// Price derives the full breakdown for one room under the given criteria.
// All terms are exact integer products except taxes and commission, which
// are rounded half-up from the subtotal percentages.
func Price(room domain.Room, c domain.SearchCriteria, opt PriceOptions) domain.Quote {
	nights := c.Nights()

	q := domain.Quote{
		Nights:       nights,
		RoomCount:    c.Rooms,
		RoomCharges:  room.PricePerNight * int64(nights) * int64(c.Rooms),
		AdultCharges: int64(c.Adults) * room.PerAdultPrice,
		ChildCharges: int64(c.Children) * room.PerChildPrice,
		Discount:     opt.Discount,
		Currency:     opt.Currency,
	}
	q.GuestCharges = q.AdultCharges + q.ChildCharges
	q.Subtotal = q.RoomCharges + q.GuestCharges

	// a zero percentage on the record means "not set", not a tax-free room
	q.TaxPercent = DefaultTaxPercent
	if room.TaxPercent != nil && *room.TaxPercent != 0 {
		q.TaxPercent = *room.TaxPercent
	}
	q.Taxes = roundPct(q.Subtotal, q.TaxPercent)

	if room.CommissionPercent != nil {
		q.CommissionPercent = *room.CommissionPercent
	}
	q.Commission = roundPct(q.Subtotal, q.CommissionPercent)

	q.GrandTotal = q.Subtotal + q.Taxes - q.Discount
	if opt.IncludeCommission {
		q.GrandTotal += q.Commission
	}
	return q
}

// roundPct rounds half-up, matching Math.round over non-negative amounts.
func roundPct(amount int64, pct float64) int64 {
	return int64(math.Floor(float64(amount)*pct/100 + 0.5))
}
