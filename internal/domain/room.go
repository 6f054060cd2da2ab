package domain

import (
	"math"
	"time"
)

// AvailabilityOpen is the backend's marker for a bookable room; any other
// value excludes the room from all tiers.
const AvailabilityOpen = "Available"

type Room struct {
	ID                string
	HotelID           string
	Type              string
	BedType           string
	RoomSize          string
	Image             string
	PricePerNight     int64
	PerAdultPrice     int64
	PerChildPrice     int64
	DiscountAmount    int64
	TaxPercent        *float64 // nil -> default applied by the calculator
	CommissionPercent *float64 // nil -> 0
	MaxGuests         int
	TotalRooms        int
	AvailableCount    int
	Availability      string
	RawJSON           []byte // full backend room payload
}

type HotelProfile struct {
	ID          string
	Name        string
	Stars       int
	Address     *string
	Contact     *string
	Description *string
	RawJSON     []byte
}

// SearchCriteria is the guest's current search input. Zero dates mean "unset".
type SearchCriteria struct {
	CheckIn  time.Time
	CheckOut time.Time
	Rooms    int
	Adults   int
	Children int
}

func (c SearchCriteria) TotalGuests() int { return c.Adults + c.Children }

// Nights returns ceil(|checkOut-checkIn| in days), which is 0 for a same-day
// pair. Only unset dates fall back to 1.
func (c SearchCriteria) Nights() int {
	if c.CheckIn.IsZero() || c.CheckOut.IsZero() {
		return 1
	}
	d := c.CheckOut.Sub(c.CheckIn)
	if d < 0 {
		d = -d
	}
	return int(math.Ceil(d.Hours() / 24))
}

type GuestInfo struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	City      string
	Country   string
}
