package domain

import "time"

// Quote is a fully derived price breakdown. Amounts are whole currency units
// (INR in the source data); only the tax and commission lines are rounded.
type Quote struct {
	Nights            int
	RoomCount         int
	RoomCharges       int64
	AdultCharges      int64
	ChildCharges      int64
	GuestCharges      int64
	Subtotal          int64
	TaxPercent        float64
	Taxes             int64
	CommissionPercent float64
	Commission        int64
	Discount          int64
	GrandTotal        int64
	Currency          string
}

// ProofFile is the guest-supplied payment evidence attached to a submission.
type ProofFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// BookingPayload mirrors the backend's multipart field set. Each section is
// JSON-encoded into its own form field; Proof travels as the binary part.
type BookingPayload struct {
	Guest    GuestDetails
	Room     RoomDetails
	Booking  BookingDetails
	Amounts  AmountDetails
	Payment  PaymentDetails
	Metadata BookingMetadata
	Proof    ProofFile
}

type GuestDetails struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	City      string `json:"city"`
	Country   string `json:"country"`
}

type RoomDetails struct {
	RoomID        string `json:"roomId"`
	RoomType      string `json:"roomType"`
	PricePerNight int64  `json:"pricePerNight"`
	MaxGuests     int    `json:"maxGuests"`
	BedType       string `json:"bedType"`
	RoomSize      string `json:"roomSize"`
}

type BookingDetails struct {
	CheckIn          string `json:"checkIn"`
	CheckOut         string `json:"checkOut"`
	NumberOfRooms    int    `json:"numberOfRooms"`
	NumberOfAdults   int    `json:"numberOfAdults"`
	NumberOfChildren int    `json:"numberOfChildren"`
	NumberOfNights   int    `json:"numberOfNights"`
	HotelID          string `json:"hotelId"`
}

type AmountDetails struct {
	RoomCharges  int64  `json:"roomCharges"`
	GuestCharges int64  `json:"guestCharges"`
	Subtotal     int64  `json:"subtotal"`
	TaxesAndFees int64  `json:"taxesAndFees"`
	Commission   int64  `json:"commission,omitempty"`
	Discount     int64  `json:"discount"`
	GrandTotal   int64  `json:"grandTotal"`
	Currency     string `json:"currency"`
}

type PaymentDetails struct {
	PaymentMethod string `json:"paymentMethod"`
	PaymentStatus string `json:"paymentStatus"`
	TransactionID string `json:"transactionId"`
	PaymentDate   string `json:"paymentDate"`
	CollectionID  string `json:"collectionId,omitempty"`
}

type BookingMetadata struct {
	BookingDate    string `json:"bookingDate"`
	BookingSource  string `json:"bookingSource"`
	RequestID      string `json:"requestId"`
	ConfirmationID string `json:"frontendConfirmationId"`
}

// Confirmation is the outcome of a successful submission.
type Confirmation struct {
	ID            string
	TransactionID string
	SubmittedAt   time.Time
}
