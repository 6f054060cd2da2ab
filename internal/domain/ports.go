package domain

import "context"

type BackendClient interface {
	// FetchRooms returns the hotel's raw room inventory payloads, scoped by
	// the criteria's check-in/check-out window when both dates are set.
	FetchRooms(ctx context.Context, hotelID string, c SearchCriteria) ([]map[string]any, error)
	FetchHotel(ctx context.Context, hotelID string) (map[string]any, error)
	SubmitBooking(ctx context.Context, p BookingPayload) (BookingResponse, error)
}

// BookingResponse carries whichever id field the backend chose to answer with.
type BookingResponse struct {
	ConfirmationID string
	BookingID      string
	ID             string
	RawJSON        []byte
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// PushListener delivers room change notifications for one hotel. notify is
// invoked with the event name (room created/updated/deleted) only for events
// whose hotel id matches.
type PushListener interface {
	Listen(hotelID string, notify func(event string)) (stop func(), err error)
	Close() error
}

// Tiered is the classifier's output: a partition of the eligible inventory,
// each slice preserving original inventory order.
type Tiered struct {
	Available []Room
	Limited   []Room
	SoldOut   []Room
	// MaxAvailable is the largest AvailableCount across the whole inventory,
	// used to tell "insufficient inventory" apart from a plain empty result.
	MaxAvailable int
}
