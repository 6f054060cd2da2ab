package app

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"guest_booking/internal/adapters/observability"
	"guest_booking/internal/domain"
)

// Submission phases. Success/failure are per-attempt outcomes; the service
// always returns to idle once an attempt finishes.
type SubmitPhase int32

const (
	PhaseIdle SubmitPhase = iota
	PhaseValidating
	PhaseSubmitting
)

// ErrSubmitInFlight rejects re-submission while one attempt is running.
// Retry is caller-initiated only.
var ErrSubmitInFlight = errors.New("a booking submission is already in progress")

// ValidationError names the specific missing requirement. It blocks the
// attempt before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// FailureKind discriminates the three user-visible failure causes.
type FailureKind int

const (
	FailValidation FailureKind = iota
	FailNetwork
	FailServer
	FailInternal
)

// ClassifyFailure maps a submission error onto its user-facing cause and
// message. Server messages pass through verbatim when present.
func ClassifyFailure(err error) (FailureKind, string) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return FailValidation, ve.Reason
	}
	var se *domain.ServerError
	if errors.As(err, &se) {
		if se.Message != "" {
			return FailServer, se.Message
		}
		return FailServer, "The booking service rejected the request."
	}
	if errors.Is(err, domain.ErrUnreachable) || errors.Is(err, context.DeadlineExceeded) {
		return FailNetwork, "Unable to connect to the server. Please check your internet connection."
	}
	return FailInternal, "There was an error processing your booking. Please try again."
}

// SubmitInput is everything the guest form supplies for one attempt.
type SubmitInput struct {
	Guest         domain.GuestInfo
	Room          domain.Room // selected room snapshot; zero ID means none selected
	Criteria      domain.SearchCriteria
	PaymentMethod string
	Proof         domain.ProofFile
}

type BookingService struct {
	backend      domain.BackendClient
	hotelID      string
	collectionID string
	timeout      time.Duration
	priceOpts    PriceOptions

	inflight *semaphore.Weighted
	phase    atomic.Int32
}

func NewBookingService(b domain.BackendClient, hotelID, collectionID string, timeout time.Duration, opts PriceOptions) *BookingService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BookingService{
		backend:      b,
		hotelID:      hotelID,
		collectionID: collectionID,
		timeout:      timeout,
		priceOpts:    opts,
		inflight:     semaphore.NewWeighted(1),
	}
}

func (s *BookingService) Phase() SubmitPhase { return SubmitPhase(s.phase.Load()) }

// Submit runs one attempt: validate, assemble the multipart payload, post it
// under a bounded timeout. Exactly one attempt runs at a time.
func (s *BookingService) Submit(ctx context.Context, in SubmitInput) (domain.Confirmation, error) {
	if !s.inflight.TryAcquire(1) {
		return domain.Confirmation{}, ErrSubmitInFlight
	}
	defer s.inflight.Release(1)
	defer s.phase.Store(int32(PhaseIdle))

	s.phase.Store(int32(PhaseValidating))
	if err := validate(in); err != nil {
		observability.ObserveSubmission("validation_rejected")
		return domain.Confirmation{}, err
	}

	s.phase.Store(int32(PhaseSubmitting))
	quote := Price(in.Room, in.Criteria, s.priceOpts)
	fallbackID := generateConfirmationID()
	payload := s.buildPayload(in, quote, fallbackID)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.backend.SubmitBooking(ctx, payload)
	if err != nil {
		observability.ObserveSubmission("failed")
		log.Warn().Err(err).Str("hotel", s.hotelID).Msg("booking submission failed")
		return domain.Confirmation{}, err
	}

	id := firstNonEmpty(resp.ConfirmationID, resp.BookingID, resp.ID, fallbackID)
	observability.ObserveSubmission("confirmed")
	log.Info().Str("confirmation", id).Str("hotel", s.hotelID).Msg("booking confirmed")
	return domain.Confirmation{
		ID:            id,
		TransactionID: payload.Payment.TransactionID,
		SubmittedAt:   time.Now(),
	}, nil
}

// validate checks guest fields, room selection and proof attachment, in that
// order, reporting the first missing requirement by name.
func validate(in SubmitInput) error {
	fields := []struct{ name, v string }{
		{"firstName", in.Guest.FirstName},
		{"lastName", in.Guest.LastName},
		{"email", in.Guest.Email},
		{"phone", in.Guest.Phone},
		{"city", in.Guest.City},
		{"country", in.Guest.Country},
	}
	for _, f := range fields {
		if f.v == "" {
			return &ValidationError{Field: f.name, Reason: fmt.Sprintf("guest field %q is required for booking", f.name)}
		}
	}
	if in.Room.ID == "" {
		return &ValidationError{Field: "room", Reason: "a room must be selected before making payment"}
	}
	if len(in.Proof.Data) == 0 {
		return &ValidationError{Field: "paymentProof", Reason: "payment proof image is required to confirm the booking"}
	}
	return nil
}

func (s *BookingService) buildPayload(in SubmitInput, q domain.Quote, fallbackID string) domain.BookingPayload {
	now := time.Now().UTC()
	method := in.PaymentMethod
	if method == "" {
		method = "UPI"
	}
	commission := int64(0)
	if s.priceOpts.IncludeCommission {
		commission = q.Commission
	}
	return domain.BookingPayload{
		Guest: domain.GuestDetails{
			FirstName: in.Guest.FirstName,
			LastName:  in.Guest.LastName,
			Email:     in.Guest.Email,
			Phone:     in.Guest.Phone,
			City:      in.Guest.City,
			Country:   in.Guest.Country,
		},
		Room: domain.RoomDetails{
			RoomID:        in.Room.ID,
			RoomType:      in.Room.Type,
			PricePerNight: in.Room.PricePerNight,
			MaxGuests:     in.Room.MaxGuests,
			BedType:       in.Room.BedType,
			RoomSize:      in.Room.RoomSize,
		},
		Booking: domain.BookingDetails{
			CheckIn:          fmtDate(in.Criteria.CheckIn),
			CheckOut:         fmtDate(in.Criteria.CheckOut),
			NumberOfRooms:    in.Criteria.Rooms,
			NumberOfAdults:   in.Criteria.Adults,
			NumberOfChildren: in.Criteria.Children,
			NumberOfNights:   q.Nights,
			HotelID:          s.hotelID,
		},
		Amounts: domain.AmountDetails{
			RoomCharges:  q.RoomCharges,
			GuestCharges: q.GuestCharges,
			Subtotal:     q.Subtotal,
			TaxesAndFees: q.Taxes,
			Commission:   commission,
			Discount:     q.Discount,
			GrandTotal:   q.GrandTotal,
			Currency:     q.Currency,
		},
		Payment: domain.PaymentDetails{
			PaymentMethod: method,
			PaymentStatus: "pending",
			TransactionID: newTransactionID(now),
			PaymentDate:   now.Format(time.RFC3339),
			CollectionID:  s.collectionID,
		},
		Metadata: domain.BookingMetadata{
			BookingDate:    now.Format(time.RFC3339),
			BookingSource:  "web",
			RequestID:      uuid.NewString(),
			ConfirmationID: fallbackID,
		},
		Proof: in.Proof,
	}
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// newTransactionID yields TXN_<unix-millis>_<9-char suffix>.
func newTransactionID(now time.Time) string {
	suffix := uuid.NewString()
	suffix = suffix[:8] + suffix[9:10] // skip the first dash
	return fmt.Sprintf("TXN_%d_%s", now.UnixMilli(), suffix)
}

const confirmationAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateConfirmationID returns the 8-char uppercase alphanumeric fallback
// used when the backend response carries no id.
func generateConfirmationID() string {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		// degenerate but still unique enough for a display fallback
		return fmt.Sprintf("%08d", time.Now().UnixNano()%1e8)
	}
	out := make([]byte, 8)
	for i, v := range b {
		out[i] = confirmationAlphabet[int(v)%len(confirmationAlphabet)]
	}
	return string(out)
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
