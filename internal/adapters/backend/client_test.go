package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"guest_booking/internal/adapters/backend"
	"guest_booking/internal/domain"
)

func submitPayload() domain.BookingPayload {
	return domain.BookingPayload{
		Guest:   domain.GuestDetails{FirstName: "Asha", LastName: "Rao", Email: "a@example.com", Phone: "9", City: "Delhi", Country: "India"},
		Room:    domain.RoomDetails{RoomID: "r1", RoomType: "Deluxe", PricePerNight: 2000},
		Booking: domain.BookingDetails{CheckIn: "2025-03-01", CheckOut: "2025-03-03", NumberOfRooms: 1, NumberOfNights: 2, HotelID: "h1"},
		Amounts: domain.AmountDetails{Subtotal: 5000, TaxesAndFees: 900, GrandTotal: 5900, Currency: "INR"},
		Payment: domain.PaymentDetails{PaymentMethod: "UPI", PaymentStatus: "pending", TransactionID: "TXN_1_abc"},
		Proof:   domain.ProofFile{Name: "proof.png", ContentType: "image/png", Data: []byte{0xFF, 0xD8}},
	}
}

func TestFetchRooms_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			if r.URL.Path != "/rooms/hotel/h1" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("checkIn") != "2025-03-01" {
				t.Errorf("checkIn not forwarded: %s", r.URL.RawQuery)
			}
			w.WriteHeader(200)
			_ = json.NewEncoder(w).Encode([]map[string]any{{"_id": "r1"}})
		}
	}))
	defer ts.Close()

	cl, err := backend.New(ts.URL, 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	in, _ := time.Parse("2006-01-02", "2025-03-01")
	out, _ := time.Parse("2006-01-02", "2025-03-03")
	rooms, err := cl.FetchRooms(ctx, "h1", domain.SearchCriteria{CheckIn: in, CheckOut: out})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(rooms) != 1 || rooms[0]["_id"] != "r1" {
		t.Fatalf("unexpected payload: %+v", rooms)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestFetchHotel_404(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cl, err := backend.New(ts.URL, 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = cl.FetchHotel(ctx, "h1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchRooms_NetworkErrorWrapped(t *testing.T) {
	cl, err := backend.New("http://127.0.0.1:1", 100) // nothing listens here
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = cl.FetchRooms(ctx, "h1", domain.SearchCriteria{})
	if !errors.Is(err, domain.ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

func TestSubmitBooking_MultipartFieldsAndResponse(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/bookings" {
			w.WriteHeader(404)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		for _, field := range []string{"guestDetails", "roomDetails", "bookingDetails", "amountDetails", "paymentDetails", "bookingMetadata"} {
			if r.FormValue(field) == "" {
				t.Errorf("missing field %s", field)
			}
		}
		var amounts map[string]any
		_ = json.Unmarshal([]byte(r.FormValue("amountDetails")), &amounts)
		if amounts["grandTotal"].(float64) != 5900 {
			t.Errorf("grandTotal = %v", amounts["grandTotal"])
		}
		f, fh, err := r.FormFile("paymentProof")
		if err != nil {
			t.Errorf("proof file: %v", err)
		} else {
			_ = f.Close()
			if fh.Filename != "proof.png" {
				t.Errorf("proof filename = %s", fh.Filename)
			}
		}
		w.WriteHeader(201)
		_ = json.NewEncoder(w).Encode(map[string]any{"confirmationId": "CONF1234"})
	}))
	defer ts.Close()

	cl, err := backend.New(ts.URL, 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	resp, err := cl.SubmitBooking(context.Background(), submitPayload())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.ConfirmationID != "CONF1234" {
		t.Fatalf("confirmationId = %s", resp.ConfirmationID)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single POST, got %d", calls)
	}
}

func TestSubmitBooking_LegacyEndpointFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/guests/create" {
			w.WriteHeader(200)
			_ = json.NewEncoder(w).Encode(map[string]any{"bookingId": "BK42"})
			return
		}
		w.WriteHeader(404)
	}))
	defer ts.Close()

	cl, err := backend.New(ts.URL, 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	resp, err := cl.SubmitBooking(context.Background(), submitPayload())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.BookingID != "BK42" {
		t.Fatalf("bookingId = %s", resp.BookingID)
	}
}

func TestSubmitBooking_ServerErrorMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(409)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "Room no longer available"})
	}))
	defer ts.Close()

	cl, err := backend.New(ts.URL, 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	_, err = cl.SubmitBooking(context.Background(), submitPayload())
	var se *domain.ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if se.Status != 409 || se.Message != "Room no longer available" {
		t.Fatalf("unexpected server error: %+v", se)
	}
}

func TestSubmitBooking_NoRetryOnServerError(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(500)
	}))
	defer ts.Close()

	cl, err := backend.New(ts.URL, 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err = cl.SubmitBooking(context.Background(), submitPayload()); err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("POST must not be retried, got %d calls", calls)
	}
}
