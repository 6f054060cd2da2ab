// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"guest_booking/internal/app"
	"guest_booking/internal/domain"
)

type Handlers struct {
	Inventory *app.InventoryService
	Hotels    *app.HotelService
	Bookings  *app.BookingService

	HotelID       string
	PriceOpts     app.PriceOptions
	MaxProofBytes int64
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/hotel", h.getHotel)
	s.mux.Get("/v1/rooms", h.getRooms)
	s.mux.Get("/v1/quote", h.getQuote)
	s.mux.Post("/v1/bookings", h.postBooking)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSONWithETag(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

// ---- hotel profile ----

type hotelView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Stars       int     `json:"stars"`
	Address     *string `json:"address,omitempty"`
	Contact     *string `json:"contact,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (h *Handlers) getHotel(w http.ResponseWriter, r *http.Request) {
	hp, err := h.Hotels.GetHotel(r.Context(), h.HotelID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "hotel not found")
			return
		}
		writeProblem(w, http.StatusBadGateway, "Backend Error", "failed to fetch hotel")
		return
	}
	writeJSONWithETag(w, r, hotelView{
		ID: hp.ID, Name: hp.Name, Stars: hp.Stars,
		Address: hp.Address, Contact: hp.Contact, Description: hp.Description,
	})
}

// ---- classified rooms ----

type roomView struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	BedType        string `json:"bedType,omitempty"`
	RoomSize       string `json:"roomSize,omitempty"`
	Image          string `json:"image,omitempty"`
	PricePerNight  int64  `json:"pricePerNight"`
	OriginalPrice  int64  `json:"originalPrice,omitempty"`
	PerAdultPrice  int64  `json:"perAdultPrice"`
	PerChildPrice  int64  `json:"perChildPrice"`
	MaxGuests      int    `json:"maxGuests"`
	AvailableCount int    `json:"availableCount"`
	Bookable       bool   `json:"bookable"`
	StatusLabel    string `json:"statusLabel"`
}

type roomsResponse struct {
	Available    []roomView `json:"available"`
	Limited      []roomView `json:"limited"`
	SoldOut      []roomView `json:"soldOut"`
	MaxAvailable int        `json:"maxAvailable"`
	Insufficient bool       `json:"insufficientInventory"`
	Message      string     `json:"message,omitempty"`
	Version      uint64     `json:"version"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	FetchError   string     `json:"fetchError,omitempty"`
}

func toRoomView(r domain.Room, tier string) roomView {
	v := roomView{
		ID:             r.ID,
		Type:           r.Type,
		BedType:        r.BedType,
		RoomSize:       r.RoomSize,
		Image:          r.Image,
		PricePerNight:  r.PricePerNight,
		PerAdultPrice:  r.PerAdultPrice,
		PerChildPrice:  r.PerChildPrice,
		MaxGuests:      r.MaxGuests,
		AvailableCount: r.AvailableCount,
	}
	if r.DiscountAmount > 0 {
		v.OriginalPrice = r.PricePerNight + r.DiscountAmount
	}
	switch tier {
	case "available":
		v.Bookable = true
		v.StatusLabel = "Available"
	case "limited":
		v.StatusLabel = fmt.Sprintf("Only %d left", r.AvailableCount)
	case "soldout":
		v.StatusLabel = "Sold Out"
	}
	return v
}

func (h *Handlers) getRooms(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Criteria", err.Error())
		return
	}

	tiers, snap := h.Inventory.View(c)

	resp := roomsResponse{
		Available:    make([]roomView, 0, len(tiers.Available)),
		Limited:      make([]roomView, 0, len(tiers.Limited)),
		SoldOut:      make([]roomView, 0, len(tiers.SoldOut)),
		MaxAvailable: tiers.MaxAvailable,
		Version:      snap.Version,
	}
	for _, rm := range tiers.Available {
		resp.Available = append(resp.Available, toRoomView(rm, "available"))
	}
	for _, rm := range tiers.Limited {
		resp.Limited = append(resp.Limited, toRoomView(rm, "limited"))
	}
	for _, rm := range tiers.SoldOut {
		resp.SoldOut = append(resp.SoldOut, toRoomView(rm, "soldout"))
	}
	if !snap.UpdatedAt.IsZero() {
		t := snap.UpdatedAt
		resp.UpdatedAt = &t
	}
	if snap.Err != nil {
		resp.FetchError = "failed to fetch rooms"
	}

	// a request for more rooms than any type can supply gets its own message,
	// distinct from the plain empty state
	if app.Insufficient(tiers, c) {
		resp.Insufficient = true
		resp.Message = fmt.Sprintf("Only %d rooms left. Please reduce the number of rooms.", tiers.MaxAvailable)
	} else if len(tiers.Available) == 0 && len(tiers.Limited) == 0 && len(tiers.SoldOut) == 0 {
		resp.Message = "No rooms available for the selected criteria."
	}

	writeJSONWithETag(w, r, resp)
}

// ---- quote ----

type quoteView struct {
	Nights       int     `json:"nights"`
	RoomCount    int     `json:"roomCount"`
	RoomCharges  int64   `json:"roomCharges"`
	AdultCharges int64   `json:"adultCharges"`
	ChildCharges int64   `json:"childCharges"`
	GuestCharges int64   `json:"guestCharges"`
	Subtotal     int64   `json:"subtotal"`
	TaxPercent   float64 `json:"taxPercent"`
	Taxes        int64   `json:"taxesAndFees"`
	Commission   int64   `json:"commission,omitempty"`
	Discount     int64   `json:"discount"`
	GrandTotal   int64   `json:"grandTotal"`
	Currency     string  `json:"currency"`
}

func (h *Handlers) getQuote(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Criteria", err.Error())
		return
	}
	roomID := r.URL.Query().Get("roomId")
	if roomID == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "roomId is required")
		return
	}
	room, ok := h.findRoom(roomID)
	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "no such room in current inventory")
		return
	}

	q := app.Price(room, c, h.PriceOpts)
	writeJSONWithETag(w, r, quoteView{
		Nights:       q.Nights,
		RoomCount:    q.RoomCount,
		RoomCharges:  q.RoomCharges,
		AdultCharges: q.AdultCharges,
		ChildCharges: q.ChildCharges,
		GuestCharges: q.GuestCharges,
		Subtotal:     q.Subtotal,
		TaxPercent:   q.TaxPercent,
		Taxes:        q.Taxes,
		Commission:   q.Commission,
		Discount:     q.Discount,
		GrandTotal:   q.GrandTotal,
		Currency:     q.Currency,
	})
}

// ---- booking submission ----

type bookingResponse struct {
	ConfirmationID string `json:"confirmationId"`
	TransactionID  string `json:"transactionId"`
}

func (h *Handlers) postBooking(w http.ResponseWriter, r *http.Request) {
	maxProof := h.MaxProofBytes
	if maxProof <= 0 {
		maxProof = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxProof+1<<20)
	if err := r.ParseMultipartForm(maxProof); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Form", "expected multipart form data")
		return
	}

	c, err := criteriaFromForm(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Criteria", err.Error())
		return
	}

	in := app.SubmitInput{
		Guest: domain.GuestInfo{
			FirstName: r.FormValue("firstName"),
			LastName:  r.FormValue("lastName"),
			Email:     r.FormValue("email"),
			Phone:     r.FormValue("phone"),
			City:      r.FormValue("city"),
			Country:   r.FormValue("country"),
		},
		Criteria:      c,
		PaymentMethod: r.FormValue("paymentMethod"),
	}
	if roomID := r.FormValue("roomId"); roomID != "" {
		if room, ok := h.findRoom(roomID); ok {
			in.Room = room
		}
	}
	if f, fh, err := r.FormFile("paymentProof"); err == nil {
		data, rerr := io.ReadAll(io.LimitReader(f, maxProof))
		_ = f.Close()
		if rerr != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid Form", "could not read payment proof")
			return
		}
		in.Proof = domain.ProofFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		}
	}

	conf, err := h.Bookings.Submit(r.Context(), in)
	if err != nil {
		h.writeSubmitFailure(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(bookingResponse{
		ConfirmationID: conf.ID,
		TransactionID:  conf.TransactionID,
	}); err != nil {
		log.Error().Err(err).Msg("failed to write booking response")
	}
}

// writeSubmitFailure maps the failure taxonomy onto problem responses; the
// three causes keep distinct titles and messages.
func (h *Handlers) writeSubmitFailure(w http.ResponseWriter, err error) {
	if errors.Is(err, app.ErrSubmitInFlight) {
		writeProblem(w, http.StatusConflict, "Submission In Progress", err.Error())
		return
	}
	kind, msg := app.ClassifyFailure(err)
	switch kind {
	case app.FailValidation:
		writeProblem(w, http.StatusBadRequest, "Validation Failed", msg)
	case app.FailServer:
		writeProblem(w, http.StatusBadGateway, "Booking Rejected", msg)
	case app.FailNetwork:
		writeProblem(w, http.StatusServiceUnavailable, "Backend Unreachable", msg)
	default:
		writeProblem(w, http.StatusInternalServerError, "Booking Failed", msg)
	}
}

// ---- helpers ----

func (h *Handlers) findRoom(id string) (domain.Room, bool) {
	for _, rm := range h.Inventory.Snapshot().Rooms {
		if rm.ID == id {
			return rm, true
		}
	}
	return domain.Room{}, false
}

func parseCriteria(r *http.Request) (domain.SearchCriteria, error) {
	q := r.URL.Query()
	return buildCriteria(q.Get("checkIn"), q.Get("checkOut"), q.Get("rooms"), q.Get("adults"), q.Get("children"))
}

func criteriaFromForm(r *http.Request) (domain.SearchCriteria, error) {
	return buildCriteria(r.FormValue("checkIn"), r.FormValue("checkOut"),
		r.FormValue("rooms"), r.FormValue("adults"), r.FormValue("children"))
}

func buildCriteria(checkIn, checkOut, rooms, adults, children string) (domain.SearchCriteria, error) {
	c := domain.SearchCriteria{Rooms: 1, Adults: 2}

	parseDate := func(name, s string) (time.Time, error) {
		if s == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s must be a YYYY-MM-DD date", name)
		}
		return t, nil
	}
	parseCount := func(name, s string, def, min int) (int, error) {
		if s == "" {
			return def, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < min || n > 100 {
			return 0, fmt.Errorf("%s must be an integer between %d and 100", name, min)
		}
		return n, nil
	}

	var err error
	if c.CheckIn, err = parseDate("checkIn", checkIn); err != nil {
		return c, err
	}
	if c.CheckOut, err = parseDate("checkOut", checkOut); err != nil {
		return c, err
	}
	if c.Rooms, err = parseCount("rooms", rooms, 1, 1); err != nil {
		return c, err
	}
	if c.Adults, err = parseCount("adults", adults, 2, 1); err != nil {
		return c, err
	}
	if c.Children, err = parseCount("children", children, 0, 0); err != nil {
		return c, err
	}
	return c, nil
}
