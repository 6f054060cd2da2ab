//go:build integration || !unit

package integration

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	goredis "github.com/redis/go-redis/v9"

	"guest_booking/internal/adapters/backend"
	server "guest_booking/internal/adapters/http_server"
	redisad "guest_booking/internal/adapters/redis"
	"guest_booking/internal/app"
)

// ---------- fake booking backend API ----------

// backendAPI mimics the upstream REST API: room listing, hotel profile and
// the multipart booking endpoint.
type backendAPI struct {
	hotelCalls atomic.Int64
	roomCalls  atomic.Int64
	lastProof  atomic.Value // string: filename of the uploaded proof
}

func (b *backendAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /hotel/", func(w http.ResponseWriter, r *http.Request) {
		b.hotelCalls.Add(1)
		writeJSON(w, map[string]any{"_id": "h1", "name": "Palm Court", "stars": 5})
	})
	mux.HandleFunc("GET /rooms/hotel/", func(w http.ResponseWriter, r *http.Request) {
		b.roomCalls.Add(1)
		writeJSON(w, []map[string]any{
			{
				"_id": "r1", "type": "Deluxe King", "pricePerNight": 2000,
				"perAdultPrice": 500, "taxPercentage": 18,
				"maxGuests": 4, "availability": "Available", "availableCount": 3,
			},
			{
				"_id": "r2", "type": "Standard Twin", "pricePerNight": 1200,
				"perAdultPrice": 300, "taxPercentage": 18,
				"maxGuests": 2, "availability": "Available", "availableCount": 0,
			},
		})
	})
	mux.HandleFunc("POST /bookings", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(16 << 20); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		for _, f := range []string{"guestDetails", "roomDetails", "bookingDetails", "amountDetails", "paymentDetails", "bookingMetadata"} {
			if r.FormValue(f) == "" {
				http.Error(w, "missing "+f, http.StatusBadRequest)
				return
			}
		}
		_, fh, err := r.FormFile("paymentProof")
		if err != nil {
			http.Error(w, "missing proof", http.StatusBadRequest)
			return
		}
		b.lastProof.Store(fh.Filename)
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, map[string]any{"confirmationId": "BKE2E001"})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// ---------- redis container ----------

func startRedis(t *testing.T) string {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7-alpine",
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run redis: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	addr := "127.0.0.1:" + resource.GetPort("6379/tcp")
	if err := pool.Retry(func() error {
		c := goredis.NewClient(&goredis.Options{Addr: addr})
		defer c.Close()
		return c.Ping(context.Background()).Err()
	}); err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	return addr
}

// ---------- the test ----------

func TestHTTP_EndToEnd_Booking(t *testing.T) {
	redisAddr := startRedis(t)

	api := &backendAPI{}
	upstream := httptest.NewServer(api.handler())
	defer upstream.Close()

	bc, err := backend.New(upstream.URL, 10)
	if err != nil {
		t.Fatalf("backend client: %v", err)
	}
	cache := redisad.New(redisAddr, "", 0)

	inv := app.NewInventoryService(bc, cache, nil, "h1", time.Minute, time.Minute)
	if err := inv.Refresh(context.Background(), "startup"); err != nil {
		t.Fatalf("initial refresh: %v", err)
	}
	opts := app.PriceOptions{IncludeCommission: true, Currency: "INR"}

	srv := server.New()
	srv.MountHandlers(&server.Handlers{
		Inventory: inv,
		Hotels:    app.NewHotelService(bc, cache, time.Minute),
		Bookings:  app.NewBookingService(bc, "h1", "col-e2e", 10*time.Second, opts),
		HotelID:   "h1",
		PriceOpts: opts,
	})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	// hotel profile, twice: second hit must come from redis
	for i := 0; i < 2; i++ {
		res, err := http.Get(ts.URL + "/v1/hotel")
		if err != nil {
			t.Fatalf("GET hotel: %v", err)
		}
		var hv struct {
			Name  string `json:"name"`
			Stars int    `json:"stars"`
		}
		if err := json.NewDecoder(res.Body).Decode(&hv); err != nil {
			t.Fatalf("decode hotel: %v", err)
		}
		res.Body.Close()
		if hv.Name != "Palm Court" || hv.Stars != 5 {
			t.Fatalf("hotel body: %+v", hv)
		}
	}
	if n := api.hotelCalls.Load(); n != 1 {
		t.Fatalf("hotel fetched %d times, want 1 (cache-aside)", n)
	}

	// classified rooms
	res, err := http.Get(ts.URL + "/v1/rooms?rooms=2&adults=2")
	if err != nil {
		t.Fatalf("GET rooms: %v", err)
	}
	var rv struct {
		Available []struct {
			ID string `json:"id"`
		} `json:"available"`
		SoldOut []struct {
			ID string `json:"id"`
		} `json:"soldOut"`
	}
	if err := json.NewDecoder(res.Body).Decode(&rv); err != nil {
		t.Fatalf("decode rooms: %v", err)
	}
	res.Body.Close()
	if len(rv.Available) != 1 || rv.Available[0].ID != "r1" {
		t.Fatalf("available: %+v", rv.Available)
	}
	if len(rv.SoldOut) != 1 || rv.SoldOut[0].ID != "r2" {
		t.Fatalf("soldOut: %+v", rv.SoldOut)
	}

	// a fresh service instance comes up with inventory already populated,
	// seeded from the redis snapshot
	inv2 := app.NewInventoryService(bc, cache, nil, "h1", time.Minute, time.Minute)
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	go func() { _ = inv2.Run(ctx2) }()
	deadline := time.Now().Add(3 * time.Second)
	for {
		if len(inv2.Snapshot().Rooms) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("second service never picked up cached inventory")
		}
		time.Sleep(20 * time.Millisecond)
	}

	// submit a booking end to end
	var buf strings.Builder
	w := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"firstName": "Ravi", "lastName": "Menon", "email": "ravi@example.com",
		"phone": "8888888888", "city": "Kochi", "country": "India",
		"roomId": "r1", "checkIn": "2025-03-01", "checkOut": "2025-03-03",
		"rooms": "1", "adults": "2",
	} {
		_ = w.WriteField(k, v)
	}
	fw, err := w.CreateFormFile("paymentProof", "upi-receipt.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("fake-png-bytes"))
	_ = w.Close()

	bres, err := http.Post(ts.URL+"/v1/bookings", w.FormDataContentType(), strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("POST booking: %v", err)
	}
	defer bres.Body.Close()
	raw, _ := io.ReadAll(bres.Body)
	if bres.StatusCode != http.StatusCreated {
		t.Fatalf("booking status %d: %s", bres.StatusCode, raw)
	}
	var conf struct {
		ConfirmationID string `json:"confirmationId"`
		TransactionID  string `json:"transactionId"`
	}
	if err := json.Unmarshal(raw, &conf); err != nil {
		t.Fatalf("decode booking: %v", err)
	}
	if conf.ConfirmationID != "BKE2E001" {
		t.Fatalf("confirmationId = %q", conf.ConfirmationID)
	}
	if !strings.HasPrefix(conf.TransactionID, "TXN_") {
		t.Fatalf("transactionId = %q", conf.TransactionID)
	}
	if got, _ := api.lastProof.Load().(string); got != "upi-receipt.png" {
		t.Fatalf("proof file relayed as %q", got)
	}
}
