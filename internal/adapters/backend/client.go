// internal/adapters/backend/client.go
package backend

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"guest_booking/internal/adapters/observability"
	"guest_booking/internal/domain"
)

// Client talks to the booking backend REST API. GETs get client-side rate
// limiting and retries; the booking POST is never retried automatically.
type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		// generous enough to cover the bounded submission timeout
		hc: &http.Client{Timeout: 60 * time.Second},
		rl: rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- Public API ----

func (c *Client) FetchRooms(ctx context.Context, hotelID string, sc domain.SearchCriteria) ([]map[string]any, error) {
	u := fmt.Sprintf("%s/rooms/hotel/%s", c.base, url.PathEscape(hotelID))
	q := url.Values{}
	if !sc.CheckIn.IsZero() && !sc.CheckOut.IsZero() {
		q.Set("checkIn", sc.CheckIn.Format("2006-01-02"))
		q.Set("checkOut", sc.CheckOut.Format("2006-01-02"))
	}
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	var out []map[string]any
	return out, c.get(ctx, u, "rooms", &out)
}

func (c *Client) FetchHotel(ctx context.Context, hotelID string) (map[string]any, error) {
	u := fmt.Sprintf("%s/hotel/%s", c.base, url.PathEscape(hotelID))
	var out map[string]any
	return out, c.get(ctx, u, "hotel", &out)
}

// SubmitBooking posts the multipart booking form. Tries the bookings
// endpoint first and falls back to the legacy guests/create path on 404.
func (c *Client) SubmitBooking(ctx context.Context, p domain.BookingPayload) (domain.BookingResponse, error) {
	body, contentType, err := encodeMultipart(p)
	if err != nil {
		return domain.BookingResponse{}, err
	}

	candidates := []string{
		c.base + "/bookings",      // preferred
		c.base + "/guests/create", // legacy
	}
	var last error
	for _, u := range candidates {
		resp, err := c.post(ctx, u, contentType, body)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				last = err
				continue // try next pattern
			}
			return domain.BookingResponse{}, err
		}
		return resp, nil
	}
	return domain.BookingResponse{}, last
}

// ---- Internals ----

func encodeMultipart(p domain.BookingPayload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct {
		name string
		v    any
	}{
		{"guestDetails", p.Guest},
		{"roomDetails", p.Room},
		{"bookingDetails", p.Booking},
		{"amountDetails", p.Amounts},
		{"paymentDetails", p.Payment},
		{"bookingMetadata", p.Metadata},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.v)
		if err != nil {
			return nil, "", fmt.Errorf("marshal %s: %w", f.name, err)
		}
		if err := w.WriteField(f.name, string(b)); err != nil {
			return nil, "", err
		}
	}

	name := p.Proof.Name
	if name == "" {
		name = "payment-proof"
	}
	fw, err := w.CreateFormFile("paymentProof", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(p.Proof.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func (c *Client) post(ctx context.Context, u, contentType string, body []byte) (domain.BookingResponse, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return domain.BookingResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return domain.BookingResponse{}, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "guest-booking/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("backend", "bookings", 0, time.Since(start))
		if ctx.Err() != nil {
			return domain.BookingResponse{}, ctx.Err()
		}
		return domain.BookingResponse{}, fmt.Errorf("%w: %v", domain.ErrUnreachable, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("backend", "bookings", resp.StatusCode, time.Since(start))

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.BookingResponse{}, domain.ErrNotFound
	case resp.StatusCode >= 400:
		return domain.BookingResponse{}, serverError(resp.StatusCode, raw)
	}

	var m map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			return domain.BookingResponse{}, fmt.Errorf("decode booking response: %w", err)
		}
	}
	return domain.BookingResponse{
		ConfirmationID: strAt(m, "confirmationId"),
		BookingID:      strAt(m, "bookingId"),
		ID:             firstStr(m, "id", "_id"),
		RawJSON:        raw,
	}, nil
}

// serverError extracts the backend's message field so it can be surfaced
// verbatim to the guest.
func serverError(status int, body []byte) *domain.ServerError {
	var m map[string]any
	msg := ""
	if json.Unmarshal(body, &m) == nil {
		msg = firstStr(m, "message", "error")
	}
	return &domain.ServerError{Status: status, Message: msg}
}

func strAt(m map[string]any, k string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[k].(string); ok {
		return s
	}
	return ""
}

func firstStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := strAt(m, k); s != "" {
			return s
		}
	}
	return ""
}

// get performs a GET with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, u, endpoint string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "guest-booking/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("backend", endpoint, 0, time.Since(start))
			// network error or context canceled
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %v", domain.ErrUnreachable, err)
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("backend", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return domain.ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return domain.ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return domain.ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = serverError(resp.StatusCode, b)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return serverError(resp.StatusCode, b)
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	// seconds form
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	// HTTP-date form
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0                  // 0..1
	j := time.Duration(0.5 * f * float64(base)) // up to +50%
	return base + j
}
