package redisad_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	redisad "guest_booking/internal/adapters/redis"
	"guest_booking/internal/domain"
)

func newTestCache(t *testing.T) *redisad.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	return redisad.New(mr.Addr(), "", 0)
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	in := domain.HotelProfile{ID: "h1", Name: "Test Hotel", Stars: 4}
	if err := c.Set(ctx, "hotel:h1", in, 60); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out domain.HotelProfile
	ok, err := c.Get(ctx, "hotel:h1", &out)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit")
	}
	if out.ID != "h1" || out.Name != "Test Hotel" || out.Stars != 4 {
		t.Fatalf("unexpected value: %+v", out)
	}
}

func TestCache_MissAndDel(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	var out domain.HotelProfile
	ok, err := c.Get(ctx, "hotel:absent", &out)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected a miss")
	}

	if err := c.Set(ctx, "k", domain.HotelProfile{ID: "x"}, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if ok, _ := c.Get(ctx, "k", &out); ok {
		t.Fatal("expected miss after del")
	}
}
