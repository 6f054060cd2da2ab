package app

import (
	"context"
	"time"

	"guest_booking/internal/domain"
)

// HotelService serves the hotel profile shown in the page header, cache-aside
// with a TTL so the backend is not hit on every page load.
type HotelService struct {
	backend  domain.BackendClient
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewHotelService(b domain.BackendClient, c domain.Cache, ttl time.Duration) *HotelService {
	return &HotelService{backend: b, cache: c, cacheTTL: ttl}
}

func (s *HotelService) GetHotel(ctx context.Context, id string) (domain.HotelProfile, error) {
	key := "hotel:" + id
	var hp domain.HotelProfile
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &hp); ok {
			return hp, nil
		}
	}
	raw, err := s.backend.FetchHotel(ctx, id)
	if err != nil {
		return domain.HotelProfile{}, err
	}
	hp = mapHotel(raw)
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, hp, int(s.cacheTTL.Seconds()))
	}
	return hp, nil
}
