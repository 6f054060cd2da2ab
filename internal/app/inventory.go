package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"guest_booking/internal/adapters/observability"
	"guest_booking/internal/domain"
)

// Snapshot is the store's current view of the hotel inventory. Version is
// monotonic; a refresh that loses the race simply publishes a later version
// (last-write-wins). Err holds the most recent fetch failure without
// clearing the last good room list.
type Snapshot struct {
	Rooms     []domain.Room
	Version   uint64
	UpdatedAt time.Time
	Err       error
}

// cachedInventory is the shape persisted in the snapshot cache so a restart
// can serve known inventory while the first fetch is in flight.
type cachedInventory struct {
	Rooms     []domain.Room `json:"rooms"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// InventoryService owns the single inventory store and its two producers:
// a fixed-interval poll and push notifications, both funnelled through one
// single-flight refresh.
type InventoryService struct {
	backend  domain.BackendClient
	cache    domain.Cache
	push     domain.PushListener
	hotelID  string
	interval time.Duration
	cacheTTL time.Duration

	inflight *semaphore.Weighted
	kick     chan struct{}

	mu   sync.RWMutex
	snap Snapshot
	// date scope applied to backend fetches; occupancy fields are ignored here
	scope domain.SearchCriteria
}

func NewInventoryService(b domain.BackendClient, cache domain.Cache, push domain.PushListener, hotelID string, interval, cacheTTL time.Duration) *InventoryService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &InventoryService{
		backend:  b,
		cache:    cache,
		push:     push,
		hotelID:  hotelID,
		interval: interval,
		cacheTTL: cacheTTL,
		inflight: semaphore.NewWeighted(1),
		kick:     make(chan struct{}, 1),
	}
}

// Run starts the poll ticker and the push subscription, does one immediate
// refresh, and blocks until ctx is done. Both producers are released on
// return, so nothing outlives the service context.
func (s *InventoryService) Run(ctx context.Context) error {
	s.seedFromCache(ctx)

	var stopPush func()
	if s.push != nil {
		var err error
		stopPush, err = s.push.Listen(s.hotelID, func(event string) {
			log.Info().Str("event", event).Str("hotel", s.hotelID).Msg("inventory push event")
			s.MarkStale()
		})
		if err != nil {
			// degraded mode: polling still keeps inventory fresh
			log.Warn().Err(err).Msg("push subscription failed; continuing with polling only")
		}
	}
	if stopPush != nil {
		defer stopPush()
	}

	if err := s.Refresh(ctx, "startup"); err != nil {
		log.Warn().Err(err).Msg("initial inventory fetch failed")
	}

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			_ = s.Refresh(ctx, "poll")
		case <-s.kick:
			_ = s.Refresh(ctx, "push")
		}
	}
}

// MarkStale requests an out-of-band refresh. Coalesces while one is pending.
func (s *InventoryService) MarkStale() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Refresh fetches the inventory once. Concurrent calls collapse: a caller
// that finds a refresh already in flight returns immediately and relies on
// that one's result.
func (s *InventoryService) Refresh(ctx context.Context, trigger string) error {
	if !s.inflight.TryAcquire(1) {
		return nil
	}
	defer s.inflight.Release(1)

	s.mu.RLock()
	scope := s.scope
	s.mu.RUnlock()

	raw, err := s.backend.FetchRooms(ctx, s.hotelID, scope)
	if err != nil {
		observability.ObserveRefresh(trigger, "error")
		s.mu.Lock()
		s.snap.Err = err
		s.mu.Unlock()
		log.Warn().Err(err).Str("trigger", trigger).Msg("inventory refresh failed")
		return err
	}

	rooms := mapRooms(raw)
	now := time.Now()

	s.mu.Lock()
	s.snap = Snapshot{Rooms: rooms, Version: s.snap.Version + 1, UpdatedAt: now}
	s.mu.Unlock()

	observability.ObserveRefresh(trigger, "ok")
	if s.cache != nil {
		_ = s.cache.Set(ctx, s.snapshotKey(), cachedInventory{Rooms: rooms, UpdatedAt: now}, int(s.cacheTTL.Seconds()))
	}
	return nil
}

// SetScope updates the date window applied to fetches. A change kicks an
// immediate refetch; occupancy and room-count changes only reclassify and
// never hit the backend.
func (s *InventoryService) SetScope(c domain.SearchCriteria) {
	s.mu.Lock()
	changed := !s.scope.CheckIn.Equal(c.CheckIn) || !s.scope.CheckOut.Equal(c.CheckOut)
	if changed {
		s.scope = domain.SearchCriteria{CheckIn: c.CheckIn, CheckOut: c.CheckOut}
	}
	s.mu.Unlock()
	if changed {
		s.MarkStale()
	}
}

func (s *InventoryService) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	snap.Rooms = append([]domain.Room(nil), s.snap.Rooms...)
	return snap
}

// View applies the criteria and classifies the current snapshot.
func (s *InventoryService) View(c domain.SearchCriteria) (domain.Tiered, Snapshot) {
	s.SetScope(c)
	snap := s.Snapshot()
	return Classify(snap.Rooms, c), snap
}

func (s *InventoryService) seedFromCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	var ci cachedInventory
	if ok, _ := s.cache.Get(ctx, s.snapshotKey(), &ci); ok {
		s.mu.Lock()
		if s.snap.Version == 0 {
			s.snap = Snapshot{Rooms: ci.Rooms, Version: 1, UpdatedAt: ci.UpdatedAt}
		}
		s.mu.Unlock()
		log.Info().Int("rooms", len(ci.Rooms)).Msg("inventory seeded from cache")
	}
}

func (s *InventoryService) snapshotKey() string { return "inventory:" + s.hotelID }
