package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"guest_booking/internal/adapters/backend"
	server "guest_booking/internal/adapters/http_server"
	natsad "guest_booking/internal/adapters/nats"
	"guest_booking/internal/adapters/observability"
	redisad "guest_booking/internal/adapters/redis"
	"guest_booking/internal/app"
	"guest_booking/internal/domain"
	"guest_booking/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// backend client
	client, err := backend.New(cfg.APIBase, cfg.BackendRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize backend client")
	}

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// push channel is optional; polling alone keeps inventory fresh
	var push domain.PushListener
	if cfg.NATSURL != "" {
		listener, err := natsad.New(cfg.NATSURL)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable; falling back to polling only")
		} else {
			push = listener
			defer listener.Close()
		}
	}

	priceOpts := app.PriceOptions{
		IncludeCommission: cfg.IncludeCommission,
		Discount:          cfg.Discount,
		Currency:          cfg.Currency,
	}

	inv := app.NewInventoryService(client, cache, push, cfg.HotelID, cfg.PollInterval, cfg.CacheTTL)
	hotels := app.NewHotelService(client, cache, cfg.CacheTTL)
	bookings := app.NewBookingService(client, cfg.HotelID, cfg.CollectionID, cfg.SubmitTimeout, priceOpts)

	go func() {
		if err := inv.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("inventory refresher stopped")
		}
	}()

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Inventory:     inv,
		Hotels:        hotels,
		Bookings:      bookings,
		HotelID:       cfg.HotelID,
		PriceOpts:     priceOpts,
		MaxProofBytes: cfg.MaxProofBytes,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Str("hotel", cfg.HotelID).Msg("booking front listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	go func() {
		<-ctx.Done()
		_ = httpSrv.Shutdown(context.Background())
	}()

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
