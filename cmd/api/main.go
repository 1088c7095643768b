package main

import (
	"database/sql"
	"net/http"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	server "respax_booking/internal/adapters/http_server"
	"respax_booking/internal/adapters/observability"
	redisad "respax_booking/internal/adapters/redis"
	"respax_booking/internal/adapters/respax"
	"respax_booking/internal/app"
	"respax_booking/internal/shared"
	pgrepo "respax_booking/internal/storage/postgres"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// reservation API
	api, err := respax.New(respax.Credentials{
		Username:    cfg.RespaxUsername,
		Password:    cfg.RespaxPassword,
		Environment: cfg.RespaxEnv,
	}, cfg.RespaxDistributorID, cfg.RespaxRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("reservation API client init failed")
	}

	// deps
	repo := pgrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	store := app.NewTourStore(cache, repo, cfg.CacheTTL)
	prices := app.NewPriceCache(cfg.CacheTTL, cfg.PriceCacheMax)

	h := &server.Handlers{
		API:     api,
		Store:   store,
		Avail:   app.NewAvailabilityService(api),
		Pricing: app.NewPricingService(api, cfg.CommissionRate),
		Extras:  app.NewExtrasService(api, prices),
		Resv:    app.NewReservationService(api),
	}

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
