package main

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"respax_booking/internal/adapters/observability"
	redisad "respax_booking/internal/adapters/redis"
	"respax_booking/internal/adapters/respax"
	"respax_booking/internal/app"
	"respax_booking/internal/domain"
	"respax_booking/internal/shared"
	pgrepo "respax_booking/internal/storage/postgres"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	targets := shared.PublishTargets()
	if len(targets) == 0 {
		log.Fatal().Msg("PUBLISH_TOURS is empty, nothing to publish")
	}
	log.Info().
		Str("env", cfg.RespaxEnv).
		Int("workers", cfg.Workers).
		Int("tours", len(targets)).
		Msg("publisher starting")

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := pgrepo.New(db)

	client, err := respax.New(respax.Credentials{
		Username:    cfg.RespaxUsername,
		Password:    cfg.RespaxPassword,
		Environment: cfg.RespaxEnv,
	}, cfg.RespaxDistributorID, cfg.RespaxRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize reservation API client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	store := app.NewTourStore(cache, repo, cfg.CacheTTL)

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, tg := range targets {
		tg := tg

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, int64(1)); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(tg shared.PublishTarget) {
			defer wg.Done()
			defer sem.Release(int64(1))

			if err := publishTour(ctx, client, store, tg); err != nil {
				log.Warn().Str("host", tg.HostID).Str("tour", tg.TourCode).Err(err).Msg("publish failed")
				return
			}
			log.Info().Str("host", tg.HostID).Str("tour", tg.TourCode).Msg("publish ok")
		}(tg)
	}

	wg.Wait()
	log.Info().Msg("publishing completed")
}

// publishTour snapshots one tour and its default-option extras from the
// reservation system into the local store.
func publishTour(ctx context.Context, api domain.ReservationAPI, store *app.TourStore, tg shared.PublishTarget) error {
	tour, err := api.ReadTour(ctx, tg.HostID, tg.TourCode)
	if err != nil {
		return err
	}

	var extras []domain.TourExtra
	if opts, ok := tour.DefaultOptions(); ok {
		extras, err = api.ReadExtras(ctx, tg.HostID, tg.TourCode, opts.BasisID, opts.SubbasisID, opts.TimeID)
		if err != nil {
			// a tour without a readable extras list is still publishable
			log.Warn().Str("tour", tg.TourCode).Err(err).Msg("extras read failed, publishing without")
			extras = nil
		}
	}
	return store.SaveTourData(ctx, tour.TourCode, tour, extras)
}
