package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sachero10/backend-tienda-ropa/internal/config"
	"github.com/sachero10/backend-tienda-ropa/internal/infra"
	"github.com/sachero10/backend-tienda-ropa/internal/repository"
	"github.com/sachero10/backend-tienda-ropa/internal/router"
	"github.com/sachero10/backend-tienda-ropa/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title                      Tienda de Ropa API
// @version                    1.0
// @description                Catalog, inventory and point-of-sale backend.
// @BasePath                   /api
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger. dev: pretty, prod: JSON
	if cfg.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(infra.DatabaseOptions{
		Driver:  cfg.DBDriver,
		DSN:     cfg.DatabaseURL,
		Tracing: cfg.TracingEnabled,
		Verbose: cfg.Env == "development",
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to connect to database")
	}
	if cfg.DBAutoMigrate {
		if err := infra.RunMigrations(db); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
	}

	var rdb *redis.Client
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rdb, err = infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
	} else {
		log.Warn().Msg("REDIS_URL empty: background jobs and shared rate limits disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailer := infra.NewMailer(cfg)

	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	var pool *worker.Pool
	if rdb != nil {
		lowStock := worker.NewLowStockWorker(
			repository.NewVariantRepository(db),
			mailer,
			worker.NewRedisCooldown(rdb),
			rdb,
			worker.LowStockConfig{
				Threshold: cfg.LowStockThreshold,
				Cooldown:  cfg.LowStockAlertCooldown(),
				AlertTo:   cfg.AlertEmail,
				StoreName: cfg.StoreName,
			},
		)
		pool = worker.NewPool(rdb)
		pool.Handle(worker.JobSaleCommitted, lowStock.HandleSaleCommitted)
		pool.Start(ctx, cfg.WorkerPoolSize)

		worker.StartLowStockSweep(ctx, worker.SweepCronConfig{
			Worker:  lowStock,
			Breaker: mailer.BreakerState,
		})
	}

	r := router.New(cfg, db, rdb, mailer)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("tienda backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	if pool != nil {
		pool.Wait()
	}
	log.Info().Msg("server exited")
}
