package worker

// retry_cron.go
// Background goroutine that periodically re-checks the whole catalog for low
// stock, catching variants that dropped through manual adjustments or whose
// post-sale alert ended in the DLQ. Skips ticks while the mailer circuit is open.

import (
	"context"
	"time"

	"github.com/sachero10/backend-tienda-ropa/internal/infra"

	"github.com/rs/zerolog/log"
)

const defaultSweepInterval = 15 * time.Minute

// SweepCronConfig holds all dependencies for the sweep goroutine.
type SweepCronConfig struct {
	Worker   *LowStockWorker
	Breaker  func() infra.BreakerState
	Interval time.Duration
}

// StartLowStockSweep launches the ticker. It respects ctx for graceful shutdown.
func StartLowStockSweep(ctx context.Context, cfg SweepCronConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("low_stock_sweep: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("low_stock_sweep: shutting down")
				return
			case <-ticker.C:
				runSweep(ctx, cfg)
			}
		}
	}()
}

func runSweep(ctx context.Context, cfg SweepCronConfig) {
	if cfg.Breaker != nil && cfg.Breaker() == infra.BreakerOpen {
		log.Debug().Msg("low_stock_sweep: mailer circuit is open, skipping tick")
		return
	}
	if err := cfg.Worker.Sweep(ctx); err != nil {
		log.Error().Err(err).Msg("low_stock_sweep: failed")
	}
}
