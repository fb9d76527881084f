package worker

// low_stock_worker.go
// Handles sale.committed: drops the cached dashboard stats and emails an alert
// for every sold variant that fell to or below the low-stock threshold.
// Alerts are de-duplicated across instances with a Redis lock per variant
// that lives for the configured cooldown.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sachero10/backend-tienda-ropa/internal/infra"
	"github.com/sachero10/backend-tienda-ropa/internal/model"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// VariantSource is the read side the alerts need.
type VariantSource interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Variant, error)
	ListLowStock(ctx context.Context, threshold int) ([]model.Variant, error)
}

// AlertSender delivers alert emails.
type AlertSender interface {
	Enabled() bool
	Send(to []string, subject, body string, attachments ...infra.Attachment) error
}

// Cooldown claims a key for ttl. ok is false while another holder has it.
type Cooldown interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// RedisCooldown implements Cooldown with bsm/redislock. The lock is simply
// left to expire; it is released early only when the alert could not be sent.
type RedisCooldown struct {
	locker *redislock.Client
}

func NewRedisCooldown(rdb *redis.Client) *RedisCooldown {
	return &RedisCooldown{locker: redislock.New(rdb)}
}

func (c *RedisCooldown) Claim(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	lock, err := c.locker.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return lock.Release, true, nil
}

type LowStockConfig struct {
	Threshold int
	Cooldown  time.Duration
	AlertTo   string
	StoreName string
}

// LowStockWorker is registered for JobSaleCommitted.
type LowStockWorker struct {
	variants VariantSource
	mailer   AlertSender
	cooldown Cooldown
	rdb      *redis.Client // optional; cache invalidation only
	cfg      LowStockConfig
}

func NewLowStockWorker(variants VariantSource, mailer AlertSender, cooldown Cooldown, rdb *redis.Client, cfg LowStockConfig) *LowStockWorker {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Hour
	}
	return &LowStockWorker{variants: variants, mailer: mailer, cooldown: cooldown, rdb: rdb, cfg: cfg}
}

// HandleSaleCommitted is the Handler for JobSaleCommitted.
func (w *LowStockWorker) HandleSaleCommitted(ctx context.Context, raw json.RawMessage) error {
	var payload SaleCommittedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		// Retrying cannot fix a bad payload.
		log.Error().Err(err).Msg("low_stock_worker: invalid payload")
		return nil
	}

	if w.rdb != nil {
		if err := w.rdb.Del(ctx, infra.CacheKeyDashboardStats).Err(); err != nil {
			log.Warn().Err(err).Msg("low_stock_worker: failed to drop stats cache")
		}
	}

	variants, err := w.variants.ListByIDs(ctx, payload.VariantIDs)
	if err != nil {
		return fmt.Errorf("load sold variants: %w", err)
	}
	low := make([]model.Variant, 0, len(variants))
	for _, v := range variants {
		if v.Stock <= w.cfg.Threshold {
			low = append(low, v)
		}
	}
	return w.alert(ctx, low, fmt.Sprintf("after sale %s", payload.SaleID))
}

// Sweep alerts on every live variant at or below the threshold.
func (w *LowStockWorker) Sweep(ctx context.Context) error {
	variants, err := w.variants.ListLowStock(ctx, w.cfg.Threshold)
	if err != nil {
		return fmt.Errorf("list low stock: %w", err)
	}
	return w.alert(ctx, variants, "periodic check")
}

func (w *LowStockWorker) alert(ctx context.Context, variants []model.Variant, trigger string) error {
	if len(variants) == 0 {
		return nil
	}
	if w.mailer == nil || !w.mailer.Enabled() || w.cfg.AlertTo == "" {
		log.Info().Int("variants", len(variants)).Str("trigger", trigger).Msg("low_stock_worker: alerts disabled, skipping email")
		return nil
	}

	var (
		claimed  []model.Variant
		releases []func(context.Context) error
	)
	for _, v := range variants {
		release, ok, err := w.cooldown.Claim(ctx, "lowstock:"+v.ID.String(), w.cfg.Cooldown)
		if err != nil {
			log.Warn().Err(err).Str("sku", v.SKU).Msg("low_stock_worker: cooldown unavailable")
			continue
		}
		if !ok {
			continue
		}
		claimed = append(claimed, v)
		releases = append(releases, release)
	}
	if len(claimed) == 0 {
		return nil
	}

	subject, body := lowStockMessage(w.cfg.StoreName, w.cfg.Threshold, trigger, claimed)
	if err := w.mailer.Send([]string{w.cfg.AlertTo}, subject, body); err != nil {
		for _, release := range releases {
			_ = release(context.WithoutCancel(ctx))
		}
		return err
	}
	log.Info().Int("variants", len(claimed)).Str("trigger", trigger).Msg("low_stock_worker: alert sent")
	return nil
}

func lowStockMessage(store string, threshold int, trigger string, variants []model.Variant) (string, string) {
	subject := fmt.Sprintf("[%s] %d variant(s) low on stock", store, len(variants))
	var b strings.Builder
	fmt.Fprintf(&b, "The following variants are at or below %d units (%s):\n\n", threshold, trigger)
	for _, v := range variants {
		name := ""
		if v.Product != nil {
			name = v.Product.Name + " "
		}
		fmt.Fprintf(&b, "  %-24s %s%s/%s: %d\n", v.SKU, name, v.Size, v.Color, v.Stock)
	}
	return subject, b.String()
}
