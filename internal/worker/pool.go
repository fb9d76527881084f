package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueSales = "jobs:sales"

	JobSaleCommitted = "sale.committed"

	// MaxAttempts is how many times a job runs before it lands in the DLQ.
	MaxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// SaleCommittedPayload is published once per committed sale.
type SaleCommittedPayload struct {
	SaleID     uuid.UUID   `json:"sale_id"`
	VariantIDs []uuid.UUID `json:"variant_ids"`
}

// Handler processes one job payload. A returned error schedules a retry.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueSaleCommitted announces a committed sale to the workers.
func (d *Dispatcher) EnqueueSaleCommitted(ctx context.Context, saleID uuid.UUID, variantIDs []uuid.UUID) error {
	return d.enqueue(ctx, QueueSales, Job{Type: JobSaleCommitted}, SaleCommittedPayload{SaleID: saleID, VariantIDs: variantIDs})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue string, job Job, payload interface{}) error {
	if d == nil || d.rdb == nil {
		return errors.New("dispatcher: redis not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job.Payload = data
	return d.push(ctx, queue, job)
}

func (d *Dispatcher) push(ctx context.Context, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Pool consumes QueueSales with a fixed number of goroutines.
type Pool struct {
	rdb      *redis.Client
	dlq      *DeadLetters
	handlers map[string]Handler
	wg       sync.WaitGroup
}

func NewPool(rdb *redis.Client) *Pool {
	return &Pool{rdb: rdb, dlq: NewDeadLetters(rdb), handlers: map[string]Handler{}}
}

// Handle registers the handler for a job type.
func (p *Pool) Handle(jobType string, h Handler) { p.handlers[jobType] = h }

// Start launches numWorkers goroutines. Each blocks on BRPOP, zero CPU when idle.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

// Wait blocks until every worker has returned after ctx was cancelled.
func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, QueueSales).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			p.process(ctx, result[0], result[1])
		}
	}
}

func (p *Pool) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		quoted, _ := json.Marshal(raw)
		p.dlq.Park(ctx, queue, Job{Type: "unknown", Payload: quoted}, "malformed envelope")
		return
	}
	h, ok := p.handlers[job.Type]
	if !ok {
		log.Warn().Str("type", job.Type).Msg("no handler registered")
		p.dlq.Park(ctx, queue, job, "no handler registered")
		return
	}

	job.Attempts++
	if err := h(ctx, job.Payload); err != nil {
		if job.Attempts >= MaxAttempts {
			p.dlq.Park(ctx, queue, job, err.Error())
			return
		}
		log.Warn().Err(err).Str("type", job.Type).Int("attempts", job.Attempts).Msg("job failed, requeueing")
		if err := (&Dispatcher{rdb: p.rdb}).push(ctx, queue, job); err != nil {
			log.Error().Err(err).Str("type", job.Type).Msg("failed to requeue job")
		}
		return
	}
	log.Debug().Str("type", job.Type).Str("queue", queue).Msg("job processed")
}
