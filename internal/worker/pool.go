package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"clinicapos/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueNotificaciones = "jobs:notificaciones"

	// MaxAttempts is how many times a job is tried before it goes to the DLQ.
	MaxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ErrPermanente marks failures that retrying cannot fix. The job goes
// straight to the DLQ.
var ErrPermanente = errors.New("fallo permanente")

// Processor handles one job type. A returned error triggers a retry.
type Processor interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// ── Dispatcher ───────────────────────────────────────────────────────────────

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb     *redis.Client
	destino string
}

// NewDispatcher returns a dispatcher that addresses notices to destino.
// An empty destino turns Notificar into a no-op.
func NewDispatcher(rdb *redis.Client, destino string) *Dispatcher {
	return &Dispatcher{rdb: rdb, destino: destino}
}

// Notificar enqueues an e-mail notice. It never waits for delivery.
func (d *Dispatcher) Notificar(ctx context.Context, asunto, cuerpo string) error {
	if d.destino == "" {
		return nil
	}
	return d.enqueue(ctx, QueueNotificaciones, JobNotificacion, NotificacionPayload{
		Para:   d.destino,
		Asunto: asunto,
		Cuerpo: cuerpo,
	})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// ── Pool ─────────────────────────────────────────────────────────────────────

// Pool consumes the job queues with a fixed number of goroutines.
type Pool struct {
	rdb        *redis.Client
	processors map[string]Processor
	metrics    *infra.Metrics
	backoff    time.Duration
	wg         sync.WaitGroup

	deadLetter func(ctx context.Context, queue string, job Job, reason string, attempts int)
}

func NewPool(rdb *redis.Client, processors map[string]Processor, metrics *infra.Metrics) *Pool {
	p := &Pool{rdb: rdb, processors: processors, metrics: metrics, backoff: time.Second}
	p.deadLetter = func(ctx context.Context, queue string, job Job, reason string, attempts int) {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, reason, attempts)
		metrics.RecordDLQ()
	}
	return p
}

// Start launches numWorkers goroutines. Each blocks on BRPOP, so idle
// workers cost no CPU.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
	log.Info().Int("workers", numWorkers).Msg("worker pool started")
}

// Wait blocks until every worker has returned after ctx cancellation.
func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		default:
		}
		// Waits up to 5s then loops to check ctx.
		result, err := p.rdb.BRPop(ctx, 5*time.Second, QueueNotificaciones).Result()
		if err != nil || len(result) < 2 {
			continue
		}
		p.handle(ctx, result[0], result[1])
	}
}

// handle runs one raw job with retries and dead-letters it on final failure.
func (p *Pool) handle(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		p.deadLetter(ctx, queue, Job{Type: "desconocido", Payload: json.RawMessage(fmt.Sprintf("%q", raw))}, "json invalido", 0)
		return
	}
	proc, ok := p.processors[job.Type]
	if !ok {
		p.deadLetter(ctx, queue, job, "tipo de job sin procesador", 0)
		return
	}

	attempts := 0
	err := withRetry(ctx, MaxAttempts, p.backoff, func() error {
		attempts++
		return proc.Process(ctx, job.Payload)
	})
	if err != nil {
		log.Error().Err(err).Str("type", job.Type).Int("attempts", attempts).Msg("job failed")
		p.deadLetter(ctx, queue, job, err.Error(), attempts)
		return
	}
	log.Debug().Str("type", job.Type).Int("attempts", attempts).Msg("job done")
}

// withRetry calls fn up to maxAttempts times with exponential backoff
// starting at base (attempt 1 immediate, then base, 2×base …).
func withRetry(ctx context.Context, maxAttempts int, base time.Duration, fn func() error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := base * time.Duration(1<<uint(i-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if lastErr = fn(); lastErr == nil || errors.Is(lastErr, ErrPermanente) {
			return lastErr
		}
	}
	return lastErr
}
