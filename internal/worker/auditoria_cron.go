package worker

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	auditoriaLockKey = "lock:auditoria-banco"
	auditoriaLockTTL = 10 * time.Minute
)

// Auditor re-walks the bank ledger read only and returns the drift count.
// Satisfied by service.BancoService.
type Auditor interface {
	Auditar(ctx context.Context) (int, error)
}

// Auditoria runs the ledger audit on a cron schedule. A Redis lock keeps it
// to one replica per tick.
type Auditoria struct {
	auditor Auditor
	cron    *cron.Cron
	// lock returns a release func, or redislock.ErrNotObtained when another
	// replica holds the key.
	lock func(ctx context.Context) (func(), error)
}

func NewAuditoria(auditor Auditor, locker *redislock.Client) *Auditoria {
	return &Auditoria{
		auditor: auditor,
		cron:    cron.New(),
		lock: func(ctx context.Context) (func(), error) {
			l, err := locker.Obtain(ctx, auditoriaLockKey, auditoriaLockTTL, nil)
			if err != nil {
				return nil, err
			}
			return func() {
				if err := l.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
					log.Warn().Err(err).Msg("auditoria: release lock")
				}
			}, nil
		},
	}
}

// Start schedules the audit with a standard 5-field spec (e.g. "0 3 * * *")
// and stops the scheduler when ctx is cancelled.
func (a *Auditoria) Start(ctx context.Context, spec string) error {
	if _, err := a.cron.AddFunc(spec, func() { a.Ejecutar(ctx) }); err != nil {
		return err
	}
	a.cron.Start()
	log.Info().Str("cron", spec).Msg("auditoria: scheduled")
	go func() {
		<-ctx.Done()
		<-a.cron.Stop().Done()
		log.Info().Msg("auditoria: stopped")
	}()
	return nil
}

// Ejecutar runs one audit if this replica wins the lock. It returns the drift
// count and whether the audit actually ran.
func (a *Auditoria) Ejecutar(ctx context.Context) (int, bool) {
	release, err := a.lock(ctx)
	if errors.Is(err, redislock.ErrNotObtained) {
		log.Debug().Msg("auditoria: another replica holds the lock")
		return 0, false
	}
	if err != nil {
		log.Error().Err(err).Msg("auditoria: obtain lock")
		return 0, false
	}
	defer release()

	start := time.Now()
	n, err := a.auditor.Auditar(ctx)
	if err != nil {
		log.Error().Err(err).Msg("auditoria: ledger audit failed")
		return 0, false
	}
	ev := log.Info()
	if n > 0 {
		ev = log.Warn()
	}
	ev.Int("desvios", n).Dur("duracion", time.Since(start)).Msg("auditoria: ledger audit done")
	return n, true
}
