package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinicapos/internal/config"
	"clinicapos/internal/efectivo"
	"clinicapos/internal/handler"
	"clinicapos/internal/infra"
	"clinicapos/internal/repository"
	"clinicapos/internal/router"
	"clinicapos/internal/service"
	"clinicapos/internal/worker"

	"github.com/bsm/redislock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: console in dev, JSON in prod
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	contador, err := efectivo.NuevoContador(cfg.DenominacionesBilletes, cfg.DenominacionesMonedas)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid denominations")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL, cfg.Env != "production")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if err := infra.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := infra.NewMetrics()
	mailer := infra.NewMailer(cfg, metrics)
	dispatcher := worker.NewDispatcher(rdb, cfg.NotifyEmail)

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	turnoRepo := repository.NewTurnoRepository(db)
	ventaRepo := repository.NewVentaRepository(db)
	bancoRepo := repository.NewBancoRepository(db)
	medicoRepo := repository.NewMedicoRepository(db)
	comisionRepo := repository.NewComisionRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	params := service.ParametrosCuadre{
		Tolerancia: cfg.ToleranciaDescuadre,
		Tasas: service.TasasImpuesto{
			Efectivo:      cfg.TasaImpuestoEfectivo,
			Tarjeta:       cfg.TasaImpuestoTarjeta,
			Transferencia: cfg.TasaImpuestoTransferencia,
			Deposito:      cfg.TasaImpuestoDeposito,
		},
	}
	bancoSvc := service.NewBancoService(bancoRepo, metrics)
	turnoSvc := service.NewTurnoService(turnoRepo, bancoSvc, contador, params, dispatcher, metrics)
	svcs := router.Services{
		Auth:     service.NewAuthService(usuarioRepo, cfg),
		Turnos:   turnoSvc,
		Ventas:   service.NewVentaService(ventaRepo, turnoRepo, medicoRepo, bancoSvc),
		Banco:    bancoSvc,
		Medicos:  service.NewMedicoService(medicoRepo),
		Comision: service.NewComisionService(comisionRepo, turnoRepo, bancoSvc, dispatcher, metrics),
	}
	svcs.Reportes = service.NewReporteService(turnoSvc, bancoSvc, bancoRepo, comisionRepo)

	// ── Background work ──────────────────────────────────────────────────────
	pool := worker.NewPool(rdb, map[string]worker.Processor{
		worker.JobNotificacion: worker.NewNotificacionWorker(mailer),
	}, metrics)
	pool.Start(ctx, cfg.WorkerPoolSize)

	auditoria := worker.NewAuditoria(bancoSvc, redislock.New(rdb))
	if err := auditoria.Start(ctx, cfg.AuditoriaCron); err != nil {
		log.Fatal().Err(err).Str("cron", cfg.AuditoriaCron).Msg("invalid audit schedule")
	}

	r := router.New(cfg, svcs, router.Infra{
		Checks: map[string]handler.Check{
			"db":    handler.DBCheck(db),
			"redis": handler.RedisCheck(rdb),
		},
		BreakerState: mailer.BreakerState,
		Metrics:      metrics,
		DLQ:          handler.DLQ(rdb),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("clinicapos backend listening on :%d", cfg.Port)
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
	pool.Wait()
	log.Info().Msg("server exited")
}
