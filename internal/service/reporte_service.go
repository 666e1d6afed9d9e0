package service

import (
	"context"

	"clinicapos/internal/apierror"
	"clinicapos/internal/dto"
	"clinicapos/internal/model"
	"clinicapos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReporteService is read only.
type ReporteService interface {
	Dashboard(ctx context.Context) (*dto.DashboardResponse, error)
	ResumenTurno(ctx context.Context, id uuid.UUID) (*dto.CuadreResponse, error)
	EstadoResultados(ctx context.Context, desde, hasta model.Fecha) (*dto.EstadoResultadosResponse, error)
}

type reporteService struct {
	turnos       TurnoService
	banco        BancoService
	bancoRepo    repository.BancoRepository
	comisionRepo repository.ComisionRepository
}

func NewReporteService(
	turnos TurnoService,
	banco BancoService,
	bancoRepo repository.BancoRepository,
	comisionRepo repository.ComisionRepository,
) ReporteService {
	return &reporteService{turnos: turnos, banco: banco, bancoRepo: bancoRepo, comisionRepo: comisionRepo}
}

func (s *reporteService) Dashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	cuadre, err := s.turnos.CuadreEnVivo(ctx)
	if err != nil {
		return nil, err
	}
	saldo, activo, err := s.banco.Saldo(ctx)
	if err != nil {
		return nil, err
	}
	pendientes, err := s.comisionRepo.PendientesPorMedico(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.DashboardResponse{
		TurnoActivo:          cuadre,
		SaldoBanco:           saldo,
		SaldoInicialActivo:   activo,
		ComisionesPendientes: make([]dto.ComisionPendienteResponse, 0, len(pendientes)),
		TotalComisiones:      decimal.Zero,
	}
	for _, p := range pendientes {
		resp.ComisionesPendientes = append(resp.ComisionesPendientes, dto.ComisionPendienteResponse{
			MedicoID: p.MedicoID.String(),
			Nombre:   p.Nombre,
			Items:    p.Items,
			Total:    p.Total,
		})
		resp.TotalComisiones = resp.TotalComisiones.Add(p.Total)
	}
	return resp, nil
}

func (s *reporteService) ResumenTurno(ctx context.Context, id uuid.UUID) (*dto.CuadreResponse, error) {
	t, err := s.turnos.Obtener(ctx, id)
	if err != nil {
		return nil, err
	}
	return t.Cuadre, nil
}

// EstadoResultados groups ledger income and expenses by classification.
func (s *reporteService) EstadoResultados(ctx context.Context, desde, hasta model.Fecha) (*dto.EstadoResultadosResponse, error) {
	if desde.IsZero() || hasta.IsZero() || desde.After(hasta) {
		return nil, apierror.ErrInvalidDateRange
	}
	filas, err := s.bancoRepo.TotalesPorClasificacion(ctx, desde, hasta)
	if err != nil {
		return nil, err
	}

	resp := &dto.EstadoResultadosResponse{
		Desde:         desde,
		Hasta:         hasta,
		Ingresos:      []dto.LineaResultado{},
		Egresos:       []dto.LineaResultado{},
		TotalIngresos: decimal.Zero,
		TotalEgresos:  decimal.Zero,
	}
	for _, f := range filas {
		if f.Ingreso.IsPositive() {
			resp.Ingresos = append(resp.Ingresos, dto.LineaResultado{Clasificacion: f.Clasificacion, Monto: f.Ingreso})
			resp.TotalIngresos = resp.TotalIngresos.Add(f.Ingreso)
		}
		if f.Egreso.IsPositive() {
			resp.Egresos = append(resp.Egresos, dto.LineaResultado{Clasificacion: f.Clasificacion, Monto: f.Egreso})
			resp.TotalEgresos = resp.TotalEgresos.Add(f.Egreso)
		}
	}
	resp.ResultadoNeto = resp.TotalIngresos.Sub(resp.TotalEgresos)
	return resp, nil
}
