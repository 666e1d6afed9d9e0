package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"clinicapos/internal/apierror"
	"clinicapos/internal/dto"
	"clinicapos/internal/infra"
	"clinicapos/internal/model"
	"clinicapos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MovimientoFiltro narrows a ledger listing. Zero values mean no filter.
type MovimientoFiltro struct {
	Desde         *model.Fecha
	Hasta         *model.Fecha
	Clasificacion string
}

type BancoService interface {
	RegistrarSaldoInicial(ctx context.Context, usuarioID uuid.UUID, monto decimal.Decimal) (*dto.SaldoInicialResponse, error)
	ListarSaldosIniciales(ctx context.Context) ([]dto.SaldoInicialResponse, error)

	Agregar(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoRequest) (*dto.MovimientoResponse, error)
	Actualizar(ctx context.Context, id int64, req dto.ActualizarMovimientoRequest) (*dto.MovimientoResponse, error)
	Eliminar(ctx context.Context, id int64) error
	Recalcular(ctx context.Context) (*dto.RecalculoResponse, error)
	Listar(ctx context.Context, f MovimientoFiltro) ([]dto.MovimientoResponse, error)

	// Saldo is the last running balance, or the initial balance on an empty
	// ledger. ok is false when no initial balance is active.
	Saldo(ctx context.Context) (saldo decimal.Decimal, ok bool, err error)
	// Auditar re-walks the ledger without writing and returns how many rows
	// carry a stale running balance.
	Auditar(ctx context.Context) (int, error)

	// AgregarTx mirrors an operation into the ledger inside the caller's
	// transaction. A row with the same ClaveOrigen is left as is.
	AgregarTx(ctx context.Context, tx *gorm.DB, m *model.MovimientoBanco) error
	// EliminarPorOrigenTx removes the mirror of an operation, if any.
	EliminarPorOrigenTx(ctx context.Context, tx *gorm.DB, clave string) error
}

type bancoService struct {
	repo    repository.BancoRepository
	metrics *infra.Metrics
	now     func() time.Time
}

func NewBancoService(repo repository.BancoRepository, metrics *infra.Metrics) BancoService {
	return &bancoService{repo: repo, metrics: metrics, now: time.Now}
}

// Source keys of mirrored ledger rows.
func claveVenta(id uuid.UUID) string    { return "venta:" + id.String() }
func claveGasto(id uuid.UUID) string    { return "gasto:" + id.String() }
func claveComision(id uuid.UUID) string { return "comision:" + id.String() }

// recalcularSaldos sorts movs by (fecha, id) in place and walks them from
// inicial. It returns only the rows whose stored balance differs, plus the
// closing balance.
func recalcularSaldos(inicial decimal.Decimal, movs []model.MovimientoBanco) (map[int64]decimal.Decimal, decimal.Decimal) {
	sort.SliceStable(movs, func(i, j int) bool {
		if c := movs[i].Fecha.Compare(movs[j].Fecha); c != 0 {
			return c < 0
		}
		return movs[i].ID < movs[j].ID
	})

	cambios := make(map[int64]decimal.Decimal)
	saldo := inicial
	for i := range movs {
		saldo = saldo.Add(movs[i].Ingreso).Sub(movs[i].Egreso)
		if !movs[i].SaldoCorrido.Equal(saldo) {
			cambios[movs[i].ID] = saldo
			movs[i].SaldoCorrido = saldo
		}
	}
	return cambios, saldo
}

func validarMontos(ingreso, egreso decimal.Decimal) error {
	if ingreso.IsNegative() || egreso.IsNegative() {
		return apierror.ErrInvalidAmount.WithMessage("Los montos no pueden ser negativos")
	}
	if ingreso.IsPositive() == egreso.IsPositive() {
		return apierror.ErrInvalidAmount.WithMessage("Exactamente uno de ingreso o egreso debe ser mayor a cero")
	}
	return nil
}

func direccion(ingreso decimal.Decimal) string {
	if ingreso.IsPositive() {
		return model.DireccionIngreso
	}
	return model.DireccionEgreso
}

// ── Saldo inicial ─────────────────────────────────────────────────────────────

func (s *bancoService) RegistrarSaldoInicial(ctx context.Context, usuarioID uuid.UUID, monto decimal.Decimal) (*dto.SaldoInicialResponse, error) {
	saldo := &model.SaldoInicial{
		Monto:         dec2(monto),
		RegistradoPor: usuarioID,
		Activo:        true,
	}
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.LockLedger(ctx, tx); err != nil {
			return err
		}
		if err := s.repo.DesactivarSaldosIniciales(ctx, tx, s.now()); err != nil {
			return err
		}
		if err := s.repo.CreateSaldoInicial(ctx, tx, saldo); err != nil {
			return err
		}
		_, err := s.recalcularTx(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("saldo_inicial_id", saldo.ID.String()).Str("monto", saldo.Monto.String()).Msg("saldo inicial registrado")
	resp := saldoInicialToResponse(saldo)
	return &resp, nil
}

func (s *bancoService) ListarSaldosIniciales(ctx context.Context) ([]dto.SaldoInicialResponse, error) {
	saldos, err := s.repo.ListSaldosIniciales(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SaldoInicialResponse, len(saldos))
	for i := range saldos {
		out[i] = saldoInicialToResponse(&saldos[i])
	}
	return out, nil
}

// ── Mutaciones ────────────────────────────────────────────────────────────────

// mutarTx runs fn under the ledger lock and recomputes afterwards, all in one tx.
// Without an active initial balance nothing is written.
func (s *bancoService) mutarTx(ctx context.Context, tx *gorm.DB, fn func() error) error {
	if err := s.repo.LockLedger(ctx, tx); err != nil {
		return err
	}
	if _, err := s.saldoInicialTx(ctx, tx); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	_, err := s.recalcularTx(ctx, tx)
	return err
}

func (s *bancoService) Agregar(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoRequest) (*dto.MovimientoResponse, error) {
	if req.Fecha.IsZero() {
		return nil, apierror.NewValidation(map[string]string{"fecha": "required"})
	}
	m := &model.MovimientoBanco{
		Fecha:         req.Fecha,
		Beneficiario:  req.Beneficiario,
		Descripcion:   req.Descripcion,
		Clasificacion: req.Clasificacion,
		Ingreso:       dec2(req.Ingreso),
		Egreso:        dec2(req.Egreso),
		RegistradoPor: usuarioID,
	}
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.AgregarTx(ctx, tx, m)
	})
	if err != nil {
		return nil, err
	}
	if fresh, err := s.repo.FindByID(ctx, nil, m.ID); err == nil {
		m = fresh
	}
	resp := movimientoToResponse(m)
	return &resp, nil
}

func (s *bancoService) AgregarTx(ctx context.Context, tx *gorm.DB, m *model.MovimientoBanco) error {
	if err := validarMontos(m.Ingreso, m.Egreso); err != nil {
		return err
	}
	m.Direccion = direccion(m.Ingreso)
	return s.mutarTx(ctx, tx, func() error {
		if m.ClaveOrigen != nil {
			existente, err := s.repo.FindByClaveOrigen(ctx, tx, *m.ClaveOrigen)
			if err == nil {
				*m = *existente
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		return s.repo.Create(ctx, tx, m)
	})
}

func (s *bancoService) Actualizar(ctx context.Context, id int64, req dto.ActualizarMovimientoRequest) (*dto.MovimientoResponse, error) {
	var m *model.MovimientoBanco
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.mutarTx(ctx, tx, func() error {
			var err error
			m, err = s.repo.FindByID(ctx, tx, id)
			if err != nil {
				return notFound(err, "movimiento_id", strconv.FormatInt(id, 10))
			}
			if m.ClaveOrigen != nil {
				return apierror.ErrMirroredEntry.WithDetail("clave_origen", *m.ClaveOrigen)
			}
			if req.Fecha != nil {
				if req.Fecha.IsZero() {
					return apierror.NewValidation(map[string]string{"fecha": "required"})
				}
				m.Fecha = *req.Fecha
			}
			if req.Beneficiario != nil {
				m.Beneficiario = *req.Beneficiario
			}
			if req.Descripcion != nil {
				m.Descripcion = *req.Descripcion
			}
			if req.Clasificacion != nil {
				m.Clasificacion = *req.Clasificacion
			}
			if req.Ingreso != nil {
				m.Ingreso = dec2(*req.Ingreso)
			}
			if req.Egreso != nil {
				m.Egreso = dec2(*req.Egreso)
			}
			if err := validarMontos(m.Ingreso, m.Egreso); err != nil {
				return err
			}
			m.Direccion = direccion(m.Ingreso)
			return s.repo.Update(ctx, tx, m)
		})
	})
	if err != nil {
		return nil, err
	}
	// The recompute may have moved this row's balance.
	if fresh, err := s.repo.FindByID(ctx, nil, id); err == nil {
		m = fresh
	}
	resp := movimientoToResponse(m)
	return &resp, nil
}

func (s *bancoService) Eliminar(ctx context.Context, id int64) error {
	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.mutarTx(ctx, tx, func() error {
			m, err := s.repo.FindByID(ctx, tx, id)
			if err != nil {
				return notFound(err, "movimiento_id", strconv.FormatInt(id, 10))
			}
			if m.ClaveOrigen != nil {
				return apierror.ErrMirroredEntry.WithDetail("clave_origen", *m.ClaveOrigen)
			}
			return s.repo.Delete(ctx, tx, id)
		})
	})
}

func (s *bancoService) EliminarPorOrigenTx(ctx context.Context, tx *gorm.DB, clave string) error {
	return s.mutarTx(ctx, tx, func() error {
		m, err := s.repo.FindByClaveOrigen(ctx, tx, clave)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, m.ID)
	})
}

// ── Recalculo ─────────────────────────────────────────────────────────────────

func (s *bancoService) Recalcular(ctx context.Context) (*dto.RecalculoResponse, error) {
	var resp *dto.RecalculoResponse
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.LockLedger(ctx, tx); err != nil {
			return err
		}
		var err error
		resp, err = s.recalcularTx(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Int("filas", resp.Filas).Int("actualizadas", resp.Actualizadas).Msg("ledger recalculado")
	return resp, nil
}

// recalcularTx expects the ledger lock to be held by tx.
func (s *bancoService) recalcularTx(ctx context.Context, tx *gorm.DB) (*dto.RecalculoResponse, error) {
	inicial, err := s.saldoInicialTx(ctx, tx)
	if err != nil {
		return nil, err
	}
	movs, err := s.repo.ListOrdenados(ctx, tx)
	if err != nil {
		return nil, err
	}
	cambios, final := recalcularSaldos(inicial.Monto, movs)
	if len(cambios) > 0 {
		if err := s.repo.UpdateSaldos(ctx, tx, cambios); err != nil {
			return nil, err
		}
	}
	s.metrics.RecordRecalculo(len(movs))
	return &dto.RecalculoResponse{Filas: len(movs), Actualizadas: len(cambios), SaldoFinal: final}, nil
}

func (s *bancoService) saldoInicialTx(ctx context.Context, tx *gorm.DB) (*model.SaldoInicial, error) {
	ini, err := s.repo.FindSaldoInicialActivo(ctx, tx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.ErrMissingInitialBalance
	}
	return ini, err
}

func (s *bancoService) Auditar(ctx context.Context) (int, error) {
	inicial, err := s.saldoInicialTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	movs, err := s.repo.ListOrdenados(ctx, nil)
	if err != nil {
		return 0, err
	}
	cambios, _ := recalcularSaldos(inicial.Monto, movs)
	for id, esperado := range cambios {
		log.Warn().Int64("movimiento_id", id).Str("saldo_esperado", esperado.String()).Msg("saldo corrido desalineado")
	}
	s.metrics.SetAuditoriaDesvios(len(cambios))
	return len(cambios), nil
}

// ── Lecturas ──────────────────────────────────────────────────────────────────

func (s *bancoService) Listar(ctx context.Context, f MovimientoFiltro) ([]dto.MovimientoResponse, error) {
	var (
		movs []model.MovimientoBanco
		err  error
	)
	switch {
	case f.Desde != nil || f.Hasta != nil:
		desde, hasta, rerr := rangoAbierto(f.Desde, f.Hasta)
		if rerr != nil {
			return nil, rerr
		}
		movs, err = s.repo.ListByRango(ctx, desde, hasta)
		if err == nil && f.Clasificacion != "" {
			movs = filtrarClasificacion(movs, f.Clasificacion)
		}
	case f.Clasificacion != "":
		movs, err = s.repo.ListByClasificacion(ctx, f.Clasificacion)
	default:
		movs, err = s.repo.ListOrdenados(ctx, nil)
	}
	if err != nil {
		return nil, err
	}
	out := make([]dto.MovimientoResponse, len(movs))
	for i := range movs {
		out[i] = movimientoToResponse(&movs[i])
	}
	return out, nil
}

// rangoAbierto fills a missing bound with a far date and checks order.
func rangoAbierto(desde, hasta *model.Fecha) (model.Fecha, model.Fecha, error) {
	d := model.NuevaFecha(1900, time.January, 1)
	h := model.NuevaFecha(9999, time.December, 31)
	if desde != nil {
		d = *desde
	}
	if hasta != nil {
		h = *hasta
	}
	if d.After(h) {
		return d, h, apierror.ErrInvalidDateRange
	}
	return d, h, nil
}

func filtrarClasificacion(movs []model.MovimientoBanco, clasificacion string) []model.MovimientoBanco {
	out := movs[:0]
	for _, m := range movs {
		if m.Clasificacion == clasificacion {
			out = append(out, m)
		}
	}
	return out
}

func (s *bancoService) Saldo(ctx context.Context) (decimal.Decimal, bool, error) {
	inicial, err := s.saldoInicialTx(ctx, nil)
	if errors.Is(err, apierror.ErrMissingInitialBalance) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	ultimo, err := s.repo.Ultimo(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return inicial.Monto, true, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return ultimo.SaldoCorrido, true, nil
}

// ── Mapping ───────────────────────────────────────────────────────────────────

func movimientoToResponse(m *model.MovimientoBanco) dto.MovimientoResponse {
	return dto.MovimientoResponse{
		ID:            m.ID,
		Fecha:         m.Fecha,
		Beneficiario:  m.Beneficiario,
		Descripcion:   m.Descripcion,
		Clasificacion: m.Clasificacion,
		Direccion:     m.Direccion,
		Ingreso:       m.Ingreso,
		Egreso:        m.Egreso,
		SaldoCorrido:  m.SaldoCorrido,
		ClaveOrigen:   m.ClaveOrigen,
		RegistradoPor: m.RegistradoPor.String(),
	}
}

func saldoInicialToResponse(s *model.SaldoInicial) dto.SaldoInicialResponse {
	resp := dto.SaldoInicialResponse{
		ID:            s.ID.String(),
		Monto:         s.Monto,
		RegistradoPor: s.RegistradoPor.String(),
		Activo:        s.Activo,
		CreatedAt:     s.CreatedAt.Format(time.RFC3339),
	}
	if s.DesactivadoAt != nil {
		resp.DesactivadoAt = strPtr(s.DesactivadoAt.Format(time.RFC3339))
	}
	return resp
}
