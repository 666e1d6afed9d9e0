package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clinicapos/internal/apierror"
	"clinicapos/internal/dto"
	"clinicapos/internal/efectivo"
	"clinicapos/internal/infra"
	"clinicapos/internal/model"
	"clinicapos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TasasImpuesto are the withholding rates per payment channel.
type TasasImpuesto struct {
	Efectivo      decimal.Decimal
	Tarjeta       decimal.Decimal
	Transferencia decimal.Decimal
	Deposito      decimal.Decimal
}

// ParametrosCuadre configures the reconciliation. A discrepancy whose
// absolute value is <= Tolerancia does not need authorization.
type ParametrosCuadre struct {
	Tolerancia decimal.Decimal
	Tasas      TasasImpuesto
}

type TurnoService interface {
	Abrir(ctx context.Context, operadorID uuid.UUID, req dto.AbrirTurnoRequest) (*dto.TurnoResponse, error)
	Activo(ctx context.Context) (*dto.TurnoResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.TurnoResponse, error)
	Listar(ctx context.Context, filter dto.TurnoFilter) (*dto.TurnoListResponse, error)

	RegistrarGasto(ctx context.Context, usuarioID uuid.UUID, req dto.GastoRequest) (*dto.RegistroTurnoResponse, error)
	RegistrarVoucher(ctx context.Context, req dto.VoucherRequest) (*dto.RegistroTurnoResponse, error)
	RegistrarTransferencia(ctx context.Context, req dto.FolioRequest) (*dto.RegistroTurnoResponse, error)
	RegistrarDeposito(ctx context.Context, req dto.FolioRequest) (*dto.RegistroTurnoResponse, error)

	// PrevisualizarCierre computes the cuadre of the open shift against a
	// closing count without writing anything.
	PrevisualizarCierre(ctx context.Context, req dto.CuadreRequest) (*dto.CuadreResponse, error)
	// Cerrar closes the given shift, or the open one when id is nil.
	Cerrar(ctx context.Context, actor Actor, id *uuid.UUID, req dto.CerrarTurnoRequest) (*dto.TurnoResponse, error)
	// CuadreEnVivo is the open shift's cuadre with no closing count; nil when
	// no shift is open.
	CuadreEnVivo(ctx context.Context) (*dto.CuadreResponse, error)
}

type turnoService struct {
	repo        repository.TurnoRepository
	banco       BancoService
	contador    *efectivo.Contador
	params      ParametrosCuadre
	notificador Notificador
	metrics     *infra.Metrics
	now         func() time.Time
}

func NewTurnoService(
	repo repository.TurnoRepository,
	banco BancoService,
	contador *efectivo.Contador,
	params ParametrosCuadre,
	notificador Notificador,
	metrics *infra.Metrics,
) TurnoService {
	return &turnoService{
		repo:        repo,
		banco:       banco,
		contador:    contador,
		params:      params,
		notificador: notificador,
		metrics:     metrics,
		now:         time.Now,
	}
}

// calcularCuadre is the pure reconciliation of a shift. cierre is nil when
// there is no closing count yet, in which case the cash discrepancy is
// neither reported nor considered for authorization.
func calcularCuadre(t *model.Turno, tot *repository.TotalesTurno, cierre *decimal.Decimal, p ParametrosCuadre) dto.CuadreResponse {
	ventas := dto.MontosPorCanal{
		Efectivo:      tot.VentasEfectivo,
		Tarjeta:       tot.VentasTarjeta,
		Transferencia: tot.VentasTransferencia,
		Deposito:      tot.VentasDeposito,
	}
	ventas.Total = ventas.Efectivo.Add(ventas.Tarjeta).Add(ventas.Transferencia).Add(ventas.Deposito)

	impuestos := dto.MontosPorCanal{
		Efectivo:      dec2(ventas.Efectivo.Mul(p.Tasas.Efectivo)),
		Tarjeta:       dec2(ventas.Tarjeta.Mul(p.Tasas.Tarjeta)),
		Transferencia: dec2(ventas.Transferencia.Mul(p.Tasas.Transferencia)),
		Deposito:      dec2(ventas.Deposito.Mul(p.Tasas.Deposito)),
	}
	impuestos.Total = impuestos.Efectivo.Add(impuestos.Tarjeta).Add(impuestos.Transferencia).Add(impuestos.Deposito)

	esperado := t.MontoApertura.Add(tot.VentasEfectivo).Sub(tot.GastosEfectivo).Sub(tot.ComisionesEfectivo)

	c := dto.CuadreResponse{
		TurnoID:                 t.ID.String(),
		MontoApertura:           t.MontoApertura,
		Ventas:                  ventas,
		TotalVouchers:           tot.TotalVouchers,
		TotalTransferencias:     tot.TotalTransferencias,
		TotalDepositos:          tot.TotalDepositos,
		TotalGastos:             tot.TotalGastos,
		GastosEfectivo:          tot.GastosEfectivo,
		ComisionesEfectivo:      tot.ComisionesEfectivo,
		Impuestos:               impuestos,
		EfectivoEsperado:        esperado,
		DescuadreVouchers:       tot.TotalVouchers.Sub(tot.VentasTarjeta),
		DescuadreTransferencias: tot.TotalTransferencias.Sub(tot.VentasTransferencia),
		Tolerancia:              p.Tolerancia,
	}
	excede := func(d decimal.Decimal) bool { return d.Abs().GreaterThan(p.Tolerancia) }
	c.RequiereAutorizacion = excede(c.DescuadreVouchers) || excede(c.DescuadreTransferencias)
	if cierre != nil {
		c.MontoCierre = decPtr(*cierre)
		c.DescuadreEfectivo = decPtr(cierre.Sub(esperado))
		c.RequiereAutorizacion = c.RequiereAutorizacion || excede(*c.DescuadreEfectivo)
	}
	return c
}

func (s *turnoService) totalDesglose(d efectivo.Desglose) (decimal.Decimal, error) {
	total, err := s.contador.TotalDesglose(d)
	if err != nil {
		return decimal.Zero, apierror.ErrInvalidBreakdown.Wrap(err)
	}
	return total, nil
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *turnoService) Abrir(ctx context.Context, operadorID uuid.UUID, req dto.AbrirTurnoRequest) (*dto.TurnoResponse, error) {
	monto, err := s.totalDesglose(req.Desglose)
	if err != nil {
		return nil, err
	}
	t := &model.Turno{
		OperadorID:       operadorID,
		Estado:           model.TurnoAbierto,
		DesgloseApertura: req.Desglose,
		MontoApertura:    monto,
		OpenedAt:         s.now(),
	}
	// The partial unique index decides between concurrent opens.
	if err := s.repo.CreateTurno(ctx, nil, t); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			e := apierror.ErrShiftAlreadyOpen
			if abierto, ferr := s.repo.FindTurnoAbierto(ctx, nil, repository.LockNone); ferr == nil {
				e = e.WithDetail("turno_id", abierto.ID.String())
			}
			return nil, e
		}
		return nil, err
	}
	s.metrics.RecordTurnoAbierto()
	log.Info().Str("turno_id", t.ID.String()).Str("operador_id", operadorID.String()).
		Str("monto_apertura", monto.String()).Msg("turno abierto")
	return turnoToResponse(t, nil), nil
}

// ── Lecturas ──────────────────────────────────────────────────────────────────

func (s *turnoService) Activo(ctx context.Context) (*dto.TurnoResponse, error) {
	t, err := turnoAbiertoTx(ctx, s.repo, nil, repository.LockNone)
	if err != nil {
		return nil, err
	}
	return s.conCuadre(ctx, t)
}

func (s *turnoService) Obtener(ctx context.Context, id uuid.UUID) (*dto.TurnoResponse, error) {
	t, err := s.repo.FindTurnoByID(ctx, nil, id, repository.LockNone)
	if err != nil {
		return nil, notFound(err, "turno_id", id.String())
	}
	return s.conCuadre(ctx, t)
}

// conCuadre attaches the stored close figures, or live ones for an open shift.
func (s *turnoService) conCuadre(ctx context.Context, t *model.Turno) (*dto.TurnoResponse, error) {
	if t.Estado == model.TurnoCerrado {
		c := cuadreGuardado(t, s.params.Tolerancia)
		return turnoToResponse(t, &c), nil
	}
	tot, err := s.repo.Totales(ctx, nil, t.ID)
	if err != nil {
		return nil, err
	}
	c := calcularCuadre(t, tot, nil, s.params)
	return turnoToResponse(t, &c), nil
}

func (s *turnoService) Listar(ctx context.Context, filter dto.TurnoFilter) (*dto.TurnoListResponse, error) {
	turnos, total, err := s.repo.ListTurnos(ctx, repository.TurnoQuery{
		Estado: filter.Estado,
		Page:   filter.Page,
		Limit:  filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	resp := &dto.TurnoListResponse{Data: make([]dto.TurnoResponse, 0, len(turnos)), Total: total, Page: filter.Page, Limit: filter.Limit}
	for i := range turnos {
		var c *dto.CuadreResponse
		if turnos[i].Estado == model.TurnoCerrado {
			cg := cuadreGuardado(&turnos[i], s.params.Tolerancia)
			c = &cg
		}
		resp.Data = append(resp.Data, *turnoToResponse(&turnos[i], c))
	}
	return resp, nil
}

func (s *turnoService) CuadreEnVivo(ctx context.Context) (*dto.CuadreResponse, error) {
	t, err := turnoAbiertoTx(ctx, s.repo, nil, repository.LockNone)
	if errors.Is(err, apierror.ErrNoActiveShift) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tot, err := s.repo.Totales(ctx, nil, t.ID)
	if err != nil {
		return nil, err
	}
	c := calcularCuadre(t, tot, nil, s.params)
	return &c, nil
}

// ── Acumulaciones ─────────────────────────────────────────────────────────────

// enTurnoAbierto runs fn in a transaction that holds a share lock on the open
// shift, so a concurrent close waits for the accrual to commit.
func (s *turnoService) enTurnoAbierto(ctx context.Context, fn func(tx *gorm.DB, t *model.Turno) error) error {
	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		t, err := turnoAbiertoTx(ctx, s.repo, tx, repository.LockShare)
		if err != nil {
			return err
		}
		return fn(tx, t)
	})
}

func parseVentaID(raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, apierror.NewValidation(map[string]string{"venta_id": "uuid"})
	}
	return &id, nil
}

func (s *turnoService) RegistrarGasto(ctx context.Context, usuarioID uuid.UUID, req dto.GastoRequest) (*dto.RegistroTurnoResponse, error) {
	if !req.Monto.IsPositive() {
		return nil, apierror.ErrInvalidAmount
	}
	metodo := req.MetodoPago
	if metodo == "" {
		metodo = model.CanalEfectivo
	}
	g := &model.Gasto{
		Monto:         dec2(req.Monto),
		MetodoPago:    metodo,
		Clasificacion: req.Clasificacion,
		Descripcion:   req.Descripcion,
		Beneficiario:  req.Beneficiario,
		RegistradoPor: usuarioID,
	}
	err := s.enTurnoAbierto(ctx, func(tx *gorm.DB, t *model.Turno) error {
		g.TurnoID = t.ID
		if err := s.repo.CreateGasto(ctx, tx, g); err != nil {
			return err
		}
		clave := claveGasto(g.ID)
		return s.banco.AgregarTx(ctx, tx, &model.MovimientoBanco{
			Fecha:         model.FechaDe(s.now()),
			Beneficiario:  g.Beneficiario,
			Descripcion:   g.Descripcion,
			Clasificacion: g.Clasificacion,
			Egreso:        g.Monto,
			ClaveOrigen:   &clave,
			RegistradoPor: usuarioID,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("turno_id", g.TurnoID.String()).Str("gasto_id", g.ID.String()).Str("monto", g.Monto.String()).Msg("gasto registrado")
	return &dto.RegistroTurnoResponse{ID: g.ID.String(), TurnoID: g.TurnoID.String(), Monto: g.Monto}, nil
}

func (s *turnoService) RegistrarVoucher(ctx context.Context, req dto.VoucherRequest) (*dto.RegistroTurnoResponse, error) {
	if !req.Monto.IsPositive() {
		return nil, apierror.ErrInvalidAmount
	}
	ventaID, err := parseVentaID(req.VentaID)
	if err != nil {
		return nil, err
	}
	v := &model.Voucher{Numero: req.Numero, Monto: dec2(req.Monto), VentaID: ventaID}
	err = s.enTurnoAbierto(ctx, func(tx *gorm.DB, t *model.Turno) error {
		v.TurnoID = t.ID
		return s.repo.CreateVoucher(ctx, tx, v)
	})
	if err != nil {
		return nil, err
	}
	return &dto.RegistroTurnoResponse{ID: v.ID.String(), TurnoID: v.TurnoID.String(), Monto: v.Monto}, nil
}

func (s *turnoService) RegistrarTransferencia(ctx context.Context, req dto.FolioRequest) (*dto.RegistroTurnoResponse, error) {
	if !req.Monto.IsPositive() {
		return nil, apierror.ErrInvalidAmount
	}
	ventaID, err := parseVentaID(req.VentaID)
	if err != nil {
		return nil, err
	}
	tr := &model.Transferencia{Folio: req.Folio, Monto: dec2(req.Monto), VentaID: ventaID}
	err = s.enTurnoAbierto(ctx, func(tx *gorm.DB, t *model.Turno) error {
		tr.TurnoID = t.ID
		return s.repo.CreateTransferencia(ctx, tx, tr)
	})
	if err != nil {
		return nil, err
	}
	return &dto.RegistroTurnoResponse{ID: tr.ID.String(), TurnoID: tr.TurnoID.String(), Monto: tr.Monto}, nil
}

func (s *turnoService) RegistrarDeposito(ctx context.Context, req dto.FolioRequest) (*dto.RegistroTurnoResponse, error) {
	if !req.Monto.IsPositive() {
		return nil, apierror.ErrInvalidAmount
	}
	ventaID, err := parseVentaID(req.VentaID)
	if err != nil {
		return nil, err
	}
	d := &model.Deposito{Folio: req.Folio, Monto: dec2(req.Monto), VentaID: ventaID}
	err = s.enTurnoAbierto(ctx, func(tx *gorm.DB, t *model.Turno) error {
		d.TurnoID = t.ID
		return s.repo.CreateDeposito(ctx, tx, d)
	})
	if err != nil {
		return nil, err
	}
	return &dto.RegistroTurnoResponse{ID: d.ID.String(), TurnoID: d.TurnoID.String(), Monto: d.Monto}, nil
}

// ── Cuadre / Cierre ───────────────────────────────────────────────────────────

func (s *turnoService) PrevisualizarCierre(ctx context.Context, req dto.CuadreRequest) (*dto.CuadreResponse, error) {
	cierre, err := s.totalDesglose(req.Desglose)
	if err != nil {
		return nil, err
	}
	t, err := turnoAbiertoTx(ctx, s.repo, nil, repository.LockNone)
	if err != nil {
		return nil, err
	}
	tot, err := s.repo.Totales(ctx, nil, t.ID)
	if err != nil {
		return nil, err
	}
	c := calcularCuadre(t, tot, &cierre, s.params)
	return &c, nil
}

func (s *turnoService) Cerrar(ctx context.Context, actor Actor, id *uuid.UUID, req dto.CerrarTurnoRequest) (*dto.TurnoResponse, error) {
	if req.Autorizacion != nil && !model.PuedeAutorizar(actor.Rol) {
		return nil, apierror.ErrForbidden.WithMessage("Solo un supervisor o administrador puede autorizar un descuadre")
	}
	cierre, err := s.totalDesglose(req.Desglose)
	if err != nil {
		return nil, err
	}

	var (
		t      *model.Turno
		cuadre dto.CuadreResponse
	)
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		if id == nil {
			t, err = turnoAbiertoTx(ctx, s.repo, tx, repository.LockUpdate)
		} else {
			t, err = s.repo.FindTurnoByID(ctx, tx, *id, repository.LockUpdate)
			err = notFound(err, "turno_id", id.String())
		}
		if err != nil {
			return err
		}
		if t.Estado == model.TurnoCerrado {
			return apierror.ErrShiftClosed.WithDetail("turno_id", t.ID.String())
		}

		tot, err := s.repo.Totales(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		cuadre = calcularCuadre(t, tot, &cierre, s.params)
		if cuadre.RequiereAutorizacion && (req.Autorizacion == nil || strings.TrimSpace(req.Autorizacion.Nota) == "") {
			return apierror.ErrAuthorizationRequired.
				WithDetail("turno_id", t.ID.String()).
				WithDetail("descuadre_efectivo", cuadre.DescuadreEfectivo.String()).
				WithDetail("descuadre_vouchers", cuadre.DescuadreVouchers.String()).
				WithDetail("descuadre_transferencias", cuadre.DescuadreTransferencias.String()).
				WithDetail("tolerancia", cuadre.Tolerancia.String())
		}

		aplicarCierre(t, tot, cuadre, req.Desglose, s.now())
		if req.Autorizacion != nil && strings.TrimSpace(req.Autorizacion.Nota) != "" {
			t.AutorizadoPor = &actor.ID
			t.NotaAutorizacion = strPtr(strings.TrimSpace(req.Autorizacion.Nota))
		}
		return s.repo.UpdateTurno(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTurnoCerrado(t.AutorizadoPor != nil)
	log.Info().Str("turno_id", t.ID.String()).Str("descuadre_efectivo", cuadre.DescuadreEfectivo.String()).
		Bool("requiere_autorizacion", cuadre.RequiereAutorizacion).Msg("turno cerrado")
	if cuadre.RequiereAutorizacion {
		s.notificarDescuadre(ctx, t, cuadre)
	}
	return turnoToResponse(t, &cuadre), nil
}

func aplicarCierre(t *model.Turno, tot *repository.TotalesTurno, c dto.CuadreResponse, desglose efectivo.Desglose, at time.Time) {
	t.Estado = model.TurnoCerrado
	t.DesgloseCierre = &desglose
	t.MontoCierre = c.MontoCierre
	t.VentasEfectivo = tot.VentasEfectivo
	t.VentasTarjeta = tot.VentasTarjeta
	t.VentasTransferencia = tot.VentasTransferencia
	t.VentasDeposito = tot.VentasDeposito
	t.TotalGastos = tot.TotalGastos
	t.GastosEfectivo = tot.GastosEfectivo
	t.TotalComisiones = tot.ComisionesEfectivo
	t.ImpuestoEfectivo = c.Impuestos.Efectivo
	t.ImpuestoTarjeta = c.Impuestos.Tarjeta
	t.ImpuestoTransferencia = c.Impuestos.Transferencia
	t.ImpuestoDeposito = c.Impuestos.Deposito
	t.EfectivoEsperado = decPtr(c.EfectivoEsperado)
	t.DescuadreEfectivo = c.DescuadreEfectivo
	t.DescuadreVouchers = decPtr(c.DescuadreVouchers)
	t.DescuadreTransferencias = decPtr(c.DescuadreTransferencias)
	t.RequiereAutorizacion = c.RequiereAutorizacion
	t.ClosedAt = &at
}

func (s *turnoService) notificarDescuadre(ctx context.Context, t *model.Turno, c dto.CuadreResponse) {
	if s.notificador == nil {
		return
	}
	cuerpo := fmt.Sprintf(
		"Turno %s cerrado con descuadre autorizado.\nEfectivo esperado: %s\nEfectivo contado: %s\nDescuadre efectivo: %s\nDescuadre vouchers: %s\nDescuadre transferencias: %s\nNota: %s",
		t.ID, c.EfectivoEsperado.StringFixed(2), c.MontoCierre.StringFixed(2), c.DescuadreEfectivo.StringFixed(2),
		c.DescuadreVouchers.StringFixed(2), c.DescuadreTransferencias.StringFixed(2), derefString(t.NotaAutorizacion),
	)
	if err := s.notificador.Notificar(ctx, "Cierre de turno con descuadre", cuerpo); err != nil {
		log.Error().Err(err).Str("turno_id", t.ID.String()).Msg("no se pudo encolar la notificacion de descuadre")
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ── Mapping ───────────────────────────────────────────────────────────────────

// cuadreGuardado rebuilds the cuadre from the figures persisted at close.
func cuadreGuardado(t *model.Turno, tolerancia decimal.Decimal) dto.CuadreResponse {
	ventas := dto.MontosPorCanal{
		Efectivo:      t.VentasEfectivo,
		Tarjeta:       t.VentasTarjeta,
		Transferencia: t.VentasTransferencia,
		Deposito:      t.VentasDeposito,
	}
	ventas.Total = ventas.Efectivo.Add(ventas.Tarjeta).Add(ventas.Transferencia).Add(ventas.Deposito)
	impuestos := dto.MontosPorCanal{
		Efectivo:      t.ImpuestoEfectivo,
		Tarjeta:       t.ImpuestoTarjeta,
		Transferencia: t.ImpuestoTransferencia,
		Deposito:      t.ImpuestoDeposito,
	}
	impuestos.Total = impuestos.Efectivo.Add(impuestos.Tarjeta).Add(impuestos.Transferencia).Add(impuestos.Deposito)

	c := dto.CuadreResponse{
		TurnoID:              t.ID.String(),
		MontoApertura:        t.MontoApertura,
		MontoCierre:          t.MontoCierre,
		Ventas:               ventas,
		TotalGastos:          t.TotalGastos,
		GastosEfectivo:       t.GastosEfectivo,
		ComisionesEfectivo:   t.TotalComisiones,
		Impuestos:            impuestos,
		DescuadreEfectivo:    t.DescuadreEfectivo,
		Tolerancia:           tolerancia,
		RequiereAutorizacion: t.RequiereAutorizacion,
	}
	if t.EfectivoEsperado != nil {
		c.EfectivoEsperado = *t.EfectivoEsperado
	}
	if t.DescuadreVouchers != nil {
		c.DescuadreVouchers = *t.DescuadreVouchers
		c.TotalVouchers = t.VentasTarjeta.Add(*t.DescuadreVouchers)
	}
	if t.DescuadreTransferencias != nil {
		c.DescuadreTransferencias = *t.DescuadreTransferencias
		c.TotalTransferencias = t.VentasTransferencia.Add(*t.DescuadreTransferencias)
	}
	return c
}

func turnoToResponse(t *model.Turno, c *dto.CuadreResponse) *dto.TurnoResponse {
	resp := &dto.TurnoResponse{
		ID:               t.ID.String(),
		OperadorID:       t.OperadorID.String(),
		Estado:           t.Estado,
		DesgloseApertura: t.DesgloseApertura,
		MontoApertura:    t.MontoApertura,
		DesgloseCierre:   t.DesgloseCierre,
		Cuadre:           c,
		NotaAutorizacion: t.NotaAutorizacion,
		OpenedAt:         t.OpenedAt.Format(time.RFC3339),
	}
	if t.AutorizadoPor != nil {
		resp.AutorizadoPor = strPtr(t.AutorizadoPor.String())
	}
	if t.ClosedAt != nil {
		resp.ClosedAt = strPtr(t.ClosedAt.Format(time.RFC3339))
	}
	return resp
}
