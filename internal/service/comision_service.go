package service

import (
	"context"
	"fmt"
	"strings"
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

type ComisionService interface {
	// AgruparPeriodo previews a doctor's pending lines in [desde, hasta]
	// grouped by day and concept. Read only.
	AgruparPeriodo(ctx context.Context, medicoID uuid.UUID, desde, hasta model.Fecha) (*dto.AgrupacionResponse, error)
	Liquidar(ctx context.Context, actor Actor, req dto.LiquidarRequest) (*dto.PagoComisionResponse, error)
	Anular(ctx context.Context, actor Actor, pagoID uuid.UUID, motivo string) (*dto.PagoComisionResponse, error)
	ListarPagos(ctx context.Context, medicoID *uuid.UUID) ([]dto.PagoComisionResponse, error)
}

type comisionService struct {
	repo        repository.ComisionRepository
	turnoRepo   repository.TurnoRepository
	banco       BancoService
	notificador Notificador
	metrics     *infra.Metrics
	now         func() time.Time
}

func NewComisionService(
	repo repository.ComisionRepository,
	turnoRepo repository.TurnoRepository,
	banco BancoService,
	notificador Notificador,
	metrics *infra.Metrics,
) ComisionService {
	return &comisionService{
		repo:        repo,
		turnoRepo:   turnoRepo,
		banco:       banco,
		notificador: notificador,
		metrics:     metrics,
		now:         time.Now,
	}
}

func validarPeriodo(desde, hasta model.Fecha) error {
	if desde.IsZero() || hasta.IsZero() {
		return apierror.ErrInvalidDateRange.WithMessage("desde y hasta son obligatorios")
	}
	if desde.After(hasta) {
		return apierror.ErrInvalidDateRange.
			WithDetail("desde", desde.String()).
			WithDetail("hasta", hasta.String())
	}
	return nil
}

// agrupar folds lines already ordered by (fecha, id) into (fecha, concepto) groups
// in first-seen order.
func agrupar(items []repository.ItemComision) ([]dto.GrupoComision, decimal.Decimal) {
	type clave struct {
		fecha    model.Fecha
		concepto string
	}
	idx := map[clave]int{}
	grupos := []dto.GrupoComision{}
	total := decimal.Zero
	for _, it := range items {
		k := clave{it.FechaVenta, it.Concepto}
		i, ok := idx[k]
		if !ok {
			i = len(grupos)
			idx[k] = i
			grupos = append(grupos, dto.GrupoComision{Fecha: it.FechaVenta, Concepto: it.Concepto, Total: decimal.Zero})
		}
		grupos[i].Lineas++
		grupos[i].Cantidad += it.Cantidad
		grupos[i].Total = grupos[i].Total.Add(it.ComisionMonto)
		total = total.Add(it.ComisionMonto)
	}
	return grupos, total
}

// ── AgruparPeriodo ────────────────────────────────────────────────────────────

func (s *comisionService) AgruparPeriodo(ctx context.Context, medicoID uuid.UUID, desde, hasta model.Fecha) (*dto.AgrupacionResponse, error) {
	if err := validarPeriodo(desde, hasta); err != nil {
		return nil, err
	}
	items, err := s.repo.ListItemsPendientes(ctx, nil, medicoID, desde, hasta)
	if err != nil {
		return nil, err
	}
	traslapados, err := s.repo.ListPagosActivosTraslapados(ctx, nil, medicoID, desde, hasta)
	if err != nil {
		return nil, err
	}

	grupos, total := agrupar(items)
	resp := &dto.AgrupacionResponse{
		MedicoID:         medicoID.String(),
		Desde:            desde,
		Hasta:            hasta,
		Items:            make([]dto.ItemComisionResponse, 0, len(items)),
		Grupos:           grupos,
		Total:            total,
		PagosTraslapados: make([]dto.PagoComisionResponse, 0, len(traslapados)),
	}
	for _, it := range items {
		resp.Items = append(resp.Items, dto.ItemComisionResponse{
			ItemID:        it.ID.String(),
			VentaID:       it.VentaID.String(),
			Fecha:         it.FechaVenta,
			Concepto:      it.Concepto,
			Cantidad:      it.Cantidad,
			Subtotal:      it.Subtotal,
			ComisionPct:   it.ComisionPct,
			ComisionMonto: it.ComisionMonto,
		})
	}
	for i := range traslapados {
		resp.PagosTraslapados = append(resp.PagosTraslapados, pagoToResponse(&traslapados[i]))
	}
	if len(traslapados) > 0 {
		resp.Advertencia = fmt.Sprintf("%d pago(s) activo(s) ya cubren parte de este periodo", len(traslapados))
	}
	return resp, nil
}

// ── Liquidar ──────────────────────────────────────────────────────────────────
//   1. BEGIN TX: lock the doctor row so settlements for one doctor serialize
//   2. Reject overlap with an active payment unless overridden by a supervisor
//   3. Collect pending lines, create the payment, flip lines with a guarded update
//   4. Mirror the payout as a ledger egreso
//   5. COMMIT, then notify

func (s *comisionService) Liquidar(ctx context.Context, actor Actor, req dto.LiquidarRequest) (*dto.PagoComisionResponse, error) {
	medicoID, err := uuid.Parse(req.MedicoID)
	if err != nil {
		return nil, apierror.NewValidation(map[string]string{"medico_id": "uuid"})
	}
	if err := validarPeriodo(req.Desde, req.Hasta); err != nil {
		return nil, err
	}
	if req.Override && !model.PuedeAutorizar(actor.Rol) {
		return nil, apierror.ErrForbidden.WithMessage("Solo un supervisor o administrador puede liquidar sobre un periodo ya pagado")
	}

	var (
		pago   *model.PagoComision
		medico *model.Medico
	)
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		medico, err = s.repo.LockMedico(ctx, tx, medicoID)
		if err != nil {
			return notFound(err, "medico_id", medicoID.String())
		}

		traslapados, err := s.repo.ListPagosActivosTraslapados(ctx, tx, medicoID, req.Desde, req.Hasta)
		if err != nil {
			return err
		}
		if len(traslapados) > 0 && !req.Override {
			return apierror.ErrDuplicateSettlement.
				WithDetail("pago_id", traslapados[0].ID.String()).
				WithDetail("desde", traslapados[0].PeriodoInicio.String()).
				WithDetail("hasta", traslapados[0].PeriodoFin.String())
		}

		items, err := s.repo.ListItemsPendientes(ctx, tx, medicoID, req.Desde, req.Hasta)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return apierror.ErrNothingToSettle
		}

		ids := make([]uuid.UUID, 0, len(items))
		total := decimal.Zero
		for _, it := range items {
			ids = append(ids, it.ID)
			total = total.Add(it.ComisionMonto)
		}

		pago = &model.PagoComision{
			MedicoID:      medicoID,
			PeriodoInicio: req.Desde,
			PeriodoFin:    req.Hasta,
			Total:         dec2(total),
			Nota:          req.Nota,
			Override:      len(traslapados) > 0,
			ItemIDs:       ids,
			PagadoPor:     actor.ID,
			PaidAt:        s.now(),
		}
		if req.DesdeCaja {
			t, err := turnoAbiertoTx(ctx, s.turnoRepo, tx, repository.LockShare)
			if err != nil {
				return err
			}
			pago.TurnoID = &t.ID
		}
		if err := s.repo.CreatePago(ctx, tx, pago); err != nil {
			return err
		}

		n, err := s.repo.MarcarItemsLiquidados(ctx, tx, pago.ID, ids)
		if err != nil {
			return err
		}
		if n != int64(len(ids)) {
			return apierror.ErrConcurrentSettlement.
				WithDetail("esperadas", fmt.Sprint(len(ids))).
				WithDetail("marcadas", fmt.Sprint(n))
		}

		clave := claveComision(pago.ID)
		return s.banco.AgregarTx(ctx, tx, &model.MovimientoBanco{
			Fecha:         model.FechaDe(pago.PaidAt),
			Beneficiario:  medico.Nombre,
			Descripcion:   fmt.Sprintf("Comisiones %s a %s", req.Desde, req.Hasta),
			Clasificacion: model.ClasificacionComisiones,
			Egreso:        pago.Total,
			ClaveOrigen:   &clave,
			RegistradoPor: actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordComision("liquidar")
	log.Info().Str("pago_id", pago.ID.String()).Str("medico_id", medicoID.String()).
		Str("total", pago.Total.String()).Int("items", len(pago.ItemIDs)).Bool("override", pago.Override).
		Msg("comisiones liquidadas")
	s.notificar(ctx, "Liquidacion de comisiones",
		fmt.Sprintf("Se liquidaron %d linea(s) a %s por %s (periodo %s a %s).",
			len(pago.ItemIDs), medico.Nombre, pago.Total.StringFixed(2), pago.PeriodoInicio, pago.PeriodoFin))

	resp := pagoToResponse(pago)
	return &resp, nil
}

// ── Anular ────────────────────────────────────────────────────────────────────

func (s *comisionService) Anular(ctx context.Context, actor Actor, pagoID uuid.UUID, motivo string) (*dto.PagoComisionResponse, error) {
	motivo = strings.TrimSpace(motivo)
	if motivo == "" {
		return nil, apierror.NewValidation(map[string]string{"motivo": "required"})
	}

	var pago *model.PagoComision
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		pago, err = s.repo.FindPago(ctx, tx, pagoID, repository.LockUpdate)
		if err != nil {
			return notFound(err, "pago_id", pagoID.String())
		}
		if !pago.Activo() {
			return apierror.ErrAlreadyVoided.WithDetail("pago_id", pagoID.String())
		}
		if pago.TurnoID != nil {
			t, err := s.turnoRepo.FindTurnoByID(ctx, tx, *pago.TurnoID, repository.LockShare)
			if err != nil {
				return err
			}
			if t.Estado == model.TurnoCerrado {
				return apierror.ErrShiftClosed.WithDetail("turno_id", t.ID.String())
			}
		}

		at := s.now()
		pago.VoidedAt = &at
		pago.VoidReason = strPtr(motivo)
		pago.VoidedBy = &actor.ID
		if err := s.repo.UpdatePago(ctx, tx, pago); err != nil {
			return err
		}
		if _, err := s.repo.LiberarItems(ctx, tx, pago.ID); err != nil {
			return err
		}
		return s.banco.EliminarPorOrigenTx(ctx, tx, claveComision(pago.ID))
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordComision("anular")
	log.Info().Str("pago_id", pagoID.String()).Str("motivo", motivo).Msg("pago de comisiones anulado")
	s.notificar(ctx, "Anulacion de pago de comisiones",
		fmt.Sprintf("El pago %s por %s fue anulado: %s", pago.ID, pago.Total.StringFixed(2), motivo))

	resp := pagoToResponse(pago)
	return &resp, nil
}

func (s *comisionService) ListarPagos(ctx context.Context, medicoID *uuid.UUID) ([]dto.PagoComisionResponse, error) {
	pagos, err := s.repo.ListPagos(ctx, medicoID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PagoComisionResponse, 0, len(pagos))
	for i := range pagos {
		out = append(out, pagoToResponse(&pagos[i]))
	}
	return out, nil
}

func (s *comisionService) notificar(ctx context.Context, asunto, cuerpo string) {
	if s.notificador == nil {
		return
	}
	if err := s.notificador.Notificar(ctx, asunto, cuerpo); err != nil {
		log.Error().Err(err).Str("asunto", asunto).Msg("no se pudo encolar la notificacion")
	}
}

func pagoToResponse(p *model.PagoComision) dto.PagoComisionResponse {
	resp := dto.PagoComisionResponse{
		ID:         p.ID.String(),
		MedicoID:   p.MedicoID.String(),
		Desde:      p.PeriodoInicio,
		Hasta:      p.PeriodoFin,
		Total:      p.Total,
		Nota:       p.Nota,
		Override:   p.Override,
		Items:      len(p.ItemIDs),
		PagadoPor:  p.PagadoPor.String(),
		PaidAt:     p.PaidAt.Format(time.RFC3339),
		VoidReason: p.VoidReason,
	}
	if p.TurnoID != nil {
		resp.TurnoID = strPtr(p.TurnoID.String())
	}
	if p.VoidedAt != nil {
		resp.VoidedAt = strPtr(p.VoidedAt.Format(time.RFC3339))
	}
	return resp
}
