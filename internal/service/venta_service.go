package service

import (
	"context"
	"strings"
	"time"

	"clinicapos/internal/apierror"
	"clinicapos/internal/dto"
	"clinicapos/internal/model"
	"clinicapos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type VentaService interface {
	RegistrarVenta(ctx context.Context, usuarioID uuid.UUID, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error)
	AnularVenta(ctx context.Context, id uuid.UUID, motivo string) error
	ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error)
	ListVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error)
}

type ventaService struct {
	repo       repository.VentaRepository
	turnoRepo  repository.TurnoRepository
	medicoRepo repository.MedicoRepository
	banco      BancoService
	now        func() time.Time
}

func NewVentaService(
	repo repository.VentaRepository,
	turnoRepo repository.TurnoRepository,
	medicoRepo repository.MedicoRepository,
	banco BancoService,
) VentaService {
	return &ventaService{
		repo:       repo,
		turnoRepo:  turnoRepo,
		medicoRepo: medicoRepo,
		banco:      banco,
		now:        time.Now,
	}
}

// ── RegistrarVenta ────────────────────────────────────────────────────────────
//   1. Price every line and resolve its doctor commission
//   2. Validate total pagos >= total venta; change comes out of cash only
//   3. BEGIN TX: share-lock open turno, create venta+items+pagos, mirror income in the ledger
//   4. COMMIT

func (s *ventaService) RegistrarVenta(ctx context.Context, usuarioID uuid.UUID, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
	if len(req.Items) == 0 {
		return nil, apierror.NewValidation(map[string]string{"items": "required"})
	}

	venta := &model.Venta{
		UsuarioID: usuarioID,
		Estado:    model.VentaCompletada,
		Fecha:     model.FechaDe(s.now()),
	}
	if req.Fecha != nil && !req.Fecha.IsZero() {
		venta.Fecha = *req.Fecha
	}

	medicos := map[uuid.UUID]*model.Medico{}
	subtotal, descuentos := decimal.Zero, decimal.Zero
	for _, it := range req.Items {
		item, err := s.construirItem(ctx, it, medicos)
		if err != nil {
			return nil, err
		}
		venta.Items = append(venta.Items, *item)
		subtotal = subtotal.Add(item.PrecioUnitario.Mul(decimal.NewFromInt(int64(item.Cantidad))))
		descuentos = descuentos.Add(item.Descuento)
	}
	venta.Subtotal = dec2(subtotal)
	venta.DescuentoTotal = dec2(descuentos)
	venta.Total = dec2(subtotal.Sub(descuentos))

	pagos, vuelto, err := consolidarPagos(req.Pagos, venta.Total)
	if err != nil {
		return nil, err
	}
	venta.Pagos = pagos
	venta.Vuelto = vuelto

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		t, err := turnoAbiertoTx(ctx, s.turnoRepo, tx, repository.LockShare)
		if err != nil {
			return err
		}
		venta.TurnoID = t.ID
		if err := s.repo.Create(ctx, tx, venta); err != nil {
			return err
		}
		if !venta.Total.IsPositive() {
			return nil
		}
		clave := claveVenta(venta.ID)
		return s.banco.AgregarTx(ctx, tx, &model.MovimientoBanco{
			Fecha:         venta.Fecha,
			Beneficiario:  "Caja",
			Descripcion:   "Venta " + venta.ID.String()[:8],
			Clasificacion: model.ClasificacionVentas,
			Ingreso:       venta.Total,
			ClaveOrigen:   &clave,
			RegistradoPor: usuarioID,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("venta_id", venta.ID.String()).Str("turno_id", venta.TurnoID.String()).
		Str("total", venta.Total.String()).Msg("venta registrada")
	return ventaToResponse(venta), nil
}

// construirItem prices one line. The commission percentage is the line's own
// or, when absent, the doctor's default.
func (s *ventaService) construirItem(ctx context.Context, it dto.ItemVentaRequest, medicos map[uuid.UUID]*model.Medico) (*model.VentaItem, error) {
	if it.Cantidad < 1 {
		return nil, apierror.ErrInvalidAmount.WithDetail("cantidad", it.Concepto)
	}
	if !it.PrecioUnitario.IsPositive() || it.Descuento.IsNegative() {
		return nil, apierror.ErrInvalidAmount.WithDetail("concepto", it.Concepto)
	}
	bruto := it.PrecioUnitario.Mul(decimal.NewFromInt(int64(it.Cantidad)))
	neto := bruto.Sub(it.Descuento)
	if neto.IsNegative() {
		return nil, apierror.ErrInvalidAmount.WithMessage("El descuento excede el importe de la linea").WithDetail("concepto", it.Concepto)
	}

	item := &model.VentaItem{
		Concepto:       it.Concepto,
		Tipo:           it.Tipo,
		Cantidad:       it.Cantidad,
		PrecioUnitario: dec2(it.PrecioUnitario),
		Descuento:      dec2(it.Descuento),
		Subtotal:       dec2(neto),
		EstadoComision: model.ComisionNoAplica,
	}
	if it.MedicoID == nil || *it.MedicoID == "" {
		return item, nil
	}

	medicoID, err := uuid.Parse(*it.MedicoID)
	if err != nil {
		return nil, apierror.NewValidation(map[string]string{"medico_id": "uuid"})
	}
	m, ok := medicos[medicoID]
	if !ok {
		m, err = s.medicoRepo.FindByID(ctx, medicoID)
		if err != nil {
			return nil, notFound(err, "medico_id", medicoID.String())
		}
		medicos[medicoID] = m
	}

	pct := m.ComisionPct
	if it.ComisionPct != nil {
		pct = *it.ComisionPct
	}
	if pct.IsNegative() || pct.GreaterThan(cien) {
		return nil, apierror.NewValidation(map[string]string{"comision_pct": "0..100"})
	}

	item.MedicoID = &medicoID
	item.ComisionPct = pct
	item.ComisionMonto = dec2(item.Subtotal.Mul(pct).Div(cien))
	if item.ComisionMonto.IsPositive() {
		item.EstadoComision = model.ComisionPendiente
	}
	return item, nil
}

// consolidarPagos merges payments per channel and computes the change. Only
// cash can give change, and the stored cash row is net of it.
func consolidarPagos(req []dto.PagoRequest, total decimal.Decimal) ([]model.VentaPago, decimal.Decimal, error) {
	orden := []string{}
	porMetodo := map[string]decimal.Decimal{}
	suma := decimal.Zero
	for _, p := range req {
		if !p.Monto.IsPositive() {
			return nil, decimal.Zero, apierror.ErrInvalidAmount.WithDetail("metodo", p.Metodo)
		}
		if _, ok := porMetodo[p.Metodo]; !ok {
			orden = append(orden, p.Metodo)
		}
		porMetodo[p.Metodo] = porMetodo[p.Metodo].Add(p.Monto)
		suma = suma.Add(p.Monto)
	}
	if suma.LessThan(total) {
		return nil, decimal.Zero, apierror.ErrInsufficientPayment.
			WithDetail("total", total.StringFixed(2)).
			WithDetail("pagado", suma.StringFixed(2))
	}

	vuelto := dec2(suma.Sub(total))
	if vuelto.IsPositive() {
		efectivo := porMetodo[model.CanalEfectivo]
		if efectivo.LessThan(vuelto) {
			return nil, decimal.Zero, apierror.ErrInvalidAmount.WithMessage("Solo el efectivo puede generar vuelto")
		}
		porMetodo[model.CanalEfectivo] = efectivo.Sub(vuelto)
	}

	pagos := make([]model.VentaPago, 0, len(orden))
	for _, metodo := range orden {
		monto := dec2(porMetodo[metodo])
		if monto.IsZero() {
			continue
		}
		pagos = append(pagos, model.VentaPago{Metodo: metodo, Monto: monto})
	}
	return pagos, vuelto, nil
}

// ── AnularVenta ───────────────────────────────────────────────────────────────

func (s *ventaService) AnularVenta(ctx context.Context, id uuid.UUID, motivo string) error {
	motivo = strings.TrimSpace(motivo)
	if motivo == "" {
		return apierror.NewValidation(map[string]string{"motivo": "required"})
	}
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		v, err := s.repo.FindByID(ctx, tx, id, repository.LockUpdate)
		if err != nil {
			return notFound(err, "venta_id", id.String())
		}
		if v.Estado == model.VentaAnulada {
			return apierror.ErrAlreadyVoided.WithDetail("venta_id", id.String())
		}
		for _, it := range v.Items {
			if it.EstadoComision == model.ComisionLiquidada {
				return apierror.ErrCommissionAlreadySettled.WithDetail("item_id", it.ID.String())
			}
		}
		t, err := s.turnoRepo.FindTurnoByID(ctx, tx, v.TurnoID, repository.LockShare)
		if err != nil {
			return err
		}
		if t.Estado == model.TurnoCerrado {
			return apierror.ErrShiftClosed.WithDetail("turno_id", t.ID.String())
		}
		if err := s.repo.Anular(ctx, tx, id, motivo); err != nil {
			return err
		}
		return s.banco.EliminarPorOrigenTx(ctx, tx, claveVenta(id))
	})
	if err != nil {
		return err
	}
	log.Info().Str("venta_id", id.String()).Str("motivo", motivo).Msg("venta anulada")
	return nil
}

// ── Lecturas ──────────────────────────────────────────────────────────────────

func (s *ventaService) ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error) {
	v, err := s.repo.FindByID(ctx, nil, id, repository.LockNone)
	if err != nil {
		return nil, notFound(err, "venta_id", id.String())
	}
	return ventaToResponse(v), nil
}

func (s *ventaService) ListVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error) {
	q := repository.VentaQuery{Estado: filter.Estado, Page: filter.Page, Limit: filter.Limit}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 50
	}
	var err error
	if q.Desde, err = parseFechaOpcional(filter.Desde, "desde"); err != nil {
		return nil, err
	}
	if q.Hasta, err = parseFechaOpcional(filter.Hasta, "hasta"); err != nil {
		return nil, err
	}
	if q.Desde != nil && q.Hasta != nil && q.Desde.After(*q.Hasta) {
		return nil, apierror.ErrInvalidDateRange
	}
	if filter.TurnoID != "" {
		id, err := uuid.Parse(filter.TurnoID)
		if err != nil {
			return nil, apierror.NewValidation(map[string]string{"turno_id": "uuid"})
		}
		q.TurnoID = &id
	}

	ventas, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	resp := &dto.VentaListResponse{Data: make([]dto.VentaResponse, 0, len(ventas)), Total: total, Page: q.Page, Limit: q.Limit}
	for i := range ventas {
		resp.Data = append(resp.Data, *ventaToResponse(&ventas[i]))
	}
	return resp, nil
}

func parseFechaOpcional(raw, campo string) (*model.Fecha, error) {
	if raw == "" {
		return nil, nil
	}
	f, err := model.ParseFecha(raw)
	if err != nil {
		return nil, apierror.NewValidation(map[string]string{campo: "YYYY-MM-DD"})
	}
	return &f, nil
}

func ventaToResponse(v *model.Venta) *dto.VentaResponse {
	resp := &dto.VentaResponse{
		ID:             v.ID.String(),
		TurnoID:        v.TurnoID.String(),
		UsuarioID:      v.UsuarioID.String(),
		Fecha:          v.Fecha,
		Subtotal:       v.Subtotal,
		DescuentoTotal: v.DescuentoTotal,
		Total:          v.Total,
		Vuelto:         v.Vuelto,
		Estado:         v.Estado,
		Items:          make([]dto.ItemVentaResponse, 0, len(v.Items)),
		Pagos:          make([]dto.PagoResponse, 0, len(v.Pagos)),
		CreatedAt:      v.CreatedAt.Format(time.RFC3339),
	}
	for _, it := range v.Items {
		ir := dto.ItemVentaResponse{
			ID:             it.ID.String(),
			Concepto:       it.Concepto,
			Tipo:           it.Tipo,
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
			Descuento:      it.Descuento,
			Subtotal:       it.Subtotal,
			ComisionPct:    it.ComisionPct,
			ComisionMonto:  it.ComisionMonto,
			EstadoComision: it.EstadoComision,
		}
		if it.MedicoID != nil {
			ir.MedicoID = strPtr(it.MedicoID.String())
		}
		resp.Items = append(resp.Items, ir)
	}
	for _, p := range v.Pagos {
		resp.Pagos = append(resp.Pagos, dto.PagoResponse{Metodo: p.Metodo, Monto: p.Monto})
	}
	return resp
}
