package repository

import (
	"context"

	"clinicapos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ItemComision is a commission-bearing sale line with its sale date.
type ItemComision struct {
	model.VentaItem
	FechaVenta model.Fecha
}

// PendienteMedico is one row of the pending-commissions summary.
type PendienteMedico struct {
	MedicoID uuid.UUID
	Nombre   string
	Items    int
	Total    decimal.Decimal
}

type ComisionRepository interface {
	// LockMedico row-locks the doctor; concurrent settlements for the same doctor serialize on it.
	LockMedico(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Medico, error)
	// ListItemsPendientes returns pendiente lines of completed sales dated in
	// [desde, hasta], ordered by (sale date, line id).
	ListItemsPendientes(ctx context.Context, tx *gorm.DB, medicoID uuid.UUID, desde, hasta model.Fecha) ([]ItemComision, error)
	ListPagosActivosTraslapados(ctx context.Context, tx *gorm.DB, medicoID uuid.UUID, desde, hasta model.Fecha) ([]model.PagoComision, error)
	CreatePago(ctx context.Context, tx *gorm.DB, p *model.PagoComision) error
	// MarcarItemsLiquidados flips only lines still pendiente and unlinked;
	// the returned count is how many actually moved.
	MarcarItemsLiquidados(ctx context.Context, tx *gorm.DB, pagoID uuid.UUID, itemIDs []uuid.UUID) (int64, error)
	FindPago(ctx context.Context, tx *gorm.DB, id uuid.UUID, lock string) (*model.PagoComision, error)
	UpdatePago(ctx context.Context, tx *gorm.DB, p *model.PagoComision) error
	// LiberarItems returns a payment's lines to pendiente.
	LiberarItems(ctx context.Context, tx *gorm.DB, pagoID uuid.UUID) (int64, error)
	ListPagos(ctx context.Context, medicoID *uuid.UUID) ([]model.PagoComision, error)
	PendientesPorMedico(ctx context.Context) ([]PendienteMedico, error)
	DB() *gorm.DB
}

type comisionRepo struct{ db *gorm.DB }

func NewComisionRepository(db *gorm.DB) ComisionRepository { return &comisionRepo{db: db} }

func (r *comisionRepo) DB() *gorm.DB { return r.db }

func (r *comisionRepo) LockMedico(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Medico, error) {
	var m model.Medico
	err := conn(ctx, r.db, tx).Clauses(forUpdate).First(&m, "id = ?", id).Error
	return &m, err
}

func (r *comisionRepo) ListItemsPendientes(ctx context.Context, tx *gorm.DB, medicoID uuid.UUID, desde, hasta model.Fecha) ([]ItemComision, error) {
	var out []ItemComision
	err := conn(ctx, r.db, tx).Table("venta_items").
		Select("venta_items.*, ventas.fecha AS fecha_venta").
		Joins("JOIN ventas ON ventas.id = venta_items.venta_id").
		Where("venta_items.medico_id = ?", medicoID).
		Where("venta_items.estado_comision = ? AND venta_items.pago_comision_id IS NULL", model.ComisionPendiente).
		Where("ventas.estado = ?", model.VentaCompletada).
		Where("ventas.fecha BETWEEN ? AND ?", desde, hasta).
		Order("ventas.fecha ASC, venta_items.id ASC").
		Scan(&out).Error
	return out, err
}

func (r *comisionRepo) ListPagosActivosTraslapados(ctx context.Context, tx *gorm.DB, medicoID uuid.UUID, desde, hasta model.Fecha) ([]model.PagoComision, error) {
	var out []model.PagoComision
	err := conn(ctx, r.db, tx).
		Where("medico_id = ? AND voided_at IS NULL", medicoID).
		Where("periodo_inicio <= ? AND periodo_fin >= ?", hasta, desde).
		Order("paid_at ASC").
		Find(&out).Error
	return out, err
}

func (r *comisionRepo) CreatePago(ctx context.Context, tx *gorm.DB, p *model.PagoComision) error {
	return conn(ctx, r.db, tx).Create(p).Error
}

func (r *comisionRepo) MarcarItemsLiquidados(ctx context.Context, tx *gorm.DB, pagoID uuid.UUID, itemIDs []uuid.UUID) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	db := conn(ctx, r.db, tx)
	// Same lock order as ventaRepo.FindByID so a concurrent sale void waits
	// instead of deadlocking.
	var bloqueados []uuid.UUID
	err := db.Model(&model.VentaItem{}).Clauses(forUpdate).
		Where("id IN ?", itemIDs).Order("id").Pluck("id", &bloqueados).Error
	if err != nil {
		return 0, err
	}
	res := db.Model(&model.VentaItem{}).
		Where("id IN ? AND estado_comision = ? AND pago_comision_id IS NULL", itemIDs, model.ComisionPendiente).
		Updates(map[string]any{"estado_comision": model.ComisionLiquidada, "pago_comision_id": pagoID})
	return res.RowsAffected, res.Error
}

func (r *comisionRepo) FindPago(ctx context.Context, tx *gorm.DB, id uuid.UUID, lock string) (*model.PagoComision, error) {
	var p model.PagoComision
	err := withLock(conn(ctx, r.db, tx), lock).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *comisionRepo) UpdatePago(ctx context.Context, tx *gorm.DB, p *model.PagoComision) error {
	return conn(ctx, r.db, tx).Save(p).Error
}

func (r *comisionRepo) LiberarItems(ctx context.Context, tx *gorm.DB, pagoID uuid.UUID) (int64, error) {
	res := conn(ctx, r.db, tx).Model(&model.VentaItem{}).
		Where("pago_comision_id = ? AND estado_comision = ?", pagoID, model.ComisionLiquidada).
		Updates(map[string]any{"estado_comision": model.ComisionPendiente, "pago_comision_id": nil})
	return res.RowsAffected, res.Error
}

func (r *comisionRepo) ListPagos(ctx context.Context, medicoID *uuid.UUID) ([]model.PagoComision, error) {
	var out []model.PagoComision
	db := r.db.WithContext(ctx)
	if medicoID != nil {
		db = db.Where("medico_id = ?", *medicoID)
	}
	err := db.Order("paid_at DESC").Find(&out).Error
	return out, err
}

func (r *comisionRepo) PendientesPorMedico(ctx context.Context) ([]PendienteMedico, error) {
	var out []PendienteMedico
	err := r.db.WithContext(ctx).Table("venta_items").
		Select("medicos.id AS medico_id, medicos.nombre AS nombre, COUNT(*) AS items, COALESCE(SUM(venta_items.comision_monto), 0) AS total").
		Joins("JOIN ventas ON ventas.id = venta_items.venta_id").
		Joins("JOIN medicos ON medicos.id = venta_items.medico_id").
		Where("venta_items.estado_comision = ? AND ventas.estado = ?", model.ComisionPendiente, model.VentaCompletada).
		Group("medicos.id, medicos.nombre").
		Order("medicos.nombre ASC").
		Scan(&out).Error
	return out, err
}
