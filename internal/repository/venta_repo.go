package repository

import (
	"context"

	"clinicapos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VentaQuery filters GET /v1/ventas. Nil bounds are open.
type VentaQuery struct {
	Desde   *model.Fecha
	Hasta   *model.Fecha
	TurnoID *uuid.UUID
	Estado  string // completada | anulada | all
	Page    int
	Limit   int
}

type VentaRepository interface {
	Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error
	// FindByID loads the sale with items and payments. lock applies to the
	// sale row and to its item rows, taken in id order.
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, lock string) (*model.Venta, error)
	// Anular marks the sale voided and retires its unsettled commission lines.
	Anular(ctx context.Context, tx *gorm.DB, id uuid.UUID, motivo string) error
	List(ctx context.Context, q VentaQuery) ([]model.Venta, int64, error)
	DB() *gorm.DB
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) DB() *gorm.DB { return r.db }

func (r *ventaRepo) Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error {
	return conn(ctx, r.db, tx).Create(v).Error
}

func (r *ventaRepo) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, lock string) (*model.Venta, error) {
	var v model.Venta
	err := withLock(conn(ctx, r.db, tx), lock).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return withLock(db.Order("id"), lock)
		}).
		Preload("Pagos").
		First(&v, "id = ?", id).Error
	return &v, err
}

func (r *ventaRepo) Anular(ctx context.Context, tx *gorm.DB, id uuid.UUID, motivo string) error {
	db := conn(ctx, r.db, tx)
	err := db.Model(&model.Venta{}).Where("id = ?", id).
		Updates(map[string]any{"estado": model.VentaAnulada, "motivo_anulacion": motivo}).Error
	if err != nil {
		return err
	}
	return db.Model(&model.VentaItem{}).
		Where("venta_id = ? AND estado_comision = ?", id, model.ComisionPendiente).
		Update("estado_comision", model.ComisionAnulada).Error
}

func (r *ventaRepo) List(ctx context.Context, q VentaQuery) ([]model.Venta, int64, error) {
	var ventas []model.Venta
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Venta{})
	if q.Estado != "" && q.Estado != "all" {
		db = db.Where("estado = ?", q.Estado)
	}
	if q.Desde != nil {
		db = db.Where("fecha >= ?", *q.Desde)
	}
	if q.Hasta != nil {
		db = db.Where("fecha <= ?", *q.Hasta)
	}
	if q.TurnoID != nil {
		db = db.Where("turno_id = ?", *q.TurnoID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Items").Preload("Pagos").
		Order("fecha DESC, created_at DESC").
		Offset((q.Page - 1) * q.Limit).Limit(q.Limit).
		Find(&ventas).Error
	return ventas, total, err
}
