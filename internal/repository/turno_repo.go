package repository

import (
	"context"

	"clinicapos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TotalesTurno aggregates everything accrued against one shift.
type TotalesTurno struct {
	VentasEfectivo      decimal.Decimal
	VentasTarjeta       decimal.Decimal
	VentasTransferencia decimal.Decimal
	VentasDeposito      decimal.Decimal
	TotalGastos         decimal.Decimal
	GastosEfectivo      decimal.Decimal
	TotalVouchers       decimal.Decimal
	TotalTransferencias decimal.Decimal
	TotalDepositos      decimal.Decimal
	// ComisionesEfectivo sums active commission payments paid from this drawer.
	ComisionesEfectivo decimal.Decimal
}

// TurnoQuery filters GET /v1/turnos.
type TurnoQuery struct {
	Estado string
	Page   int
	Limit  int
}

type TurnoRepository interface {
	// CreateTurno returns gorm.ErrDuplicatedKey when another shift is already open.
	CreateTurno(ctx context.Context, tx *gorm.DB, t *model.Turno) error
	// FindTurnoAbierto returns gorm.ErrRecordNotFound when no shift is open.
	// lock: "" (none), "share" (accruals) or "update" (close).
	FindTurnoAbierto(ctx context.Context, tx *gorm.DB, lock string) (*model.Turno, error)
	FindTurnoByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, lock string) (*model.Turno, error)
	UpdateTurno(ctx context.Context, tx *gorm.DB, t *model.Turno) error
	ListTurnos(ctx context.Context, q TurnoQuery) ([]model.Turno, int64, error)

	CreateGasto(ctx context.Context, tx *gorm.DB, g *model.Gasto) error
	CreateVoucher(ctx context.Context, tx *gorm.DB, v *model.Voucher) error
	CreateTransferencia(ctx context.Context, tx *gorm.DB, t *model.Transferencia) error
	CreateDeposito(ctx context.Context, tx *gorm.DB, d *model.Deposito) error

	Totales(ctx context.Context, tx *gorm.DB, turnoID uuid.UUID) (*TotalesTurno, error)

	DB() *gorm.DB
}

const (
	LockNone   = ""
	LockShare  = "share"
	LockUpdate = "update"
)

type turnoRepo struct{ db *gorm.DB }

func NewTurnoRepository(db *gorm.DB) TurnoRepository { return &turnoRepo{db: db} }

func (r *turnoRepo) DB() *gorm.DB { return r.db }

func withLock(db *gorm.DB, lock string) *gorm.DB {
	switch lock {
	case LockShare:
		return db.Clauses(forShare)
	case LockUpdate:
		return db.Clauses(forUpdate)
	}
	return db
}

func (r *turnoRepo) CreateTurno(ctx context.Context, tx *gorm.DB, t *model.Turno) error {
	return conn(ctx, r.db, tx).Create(t).Error
}

func (r *turnoRepo) FindTurnoAbierto(ctx context.Context, tx *gorm.DB, lock string) (*model.Turno, error) {
	var t model.Turno
	err := withLock(conn(ctx, r.db, tx), lock).
		Where("estado = ?", model.TurnoAbierto).
		First(&t).Error
	return &t, err
}

func (r *turnoRepo) FindTurnoByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, lock string) (*model.Turno, error) {
	var t model.Turno
	err := withLock(conn(ctx, r.db, tx), lock).First(&t, "id = ?", id).Error
	return &t, err
}

func (r *turnoRepo) UpdateTurno(ctx context.Context, tx *gorm.DB, t *model.Turno) error {
	return conn(ctx, r.db, tx).Save(t).Error
}

func (r *turnoRepo) ListTurnos(ctx context.Context, q TurnoQuery) ([]model.Turno, int64, error) {
	var turnos []model.Turno
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Turno{})
	if q.Estado != "" {
		db = db.Where("estado = ?", q.Estado)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("opened_at DESC").
		Offset((q.Page - 1) * q.Limit).Limit(q.Limit).
		Find(&turnos).Error
	return turnos, total, err
}

func (r *turnoRepo) CreateGasto(ctx context.Context, tx *gorm.DB, g *model.Gasto) error {
	return conn(ctx, r.db, tx).Create(g).Error
}

func (r *turnoRepo) CreateVoucher(ctx context.Context, tx *gorm.DB, v *model.Voucher) error {
	return conn(ctx, r.db, tx).Create(v).Error
}

func (r *turnoRepo) CreateTransferencia(ctx context.Context, tx *gorm.DB, t *model.Transferencia) error {
	return conn(ctx, r.db, tx).Create(t).Error
}

func (r *turnoRepo) CreateDeposito(ctx context.Context, tx *gorm.DB, d *model.Deposito) error {
	return conn(ctx, r.db, tx).Create(d).Error
}

func (r *turnoRepo) Totales(ctx context.Context, tx *gorm.DB, turnoID uuid.UUID) (*TotalesTurno, error) {
	db := conn(ctx, r.db, tx)
	out := &TotalesTurno{}

	var porCanal []struct {
		Metodo string
		Monto  decimal.Decimal
	}
	err := db.Table("venta_pagos").
		Select("venta_pagos.metodo AS metodo, COALESCE(SUM(venta_pagos.monto), 0) AS monto").
		Joins("JOIN ventas ON ventas.id = venta_pagos.venta_id").
		Where("ventas.turno_id = ? AND ventas.estado = ?", turnoID, model.VentaCompletada).
		Group("venta_pagos.metodo").
		Scan(&porCanal).Error
	if err != nil {
		return nil, err
	}
	for _, c := range porCanal {
		switch c.Metodo {
		case model.CanalEfectivo:
			out.VentasEfectivo = c.Monto
		case model.CanalTarjeta:
			out.VentasTarjeta = c.Monto
		case model.CanalTransferencia:
			out.VentasTransferencia = c.Monto
		case model.CanalDeposito:
			out.VentasDeposito = c.Monto
		}
	}

	var gastos struct {
		Total    decimal.Decimal
		Efectivo decimal.Decimal
	}
	err = db.Model(&model.Gasto{}).
		Select("COALESCE(SUM(monto), 0) AS total, COALESCE(SUM(CASE WHEN metodo_pago = ? THEN monto ELSE 0 END), 0) AS efectivo", model.CanalEfectivo).
		Where("turno_id = ?", turnoID).
		Scan(&gastos).Error
	if err != nil {
		return nil, err
	}
	out.TotalGastos, out.GastosEfectivo = gastos.Total, gastos.Efectivo

	sumas := []struct {
		tabla any
		dst   *decimal.Decimal
	}{
		{&model.Voucher{}, &out.TotalVouchers},
		{&model.Transferencia{}, &out.TotalTransferencias},
		{&model.Deposito{}, &out.TotalDepositos},
	}
	for _, s := range sumas {
		var suma struct{ Total decimal.Decimal }
		if err := db.Model(s.tabla).Select("COALESCE(SUM(monto), 0) AS total").Where("turno_id = ?", turnoID).Scan(&suma).Error; err != nil {
			return nil, err
		}
		*s.dst = suma.Total
	}

	var comisiones struct{ Total decimal.Decimal }
	err = db.Model(&model.PagoComision{}).
		Select("COALESCE(SUM(total), 0) AS total").
		Where("turno_id = ? AND voided_at IS NULL", turnoID).
		Scan(&comisiones).Error
	if err != nil {
		return nil, err
	}
	out.ComisionesEfectivo = comisiones.Total
	return out, nil
}
