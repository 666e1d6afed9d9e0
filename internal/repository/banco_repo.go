package repository

import (
	"context"
	"time"

	"clinicapos/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TotalClasificacion is one row of the income statement.
type TotalClasificacion struct {
	Clasificacion string
	Ingreso       decimal.Decimal
	Egreso        decimal.Decimal
}

type BancoRepository interface {
	// LockLedger takes an EXCLUSIVE lock on movimientos_banco for the rest of tx.
	// Readers keep working; every other writer waits.
	LockLedger(ctx context.Context, tx *gorm.DB) error

	FindSaldoInicialActivo(ctx context.Context, tx *gorm.DB) (*model.SaldoInicial, error)
	DesactivarSaldosIniciales(ctx context.Context, tx *gorm.DB, at time.Time) error
	CreateSaldoInicial(ctx context.Context, tx *gorm.DB, s *model.SaldoInicial) error
	ListSaldosIniciales(ctx context.Context) ([]model.SaldoInicial, error)

	Create(ctx context.Context, tx *gorm.DB, m *model.MovimientoBanco) error
	FindByID(ctx context.Context, tx *gorm.DB, id int64) (*model.MovimientoBanco, error)
	FindByClaveOrigen(ctx context.Context, tx *gorm.DB, clave string) (*model.MovimientoBanco, error)
	Update(ctx context.Context, tx *gorm.DB, m *model.MovimientoBanco) error
	Delete(ctx context.Context, tx *gorm.DB, id int64) error

	// ListOrdenados returns the full ledger ordered by (fecha, id).
	ListOrdenados(ctx context.Context, tx *gorm.DB) ([]model.MovimientoBanco, error)
	UpdateSaldos(ctx context.Context, tx *gorm.DB, saldos map[int64]decimal.Decimal) error

	ListByRango(ctx context.Context, desde, hasta model.Fecha) ([]model.MovimientoBanco, error)
	ListByClasificacion(ctx context.Context, clasificacion string) ([]model.MovimientoBanco, error)
	Ultimo(ctx context.Context) (*model.MovimientoBanco, error)
	TotalesPorClasificacion(ctx context.Context, desde, hasta model.Fecha) ([]TotalClasificacion, error)

	DB() *gorm.DB
}

type bancoRepo struct{ db *gorm.DB }

func NewBancoRepository(db *gorm.DB) BancoRepository { return &bancoRepo{db: db} }

func (r *bancoRepo) DB() *gorm.DB { return r.db }

func (r *bancoRepo) LockLedger(ctx context.Context, tx *gorm.DB) error {
	return conn(ctx, r.db, tx).Exec("LOCK TABLE movimientos_banco IN EXCLUSIVE MODE").Error
}

func (r *bancoRepo) FindSaldoInicialActivo(ctx context.Context, tx *gorm.DB) (*model.SaldoInicial, error) {
	var s model.SaldoInicial
	err := conn(ctx, r.db, tx).Where("activo = true").First(&s).Error
	return &s, err
}

func (r *bancoRepo) DesactivarSaldosIniciales(ctx context.Context, tx *gorm.DB, at time.Time) error {
	return conn(ctx, r.db, tx).Model(&model.SaldoInicial{}).
		Where("activo = true").
		Updates(map[string]any{"activo": false, "desactivado_at": at}).Error
}

func (r *bancoRepo) CreateSaldoInicial(ctx context.Context, tx *gorm.DB, s *model.SaldoInicial) error {
	return conn(ctx, r.db, tx).Create(s).Error
}

func (r *bancoRepo) ListSaldosIniciales(ctx context.Context) ([]model.SaldoInicial, error) {
	var out []model.SaldoInicial
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *bancoRepo) Create(ctx context.Context, tx *gorm.DB, m *model.MovimientoBanco) error {
	return conn(ctx, r.db, tx).Create(m).Error
}

func (r *bancoRepo) FindByID(ctx context.Context, tx *gorm.DB, id int64) (*model.MovimientoBanco, error) {
	var m model.MovimientoBanco
	err := conn(ctx, r.db, tx).First(&m, id).Error
	return &m, err
}

func (r *bancoRepo) FindByClaveOrigen(ctx context.Context, tx *gorm.DB, clave string) (*model.MovimientoBanco, error) {
	var m model.MovimientoBanco
	err := conn(ctx, r.db, tx).Where("clave_origen = ?", clave).First(&m).Error
	return &m, err
}

func (r *bancoRepo) Update(ctx context.Context, tx *gorm.DB, m *model.MovimientoBanco) error {
	return conn(ctx, r.db, tx).Save(m).Error
}

func (r *bancoRepo) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	return conn(ctx, r.db, tx).Delete(&model.MovimientoBanco{}, id).Error
}

func (r *bancoRepo) ListOrdenados(ctx context.Context, tx *gorm.DB) ([]model.MovimientoBanco, error) {
	var out []model.MovimientoBanco
	err := conn(ctx, r.db, tx).Order("fecha ASC, id ASC").Find(&out).Error
	return out, err
}

func (r *bancoRepo) UpdateSaldos(ctx context.Context, tx *gorm.DB, saldos map[int64]decimal.Decimal) error {
	db := conn(ctx, r.db, tx)
	for id, saldo := range saldos {
		err := db.Model(&model.MovimientoBanco{}).
			Where("id = ?", id).
			UpdateColumn("saldo_corrido", saldo).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *bancoRepo) ListByRango(ctx context.Context, desde, hasta model.Fecha) ([]model.MovimientoBanco, error) {
	var out []model.MovimientoBanco
	err := r.db.WithContext(ctx).
		Where("fecha BETWEEN ? AND ?", desde, hasta).
		Order("fecha ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *bancoRepo) ListByClasificacion(ctx context.Context, clasificacion string) ([]model.MovimientoBanco, error) {
	var out []model.MovimientoBanco
	err := r.db.WithContext(ctx).
		Where("clasificacion = ?", clasificacion).
		Order("fecha ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *bancoRepo) Ultimo(ctx context.Context) (*model.MovimientoBanco, error) {
	var m model.MovimientoBanco
	err := r.db.WithContext(ctx).Order("fecha DESC, id DESC").First(&m).Error
	return &m, err
}

func (r *bancoRepo) TotalesPorClasificacion(ctx context.Context, desde, hasta model.Fecha) ([]TotalClasificacion, error) {
	var out []TotalClasificacion
	err := r.db.WithContext(ctx).Model(&model.MovimientoBanco{}).
		Select("clasificacion, COALESCE(SUM(ingreso), 0) AS ingreso, COALESCE(SUM(egreso), 0) AS egreso").
		Where("fecha BETWEEN ? AND ?", desde, hasta).
		Group("clasificacion").
		Order("clasificacion ASC").
		Scan(&out).Error
	return out, err
}
