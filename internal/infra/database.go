package infra

import (
	"fmt"
	"time"

	"clinicapos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the GORM pool. TranslateError makes unique violations
// surface as gorm.ErrDuplicatedKey, which the open-shift and ledger-key
// constraints rely on.
func NewDatabase(dsn string, debug bool) (*gorm.DB, error) {
	level := logger.Silent
	if debug {
		level = logger.Warn
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// RunMigrations creates or updates every table and then applies the constraints
// AutoMigrate cannot express. Safe to run on every start.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Usuario{},
		&model.Medico{},
		&model.Turno{},
		&model.Gasto{},
		&model.Voucher{},
		&model.Transferencia{},
		&model.Deposito{},
		&model.Venta{},
		&model.VentaItem{},
		&model.VentaPago{},
		&model.PagoComision{},
		&model.SaldoInicial{},
		&model.MovimientoBanco{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL: partial unique indexes for the two
// global "active" flags and the ledger source key, plus amount checks.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"at most one open shift", `
CREATE UNIQUE INDEX IF NOT EXISTS ux_turnos_un_abierto
    ON turnos ((estado)) WHERE estado = 'abierto'`},
		{"at most one active initial balance", `
CREATE UNIQUE INDEX IF NOT EXISTS ux_saldos_iniciales_activo
    ON saldos_iniciales ((activo)) WHERE activo`},
		{"ledger source key", `
CREATE UNIQUE INDEX IF NOT EXISTS ux_movimientos_banco_clave_origen
    ON movimientos_banco (clave_origen) WHERE clave_origen IS NOT NULL`},
		{"ledger amounts", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'ck_movimientos_banco_montos') THEN
    ALTER TABLE movimientos_banco ADD CONSTRAINT ck_movimientos_banco_montos
      CHECK (ingreso >= 0 AND egreso >= 0 AND ((ingreso > 0) <> (egreso > 0)));
  END IF;
END $$`},
		{"turno estado", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'ck_turnos_estado') THEN
    ALTER TABLE turnos ADD CONSTRAINT ck_turnos_estado CHECK (estado IN ('abierto', 'cerrado'));
  END IF;
END $$`},
		// A line can only point at a payment while it is liquidada.
		{"commission link", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'ck_venta_items_pago') THEN
    ALTER TABLE venta_items ADD CONSTRAINT ck_venta_items_pago
      CHECK ((estado_comision = 'liquidada') = (pago_comision_id IS NOT NULL));
  END IF;
END $$`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
