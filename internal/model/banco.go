package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DireccionIngreso = "ingreso"
	DireccionEgreso  = "egreso"
)

// Ledger classifications written by mirrored operations.
const (
	ClasificacionVentas     = "Ventas"
	ClasificacionComisiones = "Comisiones médicas"
)

// MovimientoBanco is one row of the bank ledger. SaldoCorrido is derived: it is
// rewritten for every row whenever the ledger changes and is never trusted as input.
// ID is a serial so that (fecha, id) follows insertion order within a day.
type MovimientoBanco struct {
	ID            int64 `gorm:"primaryKey;autoIncrement;index:idx_movimientos_banco_orden,priority:2"`
	Fecha         Fecha `gorm:"not null;index:idx_movimientos_banco_orden,priority:1"`
	Beneficiario  string
	Descripcion   string          `gorm:"not null"`
	Clasificacion string          `gorm:"type:varchar(120);not null;index"`
	Direccion     string          `gorm:"type:varchar(10);not null"`
	Ingreso       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Egreso        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	SaldoCorrido  decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	// ClaveOrigen identifies the operation mirrored into this row
	// ("venta:<id>", "gasto:<id>", "comision:<id>"); nil for manual entries.
	ClaveOrigen   *string   `gorm:"type:varchar(80)"`
	RegistradoPor uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (MovimientoBanco) TableName() string { return "movimientos_banco" }

// SaldoInicial seeds the running balance. Superseded rows stay with Activo=false.
type SaldoInicial struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Monto         decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	RegistradoPor uuid.UUID       `gorm:"type:uuid;not null"`
	Activo        bool            `gorm:"not null"`
	DesactivadoAt *time.Time
	CreatedAt     time.Time
}

func (SaldoInicial) TableName() string { return "saldos_iniciales" }
