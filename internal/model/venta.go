package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	VentaCompletada = "completada"
	VentaAnulada    = "anulada"
)

// Commission states of a sale line.
const (
	ComisionNoAplica  = "no_aplica"
	ComisionPendiente = "pendiente"
	ComisionLiquidada = "liquidada"
	ComisionAnulada   = "anulada"
)

// Payment channels shared by sales, expenses and shift totals.
const (
	CanalEfectivo      = "efectivo"
	CanalTarjeta       = "tarjeta"
	CanalTransferencia = "transferencia"
	CanalDeposito      = "deposito"
)

// Venta is a completed sale recorded against the open shift.
// Estado: "completada" | "anulada"
type Venta struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TurnoID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Turno           *Turno          `gorm:"foreignKey:TurnoID;constraint:OnDelete:RESTRICT" json:"-"`
	UsuarioID       uuid.UUID       `gorm:"type:uuid;not null"`
	Fecha           Fecha           `gorm:"not null;index"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DescuentoTotal  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Total           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Vuelto          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Estado          string          `gorm:"type:varchar(20);not null;default:'completada'"`
	MotivoAnulacion *string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Items []VentaItem `gorm:"foreignKey:VentaID"`
	Pagos []VentaPago `gorm:"foreignKey:VentaID"`
}

// VentaItem is one sale line. When MedicoID is set the line carries a doctor's
// commission and moves pendiente -> liquidada -> (void) pendiente.
type VentaItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Concepto       string          `gorm:"not null"`
	Tipo           string          `gorm:"type:varchar(30);not null"` // medicamento | servicio | extra
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descuento      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	MedicoID       *uuid.UUID      `gorm:"type:uuid;index"`
	ComisionPct    decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	ComisionMonto  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	EstadoComision string          `gorm:"type:varchar(20);not null;default:'no_aplica'"`
	PagoComisionID *uuid.UUID      `gorm:"type:uuid;index"`
}

// VentaPago is a per-channel payment. The cash row is stored net of change.
type VentaPago struct {
	ID      uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Metodo  string          `gorm:"type:varchar(20);not null"`
	Monto   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}
