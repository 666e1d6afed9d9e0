package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Medico struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre       string    `gorm:"not null"`
	Especialidad string
	// ComisionPct is the default percentage applied to sale lines that name this doctor.
	ComisionPct decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Activo      bool            `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PagoComision settles a doctor's pending lines for a period. Voiding is
// permanent: VoidedAt never goes back to nil.
type PagoComision struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MedicoID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	PeriodoInicio Fecha           `gorm:"not null"`
	PeriodoFin    Fecha           `gorm:"not null"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Nota          string
	// Override is true when the payment was created over an overlapping active one.
	Override bool `gorm:"not null;default:false"`
	// TurnoID is set when the payout left the cash drawer of that shift.
	TurnoID    *uuid.UUID  `gorm:"type:uuid;index"`
	ItemIDs    []uuid.UUID `gorm:"type:jsonb;serializer:json"`
	PagadoPor  uuid.UUID   `gorm:"type:uuid;not null"`
	PaidAt     time.Time   `gorm:"not null"`
	VoidedAt   *time.Time
	VoidReason *string
	VoidedBy   *uuid.UUID `gorm:"type:uuid"`
}

func (p *PagoComision) Activo() bool { return p.VoidedAt == nil }

func (PagoComision) TableName() string { return "pagos_comision" }
