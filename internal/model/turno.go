package model

import (
	"time"

	"clinicapos/internal/efectivo"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TurnoAbierto = "abierto"
	TurnoCerrado = "cerrado"
)

// Turno is one operator's cash-register shift. Estado: "abierto" | "cerrado".
// A partial unique index on estado guarantees a single open row system-wide.
type Turno struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OperadorID uuid.UUID `gorm:"type:uuid;not null;index"`
	Estado     string    `gorm:"type:varchar(20);not null;default:'abierto'"`

	DesgloseApertura efectivo.Desglose  `gorm:"type:jsonb;serializer:json;not null"`
	MontoApertura    decimal.Decimal    `gorm:"type:decimal(12,2);not null"`
	DesgloseCierre   *efectivo.Desglose `gorm:"type:jsonb;serializer:json"`
	MontoCierre      *decimal.Decimal   `gorm:"type:decimal(12,2)"`

	// Figures below are filled on close; an open shift computes them live.
	VentasEfectivo      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	VentasTarjeta       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	VentasTransferencia decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	VentasDeposito      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalGastos         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	GastosEfectivo      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalComisiones     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	ImpuestoEfectivo      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	ImpuestoTarjeta       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	ImpuestoTransferencia decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	ImpuestoDeposito      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	EfectivoEsperado        *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DescuadreEfectivo       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DescuadreVouchers       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DescuadreTransferencias *decimal.Decimal `gorm:"type:decimal(12,2)"`

	RequiereAutorizacion bool       `gorm:"not null;default:false"`
	AutorizadoPor        *uuid.UUID `gorm:"type:uuid"`
	NotaAutorizacion     *string

	OpenedAt time.Time `gorm:"not null"`
	ClosedAt *time.Time
}

// Gasto is an expense paid during a shift. MetodoPago "efectivo" leaves the drawer.
type Gasto struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TurnoID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Turno         *Turno          `gorm:"foreignKey:TurnoID;constraint:OnDelete:RESTRICT" json:"-"`
	Monto         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MetodoPago    string          `gorm:"type:varchar(20);not null;default:'efectivo'"`
	Clasificacion string          `gorm:"type:varchar(120);not null"`
	Descripcion   string          `gorm:"not null"`
	Beneficiario  string
	RegistradoPor uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt     time.Time
}

// Voucher is a card terminal slip; their sum is matched against card sales.
type Voucher struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TurnoID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Turno     *Turno          `gorm:"foreignKey:TurnoID;constraint:OnDelete:RESTRICT" json:"-"`
	Numero    string          `gorm:"type:varchar(60);not null"`
	Monto     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	VentaID   *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt time.Time
}

// Transferencia is a bank transfer slip; matched against transfer sales.
type Transferencia struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TurnoID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Turno     *Turno          `gorm:"foreignKey:TurnoID;constraint:OnDelete:RESTRICT" json:"-"`
	Folio     string          `gorm:"type:varchar(60);not null"`
	Monto     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	VentaID   *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt time.Time
}

type Deposito struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TurnoID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Turno     *Turno          `gorm:"foreignKey:TurnoID;constraint:OnDelete:RESTRICT" json:"-"`
	Folio     string          `gorm:"type:varchar(60);not null"`
	Monto     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	VentaID   *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt time.Time
}
