package dto

import (
	"clinicapos/internal/model"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// PeriodoQuery is bound from ?desde=&hasta= (YYYY-MM-DD, both inclusive).
type PeriodoQuery struct {
	Desde string `form:"desde" validate:"required"`
	Hasta string `form:"hasta" validate:"required"`
}

type LiquidarRequest struct {
	MedicoID string      `json:"medico_id" validate:"required,uuid"`
	Desde    model.Fecha `json:"desde"`
	Hasta    model.Fecha `json:"hasta"`
	Nota     string      `json:"nota"      validate:"max=500"`
	// Override pays over an overlapping active payment. Supervisor or administrador only.
	Override bool `json:"override"`
	// DesdeCaja pays out of the open shift's cash drawer.
	DesdeCaja bool `json:"desde_caja"`
}

type AnularPagoRequest struct {
	Motivo string `json:"motivo" validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemComisionResponse struct {
	ItemID        string          `json:"item_id"`
	VentaID       string          `json:"venta_id"`
	Fecha         model.Fecha     `json:"fecha"`
	Concepto      string          `json:"concepto"`
	Cantidad      int             `json:"cantidad"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ComisionPct   decimal.Decimal `json:"comision_pct"`
	ComisionMonto decimal.Decimal `json:"comision_monto"`
}

// GrupoComision aggregates a period's lines per day and concept.
type GrupoComision struct {
	Fecha    model.Fecha     `json:"fecha"`
	Concepto string          `json:"concepto"`
	Lineas   int             `json:"lineas"`
	Cantidad int             `json:"cantidad"`
	Total    decimal.Decimal `json:"total"`
}

type AgrupacionResponse struct {
	MedicoID string                 `json:"medico_id"`
	Desde    model.Fecha            `json:"desde"`
	Hasta    model.Fecha            `json:"hasta"`
	Items    []ItemComisionResponse `json:"items"`
	Grupos   []GrupoComision        `json:"grupos"`
	Total    decimal.Decimal        `json:"total"`
	// PagosTraslapados lists active payments whose period intersects this one.
	PagosTraslapados []PagoComisionResponse `json:"pagos_traslapados"`
	Advertencia      string                 `json:"advertencia,omitempty"`
}

type PagoComisionResponse struct {
	ID         string          `json:"id"`
	MedicoID   string          `json:"medico_id"`
	Desde      model.Fecha     `json:"desde"`
	Hasta      model.Fecha     `json:"hasta"`
	Total      decimal.Decimal `json:"total"`
	Nota       string          `json:"nota"`
	Override   bool            `json:"override"`
	TurnoID    *string         `json:"turno_id"`
	Items      int             `json:"items"`
	PagadoPor  string          `json:"pagado_por"`
	PaidAt     string          `json:"paid_at"`
	VoidedAt   *string         `json:"voided_at"`
	VoidReason *string         `json:"void_reason"`
}
