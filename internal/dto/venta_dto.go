package dto

import (
	"clinicapos/internal/model"

	"github.com/shopspring/decimal"
)

// ─── Filter / List ──────────────────────────────────────────────────────────

// VentaFilter is bound from query string of GET /v1/ventas.
type VentaFilter struct {
	Desde   string `form:"desde"` // YYYY-MM-DD
	Hasta   string `form:"hasta"` // YYYY-MM-DD
	TurnoID string `form:"turno_id" validate:"omitempty,uuid"`
	Estado  string `form:"estado,default=completada"` // completada | anulada | all
	Page    int    `form:"page,default=1"   validate:"min=1"`
	Limit   int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type VentaListResponse struct {
	Data  []VentaResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ItemVentaRequest struct {
	Concepto       string          `json:"concepto"        validate:"required,min=2"`
	Tipo           string          `json:"tipo"            validate:"required,oneof=medicamento servicio extra"`
	Cantidad       int             `json:"cantidad"        validate:"required,min=1"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario" validate:"required,gt=0"`
	Descuento      decimal.Decimal `json:"descuento"       validate:"min=0"`
	MedicoID       *string         `json:"medico_id"       validate:"omitempty,uuid"`
	// ComisionPct overrides the doctor's default percentage (0-100).
	ComisionPct *decimal.Decimal `json:"comision_pct"`
}

type PagoRequest struct {
	Metodo string          `json:"metodo" validate:"required,oneof=efectivo tarjeta transferencia deposito"`
	Monto  decimal.Decimal `json:"monto"  validate:"required,gt=0"`
}

type RegistrarVentaRequest struct {
	// Fecha defaults to today.
	Fecha *model.Fecha       `json:"fecha"`
	Items []ItemVentaRequest `json:"items" validate:"required,min=1,dive"`
	Pagos []PagoRequest      `json:"pagos" validate:"required,min=1,dive"`
}

type AnularVentaRequest struct {
	Motivo string `json:"motivo" validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemVentaResponse struct {
	ID             string          `json:"id"`
	Concepto       string          `json:"concepto"`
	Tipo           string          `json:"tipo"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Descuento      decimal.Decimal `json:"descuento"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	MedicoID       *string         `json:"medico_id"`
	ComisionPct    decimal.Decimal `json:"comision_pct"`
	ComisionMonto  decimal.Decimal `json:"comision_monto"`
	EstadoComision string          `json:"estado_comision"`
}

type PagoResponse struct {
	Metodo string          `json:"metodo"`
	Monto  decimal.Decimal `json:"monto"`
}

type VentaResponse struct {
	ID             string              `json:"id"`
	TurnoID        string              `json:"turno_id"`
	UsuarioID      string              `json:"usuario_id"`
	Fecha          model.Fecha         `json:"fecha"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	DescuentoTotal decimal.Decimal     `json:"descuento_total"`
	Total          decimal.Decimal     `json:"total"`
	Vuelto         decimal.Decimal     `json:"vuelto"`
	Estado         string              `json:"estado"`
	Items          []ItemVentaResponse `json:"items"`
	Pagos          []PagoResponse      `json:"pagos"`
	CreatedAt      string              `json:"created_at"`
}
