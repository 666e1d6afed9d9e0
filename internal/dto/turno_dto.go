package dto

import (
	"clinicapos/internal/efectivo"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirTurnoRequest struct {
	Desglose efectivo.Desglose `json:"desglose"`
}

type AutorizacionRequest struct {
	Nota string `json:"nota"`
}

type CuadreRequest struct {
	Desglose efectivo.Desglose `json:"desglose"`
}

type CerrarTurnoRequest struct {
	Desglose efectivo.Desglose `json:"desglose"`
	// Autorizacion is signed by the authenticated caller; only supervisor or
	// administrador may send it.
	Autorizacion *AutorizacionRequest `json:"autorizacion" validate:"omitempty"`
}

type GastoRequest struct {
	Monto         decimal.Decimal `json:"monto"         validate:"required,gt=0"`
	MetodoPago    string          `json:"metodo_pago"   validate:"omitempty,oneof=efectivo tarjeta transferencia deposito"`
	Clasificacion string          `json:"clasificacion" validate:"required,max=120"`
	Descripcion   string          `json:"descripcion"   validate:"required,min=3"`
	Beneficiario  string          `json:"beneficiario"`
}

type VoucherRequest struct {
	Numero  string          `json:"numero"   validate:"required,max=60"`
	Monto   decimal.Decimal `json:"monto"    validate:"required,gt=0"`
	VentaID *string         `json:"venta_id" validate:"omitempty,uuid"`
}

// FolioRequest registers a transfer or deposit slip.
type FolioRequest struct {
	Folio   string          `json:"folio"    validate:"required,max=60"`
	Monto   decimal.Decimal `json:"monto"    validate:"required,gt=0"`
	VentaID *string         `json:"venta_id" validate:"omitempty,uuid"`
}

type TurnoFilter struct {
	Estado string `form:"estado" validate:"omitempty,oneof=abierto cerrado"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MontosPorCanal struct {
	Efectivo      decimal.Decimal `json:"efectivo"`
	Tarjeta       decimal.Decimal `json:"tarjeta"`
	Transferencia decimal.Decimal `json:"transferencia"`
	Deposito      decimal.Decimal `json:"deposito"`
	Total         decimal.Decimal `json:"total"`
}

// CuadreResponse is the reconciliation of a shift. MontoCierre and the cash
// discrepancy are nil when no closing count was supplied (dashboard view).
type CuadreResponse struct {
	TurnoID                 string           `json:"turno_id"`
	MontoApertura           decimal.Decimal  `json:"monto_apertura"`
	MontoCierre             *decimal.Decimal `json:"monto_cierre"`
	Ventas                  MontosPorCanal   `json:"ventas"`
	TotalVouchers           decimal.Decimal  `json:"total_vouchers"`
	TotalTransferencias     decimal.Decimal  `json:"total_transferencias"`
	TotalDepositos          decimal.Decimal  `json:"total_depositos"`
	TotalGastos             decimal.Decimal  `json:"total_gastos"`
	GastosEfectivo          decimal.Decimal  `json:"gastos_efectivo"`
	ComisionesEfectivo      decimal.Decimal  `json:"comisiones_efectivo"`
	Impuestos               MontosPorCanal   `json:"impuestos"`
	EfectivoEsperado        decimal.Decimal  `json:"efectivo_esperado"`
	DescuadreEfectivo       *decimal.Decimal `json:"descuadre_efectivo"`
	DescuadreVouchers       decimal.Decimal  `json:"descuadre_vouchers"`
	DescuadreTransferencias decimal.Decimal  `json:"descuadre_transferencias"`
	Tolerancia              decimal.Decimal  `json:"tolerancia"`
	RequiereAutorizacion    bool             `json:"requiere_autorizacion"`
}

type TurnoResponse struct {
	ID               string             `json:"id"`
	OperadorID       string             `json:"operador_id"`
	Estado           string             `json:"estado"`
	DesgloseApertura efectivo.Desglose  `json:"desglose_apertura"`
	MontoApertura    decimal.Decimal    `json:"monto_apertura"`
	DesgloseCierre   *efectivo.Desglose `json:"desglose_cierre"`
	Cuadre           *CuadreResponse    `json:"cuadre"`
	AutorizadoPor    *string            `json:"autorizado_por"`
	NotaAutorizacion *string            `json:"nota_autorizacion"`
	OpenedAt         string             `json:"opened_at"`
	ClosedAt         *string            `json:"closed_at"`
}

type TurnoListResponse struct {
	Data  []TurnoResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

type RegistroTurnoResponse struct {
	ID      string          `json:"id"`
	TurnoID string          `json:"turno_id"`
	Monto   decimal.Decimal `json:"monto"`
}
