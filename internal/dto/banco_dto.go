package dto

import (
	"clinicapos/internal/model"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type SaldoInicialRequest struct {
	Monto decimal.Decimal `json:"monto"`
}

// MovimientoRequest is a manual ledger entry. Exactly one of Ingreso/Egreso is positive.
type MovimientoRequest struct {
	Fecha         model.Fecha     `json:"fecha"`
	Beneficiario  string          `json:"beneficiario"`
	Descripcion   string          `json:"descripcion"   validate:"required,min=3"`
	Clasificacion string          `json:"clasificacion" validate:"required,max=120"`
	Ingreso       decimal.Decimal `json:"ingreso"       validate:"min=0"`
	Egreso        decimal.Decimal `json:"egreso"        validate:"min=0"`
}

// ActualizarMovimientoRequest is a partial patch; nil fields are left untouched.
type ActualizarMovimientoRequest struct {
	Fecha         *model.Fecha     `json:"fecha"`
	Beneficiario  *string          `json:"beneficiario"`
	Descripcion   *string          `json:"descripcion"   validate:"omitempty,min=3"`
	Clasificacion *string          `json:"clasificacion" validate:"omitempty,max=120"`
	Ingreso       *decimal.Decimal `json:"ingreso"`
	Egreso        *decimal.Decimal `json:"egreso"`
}

// MovimientoFilter is bound from the query string of GET /v1/banco/movimientos.
type MovimientoFilter struct {
	Desde         string `form:"desde"`
	Hasta         string `form:"hasta"`
	Clasificacion string `form:"clasificacion"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MovimientoResponse struct {
	ID            int64           `json:"id"`
	Fecha         model.Fecha     `json:"fecha"`
	Beneficiario  string          `json:"beneficiario"`
	Descripcion   string          `json:"descripcion"`
	Clasificacion string          `json:"clasificacion"`
	Direccion     string          `json:"direccion"`
	Ingreso       decimal.Decimal `json:"ingreso"`
	Egreso        decimal.Decimal `json:"egreso"`
	SaldoCorrido  decimal.Decimal `json:"saldo_corrido"`
	ClaveOrigen   *string         `json:"clave_origen"`
	RegistradoPor string          `json:"registrado_por"`
}

type SaldoInicialResponse struct {
	ID            string          `json:"id"`
	Monto         decimal.Decimal `json:"monto"`
	RegistradoPor string          `json:"registrado_por"`
	Activo        bool            `json:"activo"`
	CreatedAt     string          `json:"created_at"`
	DesactivadoAt *string         `json:"desactivado_at"`
}

type RecalculoResponse struct {
	Filas        int             `json:"filas"`
	Actualizadas int             `json:"actualizadas"`
	SaldoFinal   decimal.Decimal `json:"saldo_final"`
}
