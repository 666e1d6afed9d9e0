package dto

import (
	"clinicapos/internal/model"

	"github.com/shopspring/decimal"
)

type ComisionPendienteResponse struct {
	MedicoID string          `json:"medico_id"`
	Nombre   string          `json:"nombre"`
	Items    int             `json:"items"`
	Total    decimal.Decimal `json:"total"`
}

type DashboardResponse struct {
	// TurnoActivo is the live reconciliation of the open shift, nil if none.
	TurnoActivo          *CuadreResponse             `json:"turno_activo"`
	SaldoBanco           decimal.Decimal             `json:"saldo_banco"`
	SaldoInicialActivo   bool                        `json:"saldo_inicial_activo"`
	ComisionesPendientes []ComisionPendienteResponse `json:"comisiones_pendientes"`
	TotalComisiones      decimal.Decimal             `json:"total_comisiones_pendientes"`
}

type LineaResultado struct {
	Clasificacion string          `json:"clasificacion"`
	Monto         decimal.Decimal `json:"monto"`
}

type EstadoResultadosResponse struct {
	Desde         model.Fecha      `json:"desde"`
	Hasta         model.Fecha      `json:"hasta"`
	Ingresos      []LineaResultado `json:"ingresos"`
	Egresos       []LineaResultado `json:"egresos"`
	TotalIngresos decimal.Decimal  `json:"total_ingresos"`
	TotalEgresos  decimal.Decimal  `json:"total_egresos"`
	ResultadoNeto decimal.Decimal  `json:"resultado_neto"`
}
