package dto

import "github.com/shopspring/decimal"

type CrearMedicoRequest struct {
	Nombre       string          `json:"nombre"       validate:"required,min=3,max=150"`
	Especialidad string          `json:"especialidad" validate:"max=100"`
	ComisionPct  decimal.Decimal `json:"comision_pct" validate:"min=0,max=100"`
}

type MedicoResponse struct {
	ID           string          `json:"id"`
	Nombre       string          `json:"nombre"`
	Especialidad string          `json:"especialidad"`
	ComisionPct  decimal.Decimal `json:"comision_pct"`
	Activo       bool            `json:"activo"`
}
