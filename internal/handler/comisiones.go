package handler

import (
	"net/http"

	"clinicapos/internal/apierror"
	"clinicapos/internal/dto"
	"clinicapos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ComisionesHandler struct{ svc service.ComisionService }

func NewComisionesHandler(svc service.ComisionService) *ComisionesHandler {
	return &ComisionesHandler{svc: svc}
}

// Agrupar godoc
// @Summary Vista previa de comisiones pendientes de un médico
// @Description Agrupa por día y concepto. Los pagos activos que se traslapan con el periodo se informan como advertencia.
// @Tags comisiones
// @Produce json
// @Security BearerAuth
// @Param id    path  string true "UUID del médico"
// @Param desde query string true "YYYY-MM-DD"
// @Param hasta query string true "YYYY-MM-DD"
// @Success 200 {object} dto.AgrupacionResponse
// @Failure 400 {object} apierror.AppError
// @Router /v1/medicos/{id}/comisiones [get]
func (h *ComisionesHandler) Agrupar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var q dto.PeriodoQuery
	if !bindQuery(c, &q) {
		return
	}
	desde, hasta, ok := parseRango(c, q.Desde, q.Hasta)
	if !ok {
		return
	}
	resp, err := h.svc.AgruparPeriodo(c.Request.Context(), id, *desde, *hasta)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Liquidar godoc
// @Summary Liquida las comisiones pendientes de un periodo
// @Description Un periodo traslapado con un pago activo exige override de supervisor o administrador.
// @Tags comisiones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.LiquidarRequest true "Periodo y opciones"
// @Success 201 {object} dto.PagoComisionResponse
// @Failure 400 {object} apierror.AppError
// @Failure 409 {object} apierror.AppError
// @Router /v1/comisiones/pagos [post]
func (h *ComisionesHandler) Liquidar(c *gin.Context) {
	var req dto.LiquidarRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Liquidar(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Anular godoc
// @Summary Anula un pago de comisiones y libera sus líneas
// @Tags comisiones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id   path string                true "UUID del pago"
// @Param body body dto.AnularPagoRequest true "Motivo"
// @Success 200 {object} dto.PagoComisionResponse
// @Failure 409 {object} apierror.AppError
// @Router /v1/comisiones/pagos/{id}/anular [post]
func (h *ComisionesHandler) Anular(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AnularPagoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Anular(c.Request.Context(), actor(c), id, req.Motivo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarPagos filters by ?medico_id= when present.
func (h *ComisionesHandler) ListarPagos(c *gin.Context) {
	var medicoID *uuid.UUID
	if raw := c.Query("medico_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, apierror.ErrBadRequest.WithDetail("medico_id", raw))
			return
		}
		medicoID = &id
	}
	resp, err := h.svc.ListarPagos(c.Request.Context(), medicoID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
