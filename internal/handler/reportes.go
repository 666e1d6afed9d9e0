package handler

import (
	"net/http"

	"clinicapos/internal/dto"
	"clinicapos/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportesHandler struct{ svc service.ReporteService }

func NewReportesHandler(svc service.ReporteService) *ReportesHandler {
	return &ReportesHandler{svc: svc}
}

// Dashboard godoc
// @Summary Turno abierto, saldo de banco y comisiones pendientes
// @Tags reportes
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.DashboardResponse
// @Router /v1/reportes/dashboard [get]
func (h *ReportesHandler) Dashboard(c *gin.Context) {
	resp, err := h.svc.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportesHandler) ResumenTurno(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ResumenTurno(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// EstadoResultados godoc
// @Summary Estado de resultados por clasificación
// @Tags reportes
// @Produce json
// @Security BearerAuth
// @Param desde query string true "YYYY-MM-DD"
// @Param hasta query string true "YYYY-MM-DD"
// @Success 200 {object} dto.EstadoResultadosResponse
// @Failure 400 {object} apierror.AppError
// @Router /v1/reportes/estado-resultados [get]
func (h *ReportesHandler) EstadoResultados(c *gin.Context) {
	var q dto.PeriodoQuery
	if !bindQuery(c, &q) {
		return
	}
	desde, hasta, ok := parseRango(c, q.Desde, q.Hasta)
	if !ok {
		return
	}
	resp, err := h.svc.EstadoResultados(c.Request.Context(), *desde, *hasta)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
