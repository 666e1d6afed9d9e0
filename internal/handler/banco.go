package handler

import (
	"net/http"
	"strconv"

	"clinicapos/internal/apierror"
	"clinicapos/internal/dto"
	"clinicapos/internal/service"

	"github.com/gin-gonic/gin"
)

type BancoHandler struct{ svc service.BancoService }

func NewBancoHandler(svc service.BancoService) *BancoHandler { return &BancoHandler{svc: svc} }

// RegistrarSaldoInicial godoc
// @Summary Registra un nuevo saldo inicial y recalcula el libro
// @Description El saldo activo anterior queda desactivado como historial.
// @Tags banco
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.SaldoInicialRequest true "Monto"
// @Success 201 {object} dto.SaldoInicialResponse
// @Router /v1/banco/saldo-inicial [post]
func (h *BancoHandler) RegistrarSaldoInicial(c *gin.Context) {
	var req dto.SaldoInicialRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarSaldoInicial(c.Request.Context(), actor(c).ID, req.Monto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *BancoHandler) ListarSaldosIniciales(c *gin.Context) {
	resp, err := h.svc.ListarSaldosIniciales(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Agregar godoc
// @Summary Agrega un movimiento manual al libro de banco
// @Tags banco
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.MovimientoRequest true "Movimiento"
// @Success 201 {object} dto.MovimientoResponse
// @Failure 400 {object} apierror.AppError
// @Failure 412 {object} apierror.AppError
// @Router /v1/banco/movimientos [post]
func (h *BancoHandler) Agregar(c *gin.Context) {
	var req dto.MovimientoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Agregar(c.Request.Context(), actor(c).ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Actualizar godoc
// @Summary Modifica un movimiento manual
// @Tags banco
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id   path int                             true "ID del movimiento"
// @Param body body dto.ActualizarMovimientoRequest true "Campos a modificar"
// @Success 200 {object} dto.MovimientoResponse
// @Failure 409 {object} apierror.AppError
// @Router /v1/banco/movimientos/{id} [patch]
func (h *BancoHandler) Actualizar(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var req dto.ActualizarMovimientoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BancoHandler) Eliminar(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Eliminar(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Listar godoc
// @Summary Lista el libro de banco en orden de saldo corrido
// @Tags banco
// @Produce json
// @Security BearerAuth
// @Param desde         query string false "YYYY-MM-DD"
// @Param hasta         query string false "YYYY-MM-DD"
// @Param clasificacion query string false "Clasificación exacta"
// @Success 200 {array} dto.MovimientoResponse
// @Router /v1/banco/movimientos [get]
func (h *BancoHandler) Listar(c *gin.Context) {
	var q dto.MovimientoFilter
	if !bindQuery(c, &q) {
		return
	}
	desde, hasta, ok := parseRango(c, q.Desde, q.Hasta)
	if !ok {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), service.MovimientoFiltro{Desde: desde, Hasta: hasta, Clasificacion: q.Clasificacion})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Recalcular rewalks every running balance from the active initial balance.
func (h *BancoHandler) Recalcular(c *gin.Context) {
	resp, err := h.svc.Recalcular(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BancoHandler) Saldo(c *gin.Context) {
	saldo, activo, err := h.svc.Saldo(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saldo": saldo, "saldo_inicial_activo": activo})
}

func paramInt64(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, apierror.ErrBadRequest.WithMessage("ID invalido").WithDetail(name, c.Param(name)))
		return 0, false
	}
	return id, true
}
