package handler

import (
	"net/http"

	"clinicapos/internal/dto"
	"clinicapos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TurnosHandler struct{ svc service.TurnoService }

func NewTurnosHandler(svc service.TurnoService) *TurnosHandler { return &TurnosHandler{svc: svc} }

// Abrir godoc
// @Summary Abre el turno con el conteo inicial de efectivo
// @Tags turnos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirTurnoRequest true "Desglose de apertura"
// @Success 201 {object} dto.TurnoResponse
// @Failure 400 {object} apierror.AppError
// @Failure 409 {object} apierror.AppError
// @Router /v1/turnos [post]
func (h *TurnosHandler) Abrir(c *gin.Context) {
	var req dto.AbrirTurnoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Abrir(c.Request.Context(), actor(c).ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Activo godoc
// @Summary Turno abierto con su cuadre en vivo
// @Tags turnos
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.TurnoResponse
// @Failure 412 {object} apierror.AppError
// @Router /v1/turnos/activo [get]
func (h *TurnosHandler) Activo(c *gin.Context) {
	resp, err := h.svc.Activo(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Obtener returns a shift by id with its stored or live cuadre.
func (h *TurnosHandler) Obtener(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Listar returns a paginated shift history.
func (h *TurnosHandler) Listar(c *gin.Context) {
	var filter dto.TurnoFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarGasto godoc
// @Summary Registra un gasto del turno abierto
// @Tags turnos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.GastoRequest true "Gasto"
// @Success 201 {object} dto.RegistroTurnoResponse
// @Failure 412 {object} apierror.AppError
// @Router /v1/turnos/gastos [post]
func (h *TurnosHandler) RegistrarGasto(c *gin.Context) {
	var req dto.GastoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarGasto(c.Request.Context(), actor(c).ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *TurnosHandler) RegistrarVoucher(c *gin.Context) {
	var req dto.VoucherRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarVoucher(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *TurnosHandler) RegistrarTransferencia(c *gin.Context) {
	var req dto.FolioRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarTransferencia(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *TurnosHandler) RegistrarDeposito(c *gin.Context) {
	var req dto.FolioRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarDeposito(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Cuadre godoc
// @Summary Cuadre previo del turno abierto contra un conteo de cierre
// @Description No escribe nada. Indica si el cierre requerirá autorización.
// @Tags turnos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CuadreRequest true "Desglose de cierre"
// @Success 200 {object} dto.CuadreResponse
// @Router /v1/turnos/cuadre [post]
func (h *TurnosHandler) Cuadre(c *gin.Context) {
	var req dto.CuadreRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.PrevisualizarCierre(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cerrar godoc
// @Summary Cierra el turno abierto
// @Description Un descuadre fuera de tolerancia exige autorización de supervisor o administrador.
// @Tags turnos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CerrarTurnoRequest true "Desglose de cierre y autorización opcional"
// @Success 200 {object} dto.TurnoResponse
// @Failure 403 {object} apierror.AppError
// @Failure 409 {object} apierror.AppError
// @Router /v1/turnos/cerrar [post]
func (h *TurnosHandler) Cerrar(c *gin.Context) {
	h.cerrar(c, nil)
}

// CerrarPorID closes a specific shift; used when the client holds a stale view.
func (h *TurnosHandler) CerrarPorID(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	h.cerrar(c, &id)
}

func (h *TurnosHandler) cerrar(c *gin.Context, id *uuid.UUID) {
	var req dto.CerrarTurnoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
