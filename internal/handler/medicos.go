package handler

import (
	"net/http"

	"clinicapos/internal/dto"
	"clinicapos/internal/service"

	"github.com/gin-gonic/gin"
)

type MedicosHandler struct{ svc service.MedicoService }

func NewMedicosHandler(svc service.MedicoService) *MedicosHandler { return &MedicosHandler{svc: svc} }

// Crear godoc
// @Summary Alta de médico con su porcentaje de comisión por defecto
// @Tags medicos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearMedicoRequest true "Médico"
// @Success 201 {object} dto.MedicoResponse
// @Router /v1/medicos [post]
func (h *MedicosHandler) Crear(c *gin.Context) {
	var req dto.CrearMedicoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *MedicosHandler) Obtener(c *gin.Context) {
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

// Listar returns active doctors unless ?todos=true.
func (h *MedicosHandler) Listar(c *gin.Context) {
	resp, err := h.svc.Listar(c.Request.Context(), c.Query("todos") != "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
