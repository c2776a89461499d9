package handler

import (
	"net/http"

	"cajacancha/internal/apierror"
	"cajacancha/internal/dto"
	"cajacancha/internal/middleware"
	"cajacancha/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PagosHandler struct{ svc service.PagoService }

func NewPagosHandler(svc service.PagoService) *PagosHandler { return &PagosHandler{svc: svc} }

// Crear godoc
// @Summary Da de alta un pago de cancha (deuda a saldar)
// @Tags pagos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearPagoRequest true "Datos del pago"
// @Success 201 {object} dto.PagoResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/pagos [post]
func (h *PagosHandler) Crear(c *gin.Context) {
	var req dto.CrearPagoRequest
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

// Obtener godoc
// @Summary Detalle de un pago con sus transacciones
// @Tags pagos
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de pago"
// @Success 200 {object} dto.PagoResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/pagos/{id} [get]
func (h *PagosHandler) Obtener(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Listar godoc
// @Summary Lista pagos filtrando por estado y rango de fechas de turno
// @Tags pagos
// @Produce json
// @Security BearerAuth
// @Param estado query string false "pendiente | parcial | pagado"
// @Param desde query string false "YYYY-MM-DD"
// @Param hasta query string false "YYYY-MM-DD"
// @Param page query int false "Página"
// @Param limit query int false "Tamaño de página"
// @Success 200 {object} dto.PagoListResponse
// @Router /v1/pagos [get]
func (h *PagosHandler) Listar(c *gin.Context) {
	var req dto.PagoFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("filtros inválidos: "+err.Error()))
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, apierror.New("filtros inválidos"))
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarTransaccion godoc
// @Summary Registra un pago parcial o total contra la deuda
// @Tags pagos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de pago"
// @Param body body dto.RegistrarTransaccionRequest true "Transacción"
// @Success 201 {object} dto.PagoResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/pagos/{id}/transacciones [post]
func (h *PagosHandler) RegistrarTransaccion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	var req dto.RegistrarTransaccionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	usuarioID, _ := uuid.Parse(claims.UserID)

	resp, err := h.svc.RegistrarTransaccion(c.Request.Context(), usuarioID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// AnularTransaccion godoc
// @Summary Anula una transacción revirtiendo íntegramente su efecto
// @Tags pagos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de transacción"
// @Param body body dto.AnularTransaccionRequest true "Motivo"
// @Success 200 {object} dto.AnulacionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/pagos/transacciones/{id}/anular [post]
func (h *PagosHandler) AnularTransaccion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	var req dto.AnularTransaccionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	usuarioID, _ := uuid.Parse(claims.UserID)

	resp, err := h.svc.AnularTransaccion(c.Request.Context(), usuarioID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
