package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"drishti-worker-go/internal/logging"
	"drishti-worker-go/internal/models"
	"drishti-worker-go/internal/services/dispatch"
)

type UnitHandler struct {
	pool *dispatch.UnitPool
}

func NewUnitHandler(pool *dispatch.UnitPool) *UnitHandler {
	return &UnitHandler{pool: pool}
}

// ListUnits godoc
// @Summary List field units
// @Description Get the field unit pool with current availability
// @Tags units
// @Produce json
// @Success 200 {array} models.FieldUnit
// @Failure 500 {object} ErrorResponse
// @Router /units [get]
func (h *UnitHandler) ListUnits(c *gin.Context) {
	units, err := h.pool.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, units)
}

// RegisterUnit godoc
// @Summary Register a field unit
// @Description Add a field unit to the pool or replace an existing one
// @Tags units
// @Accept json
// @Produce json
// @Param unit body models.FieldUnit true "Field unit"
// @Success 201 {object} models.FieldUnit
// @Failure 400 {object} ErrorResponse
// @Router /units [post]
func (h *UnitHandler) RegisterUnit(c *gin.Context) {
	var unit models.FieldUnit
	if err := c.ShouldBindJSON(&unit); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if unit.Status == "" {
		unit.Status = models.UnitAvailable
	}

	if err := h.pool.Register(c.Request.Context(), unit); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	logging.Info(c).Str("unit_id", unit.UnitID).Str("type", unit.Type).Msg("Field unit registered")
	c.JSON(http.StatusCreated, unit)
}

// ReleaseUnit godoc
// @Summary Release a field unit
// @Description Mark a busy field unit available again
// @Tags units
// @Produce json
// @Param id path string true "Unit ID"
// @Success 200 {object} models.FieldUnit
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /units/{id}/release [post]
func (h *UnitHandler) ReleaseUnit(c *gin.Context) {
	unit, err := h.pool.Release(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, dispatch.ErrUnitNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}

	logging.Info(c).Str("unit_id", unit.UnitID).Msg("Field unit released")
	c.JSON(http.StatusOK, unit)
}
