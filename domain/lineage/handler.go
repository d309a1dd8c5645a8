package lineage

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/datamesh-labs/catalogd/pkg/apperror"
)

// Handler handles HTTP requests for lineage
type Handler struct {
	svc *Service
}

// NewHandler creates a new lineage handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Add records a lineage edge
// PUT /api/v1/lineage
func (h *Handler) Add(c echo.Context) error {
	var req AddLineageRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid lineage body")
	}

	if err := h.svc.Add(c.Request().Context(), &req); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// Delete removes a lineage edge
// DELETE /api/v1/lineage/:fromId/:toId
func (h *Handler) Delete(c echo.Context) error {
	fromID, err := uuid.Parse(c.Param("fromId"))
	if err != nil {
		return apperror.NewBadRequest("invalid upstream entity id")
	}
	toID, err := uuid.Parse(c.Param("toId"))
	if err != nil {
		return apperror.NewBadRequest("invalid downstream entity id")
	}

	if err := h.svc.Delete(c.Request().Context(), fromID, toID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Get returns the lineage neighbourhood of an entity
// GET /api/v1/lineage/:id
// Query params: upstreamDepth, downstreamDepth (default 1, max 10)
func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.NewBadRequest("invalid entity id")
	}

	lineage, err := h.svc.Get(c.Request().Context(), id,
		depthParam(c, "upstreamDepth"), depthParam(c, "downstreamDepth"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, lineage)
}

func depthParam(c echo.Context, name string) int {
	depth, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 1
	}
	return depth
}
