package lineage

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers lineage routes
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/v1/lineage")

	g.PUT("", h.Add)
	g.GET("/:id", h.Get)
	g.DELETE("/:fromId/:toId", h.Delete)
}
