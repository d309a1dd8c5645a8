package tables

import (
	"github.com/labstack/echo/v4"

	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/internal/config"
)

// RegisterRoutes registers table routes
func RegisterRoutes(e *echo.Echo, store *Store, h *Handler, cfg *config.Config) {
	g := e.Group("/api/v1/tables")
	entity.NewHandler(store.Store, cfg).Register(g)

	g.PUT("/:id/sampleData", h.PutSampleData)
	g.GET("/:id/sampleData", h.GetSampleData)
	g.PUT("/:id/joins", h.PutJoins)
	g.GET("/:id/joins", h.GetJoins)
}
