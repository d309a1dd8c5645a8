package databases

import (
	"github.com/labstack/echo/v4"

	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/internal/config"
)

// RegisterRoutes registers database routes
func RegisterRoutes(e *echo.Echo, store *Store, cfg *config.Config) {
	entity.NewHandler(store.Store, cfg).Register(e.Group("/api/v1/databases"))
}
