package users

import (
	"github.com/labstack/echo/v4"

	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/internal/config"
)

// RegisterRoutes registers user and team routes
func RegisterRoutes(e *echo.Echo, userStore *Store, teamStore *TeamStore, cfg *config.Config) {
	entity.NewHandler(userStore.Store, cfg).Register(e.Group("/api/v1/users"))
	entity.NewHandler(teamStore.Store, cfg).Register(e.Group("/api/v1/teams"))
}
