package glossary

import (
	"github.com/labstack/echo/v4"

	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/internal/config"
)

// RegisterRoutes registers glossary and glossary term routes
func RegisterRoutes(e *echo.Echo, store *Store, terms *TermStore, cfg *config.Config) {
	entity.NewHandler(store.Store, cfg).Register(e.Group("/api/v1/glossaries"))
	entity.NewHandler(terms.Store, cfg).Register(e.Group("/api/v1/glossaryTerms"))
}
