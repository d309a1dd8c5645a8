package entity

import (
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/datamesh-labs/catalogd/internal/config"
	"github.com/datamesh-labs/catalogd/pkg/apperror"
)

// Handler exposes one entity type's store over HTTP. The per-type routes
// packages register it and add their type-specific endpoints next to it.
type Handler[T Object] struct {
	store *Store[T]
	cfg   *config.Config
}

// NewHandler creates an HTTP handler for one entity store.
func NewHandler[T Object](store *Store[T], cfg *config.Config) *Handler[T] {
	return &Handler[T]{store: store, cfg: cfg}
}

// Register wires the standard entity routes onto a group.
func (h *Handler[T]) Register(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.PUT("", h.CreateOrUpdate)
	g.GET("/name/:fqn", h.GetByName)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Patch)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/versions", h.ListVersions)
	g.GET("/:id/versions/:version", h.GetVersion)
	g.PUT("/:id/followers/:userId", h.AddFollower)
	g.DELETE("/:id/followers/:userId", h.DeleteFollower)
}

// List returns one page of entities
// Query params: fields, include, limit, after, before, parent (FQN prefix)
func (h *Handler[T]) List(c echo.Context) error {
	fields := ParseFields(c.QueryParam("fields"))
	include, err := ParseInclude(c.QueryParam("include"))
	if err != nil {
		return err
	}
	limit, err := h.parseLimit(c)
	if err != nil {
		return err
	}

	prefix := c.QueryParam("parent")
	before := c.QueryParam("before")
	after := c.QueryParam("after")
	if before != "" && after != "" {
		return apperror.NewBadRequest("only one of before and after may be set")
	}

	var page *Page[T]
	if before != "" {
		page, err = h.store.ListBefore(c.Request().Context(), prefix, limit, before, fields, include)
	} else {
		page, err = h.store.ListAfter(c.Request().Context(), prefix, limit, after, fields, include)
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, page)
}

// Get returns an entity by id
func (h *Handler[T]) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	fields := ParseFields(c.QueryParam("fields"))
	include, err := ParseInclude(c.QueryParam("include"))
	if err != nil {
		return err
	}

	e, err := h.store.Get(c.Request().Context(), id, fields, include)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// GetByName returns an entity by fully qualified name
func (h *Handler[T]) GetByName(c echo.Context) error {
	fields := ParseFields(c.QueryParam("fields"))
	include, err := ParseInclude(c.QueryParam("include"))
	if err != nil {
		return err
	}

	e, err := h.store.GetByName(c.Request().Context(), c.Param("fqn"), fields, include)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// Create stores a new entity
func (h *Handler[T]) Create(c echo.Context) error {
	e := h.store.New()
	if err := c.Bind(e); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	created, err := h.store.Create(c.Request().Context(), e, callerOf(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// CreateOrUpdate upserts an entity by FQN. An If-Match header carrying the
// expected version turns the write into a compare-and-swap.
func (h *Handler[T]) CreateOrUpdate(c echo.Context) error {
	e := h.store.New()
	if err := c.Bind(e); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	expected, err := expectedVersion(c)
	if err != nil {
		return err
	}

	result, isNew, err := h.store.CreateOrUpdate(c.Request().Context(), e, callerOf(c), expected)
	if err != nil {
		return err
	}
	if isNew {
		return c.JSON(http.StatusCreated, result)
	}
	return c.JSON(http.StatusOK, result)
}

// Patch applies an RFC 6902 patch to an entity
func (h *Handler[T]) Patch(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	expected, err := expectedVersion(c)
	if err != nil {
		return err
	}
	patchDoc, err := io.ReadAll(c.Request().Body)
	if err != nil || len(patchDoc) == 0 {
		return apperror.NewBadRequest("missing JSON patch body")
	}

	e, err := h.store.Patch(c.Request().Context(), id, callerOf(c), patchDoc, expected)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// Delete removes an entity
// Query params: recursive (default false), hardDelete (default false)
func (h *Handler[T]) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	recursive := c.QueryParam("recursive") == "true"
	hardDelete := c.QueryParam("hardDelete") == "true"

	if err := h.store.Delete(c.Request().Context(), id, recursive, hardDelete, callerOf(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListVersions returns the entity's version history
func (h *Handler[T]) ListVersions(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	history, err := h.store.ListVersions(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, history)
}

// GetVersion returns one version snapshot
func (h *Handler[T]) GetVersion(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	version, err := strconv.ParseFloat(c.Param("version"), 64)
	if err != nil {
		return apperror.NewBadRequest("invalid version: " + c.Param("version"))
	}

	e, err := h.store.GetVersion(c.Request().Context(), id, version)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// AddFollower makes a user follow the entity. 201 on first follow, 200 on
// repeats.
func (h *Handler[T]) AddFollower(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return apperror.NewBadRequest("invalid user id")
	}

	created, err := h.store.AddFollower(c.Request().Context(), id, userID)
	if err != nil {
		return err
	}
	if created {
		return c.NoContent(http.StatusCreated)
	}
	return c.NoContent(http.StatusOK)
}

// DeleteFollower removes a follower from the entity
func (h *Handler[T]) DeleteFollower(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return apperror.NewBadRequest("invalid user id")
	}

	if err := h.store.DeleteFollower(c.Request().Context(), id, userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler[T]) parseLimit(c echo.Context) (int, error) {
	limit := h.cfg.Catalog.DefaultPageSize
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return 0, apperror.NewBadRequest("invalid limit: " + raw)
		}
		limit = parsed
	}
	if limit > h.cfg.Catalog.MaxPageSize {
		limit = h.cfg.Catalog.MaxPageSize
	}
	return limit, nil
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperror.NewBadRequest("invalid entity id")
	}
	return id, nil
}

// callerOf names the writer for the audit trail. Authentication is out of
// scope; the gateway forwards the principal in a header.
func callerOf(c echo.Context) string {
	if user := c.Request().Header.Get("X-Catalog-User"); user != "" {
		return user
	}
	return "anonymous"
}

func expectedVersion(c echo.Context) (*float64, error) {
	raw := c.Request().Header.Get("If-Match")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperror.NewBadRequest("invalid If-Match version: " + raw)
	}
	return &v, nil
}
