package tables

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/datamesh-labs/catalogd/pkg/apperror"
)

// Handler adds the table-specific endpoints next to the generic entity
// routes: sample data and join usage.
type Handler struct {
	store *Store
}

// NewHandler creates a table handler
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// PutSampleData stores a row sample for a table
// PUT /api/v1/tables/:id/sampleData
func (h *Handler) PutSampleData(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var sample SampleData
	if err := c.Bind(&sample); err != nil {
		return apperror.NewBadRequest("invalid sample data body")
	}

	if err := h.store.PutSampleData(c.Request().Context(), id, &sample); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sample)
}

// GetSampleData returns the stored row sample
// GET /api/v1/tables/:id/sampleData
func (h *Handler) GetSampleData(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	sample, err := h.store.GetSampleData(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sample)
}

// PutJoins merges observed join counts into the table's join usage
// PUT /api/v1/tables/:id/joins
func (h *Handler) PutJoins(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req JoinsRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid joins body")
	}

	if err := h.store.RecordJoins(c.Request().Context(), id, &req); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// GetJoins returns the table's join usage
// GET /api/v1/tables/:id/joins
func (h *Handler) GetJoins(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	joins, err := h.store.GetJoins(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, joins)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperror.NewBadRequest("invalid table id")
	}
	return id, nil
}
