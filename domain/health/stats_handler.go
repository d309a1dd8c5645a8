package health

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// StatsHandler reports document and graph row counts.
type StatsHandler struct {
	db *bun.DB
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(db *bun.DB) *StatsHandler {
	return &StatsHandler{db: db}
}

// EntityStats holds row counts for one document table.
type EntityStats struct {
	EntityType string `json:"entityType"`
	Live       int64  `json:"live"`
	Deleted    int64  `json:"deleted"`
	Total      int64  `json:"total"`
}

// CatalogStats aggregates counts across the whole catalog.
type CatalogStats struct {
	Entities      []EntityStats `json:"entities"`
	Relationships int64         `json:"relationships"`
	TagUsages     int64         `json:"tagUsages"`
	Snapshots     int64         `json:"snapshots"`
	Timestamp     string        `json:"timestamp"`
}

// Stats returns catalog-wide row counts.
func (h *StatsHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	tables := []struct {
		entityType string
		table      string
	}{
		{"databaseService", "database_service_entity"},
		{"database", "database_entity"},
		{"table", "table_entity"},
		{"user", "user_entity"},
		{"team", "team_entity"},
		{"glossary", "glossary_entity"},
		{"glossaryTerm", "glossary_term_entity"},
	}

	stats := CatalogStats{
		Entities:  make([]EntityStats, 0, len(tables)),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	for _, t := range tables {
		entity, err := h.tableStats(ctx, t.entityType, t.table)
		if err != nil {
			continue
		}
		stats.Entities = append(stats.Entities, *entity)
	}

	stats.Relationships, _ = h.countRows(ctx, "entity_relationship", "NOT deleted")
	stats.TagUsages, _ = h.countRows(ctx, "tag_usage", "")
	stats.Snapshots, _ = h.countRows(ctx, "entity_extension", "")

	return c.JSON(http.StatusOK, stats)
}

func (h *StatsHandler) tableStats(ctx context.Context, entityType, table string) (*EntityStats, error) {
	var counts struct {
		Live    int64 `bun:"live"`
		Deleted int64 `bun:"deleted"`
		Total   int64 `bun:"total"`
	}
	err := h.db.NewRaw(`
		SELECT
			COUNT(*) FILTER (WHERE NOT deleted) as live,
			COUNT(*) FILTER (WHERE deleted) as deleted,
			COUNT(*) as total
		FROM `+table).Scan(ctx, &counts)
	if err != nil {
		return nil, err
	}

	return &EntityStats{
		EntityType: entityType,
		Live:       counts.Live,
		Deleted:    counts.Deleted,
		Total:      counts.Total,
	}, nil
}

func (h *StatsHandler) countRows(ctx context.Context, table, where string) (int64, error) {
	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var count int64
	err := h.db.NewRaw(query).Scan(ctx, &count)
	return count, err
}
