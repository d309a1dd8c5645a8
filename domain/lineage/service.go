package lineage

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/domain/relationship"
	"github.com/datamesh-labs/catalogd/pkg/apperror"
	"github.com/datamesh-labs/catalogd/pkg/logger"
)

// MaxDepth caps how far a lineage walk may expand in either direction.
const MaxDepth = 10

// Service maintains and traverses UPSTREAM edges between tables.
type Service struct {
	rel      *relationship.Repository
	registry *entity.Registry
	log      *slog.Logger
}

// NewService creates a new lineage service
func NewService(rel *relationship.Repository, registry *entity.Registry, log *slog.Logger) *Service {
	return &Service{
		rel:      rel,
		registry: registry,
		log:      log.With(logger.Scope("lineage.svc")),
	}
}

// Add records that FromEntity feeds ToEntity. Re-adding an existing edge
// replaces its details.
func (s *Service) Add(ctx context.Context, req *AddLineageRequest) error {
	from, err := s.registry.ResolveReference(ctx, relationship.TypeTable, &req.FromEntity)
	if err != nil {
		return err
	}
	to, err := s.registry.ResolveReference(ctx, relationship.TypeTable, &req.ToEntity)
	if err != nil {
		return err
	}
	if from.ID == to.ID {
		return apperror.NewBadRequest("an entity cannot be its own upstream")
	}

	var payload []byte
	if req.Details != nil {
		payload, err = json.Marshal(req.Details)
		if err != nil {
			return apperror.ErrInternal.WithInternal(err)
		}
	}

	edge := &relationship.Edge{
		FromID:     from.ID,
		ToID:       to.ID,
		FromEntity: from.Type,
		ToEntity:   to.Type,
		Relation:   relationship.Upstream,
		JSON:       payload,
	}
	return s.rel.Insert(ctx, edge)
}

// Delete removes one lineage edge.
func (s *Service) Delete(ctx context.Context, fromID, toID uuid.UUID) error {
	removed, err := s.rel.Delete(ctx, fromID, toID, relationship.Upstream)
	if err != nil {
		return err
	}
	if !removed {
		return apperror.NewNotFound("lineage edge", fromID.String()+" -> "+toID.String())
	}
	return nil
}

// Get walks the lineage graph around one entity, upstream and downstream,
// each to its own bounded depth.
func (s *Service) Get(ctx context.Context, id uuid.UUID, upstreamDepth, downstreamDepth int) (*Lineage, error) {
	root, err := s.registry.Reference(ctx, relationship.TypeTable, id)
	if err != nil {
		return nil, err
	}

	upstream, err := s.walk(ctx, id, clampDepth(upstreamDepth), true)
	if err != nil {
		return nil, err
	}
	downstream, err := s.walk(ctx, id, clampDepth(downstreamDepth), false)
	if err != nil {
		return nil, err
	}

	return &Lineage{
		Entity:     *root,
		Upstream:   upstream,
		Downstream: downstream,
	}, nil
}

// walk expands the lineage frontier breadth first. A visited set keeps
// cyclic pipelines from looping the walk.
func (s *Service) walk(ctx context.Context, start uuid.UUID, depth int, upstream bool) ([]Edge, error) {
	var edges []Edge
	visited := map[uuid.UUID]bool{start: true}
	frontier := []uuid.UUID{start}

	for level := 0; level < depth && len(frontier) > 0; level++ {
		var next []uuid.UUID
		for _, id := range frontier {
			var found []relationship.Edge
			var err error
			if upstream {
				found, err = s.rel.FindTo(ctx, id, relationship.Upstream, "")
			} else {
				found, err = s.rel.FindFrom(ctx, id, relationship.Upstream, "")
			}
			if err != nil {
				return nil, err
			}

			for _, raw := range found {
				edge, err := s.resolveEdge(ctx, raw)
				if err != nil {
					return nil, err
				}
				edges = append(edges, *edge)

				neighbour := raw.FromID
				if !upstream {
					neighbour = raw.ToID
				}
				if !visited[neighbour] {
					visited[neighbour] = true
					next = append(next, neighbour)
				}
			}
		}
		frontier = next
	}
	return edges, nil
}

func (s *Service) resolveEdge(ctx context.Context, raw relationship.Edge) (*Edge, error) {
	from, err := s.registry.Reference(ctx, raw.FromEntity, raw.FromID)
	if err != nil {
		return nil, err
	}
	to, err := s.registry.Reference(ctx, raw.ToEntity, raw.ToID)
	if err != nil {
		return nil, err
	}

	edge := &Edge{FromEntity: *from, ToEntity: *to}
	if len(raw.JSON) > 0 {
		var details EdgeDetails
		if err := json.Unmarshal(raw.JSON, &details); err != nil {
			return nil, apperror.ErrInternal.WithInternal(err)
		}
		edge.Details = &details
	}
	return edge, nil
}

func clampDepth(depth int) int {
	if depth < 1 {
		return 1
	}
	if depth > MaxDepth {
		return MaxDepth
	}
	return depth
}
