package tag

import (
	"context"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/datamesh-labs/catalogd/pkg/apperror"
	"github.com/datamesh-labs/catalogd/pkg/fqn"
	"github.com/datamesh-labs/catalogd/pkg/logger"
)

// Repository handles database operations on the tag usage index. Like the
// relationship graph it is a pure index with the entity stores as its only
// writers.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new tag usage repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("tag.repo")),
	}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *Repository) WithTx(tx bun.IDB) *Repository {
	return &Repository{db: tx, log: r.log}
}

// Apply records a label on a target, updating type and state when the pair
// already exists.
func (r *Repository) Apply(ctx context.Context, usage *Usage) error {
	_, err := r.db.NewInsert().
		Model(usage).
		On("CONFLICT (tag_fqn, target_fqn) DO UPDATE").
		Set("label_type = EXCLUDED.label_type").
		Set("state = EXCLUDED.state").
		Exec(ctx)

	if err != nil {
		r.log.Error("failed to apply tag", logger.Error(err),
			slog.String("tag", usage.TagFQN),
			slog.String("target", usage.TargetFQN))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}

// ApplyAll replaces nothing and inserts each label in turn. Callers that
// need replace semantics delete first.
func (r *Repository) ApplyAll(ctx context.Context, targetFQN string, labels []Label) error {
	for _, label := range labels {
		usage := &Usage{
			TagFQN:    label.TagFQN,
			TargetFQN: targetFQN,
			LabelType: label.LabelType,
			State:     label.State,
		}
		if err := r.Apply(ctx, usage); err != nil {
			return err
		}
	}
	return nil
}

// List returns the labels applied to a target, ordered by tag FQN.
func (r *Repository) List(ctx context.Context, targetFQN string) ([]Label, error) {
	var usages []Usage

	err := r.db.NewSelect().
		Model(&usages).
		Where("target_fqn = ?", targetFQN).
		Order("tag_fqn ASC").
		Scan(ctx)

	if err != nil {
		r.log.Error("failed to list tags", logger.Error(err),
			slog.String("target", targetFQN))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	labels := make([]Label, 0, len(usages))
	for _, u := range usages {
		labels = append(labels, Label{
			TagFQN:    u.TagFQN,
			LabelType: u.LabelType,
			State:     u.State,
		})
	}
	return labels, nil
}

// DeleteByTarget removes every label applied to one target.
func (r *Repository) DeleteByTarget(ctx context.Context, targetFQN string) error {
	_, err := r.db.NewDelete().
		Model((*Usage)(nil)).
		Where("target_fqn = ?", targetFQN).
		Exec(ctx)

	if err != nil {
		r.log.Error("failed to delete tags", logger.Error(err),
			slog.String("target", targetFQN))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}

// DeleteByTargetPrefix removes labels from a target and everything under its
// name, e.g. a table and all of its columns.
func (r *Repository) DeleteByTargetPrefix(ctx context.Context, prefix string) error {
	_, err := r.db.NewDelete().
		Model((*Usage)(nil)).
		Where("target_fqn = ? OR target_fqn LIKE ?", prefix, prefix+fqn.Separator+"%").
		Exec(ctx)

	if err != nil {
		r.log.Error("failed to delete tags by prefix", logger.Error(err),
			slog.String("prefix", prefix))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}

// CountByTag returns how many targets carry the tag or one of its children.
func (r *Repository) CountByTag(ctx context.Context, tagFQN string) (int, error) {
	count, err := r.db.NewSelect().
		Model((*Usage)(nil)).
		Where("tag_fqn = ? OR tag_fqn LIKE ?", tagFQN, tagFQN+fqn.Separator+"%").
		Count(ctx)

	if err != nil {
		r.log.Error("failed to count tag usage", logger.Error(err),
			slog.String("tag", tagFQN))
		return 0, apperror.ErrDatabase.WithInternal(err)
	}

	return count, nil
}
