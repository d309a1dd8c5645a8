package services

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/pkg/apperror"
)

type serviceHooks struct {
	entity.BaseHooks[*DatabaseService]
}

func (h *serviceHooks) Prepare(ctx context.Context, db bun.IDB, s *DatabaseService, update bool) error {
	if s.Name == "" {
		return apperror.NewBadRequest("service name is required")
	}
	if s.ServiceType == "" {
		return apperror.NewBadRequest("serviceType is required")
	}
	s.FullyQualifiedName = s.Name
	return nil
}

func (h *serviceHooks) RestorePatchAttributes(original, updated *DatabaseService) {
	updated.ServiceType = original.ServiceType
}

func (h *serviceHooks) UpdateFields(ctx context.Context, db bun.IDB, original, updated *DatabaseService, rec *entity.ChangeRecorder, isPatch bool) error {
	if !isPatch {
		// serviceType is immutable; a PUT carrying a different one is an
		// error rather than a silent overwrite.
		if updated.ServiceType != original.ServiceType {
			return apperror.NewBadRequest("serviceType cannot be changed")
		}
	} else {
		updated.ServiceType = original.ServiceType
	}

	rec.RecordChange("connection", original.Connection, updated.Connection)
	return nil
}
