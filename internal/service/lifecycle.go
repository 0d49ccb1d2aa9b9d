package service

import (
	"context"

	"github.com/listenupapp/saveable/internal/domain"
	"github.com/listenupapp/saveable/internal/logger"
)

// BeforeRemove runs the removal cascade for e according to the roles its
// type was registered with. Hosts call it (or let a registered handler call
// it) before deleting the entity row.
func (s *SaveService) BeforeRemove(ctx context.Context, e domain.Entity) (domain.CascadeResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.CascadeResult{}, err
	}

	c := s.registry.Cascade(e)
	if c.IsNoop() {
		return domain.CascadeResult{}, nil
	}

	result, err := s.store.Cascade(ctx, c)
	if err != nil {
		return domain.CascadeResult{}, err
	}

	s.logger.Info("entity removal cascaded",
		logger.EntityAttr("entity", c.Ref),
		"saves_deleted", result.SavesDeleted,
		"saves_unlinked", result.SavesUnlinked,
		"collections_deleted", result.CollectionsDeleted,
	)
	return result, nil
}

func (s *SaveService) beforeRemoveHook(ctx context.Context, e domain.Entity) error {
	_, err := s.BeforeRemove(ctx, e)
	return err
}
