package service

import (
	"context"
	"fmt"

	"github.com/listenupapp/saveable/internal/domain"
	"github.com/listenupapp/saveable/internal/store"
)

// Savers returns the entities that saved saveable, newest first. An empty
// typ spans every saver type.
func (s *SaveService) Savers(ctx context.Context, saveable domain.Entity, typ string) ([]domain.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	saves, err := s.store.ListSaves(ctx, store.SaveableSaves(s.registry.Ref(saveable), s.storedTag(typ)))
	if err != nil {
		return nil, fmt.Errorf("list savers: %w", err)
	}
	return hydrate(ctx, s.registry, saves, saverSide, s.cfg.MaxMixedTypes)
}

// SaversGrouped returns the savers of saveable keyed by stored type tag.
func (s *SaveService) SaversGrouped(ctx context.Context, saveable domain.Entity) (map[string][]domain.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	saves, err := s.store.ListSaves(ctx, store.SaveableSaves(s.registry.Ref(saveable), ""))
	if err != nil {
		return nil, fmt.Errorf("list savers: %w", err)
	}
	return hydrateGrouped(ctx, s.registry, saves, saverSide, s.cfg.MaxMixedTypes)
}

// TimesSaved counts every save of saveable.
func (s *SaveService) TimesSaved(ctx context.Context, saveable domain.Entity) (int, error) {
	return s.SaversCount(ctx, saveable, "")
}

// SaversCount counts the savers of saveable, optionally of one type.
func (s *SaveService) SaversCount(ctx context.Context, saveable domain.Entity, typ string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := s.store.CountSaves(ctx, store.SaveableSaves(s.registry.Ref(saveable), s.storedTag(typ)))
	if err != nil {
		return 0, fmt.Errorf("count savers: %w", err)
	}
	return n, nil
}

// IsSavedBy reports whether saver saved saveable.
func (s *SaveService) IsSavedBy(ctx context.Context, saveable, saver domain.Entity) (bool, error) {
	return s.HasSaved(ctx, saver, saveable)
}

// SavedRecordBy returns saver's save of saveable, if any.
func (s *SaveService) SavedRecordBy(ctx context.Context, saveable, saver domain.Entity) (*domain.Save, bool, error) {
	return s.Find(ctx, saver, saveable)
}

// RemoveSavedBy deletes saver's save of saveable.
func (s *SaveService) RemoveSavedBy(ctx context.Context, saveable, saver domain.Entity) (bool, error) {
	return s.Unsave(ctx, saver, saveable)
}
