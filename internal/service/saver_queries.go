package service

import (
	"context"
	"fmt"

	"github.com/listenupapp/saveable/internal/domain"
	"github.com/listenupapp/saveable/internal/store"
)

// SavedItems returns the entities saver saved, ordered by position and then
// newest first. An empty typ spans every saved type; typ may be the
// canonical identifier or its alias.
func (s *SaveService) SavedItems(ctx context.Context, saver domain.Entity, typ string) ([]domain.Entity, error) {
	return s.savedItems(ctx, saver, typ, false)
}

// UnsortedSavedItems is SavedItems restricted to saves outside any collection.
func (s *SaveService) UnsortedSavedItems(ctx context.Context, saver domain.Entity, typ string) ([]domain.Entity, error) {
	return s.savedItems(ctx, saver, typ, true)
}

func (s *SaveService) savedItems(ctx context.Context, saver domain.Entity, typ string, unsorted bool) ([]domain.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := store.SaverSaves(s.registry.Ref(saver), s.storedTag(typ))
	f.Unsorted = unsorted

	saves, err := s.store.ListSaves(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list saved items: %w", err)
	}
	sortBySaveOrder(saves)
	return hydrate(ctx, s.registry, saves, saveableSide, s.cfg.MaxMixedTypes)
}

// SavedItemsGrouped returns the saver's items keyed by stored type tag.
func (s *SaveService) SavedItemsGrouped(ctx context.Context, saver domain.Entity) (map[string][]domain.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	saves, err := s.store.ListSaves(ctx, store.SaverSaves(s.registry.Ref(saver), ""))
	if err != nil {
		return nil, fmt.Errorf("list saved items: %w", err)
	}
	return hydrateGrouped(ctx, s.registry, saves, saveableSide, s.cfg.MaxMixedTypes)
}

// SavedItemsCount counts the saver's saves, optionally of one type.
func (s *SaveService) SavedItemsCount(ctx context.Context, saver domain.Entity, typ string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := s.store.CountSaves(ctx, store.SaverSaves(s.registry.Ref(saver), s.storedTag(typ)))
	if err != nil {
		return 0, fmt.Errorf("count saved items: %w", err)
	}
	return n, nil
}

// FilterSaversOf keeps the candidates that saved saveable.
func (s *SaveService) FilterSaversOf(ctx context.Context, candidates []domain.Entity, saveable domain.Entity) ([]domain.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	saves, err := s.store.ListSaves(ctx, store.SaveableSaves(s.registry.Ref(saveable), ""))
	if err != nil {
		return nil, fmt.Errorf("list savers: %w", err)
	}
	savers := make(map[domain.EntityRef]bool, len(saves))
	for _, sv := range saves {
		savers[sv.Saver] = true
	}

	out := make([]domain.Entity, 0, len(candidates))
	for _, c := range candidates {
		if savers[s.registry.Ref(c)] {
			out = append(out, c)
		}
	}
	return out, nil
}

// storedTag maps a type filter to its persisted form. Empty stays empty.
func (s *SaveService) storedTag(typ string) string {
	if typ == "" {
		return ""
	}
	return s.registry.StoredTag(typ)
}
