package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/listenupapp/saveable/internal/domain"
)

// DefaultMostSavedLimit applies when MostSaved is called with limit <= 0.
const DefaultMostSavedLimit = 10

// Counted pairs an entity with how many times it was saved.
type Counted struct {
	Entity domain.Entity
	Count  int
}

// SaveStatus reports whether one saver saved an entity, and with what
// metadata.
type SaveStatus struct {
	Entity   domain.Entity
	Metadata domain.Metadata
	IsSaved  bool
}

// refsOf returns the persisted refs of entities, in input order.
func (s *SaveService) refsOf(entities []domain.Entity) []domain.EntityRef {
	refs := make([]domain.EntityRef, len(entities))
	for i, e := range entities {
		refs[i] = s.registry.Ref(e)
	}
	return refs
}

// WithSaveCount annotates each entity with its total save count, issuing
// one grouped count per type.
func (s *SaveService) WithSaveCount(ctx context.Context, entities []domain.Entity) ([]Counted, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	refs := s.refsOf(entities)
	types, ids := groupRefs(refs)
	if err := checkMixedTypes(s.registry, types, s.cfg.MaxMixedTypes); err != nil {
		return nil, err
	}

	counts := make(map[domain.EntityRef]int, len(refs))
	for _, typ := range types {
		byID, err := s.store.CountSavesBySaveable(ctx, typ, ids[typ])
		if err != nil {
			return nil, fmt.Errorf("count saves of %s: %w", typ, err)
		}
		for id, n := range byID {
			counts[domain.EntityRef{Type: typ, ID: id}] = n
		}
	}

	out := make([]Counted, len(entities))
	for i, e := range entities {
		out[i] = Counted{Entity: e, Count: counts[refs[i]]}
	}
	return out, nil
}

// MostSaved returns the limit most saved entities, highest count first.
// Ties keep their input order.
func (s *SaveService) MostSaved(ctx context.Context, entities []domain.Entity, limit int) ([]Counted, error) {
	if limit <= 0 {
		limit = DefaultMostSavedLimit
	}

	counted, err := s.WithSaveCount(ctx, entities)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(counted, func(a, b Counted) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if len(counted) > limit {
		counted = counted[:limit]
	}
	return counted, nil
}

// WithSaveStatus annotates each entity with whether saver saved it. Exactly
// one status is returned per input entity.
func (s *SaveService) WithSaveStatus(ctx context.Context, entities []domain.Entity, saver domain.Entity) ([]SaveStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	saverRef := s.registry.Ref(saver)
	refs := s.refsOf(entities)
	types, ids := groupRefs(refs)
	if err := checkMixedTypes(s.registry, types, s.cfg.MaxMixedTypes); err != nil {
		return nil, err
	}

	saves := make(map[domain.EntityRef]*domain.Save, len(refs))
	for _, typ := range types {
		byID, err := s.store.SavesOfSaverFor(ctx, saverRef, typ, ids[typ])
		if err != nil {
			return nil, fmt.Errorf("save status of %s: %w", typ, err)
		}
		for id, sv := range byID {
			saves[domain.EntityRef{Type: typ, ID: id}] = sv
		}
	}

	out := make([]SaveStatus, len(entities))
	for i, e := range entities {
		out[i] = SaveStatus{Entity: e}
		if sv, ok := saves[refs[i]]; ok {
			out[i].IsSaved = true
			out[i].Metadata = sv.Metadata
		}
	}
	return out, nil
}

// FilterSavedBy keeps the entities saver saved, in input order.
func (s *SaveService) FilterSavedBy(ctx context.Context, entities []domain.Entity, saver domain.Entity) ([]domain.Entity, error) {
	statuses, err := s.WithSaveStatus(ctx, entities, saver)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Entity, 0, len(statuses))
	for _, st := range statuses {
		if st.IsSaved {
			out = append(out, st.Entity)
		}
	}
	return out, nil
}
