package service

import (
	"context"
	"slices"

	"github.com/listenupapp/saveable/internal/domain"
	domainerrors "github.com/listenupapp/saveable/internal/errors"
	"github.com/listenupapp/saveable/internal/morph"
)

// side picks which end of a save is being loaded.
type side func(*domain.Save) domain.EntityRef

func saveableSide(sv *domain.Save) domain.EntityRef { return sv.Saveable }
func saverSide(sv *domain.Save) domain.EntityRef    { return sv.Saver }

// groupRefs buckets refs by type, keeping first-seen type order and the
// order of IDs within each type.
func groupRefs(refs []domain.EntityRef) ([]string, map[string][]string) {
	var types []string
	ids := make(map[string][]string)
	for _, r := range refs {
		if _, ok := ids[r.Type]; !ok {
			types = append(types, r.Type)
		}
		ids[r.Type] = append(ids[r.Type], r.ID)
	}
	return types, ids
}

// checkMixedTypes bounds the number of types a query fans out to. Types the
// registry cannot resolve are never fetched, so they do not count.
func checkMixedTypes(reg *morph.Registry, types []string, limit int) error {
	n := 0
	for _, typ := range types {
		if _, ok := reg.Resolve(typ); ok {
			n++
		}
	}
	if n > limit {
		return domainerrors.Validationf("query spans %d entity types, limit is %d", n, limit)
	}
	return nil
}

// loadGroups fetches every referenced entity one type at a time. Types the
// registry cannot resolve are left out of the result.
func loadGroups(ctx context.Context, reg *morph.Registry, refs []domain.EntityRef, maxTypes int) (map[domain.EntityRef]domain.Entity, []string, error) {
	types, ids := groupRefs(refs)
	if err := checkMixedTypes(reg, types, maxTypes); err != nil {
		return nil, nil, err
	}

	loaded := make(map[domain.EntityRef]domain.Entity, len(refs))
	resolved := make([]string, 0, len(types))
	for _, typ := range types {
		entities, ok, err := reg.Fetch(ctx, typ, ids[typ])
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		resolved = append(resolved, typ)
		for _, e := range entities {
			loaded[domain.EntityRef{Type: typ, ID: e.EntityID()}] = e
		}
	}
	return loaded, resolved, nil
}

// hydrate loads one side of saves, in the order of saves. Rows whose type
// is unresolvable or whose entity no longer exists are skipped.
func hydrate(ctx context.Context, reg *morph.Registry, saves []*domain.Save, pick side, maxTypes int) ([]domain.Entity, error) {
	refs := make([]domain.EntityRef, len(saves))
	for i, sv := range saves {
		refs[i] = pick(sv)
	}

	loaded, _, err := loadGroups(ctx, reg, refs, maxTypes)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Entity, 0, len(refs))
	for _, r := range refs {
		if e, ok := loaded[r]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// hydrateGrouped loads one side of saves keyed by stored type tag.
// Unresolvable types are dropped from the map.
func hydrateGrouped(ctx context.Context, reg *morph.Registry, saves []*domain.Save, pick side, maxTypes int) (map[string][]domain.Entity, error) {
	refs := make([]domain.EntityRef, len(saves))
	for i, sv := range saves {
		refs[i] = pick(sv)
	}

	loaded, resolved, err := loadGroups(ctx, reg, refs, maxTypes)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]domain.Entity, len(resolved))
	for _, typ := range resolved {
		groups[typ] = []domain.Entity{}
	}
	for _, r := range refs {
		if e, ok := loaded[r]; ok {
			groups[r.Type] = append(groups[r.Type], e)
		}
	}
	return groups, nil
}

// sortBySaveOrder restores saver-side order over saves merged from several types.
func sortBySaveOrder(saves []*domain.Save) {
	slices.SortStableFunc(saves, func(a, b *domain.Save) int {
		switch {
		case domain.SaveOrderLess(a, b):
			return -1
		case domain.SaveOrderLess(b, a):
			return 1
		}
		return 0
	})
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
