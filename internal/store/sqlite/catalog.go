package sqlite

import (
	"context"
	"fmt"
	"sync"

	"github.com/listenupapp/saveable/internal/domain"
	"github.com/listenupapp/saveable/internal/id"
	"github.com/listenupapp/saveable/internal/morph"
	"github.com/listenupapp/saveable/internal/store"
)

const entityColumns = `type, id, title, created_at`

func scanEntity(scanner interface{ Scan(dest ...any) error }) (*domain.Record, error) {
	var (
		r         domain.Record
		createdAt string
	)
	if err := scanner.Scan(&r.Type, &r.ID, &r.Title, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateEntity inserts a catalog record.
// Returns store.ErrAlreadyExists on a duplicate (type, id).
func (s *Store) CreateEntity(ctx context.Context, r *domain.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (`+entityColumns+`) VALUES (?, ?, ?, ?)`,
		r.Type, r.ID, r.Title, formatTime(r.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

// GetEntitiesByIDs returns the records of typ among ids, in natural order.
func (s *Store) GetEntitiesByIDs(ctx context.Context, typ string, ids []string) ([]*domain.Record, error) {
	out := make([]*domain.Record, 0, len(ids))
	for _, batch := range chunks(ids) {
		recs, err := s.queryEntities(ctx,
			`SELECT `+entityColumns+` FROM entities
			WHERE type = ? AND id IN (`+placeholders(len(batch))+`)
			ORDER BY created_at ASC, rowid ASC`,
			toArgs([]any{typ}, batch)...)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// ListEntities returns every record of typ, oldest first.
func (s *Store) ListEntities(ctx context.Context, typ string) ([]*domain.Record, error) {
	return s.queryEntities(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE type = ? ORDER BY created_at ASC, rowid ASC`, typ)
}

func (s *Store) queryEntities(ctx context.Context, query string, args ...any) ([]*domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	out := []*domain.Record{}
	for rows.Next() {
		r, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteEntity removes a catalog record without running removal hooks.
// Use EntityHandler.Remove to cascade.
func (s *Store) DeleteEntity(ctx context.Context, typ, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE type = ? AND id = ?`, typ, id)
	if err != nil {
		return false, fmt.Errorf("delete entity: %w", err)
	}
	n, err := rowsAffected(res)
	return n > 0, err
}

// EntityHandler serves one catalog type to the registry and announces
// removals to hooks registered through OnBeforeRemove.
type EntityHandler struct {
	store *Store
	typ   string

	mu    sync.RWMutex
	hooks []morph.RemoveHook
}

var (
	_ morph.Handler         = (*EntityHandler)(nil)
	_ morph.RemovalNotifier = (*EntityHandler)(nil)
)

// EntityHandler returns a handler for catalog records of typ, which must be
// the canonical type identifier.
func (s *Store) EntityHandler(typ string) *EntityHandler {
	return &EntityHandler{store: s, typ: typ}
}

// Type returns the canonical type identifier served by h.
func (h *EntityHandler) Type() string { return h.typ }

// FetchByIDs implements morph.Handler.
func (h *EntityHandler) FetchByIDs(ctx context.Context, ids []string) ([]domain.Entity, error) {
	recs, err := h.store.GetEntitiesByIDs(ctx, h.typ, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Entity, len(recs))
	for i, r := range recs {
		out[i] = r
	}
	return out, nil
}

// OnBeforeRemove implements morph.RemovalNotifier.
func (h *EntityHandler) OnBeforeRemove(hook morph.RemoveHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// Create stores a new record with a fresh UUIDv7.
func (h *EntityHandler) Create(ctx context.Context, title string) (*domain.Record, error) {
	r := &domain.Record{
		Type:      h.typ,
		ID:        id.NewEntityID(),
		Title:     title,
		CreatedAt: h.store.now(),
	}
	if err := h.store.CreateEntity(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// List returns every record of this type in natural order.
func (h *EntityHandler) List(ctx context.Context) ([]*domain.Record, error) {
	return h.store.ListEntities(ctx, h.typ)
}

// Remove runs every removal hook, then deletes the record. A failing hook
// aborts the removal. Returns false when the record does not exist.
func (h *EntityHandler) Remove(ctx context.Context, entityID string) (bool, error) {
	recs, err := h.store.GetEntitiesByIDs(ctx, h.typ, []string{entityID})
	if err != nil {
		return false, err
	}
	if len(recs) == 0 {
		return false, nil
	}

	h.mu.RLock()
	hooks := append([]morph.RemoveHook(nil), h.hooks...)
	h.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, recs[0]); err != nil {
			return false, fmt.Errorf("before remove %s:%s: %w", h.typ, entityID, err)
		}
	}
	return h.store.DeleteEntity(ctx, h.typ, entityID)
}
