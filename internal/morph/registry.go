// Package morph maps stable type tags to entity handlers.
//
// Saves and collections reference heterogeneous entities by (tag, id). The
// registry resolves a persisted tag back to the handler that can load rows of
// that type, and decides which tag gets persisted for a live entity: the alias
// when one is configured, otherwise the canonical type identifier.
package morph

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/listenupapp/saveable/internal/domain"
	domainerrors "github.com/listenupapp/saveable/internal/errors"
)

// Handler loads live entities of one type.
// Identifiers without a matching row are simply absent from the result.
type Handler interface {
	FetchByIDs(ctx context.Context, ids []string) ([]domain.Entity, error)
}

// RemoveHook runs synchronously before an entity row is removed.
type RemoveHook func(ctx context.Context, e domain.Entity) error

// RemovalNotifier is implemented by handlers whose backing store can announce
// removals. The engine registers its cascade hook through it.
type RemovalNotifier interface {
	OnBeforeRemove(hook RemoveHook)
}

// Role is a bit set of the parts a type plays in the save graph.
type Role uint8

// Roles.
const (
	RoleSaver Role = 1 << iota
	RoleSaveable
	RoleOwner
)

// Has reports whether r includes every bit of other.
func (r Role) Has(other Role) bool { return r&other == other }

func (r Role) String() string {
	var parts []string
	if r.Has(RoleSaver) {
		parts = append(parts, "saver")
	}
	if r.Has(RoleSaveable) {
		parts = append(parts, "saveable")
	}
	if r.Has(RoleOwner) {
		parts = append(parts, "owner")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Type describes one registered entity type.
type Type struct {
	Handler Handler
	Tag     string
	Alias   string
	Roles   Role
}

// Stored returns the tag persisted for entities of this type.
func (t Type) Stored() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Tag
}

// Option configures a registration.
type Option func(*Type)

// WithAlias persists alias instead of the canonical tag.
func WithAlias(alias string) Option {
	return func(t *Type) { t.Alias = alias }
}

// AsSaver marks the type as able to save other entities.
func AsSaver() Option {
	return func(t *Type) { t.Roles |= RoleSaver }
}

// AsSaveable marks the type as something that can be saved.
func AsSaveable() Option {
	return func(t *Type) { t.Roles |= RoleSaveable }
}

// AsOwner marks the type as able to own collections.
func AsOwner() Option {
	return func(t *Type) { t.Roles |= RoleOwner }
}

// Registry is safe for concurrent use. Registration normally happens once at
// startup; lookups happen on every query.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Type // canonical tag and alias both point here
	order []*Type
	hooks []RemoveHook
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{types: make(map[string]*Type)}
}

// Register adds a type. Tags and aliases share one namespace; reusing either
// is an error.
func (r *Registry) Register(tag string, h Handler, opts ...Option) error {
	if strings.TrimSpace(tag) == "" {
		return domainerrors.Validation("type tag is required")
	}
	if h == nil {
		return domainerrors.Validationf("handler for %q is nil", tag)
	}

	t := &Type{Tag: tag, Handler: h}
	for _, opt := range opts {
		opt(t)
	}
	if t.Alias == tag {
		t.Alias = ""
	}

	r.mu.Lock()
	if _, exists := r.types[tag]; exists {
		r.mu.Unlock()
		return domainerrors.AlreadyExists(fmt.Sprintf("type %q already registered", tag))
	}
	if t.Alias != "" {
		if _, exists := r.types[t.Alias]; exists {
			r.mu.Unlock()
			return domainerrors.AlreadyExists(fmt.Sprintf("alias %q already registered", t.Alias))
		}
		r.types[t.Alias] = t
	}
	r.types[tag] = t
	r.order = append(r.order, t)
	hooks := slices.Clone(r.hooks)
	r.mu.Unlock()

	if n, ok := h.(RemovalNotifier); ok {
		for _, hook := range hooks {
			n.OnBeforeRemove(hook)
		}
	}
	return nil
}

// MustRegister is Register for static wiring; it panics on error.
func (r *Registry) MustRegister(tag string, h Handler, opts ...Option) {
	if err := r.Register(tag, h, opts...); err != nil {
		panic(err)
	}
}

// Lookup returns the type registered under a canonical tag or alias.
func (r *Registry) Lookup(tag string) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[tag]
	if !ok {
		return Type{}, false
	}
	return *t, true
}

// Resolve returns the handler for a canonical tag or alias.
func (r *Registry) Resolve(tag string) (Handler, bool) {
	t, ok := r.Lookup(tag)
	if !ok {
		return nil, false
	}
	return t.Handler, true
}

// StoredTag converts a canonical tag or alias to its persisted form.
// Unknown tags are returned as given.
func (r *Registry) StoredTag(tag string) string {
	if t, ok := r.Lookup(tag); ok {
		return t.Stored()
	}
	return tag
}

// TagFor returns the tag to persist for e.
func (r *Registry) TagFor(e domain.Entity) string {
	return r.StoredTag(e.MorphType())
}

// Ref returns the persisted reference for e.
func (r *Registry) Ref(e domain.Entity) domain.EntityRef {
	return domain.EntityRef{Type: r.TagFor(e), ID: e.EntityID()}
}

// RolesOf returns the roles of the type behind tag, or 0 when unknown.
func (r *Registry) RolesOf(tag string) Role {
	t, ok := r.Lookup(tag)
	if !ok {
		return 0
	}
	return t.Roles
}

// Require resolves tag and checks it plays role.
func (r *Registry) Require(tag string, role Role) (Type, error) {
	t, ok := r.Lookup(tag)
	if !ok {
		return Type{}, domainerrors.UnknownType(tag)
	}
	if !t.Roles.Has(role) {
		return Type{}, domainerrors.Validationf("type %q cannot act as %s", tag, role)
	}
	return t, nil
}

// Types returns registered types in registration order.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Type, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, *t)
	}
	return out
}

// Load fetches one live entity.
func (r *Registry) Load(ctx context.Context, tag, id string) (domain.Entity, error) {
	h, ok := r.Resolve(tag)
	if !ok {
		return nil, domainerrors.UnknownType(tag)
	}
	found, err := h.FetchByIDs(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("load %s:%s: %w", tag, id, err)
	}
	for _, e := range found {
		if e.EntityID() == id {
			return e, nil
		}
	}
	return nil, domainerrors.NotFoundf("%s %s not found", tag, id)
}

// Fetch loads ids through the handler for tag, preserving the order of ids.
// Unknown tags yield (nil, false, nil) so callers can skip the group.
func (r *Registry) Fetch(ctx context.Context, tag string, ids []string) ([]domain.Entity, bool, error) {
	h, ok := r.Resolve(tag)
	if !ok {
		return nil, false, nil
	}
	if len(ids) == 0 {
		return []domain.Entity{}, true, nil
	}

	found, err := h.FetchByIDs(ctx, slices.Compact(slices.Sorted(slices.Values(ids))))
	if err != nil {
		return nil, true, fmt.Errorf("fetch %s: %w", tag, err)
	}

	byID := make(map[string]domain.Entity, len(found))
	for _, e := range found {
		byID[e.EntityID()] = e
	}
	out := make([]domain.Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, e)
		}
	}
	return out, true, nil
}

// Attach registers hook on every handler that can announce removals and
// returns how many took it. Types registered later receive it in Register.
func (r *Registry) Attach(hook RemoveHook) int {
	r.mu.Lock()
	r.hooks = append(r.hooks, hook)
	types := slices.Clone(r.order)
	r.mu.Unlock()

	attached := 0
	for _, t := range types {
		if n, ok := t.Handler.(RemovalNotifier); ok {
			n.OnBeforeRemove(hook)
			attached++
		}
	}
	return attached
}

// Cascade describes what removing e entails given its type's roles.
func (r *Registry) Cascade(e domain.Entity) domain.Cascade {
	t, ok := r.Lookup(e.MorphType())
	if !ok {
		return domain.Cascade{Ref: domain.EntityRef{Type: e.MorphType(), ID: e.EntityID()}}
	}
	return domain.Cascade{
		Ref:        domain.EntityRef{Type: t.Stored(), ID: e.EntityID()},
		AsSaver:    t.Roles.Has(RoleSaver),
		AsSaveable: t.Roles.Has(RoleSaveable),
		AsOwner:    t.Roles.Has(RoleOwner),
	}
}
