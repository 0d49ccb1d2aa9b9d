package domain

import "time"

// Entity is anything that can take part in a save, either as the saver, the
// saveable, or the owner of a collection. Implementations report the
// canonical type identifier; the persisted tag may be an alias of it.
type Entity interface {
	MorphType() string
	EntityID() string
}

// EntityRef identifies an entity of any type by its persisted type tag and ID.
// Two refs are equal iff both components match.
type EntityRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// String renders the ref as "type:id".
func (r EntityRef) String() string {
	return r.Type + ":" + r.ID
}

// IsZero reports whether the ref is unset.
func (r EntityRef) IsZero() bool {
	return r.Type == "" && r.ID == ""
}

// Record is the generic entity kept by the built-in catalog. Hosts with their
// own tables register their own handlers instead.
type Record struct {
	CreatedAt time.Time `json:"created_at"`
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
}

// MorphType implements Entity.
func (r *Record) MorphType() string { return r.Type }

// EntityID implements Entity.
func (r *Record) EntityID() string { return r.ID }
