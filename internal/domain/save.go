package domain

import (
	"maps"
	"time"
)

// Metadata holds arbitrary JSON-compatible values attached to a save.
type Metadata map[string]any

// Merge returns a copy of m with every key of patch written over it.
// Keys absent from patch are left untouched. Nested maps are replaced, not merged.
func (m Metadata) Merge(patch Metadata) Metadata {
	out := make(Metadata, len(m)+len(patch))
	maps.Copy(out, m)
	maps.Copy(out, patch)
	return out
}

// Save is the association between a saver and a saveable entity.
// A saver saves a given saveable at most once, regardless of collection.
type Save struct {
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Metadata      Metadata  `json:"metadata,omitempty"`
	CollectionID  *string   `json:"collection_id,omitempty"` // nil means unsorted
	Saver         EntityRef `json:"saver"`
	Saveable      EntityRef `json:"saveable"`
	ID            string    `json:"id"`
	OrderPosition int       `json:"order_position"` // Only meaningful within (Saver, CollectionID)
}

// IsUnsorted reports whether the save sits outside any collection.
func (s *Save) IsUnsorted() bool {
	return s.CollectionID == nil
}

// InCollection reports whether the save belongs to the collection with the given ID.
func (s *Save) InCollection(collectionID string) bool {
	return s.CollectionID != nil && *s.CollectionID == collectionID
}

// SaveOrderLess orders saver-side results: ascending position, then newest first.
func SaveOrderLess(a, b *Save) bool {
	if a.OrderPosition != b.OrderPosition {
		return a.OrderPosition < b.OrderPosition
	}
	return a.CreatedAt.After(b.CreatedAt)
}
