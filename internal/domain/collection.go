package domain

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Collection is a hierarchical folder for organizing saves. It is owned by
// exactly one entity and has zero or one parent collection.
type Collection struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ParentID    *string   `json:"parent_id,omitempty"`
	Owner       EntityRef `json:"owner"`
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
}

// IsRoot reports whether the collection is top-level.
func (c *Collection) IsRoot() bool {
	return c.ParentID == nil
}

// OwnedBy reports whether ref owns the collection.
func (c *Collection) OwnedBy(ref EntityRef) bool {
	return c.Owner == ref
}

// NormalizeCollectionName trims the name, collapses internal whitespace and
// converts it to Unicode NFC so visually identical names compare equal.
func NormalizeCollectionName(name string) string {
	name = norm.NFC.String(name)
	return strings.Join(strings.Fields(name), " ")
}
