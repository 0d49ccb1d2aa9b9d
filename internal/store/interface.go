// Package store defines the persistence contract of the save engine.
package store

import (
	"context"

	"github.com/listenupapp/saveable/internal/domain"
)

// Store is the full persistence surface used by the services.
type Store interface {
	SaveStore
	CollectionStore
	EntityStore

	Ping(ctx context.Context) error
	Close() error
}

// SaveStore persists saves. Every method that reads-then-writes does so in
// one write-locked transaction.
type SaveStore interface {
	// InsertSave stores s unless the (saver, saveable) pair already exists.
	// OrderPosition is assigned by the store. Returns false without mutating
	// anything when the pair exists, ErrDuplicateSave when the uniqueness
	// constraint rejects the row anyway.
	InsertSave(ctx context.Context, s *domain.Save) (bool, error)
	// ToggleSave deletes the pair if present, otherwise inserts s.
	// Returns the resulting state.
	ToggleSave(ctx context.Context, s *domain.Save) (bool, error)
	// GetSave returns ErrNotFound when the pair has not been saved.
	GetSave(ctx context.Context, saver, saveable domain.EntityRef) (*domain.Save, error)
	DeleteSave(ctx context.Context, saver, saveable domain.EntityRef) (bool, error)
	MoveSave(ctx context.Context, saver, saveable domain.EntityRef, collectionID *string) (bool, error)
	MergeSaveMetadata(ctx context.Context, saver, saveable domain.EntityRef, patch domain.Metadata) (bool, error)

	ListSaves(ctx context.Context, f SaveFilter) ([]*domain.Save, error)
	CountSaves(ctx context.Context, f SaveFilter) (int, error)
	// CountSavesBySaveable counts savers per saveable ID of one type.
	// IDs with no saves are absent from the result.
	CountSavesBySaveable(ctx context.Context, saveableType string, ids []string) (map[string]int, error)
	// SavesOfSaverFor returns saver's saves among the given saveables of one
	// type, keyed by saveable ID.
	SavesOfSaverFor(ctx context.Context, saver domain.EntityRef, saveableType string, ids []string) (map[string]*domain.Save, error)

	// Cascade applies c in a single transaction.
	Cascade(ctx context.Context, c domain.Cascade) (domain.CascadeResult, error)
}

// CollectionStore persists the collection tree.
type CollectionStore interface {
	// CreateCollection validates the parent (exists, same owner, depth)
	// inside the insert transaction.
	CreateCollection(ctx context.Context, c *domain.Collection) error
	GetCollection(ctx context.Context, id string) (*domain.Collection, error)
	UpdateCollection(ctx context.Context, c *domain.Collection) error
	// SetCollectionParent re-parents id, rejecting cycles and trees deeper
	// than the configured maximum with ErrInvalidInput.
	SetCollectionParent(ctx context.Context, id string, parentID *string) error
	ListCollections(ctx context.Context, f CollectionFilter) ([]*domain.Collection, error)
	// DeleteCollection removes id and its descendants and unlinks their saves.
	DeleteCollection(ctx context.Context, id string) (domain.CascadeResult, error)
}

// EntityStore backs the built-in entity catalog.
type EntityStore interface {
	CreateEntity(ctx context.Context, r *domain.Record) error
	GetEntitiesByIDs(ctx context.Context, typ string, ids []string) ([]*domain.Record, error)
	ListEntities(ctx context.Context, typ string) ([]*domain.Record, error)
	DeleteEntity(ctx context.Context, typ, id string) (bool, error)
}
