package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/listenupapp/saveable/internal/config"
	"github.com/listenupapp/saveable/internal/domain"
	domainerrors "github.com/listenupapp/saveable/internal/errors"
	"github.com/listenupapp/saveable/internal/id"
	"github.com/listenupapp/saveable/internal/logger"
	"github.com/listenupapp/saveable/internal/morph"
	"github.com/listenupapp/saveable/internal/store"
)

const (
	maxCollectionName        = 255
	maxCollectionDescription = 4096
)

// CollectionService manages the collection tree of each owner.
type CollectionService struct {
	store    store.Store
	registry *morph.Registry
	cfg      config.SaveableConfig
	logger   *slog.Logger
}

// NewCollectionService creates a new collection service.
func NewCollectionService(st store.Store, registry *morph.Registry, cfg config.SaveableConfig, logger *slog.Logger) *CollectionService {
	return &CollectionService{
		store:    st,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
}

func validateCollectionFields(name, description string) (string, error) {
	name = domain.NormalizeCollectionName(name)
	if name == "" {
		return "", domainerrors.Validation("collection name cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxCollectionName {
		return "", domainerrors.Validationf("collection name exceeds %d characters", maxCollectionName)
	}
	if utf8.RuneCountInString(description) > maxCollectionDescription {
		return "", domainerrors.Validationf("collection description exceeds %d characters", maxCollectionDescription)
	}
	return name, nil
}

// CreateCollection creates a collection for owner. parentID, when set, must
// name an existing collection of the same owner.
func (s *CollectionService) CreateCollection(ctx context.Context, owner domain.Entity, name, description string, parentID *string) (*domain.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.registry.Require(owner.MorphType(), morph.RoleOwner); err != nil {
		return nil, err
	}

	name, err := validateCollectionFields(name, description)
	if err != nil {
		return nil, err
	}

	collectionID, err := id.Generate(id.PrefixCollection)
	if err != nil {
		return nil, fmt.Errorf("generate collection ID: %w", err)
	}

	now := time.Now()
	c := &domain.Collection{
		ID:          collectionID,
		Owner:       s.registry.Ref(owner),
		Name:        name,
		Description: description,
		ParentID:    parentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateCollection(ctx, c); err != nil {
		return nil, translate(err)
	}

	s.logger.Info("collection created",
		"collection_id", c.ID,
		logger.EntityAttr("owner", c.Owner),
		"parent_id", deref(parentID),
		"name", name,
	)
	return c, nil
}

// GetCollection returns a NotFound error if the collection does not exist.
func (s *CollectionService) GetCollection(ctx context.Context, collectionID string) (*domain.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := s.store.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

// UpdateCollection renames a collection and replaces its description.
func (s *CollectionService) UpdateCollection(ctx context.Context, collectionID, name, description string) (*domain.Collection, error) {
	c, err := s.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	name, err = validateCollectionFields(name, description)
	if err != nil {
		return nil, err
	}

	c.Name = name
	c.Description = description
	c.UpdatedAt = time.Now()
	if err := s.store.UpdateCollection(ctx, c); err != nil {
		return nil, translate(err)
	}

	s.logger.Info("collection updated", "collection_id", c.ID, "name", name)
	return c, nil
}

// MoveCollection re-parents a collection. A nil parentID makes it a root.
// Moves that would create a cycle or exceed the depth limit are rejected.
func (s *CollectionService) MoveCollection(ctx context.Context, collectionID string, parentID *string) (*domain.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.store.SetCollectionParent(ctx, collectionID, parentID); err != nil {
		return nil, translate(err)
	}

	s.logger.Info("collection moved", "collection_id", collectionID, "parent_id", deref(parentID))
	return s.GetCollection(ctx, collectionID)
}

// DeleteCollection removes the collection and its descendants. Saves filed
// in any of them survive as unsorted. Returns false if it did not exist.
func (s *CollectionService) DeleteCollection(ctx context.Context, collectionID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	result, err := s.store.DeleteCollection(ctx, collectionID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.logger.Info("collection deleted",
		"collection_id", collectionID,
		"collections_deleted", result.CollectionsDeleted,
		"saves_unlinked", result.SavesUnlinked,
	)
	return true, nil
}

// Collections returns every collection owned by owner, oldest first.
func (s *CollectionService) Collections(ctx context.Context, owner domain.Entity) ([]*domain.Collection, error) {
	ref := s.registry.Ref(owner)
	return s.list(ctx, store.CollectionFilter{Owner: &ref})
}

// RootCollections returns owner's top-level collections.
func (s *CollectionService) RootCollections(ctx context.Context, owner domain.Entity) ([]*domain.Collection, error) {
	ref := s.registry.Ref(owner)
	return s.list(ctx, store.CollectionFilter{Owner: &ref, RootOnly: true})
}

// Children returns the direct children of a collection.
func (s *CollectionService) Children(ctx context.Context, collectionID string) ([]*domain.Collection, error) {
	return s.list(ctx, store.CollectionFilter{ParentID: &collectionID})
}

// Parent returns the parent of a collection, if it has one.
func (s *CollectionService) Parent(ctx context.Context, collectionID string) (*domain.Collection, bool, error) {
	c, err := s.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, false, err
	}
	if c.IsRoot() {
		return nil, false, nil
	}
	parent, err := s.GetCollection(ctx, *c.ParentID)
	if err != nil {
		return nil, false, err
	}
	return parent, true, nil
}

func (s *CollectionService) list(ctx context.Context, f store.CollectionFilter) ([]*domain.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := s.store.ListCollections(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return out, nil
}

// CollectionItems returns the saved entities filed in a collection, in
// position order.
func (s *CollectionService) CollectionItems(ctx context.Context, collectionID string) ([]domain.Entity, error) {
	if _, err := s.GetCollection(ctx, collectionID); err != nil {
		return nil, err
	}

	saves, err := s.store.ListSaves(ctx, store.SaveFilter{CollectionID: &collectionID})
	if err != nil {
		return nil, fmt.Errorf("list collection items: %w", err)
	}
	sortBySaveOrder(saves)
	return hydrate(ctx, s.registry, saves, saveableSide, s.cfg.MaxMixedTypes)
}
