package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/listenupapp/saveable/internal/config"
	"github.com/listenupapp/saveable/internal/domain"
	domainerrors "github.com/listenupapp/saveable/internal/errors"
	"github.com/listenupapp/saveable/internal/id"
	"github.com/listenupapp/saveable/internal/logger"
	"github.com/listenupapp/saveable/internal/morph"
	"github.com/listenupapp/saveable/internal/store"
)

// SaveOptions are optional arguments of Save and Toggle.
type SaveOptions struct {
	// Collection files the save; nil leaves it unsorted. It must belong to
	// the saver.
	Collection *domain.Collection
	Metadata   domain.Metadata
}

// SaveService owns saves: writes, queries from either side, aggregates and
// the removal cascade.
type SaveService struct {
	store    store.Store
	registry *morph.Registry
	cfg      config.SaveableConfig
	logger   *slog.Logger
}

// NewSaveService creates a save service and registers its removal hook on
// every handler in the registry that can announce removals.
func NewSaveService(st store.Store, registry *morph.Registry, cfg config.SaveableConfig, logger *slog.Logger) *SaveService {
	s := &SaveService{
		store:    st,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
	attached := registry.Attach(s.beforeRemoveHook)
	logger.Debug("save service ready", "removal_hooks", attached)
	return s
}

// refs resolves the persisted refs of a saver/saveable pair.
func (s *SaveService) refs(saver, saveable domain.Entity) (domain.EntityRef, domain.EntityRef) {
	return s.registry.Ref(saver), s.registry.Ref(saveable)
}

// checkRoles verifies both types are registered for their part.
func (s *SaveService) checkRoles(saver, saveable domain.Entity) error {
	if _, err := s.registry.Require(saver.MorphType(), morph.RoleSaver); err != nil {
		return err
	}
	if _, err := s.registry.Require(saveable.MorphType(), morph.RoleSaveable); err != nil {
		return err
	}
	return nil
}

func checkCollectionOwner(c *domain.Collection, saver domain.EntityRef) error {
	if c != nil && !c.OwnedBy(saver) {
		return domainerrors.Forbidden("collection belongs to another owner")
	}
	return nil
}

func (s *SaveService) newSave(saver, saveable domain.EntityRef, opts SaveOptions) (*domain.Save, error) {
	saveID, err := id.Generate(id.PrefixSave)
	if err != nil {
		return nil, fmt.Errorf("generate save ID: %w", err)
	}
	sv := &domain.Save{
		ID:        saveID,
		Saver:     saver,
		Saveable:  saveable,
		Metadata:  opts.Metadata,
		CreatedAt: time.Now(),
	}
	if opts.Collection != nil {
		sv.CollectionID = &opts.Collection.ID
	}
	return sv, nil
}

// Save records that saver saved saveable. Returns false with no mutation
// when the pair already exists.
func (s *SaveService) Save(ctx context.Context, saver, saveable domain.Entity, opts SaveOptions) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.checkRoles(saver, saveable); err != nil {
		return false, err
	}

	saverRef, saveableRef := s.refs(saver, saveable)
	if err := checkCollectionOwner(opts.Collection, saverRef); err != nil {
		return false, err
	}

	sv, err := s.newSave(saverRef, saveableRef, opts)
	if err != nil {
		return false, err
	}

	created, err := s.store.InsertSave(ctx, sv)
	if err != nil {
		return false, translate(err)
	}
	if created {
		s.logger.Info("save created",
			"save_id", sv.ID,
			logger.EntityAttr("saver", saverRef),
			logger.EntityAttr("saveable", saveableRef),
			"order_position", sv.OrderPosition,
		)
	}
	return created, nil
}

// Unsave deletes the pair. Returns false when it was not saved.
func (s *SaveService) Unsave(ctx context.Context, saver, saveable domain.Entity) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	saverRef, saveableRef := s.refs(saver, saveable)

	removed, err := s.store.DeleteSave(ctx, saverRef, saveableRef)
	if err != nil {
		return false, fmt.Errorf("unsave: %w", err)
	}
	if removed {
		s.logger.Info("save removed", logger.EntityAttr("saver", saverRef), logger.EntityAttr("saveable", saveableRef))
	}
	return removed, nil
}

// Toggle unsaves the pair if saved, otherwise saves it. Returns the
// resulting state.
func (s *SaveService) Toggle(ctx context.Context, saver, saveable domain.Entity, opts SaveOptions) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.checkRoles(saver, saveable); err != nil {
		return false, err
	}

	saverRef, saveableRef := s.refs(saver, saveable)
	if err := checkCollectionOwner(opts.Collection, saverRef); err != nil {
		return false, err
	}

	sv, err := s.newSave(saverRef, saveableRef, opts)
	if err != nil {
		return false, err
	}

	nowSaved, err := s.store.ToggleSave(ctx, sv)
	if err != nil {
		return false, translate(err)
	}
	s.logger.Info("save toggled",
		logger.EntityAttr("saver", saverRef),
		logger.EntityAttr("saveable", saveableRef),
		"saved", nowSaved,
	)
	return nowSaved, nil
}

// MoveToCollection files an existing save into collection, or back to
// unsorted when collection is nil. Returns false when the pair is not saved.
func (s *SaveService) MoveToCollection(ctx context.Context, saver, saveable domain.Entity, collection *domain.Collection) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	saverRef, saveableRef := s.refs(saver, saveable)
	if err := checkCollectionOwner(collection, saverRef); err != nil {
		return false, err
	}

	var collectionID *string
	if collection != nil {
		collectionID = &collection.ID
	}

	moved, err := s.store.MoveSave(ctx, saverRef, saveableRef, collectionID)
	if err != nil {
		return false, translate(err)
	}
	if moved {
		s.logger.Info("save moved",
			logger.EntityAttr("saver", saverRef),
			logger.EntityAttr("saveable", saveableRef),
			"collection_id", deref(collectionID),
		)
	}
	return moved, nil
}

// UpdateMetadata shallow-merges patch into the save's metadata.
// Returns false when the pair is not saved.
func (s *SaveService) UpdateMetadata(ctx context.Context, saver, saveable domain.Entity, patch domain.Metadata) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	saverRef, saveableRef := s.refs(saver, saveable)

	updated, err := s.store.MergeSaveMetadata(ctx, saverRef, saveableRef, patch)
	if err != nil {
		return false, fmt.Errorf("update metadata: %w", err)
	}
	return updated, nil
}

// HasSaved reports whether saver saved saveable.
func (s *SaveService) HasSaved(ctx context.Context, saver, saveable domain.Entity) (bool, error) {
	_, found, err := s.Find(ctx, saver, saveable)
	return found, err
}

// Find returns the save for the pair, if any.
func (s *SaveService) Find(ctx context.Context, saver, saveable domain.Entity) (*domain.Save, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	saverRef, saveableRef := s.refs(saver, saveable)

	sv, err := s.store.GetSave(ctx, saverRef, saveableRef)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find save: %w", err)
	}
	return sv, true, nil
}

// SavedRecords returns the saver's save rows in position order.
func (s *SaveService) SavedRecords(ctx context.Context, saver domain.Entity) ([]*domain.Save, error) {
	return s.store.ListSaves(ctx, store.SaverSaves(s.registry.Ref(saver), ""))
}

// UnsortedSavedRecords returns the saver's save rows outside any collection.
func (s *SaveService) UnsortedSavedRecords(ctx context.Context, saver domain.Entity) ([]*domain.Save, error) {
	f := store.SaverSaves(s.registry.Ref(saver), "")
	f.Unsorted = true
	return s.store.ListSaves(ctx, f)
}
