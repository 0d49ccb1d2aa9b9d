package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/listenupapp/saveable/internal/config"
	"github.com/listenupapp/saveable/internal/logger"
	"github.com/listenupapp/saveable/internal/morph"
	"github.com/listenupapp/saveable/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the database store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlite.Open(cfg.Database.Path, log.Logger, sqlite.WithSaveableConfig(cfg.Saveable))
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", cfg.Database.Path)

	return &StoreHandle{Store: db}, nil
}

// CatalogType describes one entity type served by the built-in catalog.
type CatalogType struct {
	Tag     string
	Alias   string
	Options []morph.Option
}

// CatalogTypes lists the types the server registers at startup.
var CatalogTypes = []CatalogType{
	{Tag: "app.User", Alias: "user", Options: []morph.Option{morph.AsSaver(), morph.AsSaveable(), morph.AsOwner()}},
	{Tag: "app.Team", Alias: "team", Options: []morph.Option{morph.AsSaver(), morph.AsOwner()}},
	{Tag: "app.Post", Alias: "post", Options: []morph.Option{morph.AsSaveable()}},
	{Tag: "app.Video", Options: []morph.Option{morph.AsSaveable()}},
}

// ProvideRegistry provides the type registry with every catalog type registered.
func ProvideRegistry(i do.Injector) (*morph.Registry, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	registry := morph.New()
	for _, t := range CatalogTypes {
		opts := t.Options
		if t.Alias != "" {
			opts = append([]morph.Option{morph.WithAlias(t.Alias)}, opts...)
		}
		if err := registry.Register(t.Tag, storeHandle.EntityHandler(t.Tag), opts...); err != nil {
			return nil, fmt.Errorf("register %s: %w", t.Tag, err)
		}
	}

	log.Info("Type registry ready", "types", len(registry.Types()))
	return registry, nil
}
