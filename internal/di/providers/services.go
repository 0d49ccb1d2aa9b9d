package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/saveable/internal/config"
	"github.com/listenupapp/saveable/internal/logger"
	"github.com/listenupapp/saveable/internal/morph"
	"github.com/listenupapp/saveable/internal/service"
)

// ProvideSaveService provides the save service. Constructing it attaches
// the removal cascade to every catalog handler.
func ProvideSaveService(i do.Injector) (*service.SaveService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	registry := do.MustInvoke[*morph.Registry](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSaveService(storeHandle.Store, registry, cfg.Saveable, log.Logger), nil
}

// ProvideCollectionService provides the collection service.
func ProvideCollectionService(i do.Injector) (*service.CollectionService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	registry := do.MustInvoke[*morph.Registry](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCollectionService(storeHandle.Store, registry, cfg.Saveable, log.Logger), nil
}
