// Package di provides dependency injection configuration for the saveable server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/saveable/internal/auth"
	"github.com/listenupapp/saveable/internal/config"
	"github.com/listenupapp/saveable/internal/di/providers"
	"github.com/listenupapp/saveable/internal/logger"
	"github.com/listenupapp/saveable/internal/morph"
	"github.com/listenupapp/saveable/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideRegistry)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideSaveService)
	do.Provide(injector, providers.ProvideCollectionService)

	// Server
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Core initializes everything except the HTTP server. Tools that work on
// the database directly stop here.
func Core(injector do.Injector) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*morph.Registry](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[*service.SaveService](injector)
	_ = do.MustInvoke[*service.CollectionService](injector)
	return nil
}

// Bootstrap initializes all services, starting the HTTP server.
func Bootstrap(injector *do.RootScope) error {
	if err := Core(injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.RateLimiterHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)
	return nil
}
