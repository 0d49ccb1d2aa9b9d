// Package providers contains dependency injection providers for the saveable server.
package providers

import (
	"os"

	"github.com/samber/do/v2"

	"github.com/listenupapp/saveable/internal/config"
	"github.com/listenupapp/saveable/internal/logger"
)

// ProvideConfig provides the application configuration from the process arguments.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.Load(os.Args[1:])
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting saveable server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"db_path", cfg.Database.Path,
		"saves_table", cfg.Saveable.SavesTable,
		"collections_table", cfg.Saveable.CollectionsTable,
	)

	return log, nil
}
