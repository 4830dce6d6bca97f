//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"tandem/internal"
	"tandem/internal/cache"
	"tandem/internal/controllers"
	"tandem/internal/providers"
	"tandem/internal/remote"
	"tandem/internal/services"
	"tandem/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,
		providers.NewTextProvider,

		cache.NewZstdCompressor,
		cache.NewContentCache,
		wire.Bind(new(cache.ContentCacheInterface), new(*cache.ContentCache)),
		cache.NewScheduler,

		remote.NewMemoryStore,
		wire.Bind(new(remote.DocumentStore), new(*remote.MemoryStore)),

		services.NewContentService,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
