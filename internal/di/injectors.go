//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"bousai/internal"
	"bousai/internal/cache"
	"bousai/internal/controllers"
	"bousai/internal/providers"
	"bousai/internal/services"
	"bousai/internal/storage"
	"bousai/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedHotCache,
		providers.NewApiClientProvider,
		providers.NewConnectivityProvider,

		storage.NewZstdCompressor,
		storage.NewFileKVStore,

		cache.NewContentCache,
		cache.NewVersionGate,

		services.NewDeviceService,
		services.NewCheckinService,
		services.NewScheduler,

		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
