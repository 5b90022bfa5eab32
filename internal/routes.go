package internal

import (
	"net/http"

	"bousai/internal/controllers"
	"bousai/internal/providers"
	"bousai/internal/structures"
)

func InitRoutes(apiController *controllers.ApiController, conf *structures.Config) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/device", http.HandlerFunc(apiController.GetDevice))
	routers.Post("/device", http.HandlerFunc(apiController.UpdateDevice))
	routers.Put("/settings", http.HandlerFunc(apiController.UpdateSettings))
	routers.Post("/areas", http.HandlerFunc(apiController.AddSavedArea))
	routers.Delete("/areas", http.HandlerFunc(apiController.RemoveSavedArea))
	routers.Post("/areas/select", http.HandlerFunc(apiController.SelectArea))
	routers.Post("/favorites", http.HandlerFunc(apiController.AddFavorite))
	routers.Delete("/favorites", http.HandlerFunc(apiController.RemoveFavorite))
	routers.Post("/checkin", http.HandlerFunc(apiController.Checkin))
	routers.Get("/content", http.HandlerFunc(apiController.Content))
	routers.Post("/refresh", http.HandlerFunc(apiController.Refresh))
	routers.Post("/connectivity", http.HandlerFunc(apiController.Connectivity))

	return routers
}
