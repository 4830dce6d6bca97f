package internal

import (
	"net/http"
	"tandem/internal/controllers"
	"tandem/internal/providers"
	"tandem/internal/structures"
)

func InitRoutes(apiController *controllers.ApiController, conf *structures.Config) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/today", http.HandlerFunc(apiController.GetToday))
	routers.Post("/responses", http.HandlerFunc(apiController.SubmitResponse))
	routers.Get("/route", http.HandlerFunc(apiController.GetRoute))
	routers.Get("/history", http.HandlerFunc(apiController.GetHistory))
	routers.Post("/read", http.HandlerFunc(apiController.MarkRead))
	return routers
}
