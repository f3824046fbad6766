package routes

import (
	"jamaah_server/controllers"
	"jamaah_server/services"

	"github.com/gorilla/mux"
)

// RegisterMatchRoutes registers the nearby-list route under `/api/matches`
func RegisterMatchRoutes(router *mux.Router, matchService *services.MatchService) {
	controller := &controllers.MatchController{MatchService: matchService}

	matchRouter := router.PathPrefix("/api/matches").Subrouter()
	matchRouter.HandleFunc("/nearby/{userId}", controller.GetNearbyHandler).Methods("GET") // Ranked nearby list
}
