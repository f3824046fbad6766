package routes

import (
	"jamaah_server/controllers"
	"jamaah_server/services"

	"github.com/gorilla/mux"
)

// RegisterPresenceRoutes registers all presence-related routes under `/api/presence`
func RegisterPresenceRoutes(router *mux.Router, presenceService *services.PresenceService) {
	controller := &controllers.PresenceController{PresenceService: presenceService}

	presenceRouter := router.PathPrefix("/api/presence").Subrouter()
	presenceRouter.HandleFunc("/{userId}", controller.UpsertPresenceHandler).Methods("PUT")                 // Partial presence write
	presenceRouter.HandleFunc("/{userId}/availability", controller.SetAvailabilityHandler).Methods("PUT")   // Toggle availability
	presenceRouter.HandleFunc("/{userId}", controller.GetPresenceHandler).Methods("GET")                    // Read one record
}
