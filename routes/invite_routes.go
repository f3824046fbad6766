package routes

import (
	"jamaah_server/controllers"
	"jamaah_server/services"

	"github.com/gorilla/mux"
)

// RegisterInviteRoutes registers all invite-related routes under `/api/invites`
func RegisterInviteRoutes(router *mux.Router, inviteService *services.InviteService) {
	controller := &controllers.InviteController{InviteService: inviteService}

	inviteRouter := router.PathPrefix("/api/invites").Subrouter()
	inviteRouter.HandleFunc("", controller.CreateInviteHandler).Methods("POST")                        // Create an invite (dual write)
	inviteRouter.HandleFunc("/inbox/{recipientId}", controller.GetInboxHandler).Methods("GET")         // Recipient inbox
	inviteRouter.HandleFunc("/sent/{senderId}", controller.GetSentHandler).Methods("GET")              // Sender mirror
	inviteRouter.HandleFunc("/status", controller.UpdateInviteStatusHandler).Methods("PUT")            // Recipient status transition
	inviteRouter.HandleFunc("/{inviteId}/reconcile", controller.ReconcileHandler).Methods("POST")      // Repair / re-mirror
}
