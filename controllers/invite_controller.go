package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"jamaah_server/models"
	"jamaah_server/services"

	"github.com/gorilla/mux"
)

// InviteController handles HTTP requests for the invite ledger
type InviteController struct {
	InviteService *services.InviteService
}

// CreateInviteHandler creates a new invite. A split state (recipient side
// written, sender side not) is reported, not hidden: the invite id is
// still returned so the caller can trigger reconciliation.
func (c *InviteController) CreateInviteHandler(w http.ResponseWriter, r *http.Request) {
	var request struct {
		SenderID        string `json:"senderId"`
		SenderName      string `json:"senderName"`
		RecipientID     string `json:"recipientId"`
		RecipientName   string `json:"recipientName"`
		Place           string `json:"place"`
		DurationMinutes int    `json:"durationMinutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !validPlace(request.Place) {
		http.Error(w, "Invalid place", http.StatusBadRequest)
		return
	}
	if !validDuration(request.DurationMinutes) {
		http.Error(w, "Invalid duration", http.StatusBadRequest)
		return
	}

	inviteID, err := c.InviteService.CreateInvite(r.Context(),
		request.SenderID, request.SenderName,
		request.RecipientID, request.RecipientName,
		request.Place, request.DurationMinutes)
	if err != nil {
		if errors.Is(err, services.ErrSplitInviteState) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"inviteId": inviteID,
				"split":    true,
				"message":  "Invite delivered to recipient; sender view pending reconciliation",
			})
			return
		}
		http.Error(w, "Failed to create invite", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{"inviteId": inviteID})
}

// GetInboxHandler returns a recipient's invites
func (c *InviteController) GetInboxHandler(w http.ResponseWriter, r *http.Request) {
	recipientID := mux.Vars(r)["recipientId"]
	invites, err := c.InviteService.GetInbox(r.Context(), recipientID)
	if err != nil {
		http.Error(w, "Failed to fetch inbox", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(invites)
}

// GetSentHandler returns a sender's mirror projections
func (c *InviteController) GetSentHandler(w http.ResponseWriter, r *http.Request) {
	senderID := mux.Vars(r)["senderId"]
	invites, err := c.InviteService.GetSent(r.Context(), senderID)
	if err != nil {
		http.Error(w, "Failed to fetch sent invites", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(invites)
}

// UpdateInviteStatusHandler moves a recipient's invite along a legal edge
func (c *InviteController) UpdateInviteStatusHandler(w http.ResponseWriter, r *http.Request) {
	var request struct {
		RecipientID string `json:"recipientId"`
		InviteID    string `json:"inviteId"`
		Status      string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := c.InviteService.Transition(r.Context(), request.RecipientID, request.InviteID, request.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrIllegalTransition):
			http.Error(w, "Illegal status transition", http.StatusConflict)
		case errors.Is(err, services.ErrNotFound):
			http.Error(w, "Invite not found", http.StatusNotFound)
		default:
			http.Error(w, "Failed to update invite", http.StatusInternalServerError)
		}
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Invite status updated successfully"})
}

// ReconcileHandler repairs or re-mirrors one invite. Safe to call
// repeatedly; also the entry point a periodic sweep would use.
func (c *InviteController) ReconcileHandler(w http.ResponseWriter, r *http.Request) {
	inviteID := mux.Vars(r)["inviteId"]

	changed, err := c.InviteService.Reconcile(r.Context(), inviteID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "Invite not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to reconcile invite", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]bool{"changed": changed})
}

func validPlace(place string) bool {
	for _, p := range models.ValidPlaces {
		if place == p {
			return true
		}
	}
	return false
}

func validDuration(mins int) bool {
	for _, d := range models.ValidDurations {
		if mins == d {
			return true
		}
	}
	return false
}
