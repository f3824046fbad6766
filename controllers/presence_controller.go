package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"jamaah_server/services"

	"github.com/gorilla/mux"
)

// PresenceController handles HTTP requests for presence records
type PresenceController struct {
	PresenceService *services.PresenceService
}

// UpsertPresenceHandler writes the supplied fields of a user's presence
// record. Omitted fields are left untouched.
func (c *PresenceController) UpsertPresenceHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var request struct {
		Name       *string           `json:"name"`
		Lat        *float64          `json:"lat"`
		Lng        *float64          `json:"lng"`
		Available  *bool             `json:"available"`
		Attributes map[string]string `json:"attributes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := c.PresenceService.Upsert(r.Context(), userID, services.PresenceUpdate{
		Name:       request.Name,
		Lat:        request.Lat,
		Lng:        request.Lng,
		Available:  request.Available,
		Attributes: request.Attributes,
	})
	if err != nil {
		if errors.Is(err, services.ErrPermissionDenied) {
			http.Error(w, "User id is required", http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to update presence", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Presence updated successfully"})
}

// SetAvailabilityHandler flips only the availability flag
func (c *PresenceController) SetAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var request struct {
		Available bool `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := c.PresenceService.SetAvailability(r.Context(), userID, request.Available); err != nil {
		http.Error(w, "Failed to update availability", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Availability updated successfully"})
}

// GetPresenceHandler returns one presence record
func (c *PresenceController) GetPresenceHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	record, err := c.PresenceService.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "Presence record not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to fetch presence", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(record)
}
