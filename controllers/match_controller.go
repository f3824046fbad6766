package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"jamaah_server/models"
	"jamaah_server/services"

	"github.com/gorilla/mux"
)

// MatchController handles HTTP requests for the nearby list
type MatchController struct {
	MatchService *services.MatchService
}

// GetNearbyHandler derives the ranked nearby list for a viewer. Location
// is client-supplied; a request without coordinates means the viewer has
// no location yet, which is data absence rather than a server failure.
func (c *MatchController) GetNearbyHandler(w http.ResponseWriter, r *http.Request) {
	viewerID := mux.Vars(r)["userId"]
	query := r.URL.Query()

	lat, latErr := strconv.ParseFloat(query.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(query.Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		http.Error(w, "lat and lng query parameters are required", http.StatusBadRequest)
		return
	}

	radiusKm := models.DefaultRadiusKm
	if v, err := strconv.ParseFloat(query.Get("radiusKm"), 64); err == nil && v > 0 {
		radiusKm = v
	}
	stalenessMin := models.DefaultStalenessMin
	if v, err := strconv.ParseFloat(query.Get("stalenessMin"), 64); err == nil && v > 0 {
		stalenessMin = v
	}

	facets := map[string]string{}
	if category := query.Get("category"); category != "" {
		facets[models.CategoryAttributeName] = category
	}

	entries, err := c.MatchService.Nearby(r.Context(), viewerID, lat, lng, radiusKm, stalenessMin, facets)
	if err != nil {
		http.Error(w, "Failed to compute nearby list", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(entries)
}
