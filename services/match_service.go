package services

import (
	"context"
	"sort"
	"time"

	"jamaah_server/models"
)

// unknownPresenceAge is the sentinel age (minutes) for records with no
// parseable lastSeenAt. Large enough that any staleness threshold excludes
// it, and that it sorts after every real age.
const unknownPresenceAge = float64(1 << 30)

// MatchService derives the nearby list from the live presence set.
type MatchService struct {
	Presence *PresenceService
}

// Nearby returns the ranked nearby list for a viewer. The derivation is a
// pull over the presence snapshot: callers rerun it on every presence-feed
// delivery and on every radius or staleness change.
func (ms *MatchService) Nearby(ctx context.Context, viewerID string, lat, lng, radiusKm, stalenessMin float64, facets map[string]string) ([]models.NearbyEntry, error) {
	records, err := ms.Presence.QueryAvailable(ctx, facets, viewerID, models.DefaultNearbyLimit)
	if err != nil {
		return nil, err
	}
	return RankNearby(lat, lng, records, radiusKm, stalenessMin, time.Now().UTC()), nil
}

// RankNearby filters and orders a presence snapshot around a viewer. Pure
// and idempotent: the same inputs always produce the same ordered list.
// Records without coordinates or availability are dropped; records older
// than the staleness threshold (or with unknown freshness) are dropped;
// the rest are sorted by distance, ties broken by userId for determinism.
func RankNearby(viewerLat, viewerLng float64, records []models.PresenceRecord, radiusKm, stalenessMin float64, now time.Time) []models.NearbyEntry {
	entries := make([]models.NearbyEntry, 0, len(records))

	for _, record := range records {
		if record.Lat == nil || record.Lng == nil {
			continue
		}
		if !record.Available {
			continue
		}

		km := DistanceKm(viewerLat, viewerLng, *record.Lat, *record.Lng)
		age := presenceAgeMinutes(record.LastSeenAt, now)
		if km > radiusKm || age > stalenessMin {
			continue
		}

		entries = append(entries, models.NearbyEntry{
			UserID:             record.UserID,
			DisplayName:        displayName(record),
			DistanceKm:         km,
			EtaMinutes:         EtaMinutes(km),
			PresenceAgeMinutes: age,
		})
	}

	sort.Slice(entries, func(a, b int) bool {
		if entries[a].DistanceKm != entries[b].DistanceKm {
			return entries[a].DistanceKm < entries[b].DistanceKm
		}
		return entries[a].UserID < entries[b].UserID
	})

	return entries
}

func presenceAgeMinutes(lastSeenAt string, now time.Time) float64 {
	if lastSeenAt == "" {
		return unknownPresenceAge
	}
	seen, err := time.Parse(time.RFC3339, lastSeenAt)
	if err != nil {
		return unknownPresenceAge
	}
	age := now.Sub(seen).Minutes()
	if age < 0 {
		return 0
	}
	return age
}

func displayName(record models.PresenceRecord) string {
	if record.Name != "" {
		return record.Name
	}
	short := record.UserID
	if len(short) > 4 {
		short = short[:4]
	}
	return "Brother " + short
}
