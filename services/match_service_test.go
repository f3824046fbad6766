package services

import (
	"testing"
	"time"

	"jamaah_server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// kmPerLatDegree converts a northward distance into a latitude offset so
// fixtures can place users at exact haversine distances from (0, 0).
const kmPerLatDegree = 111.19492664455873

func presenceAtKm(userID string, km float64, lastSeenAt time.Time) models.PresenceRecord {
	lat := km / kmPerLatDegree
	lng := 0.0
	record := models.PresenceRecord{
		UserID:    userID,
		Available: true,
		Lat:       &lat,
		Lng:       &lng,
	}
	if !lastSeenAt.IsZero() {
		record.LastSeenAt = lastSeenAt.UTC().Format(time.RFC3339)
	}
	return record
}

func TestRankNearbyRadiusFilterAndOrder(t *testing.T) {
	now := time.Now().UTC()
	records := []models.PresenceRecord{
		presenceAtKm("far", 10, now),
		presenceAtKm("edge-out", 3.1, now),
		presenceAtKm("close", 0.5, now),
		presenceAtKm("edge-in", 2.9, now),
	}

	entries := RankNearby(0, 0, records, 3, 15, now)

	require.Len(t, entries, 2)
	assert.Equal(t, "close", entries[0].UserID)
	assert.Equal(t, "edge-in", entries[1].UserID)
	assert.InDelta(t, 0.5, entries[0].DistanceKm, 1e-6)
	assert.InDelta(t, 2.9, entries[1].DistanceKm, 1e-6)
	assert.Equal(t, 6, entries[0].EtaMinutes)  // 0.5 km is a 6 minute walk
	assert.Equal(t, 36, entries[1].EtaMinutes) // 2.9 km is a 36 minute walk
}

func TestRankNearbyStalenessThreshold(t *testing.T) {
	now := time.Now().UTC()
	records := []models.PresenceRecord{
		presenceAtKm("stale", 1, now.Add(-20*time.Minute)),
		presenceAtKm("fresh", 2, now.Add(-5*time.Minute)),
	}

	entries := RankNearby(0, 0, records, 3, 15, now)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].UserID)

	// A wider threshold readmits the stale record.
	entries = RankNearby(0, 0, records, 3, 30, now)
	require.Len(t, entries, 2)
	assert.Equal(t, "stale", entries[0].UserID)
	assert.InDelta(t, 20, entries[0].PresenceAgeMinutes, 0.1)
}

func TestRankNearbyDropsUnusableRecords(t *testing.T) {
	now := time.Now().UTC()

	noCoords := models.PresenceRecord{UserID: "no-coords", Available: true, LastSeenAt: now.Format(time.RFC3339)}
	unavailable := presenceAtKm("unavailable", 1, now)
	unavailable.Available = false
	unknownFreshness := presenceAtKm("unknown-freshness", 1, time.Time{})

	records := []models.PresenceRecord{noCoords, unavailable, unknownFreshness, presenceAtKm("ok", 1, now)}

	// Unknown freshness is excluded even by an absurdly generous
	// threshold; it is "never fresh", not "always fresh".
	entries := RankNearby(0, 0, records, 3, 1e6, now)
	require.Len(t, entries, 1)
	assert.Equal(t, "ok", entries[0].UserID)
}

func TestRankNearbyTieBreaksByUserID(t *testing.T) {
	now := time.Now().UTC()
	records := []models.PresenceRecord{
		presenceAtKm("bravo", 1, now),
		presenceAtKm("alpha", 1, now),
	}

	entries := RankNearby(0, 0, records, 3, 15, now)
	require.Len(t, entries, 2)
	assert.Equal(t, "alpha", entries[0].UserID)
	assert.Equal(t, "bravo", entries[1].UserID)
}

func TestRankNearbyIsDeterministic(t *testing.T) {
	now := time.Now().UTC()
	records := []models.PresenceRecord{
		presenceAtKm("c", 2.2, now),
		presenceAtKm("a", 0.7, now),
		presenceAtKm("b", 1.4, now),
	}

	first := RankNearby(0, 0, records, 5, 15, now)
	second := RankNearby(0, 0, records, 5, 15, now)
	assert.Equal(t, first, second)
}

func TestRankNearbyDisplayNameFallback(t *testing.T) {
	now := time.Now().UTC()

	anonymous := presenceAtKm("abcdef123", 1, now)
	named := presenceAtKm("uvwxyz789", 2, now)
	named.Name = "Yusuf"

	entries := RankNearby(0, 0, []models.PresenceRecord{anonymous, named}, 5, 15, now)
	require.Len(t, entries, 2)
	assert.Equal(t, "Brother abcd", entries[0].DisplayName)
	assert.Equal(t, "Yusuf", entries[1].DisplayName)
}
