package models

// Feed topics pushed through the subscription hub. Presence is a shared
// feed; inbox and sent feeds are per-user.
const (
	FeedPresence = "presence"
	FeedInbox    = "inbox"
	FeedSent     = "sent"
)

// Matching defaults mirroring the mobile client's pickers.
const (
	DefaultRadiusKm       = 3.0
	DefaultStalenessMin   = 15.0
	DefaultNearbyLimit    = 50
	CategoryAttributeName = "category"
)

// UserFeed names the per-user feed topic for a feed kind.
func UserFeed(kind, userID string) string {
	return kind + ":" + userID
}

// ValidPlaces lists the accepted invite places.
var ValidPlaces = []string{PlaceWork, PlaceMosque, PlaceOutdoor}

// ValidDurations lists the durations (minutes) the client offers.
var ValidDurations = []int{5, 10, 15, 20}
