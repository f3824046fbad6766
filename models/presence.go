package models

// PresenceRecord represents a user's availability snapshot in DynamoDB.
// Coordinates are pointers because a record exists before the user has
// ever reported a location; absent is not the same as (0, 0).
type PresenceRecord struct {
	UserID     string            `json:"userId" dynamodbav:"userId"` // Partition Key (PK)
	Name       string            `json:"name,omitempty" dynamodbav:"name,omitempty"`
	Lat        *float64          `json:"lat,omitempty" dynamodbav:"lat,omitempty"`
	Lng        *float64          `json:"lng,omitempty" dynamodbav:"lng,omitempty"`
	Available  bool              `json:"available" dynamodbav:"available"`
	LastSeenAt string            `json:"lastSeenAt" dynamodbav:"lastSeenAt"` // RFC3339 UTC, never decreases
	Attributes map[string]string `json:"attributes,omitempty" dynamodbav:"attributes,omitempty"`
	CreatedAt  string            `json:"createdAt,omitempty" dynamodbav:"createdAt,omitempty"`
}

// TableName returns the DynamoDB table name for presence records
func (PresenceRecord) TableName() string {
	return "Users"
}

// NearbyEntry is a derived row of the nearby list. It is never stored;
// it is recomputed from presence snapshots on every change.
type NearbyEntry struct {
	UserID             string  `json:"userId"`
	DisplayName        string  `json:"displayName"`
	DistanceKm         float64 `json:"distanceKm"`
	EtaMinutes         int     `json:"etaMinutes"`
	PresenceAgeMinutes float64 `json:"presenceAgeMinutes"`
}
