package models

// Invite status constants. Sent is the only state an invite is created in;
// Accepted and Declined are reachable from Sent, and the recipient may
// reset either back to Sent.
const (
	InviteStatusSent     = "sent"
	InviteStatusAccepted = "accepted"
	InviteStatusDeclined = "declined"
)

// Invite place constants
const (
	PlaceWork    = "work"
	PlaceMosque  = "mosque"
	PlaceOutdoor = "outdoor"
)

// InboxInvite is the recipient projection of an invite. It is the
// authoritative side for status: reconciliation only ever copies status
// from here to the sender projection, never the other way around.
type InboxInvite struct {
	RecipientID     string `json:"recipientId" dynamodbav:"recipientId"` // Partition Key (PK)
	InviteID        string `json:"inviteId" dynamodbav:"inviteId"`       // Sort Key (SK), shared with SentInvite
	SenderID        string `json:"senderId" dynamodbav:"senderId"`
	SenderName      string `json:"senderName" dynamodbav:"senderName"`
	Place           string `json:"place" dynamodbav:"place"`
	DurationMinutes int    `json:"durationMinutes" dynamodbav:"durationMinutes"`
	Status          string `json:"status" dynamodbav:"status"`
	CreatedAt       string `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt       string `json:"updatedAt" dynamodbav:"updatedAt"`
	ReadAt          string `json:"readAt,omitempty" dynamodbav:"readAt,omitempty"`
}

// TableName returns the DynamoDB table name for recipient projections
func (InboxInvite) TableName() string {
	return "Invites"
}

// InviteIDIndexName is the GSI on Invites keyed by inviteId, used by
// reconciliation to find the authoritative projection from the id alone.
const InviteIDIndexName = "InviteIdIndex"

// SentInvite is the sender projection of the same invite, keyed under the
// sender so the sent list is a plain partition query. Its status lags the
// recipient projection until reconciliation runs.
type SentInvite struct {
	SenderID        string `json:"senderId" dynamodbav:"senderId"` // Partition Key (PK)
	InviteID        string `json:"inviteId" dynamodbav:"inviteId"` // Sort Key (SK), shared with InboxInvite
	RecipientID     string `json:"recipientId" dynamodbav:"recipientId"`
	RecipientName   string `json:"recipientName" dynamodbav:"recipientName"`
	SenderName      string `json:"senderName" dynamodbav:"senderName"`
	Place           string `json:"place" dynamodbav:"place"`
	DurationMinutes int    `json:"durationMinutes" dynamodbav:"durationMinutes"`
	Status          string `json:"status" dynamodbav:"status"`
	UpdatedAt       string `json:"updatedAt" dynamodbav:"updatedAt"`
}

// TableName returns the DynamoDB table name for sender projections
func (SentInvite) TableName() string {
	return "SentInvites"
}
