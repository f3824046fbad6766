package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"jamaah_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// InviteService is the dual-projection invite ledger. One logical invite
// is materialized twice: an InboxInvite under the recipient and a
// SentInvite under the sender, sharing one invite id. The two writes are
// never atomic (no cross-partition transaction), so the ledger tolerates
// and repairs the split state where only the recipient side exists.
type InviteService struct {
	Dynamo *DynamoService
	Events ChangePublisher
}

// CreateInvite generates a fresh invite id and writes both projections
// with status sent. The writes are independent: if the sender-side write
// fails after the recipient side succeeded, the id is still returned
// together with a SplitInviteError, because the invite exists for the
// recipient and Reconcile can rebuild the sender side later.
func (s *InviteService) CreateInvite(ctx context.Context, senderID, senderName, recipientID, recipientName, place string, durationMinutes int) (string, error) {
	if senderID == "" || recipientID == "" {
		return "", fmt.Errorf("%w: sender and recipient ids are required", ErrPermissionDenied)
	}
	if durationMinutes <= 0 {
		return "", fmt.Errorf("invalid duration: %d minutes", durationMinutes)
	}

	inviteID := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)

	inbox := models.InboxInvite{
		RecipientID:     recipientID,
		InviteID:        inviteID,
		SenderID:        senderID,
		SenderName:      senderName,
		Place:           place,
		DurationMinutes: durationMinutes,
		Status:          models.InviteStatusSent,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Dynamo.PutItem(ctx, inbox.TableName(), inbox); err != nil {
		return "", fmt.Errorf("failed to write recipient projection: %w", err)
	}
	publish(s.Events, models.UserFeed(models.FeedInbox, recipientID))

	sent := models.SentInvite{
		SenderID:        senderID,
		InviteID:        inviteID,
		RecipientID:     recipientID,
		RecipientName:   recipientName,
		SenderName:      senderName,
		Place:           place,
		DurationMinutes: durationMinutes,
		Status:          models.InviteStatusSent,
		UpdatedAt:       now,
	}
	if err := s.Dynamo.PutItem(ctx, sent.TableName(), sent); err != nil {
		return inviteID, &SplitInviteError{InviteID: inviteID, Cause: err}
	}
	publish(s.Events, models.UserFeed(models.FeedSent, senderID))

	return inviteID, nil
}

// GetInbox returns a recipient's invites, newest first, and stamps readAt
// on every unread one. The stamping is best-effort: it runs at most once
// per invite (guarded by attribute_not_exists) and a failure is logged,
// never surfaced, so the read itself cannot be broken by it.
func (s *InviteService) GetInbox(ctx context.Context, recipientID string) ([]models.InboxInvite, error) {
	tableName := models.InboxInvite{}.TableName()
	input := &dynamodb.QueryInput{
		TableName:              &tableName,
		KeyConditionExpression: aws.String("recipientId = :recipientId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":recipientId": &types.AttributeValueMemberS{Value: recipientID},
		},
	}

	items, err := s.Dynamo.QueryItemsWithQueryInput(ctx, input)
	if err != nil {
		return nil, err
	}

	var invites []models.InboxInvite
	if err := attributevalue.UnmarshalListOfMaps(items, &invites); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inbox invites: %w", err)
	}

	sort.Slice(invites, func(a, b int) bool {
		if invites[a].CreatedAt != invites[b].CreatedAt {
			return invites[a].CreatedAt > invites[b].CreatedAt
		}
		return invites[a].InviteID < invites[b].InviteID
	})

	s.stampRead(ctx, recipientID, invites)
	return invites, nil
}

// GetSent returns a sender's mirror projections, newest first.
func (s *InviteService) GetSent(ctx context.Context, senderID string) ([]models.SentInvite, error) {
	tableName := models.SentInvite{}.TableName()
	input := &dynamodb.QueryInput{
		TableName:              &tableName,
		KeyConditionExpression: aws.String("senderId = :senderId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":senderId": &types.AttributeValueMemberS{Value: senderID},
		},
	}

	items, err := s.Dynamo.QueryItemsWithQueryInput(ctx, input)
	if err != nil {
		return nil, err
	}

	var invites []models.SentInvite
	if err := attributevalue.UnmarshalListOfMaps(items, &invites); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sent invites: %w", err)
	}

	sort.Slice(invites, func(a, b int) bool {
		if invites[a].UpdatedAt != invites[b].UpdatedAt {
			return invites[a].UpdatedAt > invites[b].UpdatedAt
		}
		return invites[a].InviteID < invites[b].InviteID
	})

	return invites, nil
}

// Transition moves a recipient's invite along one of the legal edges:
// sent->accepted, sent->declined, or the recipient-only reset
// accepted/declined->sent. A self-transition is a no-op; any other edge is
// ErrIllegalTransition. The recipient write completes and returns before
// the sender projection is touched; mirroring happens through an
// asynchronous best-effort reconcile.
func (s *InviteService) Transition(ctx context.Context, recipientID, inviteID, nextStatus string) error {
	current, err := s.getInboxInvite(ctx, recipientID, inviteID)
	if err != nil {
		return err
	}

	if nextStatus == current.Status {
		return nil
	}
	if !legalTransition(current.Status, nextStatus) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current.Status, nextStatus)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	key := map[string]types.AttributeValue{
		"recipientId": &types.AttributeValueMemberS{Value: recipientID},
		"inviteId":    &types.AttributeValueMemberS{Value: inviteID},
	}
	_, err = s.Dynamo.UpdateItem(ctx, models.InboxInvite{}.TableName(),
		"SET #status = :status, #updatedAt = :updatedAt", "",
		key,
		map[string]types.AttributeValue{
			":status":    &types.AttributeValueMemberS{Value: nextStatus},
			":updatedAt": &types.AttributeValueMemberS{Value: now},
		},
		map[string]string{
			"#status":    "status",
			"#updatedAt": "updatedAt",
		})
	if err != nil {
		return err
	}
	publish(s.Events, models.UserFeed(models.FeedInbox, recipientID))

	go func() {
		reconcileCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := s.Reconcile(reconcileCtx, inviteID); err != nil {
			log.Printf("Reconcile after transition failed for invite %s: %v", inviteID, err)
		}
	}()

	return nil
}

// Reconcile brings the sender projection into agreement with the
// recipient projection, which is always authoritative for status. It
// recreates a missing sender projection (split-state repair), copies
// status and updatedAt when they differ, and does nothing when the pair
// already agrees — so repeated or concurrent reconciles converge. The
// recipient side is never written from here.
func (s *InviteService) Reconcile(ctx context.Context, inviteID string) (bool, error) {
	recipient, err := s.findByInviteID(ctx, inviteID)
	if err != nil {
		return false, err
	}

	senderKey := map[string]types.AttributeValue{
		"senderId": &types.AttributeValueMemberS{Value: recipient.SenderID},
		"inviteId": &types.AttributeValueMemberS{Value: inviteID},
	}
	item, err := s.Dynamo.GetItem(ctx, models.SentInvite{}.TableName(), senderKey)
	if errors.Is(err, ErrNotFound) {
		sent := models.SentInvite{
			SenderID:        recipient.SenderID,
			InviteID:        inviteID,
			RecipientID:     recipient.RecipientID,
			SenderName:      recipient.SenderName,
			Place:           recipient.Place,
			DurationMinutes: recipient.DurationMinutes,
			Status:          recipient.Status,
			UpdatedAt:       recipient.UpdatedAt,
		}
		if err := s.Dynamo.PutItem(ctx, sent.TableName(), sent); err != nil {
			return false, fmt.Errorf("failed to rebuild sender projection: %w", err)
		}
		publish(s.Events, models.UserFeed(models.FeedSent, recipient.SenderID))
		return true, nil
	}
	if err != nil {
		return false, err
	}

	var sent models.SentInvite
	if err := attributevalue.UnmarshalMap(item, &sent); err != nil {
		return false, fmt.Errorf("failed to unmarshal sender projection: %w", err)
	}
	if sent.Status == recipient.Status && sent.UpdatedAt == recipient.UpdatedAt {
		return false, nil
	}

	_, err = s.Dynamo.UpdateItem(ctx, models.SentInvite{}.TableName(),
		"SET #status = :status, #updatedAt = :updatedAt", "",
		senderKey,
		map[string]types.AttributeValue{
			":status":    &types.AttributeValueMemberS{Value: recipient.Status},
			":updatedAt": &types.AttributeValueMemberS{Value: recipient.UpdatedAt},
		},
		map[string]string{
			"#status":    "status",
			"#updatedAt": "updatedAt",
		})
	if err != nil {
		return false, err
	}
	publish(s.Events, models.UserFeed(models.FeedSent, recipient.SenderID))
	return true, nil
}

func (s *InviteService) getInboxInvite(ctx context.Context, recipientID, inviteID string) (*models.InboxInvite, error) {
	key := map[string]types.AttributeValue{
		"recipientId": &types.AttributeValueMemberS{Value: recipientID},
		"inviteId":    &types.AttributeValueMemberS{Value: inviteID},
	}
	item, err := s.Dynamo.GetItem(ctx, models.InboxInvite{}.TableName(), key)
	if err != nil {
		return nil, err
	}

	var invite models.InboxInvite
	if err := attributevalue.UnmarshalMap(item, &invite); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inbox invite: %w", err)
	}
	return &invite, nil
}

// findByInviteID resolves the authoritative recipient projection through
// the InviteIdIndex GSI, so reconciliation needs only the shared id.
func (s *InviteService) findByInviteID(ctx context.Context, inviteID string) (*models.InboxInvite, error) {
	items, err := s.Dynamo.QueryItemsWithIndex(ctx,
		models.InboxInvite{}.TableName(),
		models.InviteIDIndexName,
		"inviteId = :inviteId",
		map[string]types.AttributeValue{
			":inviteId": &types.AttributeValueMemberS{Value: inviteID},
		},
		nil, 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}

	var invite models.InboxInvite
	if err := attributevalue.UnmarshalMap(items[0], &invite); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inbox invite: %w", err)
	}
	return &invite, nil
}

func (s *InviteService) stampRead(ctx context.Context, recipientID string, invites []models.InboxInvite) {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, invite := range invites {
		if invite.ReadAt != "" {
			continue
		}
		key := map[string]types.AttributeValue{
			"recipientId": &types.AttributeValueMemberS{Value: recipientID},
			"inviteId":    &types.AttributeValueMemberS{Value: invite.InviteID},
		}
		_, err := s.Dynamo.UpdateItem(ctx, models.InboxInvite{}.TableName(),
			"SET #readAt = :readAt", "attribute_not_exists(#readAt)",
			key,
			map[string]types.AttributeValue{
				":readAt": &types.AttributeValueMemberS{Value: now},
			},
			map[string]string{"#readAt": "readAt"})
		if err != nil {
			// Best-effort: the inbox read must not fail over this.
			log.Printf("Failed to stamp readAt on invite %s: %v", invite.InviteID, err)
		}
	}
}

func legalTransition(current, next string) bool {
	switch current {
	case models.InviteStatusSent:
		return next == models.InviteStatusAccepted || next == models.InviteStatusDeclined
	case models.InviteStatusAccepted, models.InviteStatusDeclined:
		// Recipient-only reset, an explicit override rather than a
		// natural edge.
		return next == models.InviteStatusSent
	default:
		return false
	}
}
