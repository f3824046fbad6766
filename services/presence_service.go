package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"jamaah_server/models"
	"jamaah_server/utils"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CoordBucketDeg is the quantization bucket for stored coordinates.
// Rounding before storage is an intentional, lossy privacy control: two
// physically distinct points inside one bucket are indistinguishable to
// matching. Tune for the privacy/accuracy tradeoff (0.005 degrees is
// roughly half a kilometre of latitude).
const CoordBucketDeg = 0.005

// PresenceService owns the per-user presence records in the Users table.
type PresenceService struct {
	Dynamo *DynamoService
	Events ChangePublisher
}

// PresenceUpdate carries the fields of a partial presence write. Nil
// fields are left untouched on the stored record.
type PresenceUpdate struct {
	Name       *string
	Lat        *float64
	Lng        *float64
	Available  *bool
	Attributes map[string]string
}

// QuantizeCoord rounds a coordinate to the storage bucket.
func QuantizeCoord(v float64) float64 {
	return math.Round(v/CoordBucketDeg) * CoordBucketDeg
}

// Upsert writes only the supplied fields and refreshes lastSeenAt to the
// later of now and the stored value, so lastSeenAt never decreases even if
// clocks disagree. Creates the record on first write. Storage rejections
// propagate to the caller; retries are caller policy.
func (ps *PresenceService) Upsert(ctx context.Context, userID string, update PresenceUpdate) error {
	if userID == "" {
		return fmt.Errorf("%w: missing user id", ErrPermissionDenied)
	}

	now := time.Now().UTC()
	lastSeen := now.Format(time.RFC3339)
	current, err := ps.Get(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if current != nil && current.LastSeenAt != "" {
		if prev, perr := time.Parse(time.RFC3339, current.LastSeenAt); perr == nil && prev.After(now) {
			lastSeen = current.LastSeenAt
		}
	}

	names := map[string]string{
		"#lastSeenAt": "lastSeenAt",
		"#createdAt":  "createdAt",
	}
	values := map[string]types.AttributeValue{
		":lastSeenAt": &types.AttributeValueMemberS{Value: lastSeen},
		":createdAt":  &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
	}
	sets := []string{
		"#lastSeenAt = :lastSeenAt",
		"#createdAt = if_not_exists(#createdAt, :createdAt)",
	}

	if update.Name != nil {
		names["#name"] = "name"
		values[":name"] = &types.AttributeValueMemberS{Value: *update.Name}
		sets = append(sets, "#name = :name")
	}
	if update.Lat != nil {
		names["#lat"] = "lat"
		values[":lat"] = numberAttr(QuantizeCoord(*update.Lat))
		sets = append(sets, "#lat = :lat")
	}
	if update.Lng != nil {
		names["#lng"] = "lng"
		values[":lng"] = numberAttr(QuantizeCoord(*update.Lng))
		sets = append(sets, "#lng = :lng")
	}
	if update.Available != nil {
		names["#available"] = "available"
		values[":available"] = &types.AttributeValueMemberBOOL{Value: *update.Available}
		sets = append(sets, "#available = :available")
	}
	if update.Attributes != nil {
		marshaled, merr := attributevalue.Marshal(update.Attributes)
		if merr != nil {
			return fmt.Errorf("failed to marshal attributes: %w", merr)
		}
		names["#attributes"] = "attributes"
		values[":attributes"] = marshaled
		sets = append(sets, "#attributes = :attributes")
	}

	key := map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}
	_, err = ps.Dynamo.UpdateItem(ctx, models.PresenceRecord{}.TableName(),
		"SET "+strings.Join(sets, ", "), "", key, values, names)
	if err != nil {
		return err
	}

	publish(ps.Events, models.FeedPresence)
	return nil
}

// SetAvailability flips only the availability flag (and lastSeenAt).
func (ps *PresenceService) SetAvailability(ctx context.Context, userID string, available bool) error {
	return ps.Upsert(ctx, userID, PresenceUpdate{Available: &available})
}

// Get reads one presence record. A missing record is ErrNotFound so
// callers can tell "no data yet" from a failed read.
func (ps *PresenceService) Get(ctx context.Context, userID string) (*models.PresenceRecord, error) {
	key := map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}
	item, err := ps.Dynamo.GetItem(ctx, models.PresenceRecord{}.TableName(), key)
	if err != nil {
		return nil, err
	}

	var record models.PresenceRecord
	if err := attributevalue.UnmarshalMap(item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence record: %w", err)
	}
	return &record, nil
}

// QueryAvailable returns the current matching set for the presence feed:
// available records matching every facet exactly, excluding the viewer.
// Ordered by userId so repeated snapshots of the same state are identical.
func (ps *PresenceService) QueryAvailable(ctx context.Context, facets map[string]string, excludeUserID string, limit int) ([]models.PresenceRecord, error) {
	names := map[string]string{"#available": "available"}
	values := map[string]types.AttributeValue{
		":available": &types.AttributeValueMemberBOOL{Value: true},
	}
	filters := []string{"#available = :available"}

	i := 0
	for facet, want := range facets {
		nameKey := fmt.Sprintf("#facet%d", i)
		valueKey := fmt.Sprintf(":facet%d", i)
		names["#attributes"] = "attributes"
		names[nameKey] = facet
		values[valueKey] = &types.AttributeValueMemberS{Value: want}
		filters = append(filters, fmt.Sprintf("#attributes.%s = %s", nameKey, valueKey))
		i++
	}

	var records []models.PresenceRecord
	err := ps.Dynamo.ScanWithFilter(ctx, models.PresenceRecord{}.TableName(),
		strings.Join(filters, " AND "), names, values,
		func(item map[string]types.AttributeValue) bool {
			return utils.ExtractString(item, "userId") != excludeUserID
		},
		&records)
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(a, b int) bool { return records[a].UserID < records[b].UserID })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func numberAttr(v float64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatFloat(v, 'f', -1, 64)}
}
