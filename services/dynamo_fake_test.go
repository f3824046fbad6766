package services

import (
	"context"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is an in-memory DynamoAPI implementation covering exactly the
// expression surface the services emit: plain SET clauses, if_not_exists,
// attribute_not_exists conditions, single-attribute key conditions and
// equality scan filters (including attribute map paths). Writes can be
// told to fail once per table to simulate partial failures.
type fakeDynamo struct {
	mu         sync.Mutex
	tables     map[string]map[string]map[string]types.AttributeValue
	schemas    map[string][]string
	failPut    map[string]error
	failUpdate map[string]error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		tables: make(map[string]map[string]map[string]types.AttributeValue),
		schemas: map[string][]string{
			"Users":       {"userId"},
			"Invites":     {"recipientId", "inviteId"},
			"SentInvites": {"senderId", "inviteId"},
		},
		failPut:    make(map[string]error),
		failUpdate: make(map[string]error),
	}
}

func (f *fakeDynamo) table(name string) map[string]map[string]types.AttributeValue {
	tbl, ok := f.tables[name]
	if !ok {
		tbl = make(map[string]map[string]types.AttributeValue)
		f.tables[name] = tbl
	}
	return tbl
}

func (f *fakeDynamo) itemKey(tableName string, item map[string]types.AttributeValue) string {
	parts := make([]string, 0, 2)
	for _, attr := range f.schemas[tableName] {
		if v, ok := item[attr].(*types.AttributeValueMemberS); ok {
			parts = append(parts, v.Value)
		}
	}
	return strings.Join(parts, "/")
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tableName := *params.TableName
	if err, ok := f.failPut[tableName]; ok {
		delete(f.failPut, tableName)
		return nil, err
	}

	f.table(tableName)[f.itemKey(tableName, params.Item)] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tableName := *params.TableName
	item := f.table(tableName)[f.itemKey(tableName, params.Key)]
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tableName := *params.TableName
	if err, ok := f.failUpdate[tableName]; ok {
		delete(f.failUpdate, tableName)
		return nil, err
	}

	tbl := f.table(tableName)
	key := f.itemKey(tableName, params.Key)
	item, exists := tbl[key]
	if !exists {
		item = make(map[string]types.AttributeValue, len(params.Key))
		for attr, value := range params.Key {
			item[attr] = value
		}
	}

	if params.ConditionExpression != nil {
		cond := strings.TrimSpace(*params.ConditionExpression)
		if strings.HasPrefix(cond, "attribute_not_exists(") {
			attr := resolveName(strings.TrimSuffix(strings.TrimPrefix(cond, "attribute_not_exists("), ")"), params.ExpressionAttributeNames)
			if _, present := item[attr]; present && exists {
				return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
			}
		}
	}

	expr := strings.TrimPrefix(*params.UpdateExpression, "SET ")
	for _, clause := range splitClauses(expr) {
		parts := strings.SplitN(clause, " = ", 2)
		target := resolveName(strings.TrimSpace(parts[0]), params.ExpressionAttributeNames)
		rhs := strings.TrimSpace(parts[1])

		if strings.HasPrefix(rhs, "if_not_exists(") {
			inner := strings.TrimSuffix(strings.TrimPrefix(rhs, "if_not_exists("), ")")
			bits := strings.SplitN(inner, ",", 2)
			existing := resolveName(strings.TrimSpace(bits[0]), params.ExpressionAttributeNames)
			if current, ok := item[existing]; ok {
				item[target] = current
			} else {
				item[target] = params.ExpressionAttributeValues[strings.TrimSpace(bits[1])]
			}
			continue
		}

		item[target] = params.ExpressionAttributeValues[rhs]
	}

	tbl[key] = item
	return &dynamodb.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(*params.KeyConditionExpression, " = ", 2)
	field := resolveName(strings.TrimSpace(parts[0]), params.ExpressionAttributeNames)
	want := params.ExpressionAttributeValues[strings.TrimSpace(parts[1])]

	var items []map[string]types.AttributeValue
	for _, item := range f.table(*params.TableName) {
		if attrEqual(item[field], want) {
			items = append(items, copyItem(item))
		}
	}
	if params.Limit != nil && len(items) > int(*params.Limit) {
		items = items[:*params.Limit]
	}
	return &dynamodb.QueryOutput{Items: items}, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var items []map[string]types.AttributeValue
	for _, item := range f.table(*params.TableName) {
		if params.FilterExpression == nil || matchesFilter(item, *params.FilterExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues) {
			items = append(items, copyItem(item))
		}
	}
	return &dynamodb.ScanOutput{Items: items}, nil
}

// rawItem exposes a stored item for direct manipulation in tests.
func (f *fakeDynamo) rawItem(tableName, key string) map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.table(tableName)[key]
}

func matchesFilter(item map[string]types.AttributeValue, filter string, names map[string]string, values map[string]types.AttributeValue) bool {
	for _, clause := range strings.Split(filter, " AND ") {
		parts := strings.SplitN(clause, " = ", 2)
		if len(parts) != 2 {
			return false
		}
		got, ok := lookupPath(item, strings.TrimSpace(parts[0]), names)
		if !ok {
			return false
		}
		if !attrEqual(got, values[strings.TrimSpace(parts[1])]) {
			return false
		}
	}
	return true
}

func lookupPath(item map[string]types.AttributeValue, path string, names map[string]string) (types.AttributeValue, bool) {
	current := item
	segments := strings.Split(path, ".")
	for i, segment := range segments {
		attr, ok := current[resolveName(strings.TrimSpace(segment), names)]
		if !ok {
			return nil, false
		}
		if i == len(segments)-1 {
			return attr, true
		}
		nested, ok := attr.(*types.AttributeValueMemberM)
		if !ok {
			return nil, false
		}
		current = nested.Value
	}
	return nil, false
}

// splitClauses splits a comma-separated expression at paren depth zero,
// so function arguments like if_not_exists(a, :b) stay intact.
func splitClauses(expr string) []string {
	var clauses []string
	depth, start := 0, 0
	for i, r := range expr {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				clauses = append(clauses, strings.TrimSpace(expr[start:i]))
				start = i + 1
			}
		}
	}
	clauses = append(clauses, strings.TrimSpace(expr[start:]))
	return clauses
}

// copyItem shallow-copies an item so readers never alias live store state.
func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	clone := make(map[string]types.AttributeValue, len(item))
	for attr, value := range item {
		clone[attr] = value
	}
	return clone
}

func resolveName(token string, names map[string]string) string {
	if strings.HasPrefix(token, "#") {
		if actual, ok := names[token]; ok {
			return actual
		}
	}
	return token
}

func attrEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	}
	return false
}

func setStringAttr(item map[string]types.AttributeValue, field, value string) {
	item[field] = &types.AttributeValueMemberS{Value: value}
}

// recordingPublisher captures published feed topics.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(topic string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}
