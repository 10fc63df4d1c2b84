package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"rental-assistant/internal/domain"
)

const (
	skConversation = "CONVERSATION"
	skPrefixMsg    = "MSG#"

	// sortKeyLayout is fixed width so byte order of keys equals time order.
	sortKeyLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
// *dynamodb.Client satisfies it.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore keeps conversations and the message log in one table keyed by
// PK/SK.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

func NewDynamoStore(api dynamodbAPI, tableName string) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &DynamoStore{api: api, tableName: tableName, now: time.Now}, nil
}

func conversationPK(userID string) string {
	return "conversations/" + userID
}

func messagesPK(userID string) string {
	return "messages/" + userID
}

// msgSK orders log entries by time; the uuid suffix keeps same-instant
// entries distinct.
func msgSK(ts time.Time) string {
	return skPrefixMsg + ts.UTC().Format(sortKeyLayout) + "#" + uuid.NewString()
}

func (s *DynamoStore) GetConversation(ctx context.Context, userID string) ([]domain.Turn, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: conversationPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: skConversation},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: GetConversation get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return []domain.Turn{}, nil
	}
	turns, err := turnsAttr(out.Item, "turns")
	if err != nil {
		return nil, fmt.Errorf("repository: GetConversation decode turns: %w", err)
	}
	return turns, nil
}

// SaveConversation replaces the stored turn list unconditionally.
func (s *DynamoStore) SaveConversation(ctx context.Context, userID string, turns []domain.Turn) error {
	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"PK":        &types.AttributeValueMemberS{Value: conversationPK(userID)},
			"SK":        &types.AttributeValueMemberS{Value: skConversation},
			"userId":    &types.AttributeValueMemberS{Value: userID},
			"turns":     turnsValue(turns),
			"updatedAt": &types.AttributeValueMemberS{Value: s.now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: SaveConversation: %w", err)
	}
	return nil
}

func (s *DynamoStore) AppendMessage(ctx context.Context, userID string, entry domain.LogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}
	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"PK":        &types.AttributeValueMemberS{Value: messagesPK(userID)},
			"SK":        &types.AttributeValueMemberS{Value: msgSK(entry.Timestamp)},
			"text":      &types.AttributeValueMemberS{Value: entry.Text},
			"user":      &types.AttributeValueMemberS{Value: entry.User},
			"timestamp": &types.AttributeValueMemberS{Value: entry.Timestamp.UTC().Format(time.RFC3339Nano)},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: AppendMessage: %w", err)
	}
	return nil
}

// ListMessages returns the newest limit entries in chronological order.
func (s *DynamoStore) ListMessages(ctx context.Context, userID string, limit int) ([]domain.LogEntry, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: messagesPK(userID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixMsg},
		},
		// Newest first so Limit keeps the most recent entries.
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}

	out, err := s.api.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("repository: ListMessages query: %w", err)
	}

	entries := make([]domain.LogEntry, 0, len(out.Items))
	for _, item := range out.Items {
		e, err := itemToLogEntry(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListMessages unmarshal: %w", err)
		}
		entries = append(entries, e)
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func itemToLogEntry(item map[string]types.AttributeValue) (domain.LogEntry, error) {
	text, err := strAttr(item, "text")
	if err != nil {
		return domain.LogEntry{}, err
	}
	user, err := strAttr(item, "user")
	if err != nil {
		return domain.LogEntry{}, err
	}
	raw, err := strAttr(item, "timestamp")
	if err != nil {
		return domain.LogEntry{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("repository: parse timestamp: %w", err)
	}
	return domain.LogEntry{Text: text, User: user, Timestamp: ts}, nil
}

func turnsValue(turns []domain.Turn) *types.AttributeValueMemberL {
	list := make([]types.AttributeValue, 0, len(turns))
	for _, t := range turns {
		list = append(list, &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"role":    &types.AttributeValueMemberS{Value: string(t.Role)},
			"content": &types.AttributeValueMemberS{Value: t.Content},
		}})
	}
	return &types.AttributeValueMemberL{Value: list}
}

func turnsAttr(item map[string]types.AttributeValue, key string) ([]domain.Turn, error) {
	v, ok := item[key]
	if !ok {
		return []domain.Turn{}, nil
	}
	l, ok := v.(*types.AttributeValueMemberL)
	if !ok {
		return nil, fmt.Errorf("repository: attribute %q is not a list", key)
	}
	turns := make([]domain.Turn, 0, len(l.Value))
	for i, elem := range l.Value {
		m, ok := elem.(*types.AttributeValueMemberM)
		if !ok {
			return nil, fmt.Errorf("repository: %s[%d] is not a map", key, i)
		}
		role, err := strAttr(m.Value, "role")
		if err != nil {
			return nil, err
		}
		content, err := strAttr(m.Value, "content")
		if err != nil {
			return nil, err
		}
		turns = append(turns, domain.Turn{Role: domain.Role(role), Content: content})
	}
	return turns, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
