package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rental-assistant/internal/domain"
)

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore keeps each conversation as a JSON string and the message log as
// a stream.
type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

// OpenRedis connects and pings before returning.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("repository: redis ping failed: %w", err)
	}
	return NewRedisStore(rdb)
}

func NewRedisStore(rdb *redis.Client) (*RedisStore, error) {
	if rdb == nil {
		return nil, errors.New("repository: redis client must not be nil")
	}
	return &RedisStore{rdb: rdb, now: time.Now}, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func conversationKey(userID string) string {
	return "conversations:" + userID
}

func messagesKey(userID string) string {
	return "messages:" + userID
}

func (s *RedisStore) GetConversation(ctx context.Context, userID string) ([]domain.Turn, error) {
	raw, err := s.rdb.Get(ctx, conversationKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []domain.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository: GetConversation get: %w", err)
	}
	turns := []domain.Turn{}
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("repository: GetConversation decode turns: %w", err)
	}
	return turns, nil
}

func (s *RedisStore) SaveConversation(ctx context.Context, userID string, turns []domain.Turn) error {
	if turns == nil {
		turns = []domain.Turn{}
	}
	raw, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("repository: SaveConversation encode: %w", err)
	}
	if err := s.rdb.Set(ctx, conversationKey(userID), raw, 0).Err(); err != nil {
		return fmt.Errorf("repository: SaveConversation: %w", err)
	}
	return nil
}

func (s *RedisStore) AppendMessage(ctx context.Context, userID string, entry domain.LogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}
	err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: messagesKey(userID),
		Values: map[string]interface{}{
			"text":      entry.Text,
			"user":      entry.User,
			"timestamp": entry.Timestamp.UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("repository: AppendMessage xadd: %w", err)
	}
	return nil
}

func (s *RedisStore) ListMessages(ctx context.Context, userID string, limit int) ([]domain.LogEntry, error) {
	var (
		msgs []redis.XMessage
		err  error
	)
	if limit > 0 {
		msgs, err = s.rdb.XRevRangeN(ctx, messagesKey(userID), "+", "-", int64(limit)).Result()
	} else {
		msgs, err = s.rdb.XRevRange(ctx, messagesKey(userID), "+", "-").Result()
	}
	if err != nil {
		return nil, fmt.Errorf("repository: ListMessages xrevrange: %w", err)
	}

	entries := make([]domain.LogEntry, len(msgs))
	for i, m := range msgs {
		e, err := streamToLogEntry(m)
		if err != nil {
			return nil, fmt.Errorf("repository: ListMessages %s: %w", m.ID, err)
		}
		entries[len(msgs)-1-i] = e
	}
	return entries, nil
}

func streamToLogEntry(m redis.XMessage) (domain.LogEntry, error) {
	text, _ := m.Values["text"].(string)
	user, _ := m.Values["user"].(string)
	raw, _ := m.Values["timestamp"].(string)
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("parse timestamp: %w", err)
	}
	return domain.LogEntry{Text: text, User: user, Timestamp: ts}, nil
}
