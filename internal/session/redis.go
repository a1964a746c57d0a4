package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/suppbot/server/internal/core/error"
	logx "github.com/suppbot/server/pkg/logger"
)

// RedisStore persists session state in Redis: a list of JSON turns plus a
// string key for the last executed SQL. Keys share a TTL that is refreshed
// on every write, so idle sessions expire instead of growing forever.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) turnsKey(sessionID string) string {
	return fmt.Sprintf("session:%s:turns", sessionID)
}

func (s *RedisStore) lastSQLKey(sessionID string) string {
	return fmt.Sprintf("session:%s:last_sql", sessionID)
}

func (s *RedisStore) GetOrCreate(ctx context.Context, sessionID string) (*Snapshot, error) {
	rows, err := s.rdb.LRange(ctx, s.turnsKey(sessionID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to load session turns from redis")
		return nil, errx.WrapRedis(err)
	}

	turns := make([]Turn, 0, len(rows))
	for i, row := range rows {
		var t Turn
		if err := json.Unmarshal([]byte(row), &t); err != nil {
			logx.Error().Err(err).Str("session_id", sessionID).Int("index", i).Msg("failed to unmarshal turn")
			return nil, fmt.Errorf("unmarshal turn at index %d: %w", i, err)
		}
		turns = append(turns, t)
	}

	lastSQL, hasSQL, err := s.LastSQL(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		SessionID: sessionID,
		Turns:     turns,
		LastSQL:   lastSQL,
		HasSQL:    hasSQL,
	}, nil
}

func (s *RedisStore) RecordTurn(ctx context.Context, sessionID string, role Role, text string) error {
	b, err := json.Marshal(Turn{Role: role, Text: text})
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	key := s.turnsKey(sessionID)
	if err := s.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push turn to redis")
		return errx.WrapRedis(err)
	}
	s.touch(ctx, key)
	return nil
}

func (s *RedisStore) LastSQL(ctx context.Context, sessionID string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, s.lastSQLKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to load last sql from redis")
		return "", false, errx.WrapRedis(err)
	}
	return val, true, nil
}

func (s *RedisStore) SetLastSQL(ctx context.Context, sessionID string, sql string) error {
	key := s.lastSQLKey(sessionID)
	if err := s.rdb.Set(ctx, key, sql, s.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to store last sql in redis")
		return errx.WrapRedis(err)
	}
	return nil
}

// touch extends the TTL so active sessions stay alive.
func (s *RedisStore) touch(ctx context.Context, key string) {
	if s.ttl <= 0 {
		return
	}
	if ok, err := s.rdb.Expire(ctx, key, s.ttl).Result(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
	} else if !ok {
		logx.Warn().Str("key", key).Dur("ttl", s.ttl).Msg("failed to refresh TTL on session key")
	}
}

var _ Store = (*RedisStore)(nil)
