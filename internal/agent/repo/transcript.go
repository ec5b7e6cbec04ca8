package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/askaquestion-genai/server/internal/agent/model"
	errx "github.com/askaquestion-genai/server/internal/core/error"
	logx "github.com/askaquestion-genai/server/pkg/logger"
)

type RedisTranscriptRepository struct {
	rdb      redis.Cmdable
	ttl      time.Duration
	maxTurns int
}

// NewRedisTranscriptRepository keeps at most maxTurns records per session;
// zero or less keeps everything.
func NewRedisTranscriptRepository(rdb redis.Cmdable, ttl time.Duration, maxTurns int) *RedisTranscriptRepository {
	return &RedisTranscriptRepository{rdb: rdb, ttl: ttl, maxTurns: maxTurns}
}

func (r *RedisTranscriptRepository) transcriptKey(sessionID string) string {
	return fmt.Sprintf("transcript:%s:turns", sessionID)
}

func (r *RedisTranscriptRepository) AppendTurn(ctx context.Context, sessionID string, record model.TurnRecord) error {
	b, err := sonic.Marshal(record)
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to marshal turn record")
		return fmt.Errorf("marshal turn record: %w", err)
	}
	key := r.transcriptKey(sessionID)

	// append, cap and extend TTL on touch in one round trip
	pipe := r.rdb.TxPipeline()
	pipe.RPush(ctx, key, b)
	if r.maxTurns > 0 {
		pipe.LTrim(ctx, key, -int64(r.maxTurns), -1)
	}
	var expire *redis.BoolCmd
	if r.ttl > 0 {
		expire = pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to append turn to redis")
		return errx.WrapRedis(err)
	}
	if expire != nil && !expire.Val() {
		logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on transcript key")
	}
	return nil
}

func (r *RedisTranscriptRepository) LoadTurns(ctx context.Context, sessionID string) ([]model.TurnRecord, error) {
	key := r.transcriptKey(sessionID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []model.TurnRecord{}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load transcript from redis")
		return nil, errx.WrapRedis(err)
	}

	records := make([]model.TurnRecord, 0, len(rows))
	for i, s := range rows {
		var rec model.TurnRecord
		if err := sonic.UnmarshalString(s, &rec); err != nil {
			logx.Error().Err(err).Str("session_id", sessionID).Int("index", i).Msg("failed to unmarshal turn record")
			return nil, fmt.Errorf("unmarshal turn record at index %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *RedisTranscriptRepository) ClearTurns(ctx context.Context, sessionID string) error {
	key := r.transcriptKey(sessionID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete transcript from redis")
		return errx.WrapRedis(err)
	}
	return nil
}
