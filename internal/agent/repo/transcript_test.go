package repo

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askaquestion-genai/server/internal/agent/model"
	errx "github.com/askaquestion-genai/server/internal/core/error"
)

func newTestRepo(t *testing.T, ttl time.Duration, maxTurns ...int) (*RedisTranscriptRepository, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	limit := 0
	if len(maxTurns) > 0 {
		limit = maxTurns[0]
	}
	return NewRedisTranscriptRepository(rdb, ttl, limit), mr, rdb
}

func record(utterance string, attempt int) model.TurnRecord {
	fields := model.NewFieldSet("name", "date")
	fields.Set("name", model.StringPtr("John Smith"))
	msg := "Which date?"
	return model.TurnRecord{
		Utterance:     utterance,
		Message:       &msg,
		NeedsMoreInfo: true,
		Outcome:       model.OutcomeCollecting,
		AttemptCount:  attempt,
		MaxAttempts:   3,
		Fields:        fields,
		CreatedAt:     time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestAppendAndLoadTurns(t *testing.T) {
	repo, mr, _ := newTestRepo(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.AppendTurn(ctx, "s-1", record("hi", 1)))
	require.NoError(t, repo.AppendTurn(ctx, "s-1", record("John Smith", 2)))

	turns, err := repo.LoadTurns(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "hi", turns[0].Utterance)
	assert.Equal(t, 2, turns[1].AttemptCount)
	assert.Equal(t, []string{"name", "date"}, turns[1].Fields.Keys())
	assert.True(t, turns[1].Fields.IsFilled("name"))
	require.NotNil(t, turns[1].Message)
	assert.Equal(t, "Which date?", *turns[1].Message)
	assert.True(t, turns[0].CreatedAt.Equal(record("", 0).CreatedAt))

	assert.True(t, mr.Exists("transcript:s-1:turns"))
	assert.Equal(t, time.Hour, mr.TTL("transcript:s-1:turns"))
}

func TestAppendTurnCapsStoredTurns(t *testing.T) {
	repo, _, rdb := newTestRepo(t, time.Hour, 5)
	ctx := context.Background()

	for i := 1; i <= 200; i++ {
		require.NoError(t, repo.AppendTurn(ctx, "s-1", record(fmt.Sprintf("u%d", i), i)))
	}

	stored, err := rdb.LLen(ctx, "transcript:s-1:turns").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(5), stored)

	turns, err := repo.LoadTurns(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, turns, 5)
	assert.Equal(t, "u196", turns[0].Utterance)
	assert.Equal(t, "u200", turns[4].Utterance)
}

func TestLoadTurnsEmptySession(t *testing.T) {
	repo, _, _ := newTestRepo(t, 0)

	turns, err := repo.LoadTurns(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestClearTurns(t *testing.T) {
	repo, mr, _ := newTestRepo(t, 0)
	ctx := context.Background()

	require.NoError(t, repo.AppendTurn(ctx, "s-2", record("hi", 1)))
	require.NoError(t, repo.ClearTurns(ctx, "s-2"))
	assert.False(t, mr.Exists("transcript:s-2:turns"))
}

func TestLoadTurnsCorruptRecord(t *testing.T) {
	repo, _, rdb := newTestRepo(t, 0)
	ctx := context.Background()

	require.NoError(t, rdb.RPush(ctx, "transcript:s-3:turns", "not json").Err())
	_, err := repo.LoadTurns(ctx, "s-3")
	assert.Error(t, err)
}

func TestRedisFailureIsWrapped(t *testing.T) {
	repo, mr, _ := newTestRepo(t, 0)
	mr.Close()

	err := repo.AppendTurn(context.Background(), "s-4", record("hi", 1))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
}
