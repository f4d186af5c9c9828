package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheSetGet(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	rc := NewRedisCacheWithClient(client, "sp")

	mock.ExpectSet("sp:run1:series:005930", `{"id":"005930","close":71000}`, 10*time.Minute).SetVal("OK")
	require.NoError(t, rc.Set(ctx, "run1:series:005930", sample{ID: "005930", Close: 71000}, 10*time.Minute))

	mock.ExpectGet("sp:run1:series:005930").SetVal(`{"id":"005930","close":71000}`)
	var got sample
	require.NoError(t, rc.Get(ctx, "run1:series:005930", &got))
	assert.Equal(t, 71000.0, got.Close)

	mock.ExpectGet("sp:run1:series:000660").RedisNil()
	assert.ErrorIs(t, rc.Get(ctx, "run1:series:000660", &got), ErrCacheMiss)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	rc := NewRedisCacheWithClient(client, "sp")

	mock.ExpectGet("sp:k").SetErr(errors.New("connection refused"))
	var v int
	err := rc.Get(ctx, "k", &v)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCacheMiss))

	mock.ExpectExists("sp:a", "sp:b").SetVal(1)
	ok, err := rc.Exists(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectKeys("sp:run1:*").SetVal([]string{"sp:run1:x"})
	mock.ExpectUnlink("sp:run1:x").SetVal(1)
	require.NoError(t, rc.DeleteByPattern(ctx, "run1:*"))

	require.NoError(t, mock.ExpectationsWereMet())
}
