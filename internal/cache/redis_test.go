package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type page struct {
	IDs   []int `json:"ids"`
	Total int   `json:"total"`
}

func TestRedisStore_GetSet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore[page](client, "cinematch:catalog:", time.Minute)
	ctx := context.Background()

	key := store.Key("all|||rating|desc|1|30")
	assert.Regexp(t, `^cinematch:catalog:[0-9a-f]{32}$`, key)

	want := page{IDs: []int{3, 1, 2}, Total: 3}
	raw, err := json.Marshal(want)
	require.NoError(t, err)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, raw, time.Minute).SetVal("OK")
	mock.ExpectGet(key).SetVal(string(raw))

	_, found, err := store.Get(ctx, "all|||rating|desc|1|30")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "all|||rating|desc|1|30", want))

	got, found, err := store.Get(ctx, "all|||rating|desc|1|30")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Errors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore[page](client, "p:", time.Minute)
	ctx := context.Background()

	mock.ExpectGet(store.Key("a")).SetErr(errors.New("connection reset"))
	mock.ExpectGet(store.Key("b")).SetVal("{not json")

	_, found, err := store.Get(ctx, "a")
	assert.Error(t, err)
	assert.False(t, found)

	_, found, err = store.Get(ctx, "b")
	assert.Error(t, err)
	assert.False(t, found)

	assert.NoError(t, mock.ExpectationsWereMet())
}
