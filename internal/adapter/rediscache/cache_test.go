package rediscache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/police-incident-etl/internal/dashboard"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCmdable serves GET and SET from a map; every other command panics.
type fakeCmdable struct {
	redis.Cmdable
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func newFake() *fakeCmdable {
	return &fakeCmdable{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	switch v, ok := f.data[key]; {
	case f.getErr != nil:
		cmd.SetErr(f.getErr)
	case !ok:
		cmd.SetErr(redis.Nil)
	default:
		cmd.SetVal(string(v))
	}
	return cmd
}

func (f *fakeCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key, value)
	f.data[key] = value.([]byte)
	f.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func TestCache_GetSet(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	cache := NewCache(fake, 5*time.Minute)

	_, ok, err := cache.Get(ctx, "summary:all")
	require.NoError(t, err)
	assert.False(t, ok)

	want := dashboard.Summary{Total: 2, ByPriority: []dashboard.Count{{Label: "High", Count: 2}}}
	require.NoError(t, cache.Set(ctx, "summary:all", want))
	assert.Equal(t, 5*time.Minute, fake.ttls["police-etl:summary:all"])

	got, ok, err := cache.Get(ctx, "summary:all")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Total, got.Total)
	assert.Equal(t, want.ByPriority, got.ByPriority)
}

func TestCache_GetErrors(t *testing.T) {
	ctx := context.Background()

	fake := newFake()
	fake.getErr = errors.New("i/o timeout")
	_, ok, err := NewCache(fake, time.Minute).Get(ctx, "summary:all")
	require.Error(t, err)
	assert.False(t, ok)

	corrupt := newFake()
	corrupt.data["police-etl:summary:all"] = []byte("{not json")
	_, ok, err = NewCache(corrupt, time.Minute).Get(ctx, "summary:all")
	require.Error(t, err)
	assert.False(t, ok)
}
