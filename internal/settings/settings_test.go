package settings

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockRedis struct {
	data   map[string]string
	getErr error
}

func newMockRedis() *mockRedis {
	return &mockRedis{data: make(map[string]string)}
}

func (m *mockRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockRedis) Ping(_ context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

// --- Tests ---

func TestStatic(t *testing.T) {
	s := Static{"currency": "EUR"}

	v, ok, err := s.Get(context.Background(), "currency")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "EUR", v)

	_, ok, err = s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_GetSet(t *testing.T) {
	client := newMockRedis()
	s := NewRedis(client, "orders")
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "currency")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "currency", "GBP"))
	assert.Equal(t, "GBP", client.data["orders:currency"])

	v, ok, err := s.Get(ctx, "currency")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "GBP", v)

	require.NoError(t, s.Ping(ctx))
}

func TestRedis_Key(t *testing.T) {
	assert.Equal(t, "ns:currency", NewRedis(nil, "ns").Key("currency"))
	assert.Equal(t, "currency", NewRedis(nil, "").Key("currency"))
}

func TestRedis_GetError(t *testing.T) {
	client := newMockRedis()
	client.getErr = errors.New("connection refused")

	_, ok, err := NewRedis(client, "orders").Get(context.Background(), "currency")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "get setting currency")
}

func TestWithDefaults(t *testing.T) {
	client := newMockRedis()
	client.data["orders:currency"] = "CAD"
	s := WithDefaults(NewRedis(client, "orders"), Static{"currency": "USD", "locale": "en"})
	ctx := context.Background()

	v, ok, err := s.Get(ctx, "currency")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "CAD", v)

	v, ok, err = s.Get(ctx, "locale")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "en", v)

	client.getErr = errors.New("timeout")
	_, _, err = s.Get(ctx, "locale")
	require.Error(t, err)
}
