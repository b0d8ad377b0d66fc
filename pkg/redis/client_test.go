package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestNewClient_InvalidURL(t *testing.T) {
	client, err := NewClient("not-a-url", "test", zap.NewNop())
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestClient_SetGet(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	key := client.KeyBuilder.KeyVoteCounts("p-1")
	require.NoError(t, client.Set(ctx, key, `{"votes_a":1}`, time.Minute))

	val, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"votes_a":1}`, val)
}

func TestClient_Get_Miss(t *testing.T) {
	_, client := setupTestRedis(t)

	_, err := client.Get(context.Background(), "missing")
	assert.True(t, IsNil(err))
}

func TestClient_SetNX(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	key := client.KeyBuilder.KeyIdentityBootstrap("device-1")

	// First caller wins the lock.
	ok, err := client.SetNX(ctx, key, "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second caller sees it held.
	ok, err = client.SetNX(ctx, key, "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_SetNX_ExpiresWithTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	key := client.KeyBuilder.KeyIdentityBootstrap("device-2")

	ok, err := client.SetNX(ctx, key, "1", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err = client.SetNX(ctx, key, "1", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_Delete(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "k1", "v", time.Minute))
	require.NoError(t, client.Delete(ctx, "k1"))

	_, err := client.Get(ctx, "k1")
	assert.True(t, IsNil(err))

	// Deleting nothing is a no-op.
	assert.NoError(t, client.Delete(ctx))
}

func TestClient_Health(t *testing.T) {
	mr, client := setupTestRedis(t)

	assert.NoError(t, client.Health(context.Background()))

	mr.Close()
	assert.Error(t, client.Health(context.Background()))
}
