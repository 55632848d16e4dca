package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtracker/internal/cache"
)

func TestTokenStore_Consume(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore(cache.NewMemory())

	consumed, err := store.IsConsumed(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, consumed)

	first, err := store.Consume(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.Consume(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	consumed, err = store.IsConsumed(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, consumed)

	other, err := store.Consume(ctx, "jti-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, other)
}

func TestTokenStore_ExpiredTTL(t *testing.T) {
	store := NewTokenStore(cache.NewMemory())
	first, err := store.Consume(context.Background(), "jti", 0)
	require.NoError(t, err)
	assert.True(t, first)
}
