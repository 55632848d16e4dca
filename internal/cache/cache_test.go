package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilClientFailsSafe(t *testing.T) {
	var c *Client
	ctx := context.Background()

	v, err := c.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Nil(t, v)
	assert.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.NoError(t, c.Delete(ctx, "k"))
	ok, err := c.SetNX(ctx, "k", []byte("v"), time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "a", []byte("1"), time.Minute))
	v, _ := m.Get(ctx, "a")
	assert.Equal(t, []byte("1"), v)

	ok, _ := m.SetNX(ctx, "a", []byte("2"), time.Minute)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	v, _ = m.Get(ctx, "a")
	assert.Nil(t, v)

	ok, _ = m.SetNX(ctx, "a", []byte("2"), time.Minute)
	assert.True(t, ok)

	require.NoError(t, m.Delete(ctx, "a", "missing"))
	v, _ = m.Get(ctx, "a")
	assert.Nil(t, v)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	type item struct {
		Name string `json:"name"`
	}
	require.NoError(t, SetJSON(ctx, m, "items", []item{{Name: "x"}}, time.Minute))

	var got []item
	assert.True(t, GetJSON(ctx, m, "items", &got))
	assert.Equal(t, []item{{Name: "x"}}, got)

	assert.False(t, GetJSON(ctx, m, "missing", &got))

	require.NoError(t, m.Set(ctx, "broken", []byte("{"), time.Minute))
	assert.False(t, GetJSON(ctx, m, "broken", &got))
}
