package loadercache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racelink/pkg/utils/cache"
)

type counter struct {
	calls map[string]int
}

func (c *counter) load(_ context.Context, key string) (*string, error) {
	c.calls[key]++
	if key == "bad" {
		return nil, errors.New("cannot load")
	}
	v := "value-" + key
	return &v, nil
}

func TestLoaderCache(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cnt := &counter{calls: map[string]int{}}
	c := New(
		WithLoader[string, string](cnt.load),
		WithExpiration[string, string](time.Minute),
		WithClock[string, string](func() time.Time { return now }),
	)
	ctx := context.Background()

	v, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "value-a", *v)
	_, _ = c.Get(ctx, "a")
	assert.Equal(t, 1, cnt.calls["a"])

	now = now.Add(2 * time.Minute)
	_, _ = c.Get(ctx, "a")
	assert.Equal(t, 2, cnt.calls["a"], "expired entries are reloaded")

	c.Invalidate(ctx, "a")
	_, _ = c.Get(ctx, "a")
	assert.Equal(t, 3, cnt.calls["a"])

	c.InvalidateAll(ctx)
	_, _ = c.Get(ctx, "a")
	assert.Equal(t, 4, cnt.calls["a"])

	_, err = c.Get(ctx, "bad")
	assert.Error(t, err)
	_, _ = c.Get(ctx, "bad")
	assert.Equal(t, 2, cnt.calls["bad"], "errors are not cached")
}

func TestNoExpiration(t *testing.T) {
	now := time.Now()
	cnt := &counter{calls: map[string]int{}}
	c := New(
		WithLoader[string, string](cnt.load),
		WithExpiration[string, string](0),
		WithClock[string, string](func() time.Time { return now }),
	)
	_, _ = c.Get(context.Background(), "a")
	now = now.Add(24 * time.Hour)
	_, _ = c.Get(context.Background(), "a")
	assert.Equal(t, 1, cnt.calls["a"])
}

func TestWithoutLoader(t *testing.T) {
	c := New[string, string]()
	_, err := c.Get(context.Background(), "a")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}
