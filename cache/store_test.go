package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gofalre.io/storefront/cache"
	"gofalre.io/storefront/models"
)

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := cache.NewLocal(cache.New(cache.WithClock(clock.Now)))

	parent := uint64(1)
	want := []*models.Category{
		{ID: 1, Name: "Shoes"},
		{ID: 2, Name: "Boots", ParentID: &parent},
	}
	require.NoError(t, store.Set(ctx, "/categories", want, time.Minute))

	var got []*models.Category
	found, err := store.Get(ctx, "/categories", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Empty(t, cmp.Diff(want, got))

	// mutating the decoded copy must not leak into the cache
	got[0].Name = "changed"
	var again []*models.Category
	_, err = store.Get(ctx, "/categories", &again)
	require.NoError(t, err)
	assert.Equal(t, "Shoes", again[0].Name)

	clock.Advance(time.Minute)
	found, err = store.Get(ctx, "/categories", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLocalDeletePattern(t *testing.T) {
	ctx := context.Background()
	store := cache.NewLocal(nil)

	require.NoError(t, store.Set(ctx, "/orders?limit=10", []int{1}, time.Minute))
	require.NoError(t, store.Set(ctx, "/orders/5", 5, time.Minute))
	require.NoError(t, store.Set(ctx, "/products", 0, time.Minute))

	require.NoError(t, store.DeletePattern(ctx, "/orders"))

	var v any
	found, _ := store.Get(ctx, "/orders/5", &v)
	assert.False(t, found)
	found, _ = store.Get(ctx, "/products", &v)
	assert.True(t, found)
}

func TestLocalGetForeignValue(t *testing.T) {
	c := cache.New()
	c.Set("raw", 42, time.Minute)

	var v int
	found, err := cache.NewLocal(c).Get(context.Background(), "raw", &v)
	assert.False(t, found)
	assert.Error(t, err)
}
