package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/affiliate-catalog/internal/catalog"
)

func TestProductStoreLifecycle(t *testing.T) {
	t.Parallel()

	clock := &stepClock{now: time.Unix(100, 0).UTC()}
	store := NewProductStore(&seqIDGen{}, clock)
	ctx := context.Background()

	id, err := store.Create(ctx, catalog.NewProduct{
		ImageURL:      "https://x/a.jpg",
		AffiliateLink: "https://y/b",
	})
	require.NoError(t, err)
	require.Equal(t, "id-1", id)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Empty(t, got.Title)
	require.Empty(t, got.Description)
	require.Empty(t, got.Category)
	require.Nil(t, got.Price)
	require.Nil(t, got.UpdatedAt)
	require.True(t, got.CreatedAt.Equal(time.Unix(100, 0)))

	title := "New"
	stamp := time.Unix(500, 0).UTC()
	err = store.Update(ctx, id, catalog.Changes{
		Title:         &title,
		ImageURL:      "https://x/c.jpg",
		AffiliateLink: "https://y/b",
		UpdatedAt:     stamp,
	})
	require.NoError(t, err)

	got, err = store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "New", got.Title)
	require.Equal(t, "https://x/c.jpg", got.ImageURL)
	require.NotNil(t, got.UpdatedAt)
	require.True(t, got.UpdatedAt.Equal(stamp))
	require.True(t, got.CreatedAt.Equal(time.Unix(100, 0)), "created at must not move")
}

func TestProductStoreNotFound(t *testing.T) {
	t.Parallel()

	store := NewProductStore(&seqIDGen{}, &stepClock{})
	_, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, catalog.ErrNotFound)

	err = store.Update(context.Background(), "missing", catalog.Changes{})
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestProductStoreUpdateStampsWhenZero(t *testing.T) {
	t.Parallel()

	clock := &stepClock{now: time.Unix(10, 0).UTC(), step: time.Second}
	store := NewProductStore(&seqIDGen{}, clock)
	ctx := context.Background()
	id, err := store.Create(ctx, catalog.NewProduct{ImageURL: "https://x", AffiliateLink: "https://y"})
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, id, catalog.Changes{ImageURL: "https://x", AffiliateLink: "https://y"}))
	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.UpdatedAt)
	require.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestProductStoreListOrdering(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	empty := NewProductStore(&seqIDGen{}, &stepClock{})
	list, err := empty.List(ctx)
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Empty(t, list)

	// Clock steps back on the third create and stalls on the fourth.
	clock := &scriptClock{times: []time.Time{
		time.Unix(100, 0), time.Unix(200, 0), time.Unix(150, 0), time.Unix(200, 0),
	}}
	store := NewProductStore(&seqIDGen{}, clock)
	for i := 0; i < 4; i++ {
		_, err := store.Create(ctx, catalog.NewProduct{Title: fmt.Sprintf("p%d", i+1)})
		require.NoError(t, err)
	}

	list, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
	titles := []string{list[0].Title, list[1].Title, list[2].Title, list[3].Title}
	require.Equal(t, []string{"p4", "p3", "p2", "p1"}, titles)
	for i := 1; i < len(list); i++ {
		require.False(t, list[i].CreatedAt.After(list[i-1].CreatedAt), "list must be non-increasing")
	}
	require.True(t, list[1].CreatedAt.Equal(time.Unix(200, 0)), "created at is clamped to the latest seen")
}

func TestProductStoreReturnsCopies(t *testing.T) {
	t.Parallel()

	price := 5.0
	store := NewProductStore(&seqIDGen{}, &stepClock{})
	id, err := store.Create(context.Background(), catalog.NewProduct{Price: &price})
	require.NoError(t, err)
	price = 99

	got, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	require.InDelta(t, 5.0, *got.Price, 0)
	*got.Price = 42
	again, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	require.InDelta(t, 5.0, *again.Price, 0)
}

func TestProductStoreDuplicateID(t *testing.T) {
	t.Parallel()

	store := NewProductStore(fixedIDGen("same"), &stepClock{})
	_, err := store.Create(context.Background(), catalog.NewProduct{})
	require.NoError(t, err)
	_, err = store.Create(context.Background(), catalog.NewProduct{})
	require.ErrorIs(t, err, catalog.ErrWrite)
}

type seqIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGen) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n), nil
}

type fixedIDGen string

func (g fixedIDGen) NewID() (string, error) { return string(g), nil }

type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

type scriptClock struct {
	mu    sync.Mutex
	times []time.Time
}

func (c *scriptClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.times[0]
	if len(c.times) > 1 {
		c.times = c.times[1:]
	}
	return now.UTC()
}
