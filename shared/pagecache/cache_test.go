package pagecache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(body string) Page {
	return Page{ContentType: "application/json", Body: []byte(body)}
}

func TestCache_GetSet(t *testing.T) {
	c := New(time.Minute)

	_, ok := c.Get(IndexPage)
	assert.False(t, ok)

	c.Set(IndexPage, page("index"))
	got, ok := c.Get(IndexPage)
	require.True(t, ok)
	assert.Equal(t, "index", string(got.Body))

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Items)
}

func TestCache_Expiry(t *testing.T) {
	c := New(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set(IndexPage, page("index"))

	now = now.Add(30 * time.Second)
	_, ok := c.Get(IndexPage)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = c.Get(IndexPage)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Items)
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	c := New(0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set(IndexPage, page("index"))
	now = now.Add(24 * 365 * time.Hour)

	_, ok := c.Get(IndexPage)
	assert.True(t, ok)
}

func TestCache_InvalidateIndex(t *testing.T) {
	c := New(time.Minute)
	c.Set(IndexPage, page("index"))
	c.Set(TagsPage, page("tags"))
	c.Set(TagsPage+"/go", page("go"))
	c.Set(PostPage("hello"), page("hello"))

	require.NoError(t, c.InvalidateIndex(context.Background()))

	_, ok := c.Get(IndexPage)
	assert.False(t, ok)
	_, ok = c.Get(TagsPage)
	assert.False(t, ok)
	_, ok = c.Get(TagsPage + "/go")
	assert.False(t, ok)
	_, ok = c.Get(PostPage("hello"))
	assert.True(t, ok, "post pages survive index invalidation")
}

func TestCache_InvalidatePost(t *testing.T) {
	c := New(time.Minute)
	c.Set(IndexPage, page("index"))
	c.Set(PostPage("hello"), page("hello"))
	c.Set(PostPage("bye"), page("bye"))

	require.NoError(t, c.InvalidatePost(context.Background(), "hello"))

	_, ok := c.Get(PostPage("hello"))
	assert.False(t, ok)
	_, ok = c.Get(PostPage("bye"))
	assert.True(t, ok)
	_, ok = c.Get(IndexPage)
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Invalidations)
}

func TestCache_SetIfCurrent(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()

	gen := c.Generation()
	assert.True(t, c.SetIfCurrent(IndexPage, page("fresh"), gen))
	_, ok := c.Get(IndexPage)
	assert.True(t, ok)

	// a page built from data read before an invalidation must not be cached after it
	stale := c.Generation()
	require.NoError(t, c.InvalidateIndex(ctx))
	assert.False(t, c.SetIfCurrent(IndexPage, page("stale"), stale))
	_, ok = c.Get(IndexPage)
	assert.False(t, ok)

	stale = c.Generation()
	require.NoError(t, c.InvalidatePost(ctx, "hello"))
	assert.False(t, c.SetIfCurrent(PostPage("hello"), page("stale"), stale))
	_, ok = c.Get(PostPage("hello"))
	assert.False(t, ok)

	assert.True(t, c.SetIfCurrent(IndexPage, page("rebuilt"), c.Generation()))
}
