// Package pagecache holds rendered pages in memory until they expire or are
// invalidated by a content change.
package pagecache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dfryer1193/blogsync/blog/domain"
)

const (
	IndexPage  = "/blog"
	TagsPage   = "/tags"
	postPrefix = "/blog/"
)

var _ domain.PageInvalidator = (*Cache)(nil)

// Page is a rendered response body.
type Page struct {
	ContentType string
	Body        []byte
}

type entry struct {
	page      Page
	expiresAt time.Time
}

// Stats holds cache statistics.
type Stats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Invalidations int64 `json:"invalidations"`
	Items         int   `json:"items"`
}

// Cache is a thread-safe page cache keyed by request path.
type Cache struct {
	data sync.Map
	ttl  time.Duration
	now  func() time.Time

	// mu orders SetIfCurrent against invalidations; generation counts invalidations.
	mu         sync.RWMutex
	generation uint64

	hits          atomic.Int64
	misses        atomic.Int64
	invalidations atomic.Int64
}

// New creates a cache whose entries live for ttl. A ttl of zero never expires.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl: ttl,
		now: time.Now,
	}
}

// PostPage returns the cache key of a post page.
func PostPage(slug string) string {
	return postPrefix + slug
}

// Get returns the page stored under key if present and not expired.
func (c *Cache) Get(key string) (Page, bool) {
	val, ok := c.data.Load(key)
	if !ok {
		c.misses.Add(1)
		return Page{}, false
	}

	e := val.(*entry)
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.data.Delete(key)
		c.misses.Add(1)
		return Page{}, false
	}

	c.hits.Add(1)
	return e.page, true
}

// Set stores page under key.
func (c *Cache) Set(key string, page Page) {
	e := &entry{page: page}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}
	c.data.Store(key, e)
}

// Generation returns the current invalidation generation. Capture it before
// reading the data a page is built from and pass it to SetIfCurrent.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// SetIfCurrent stores page under key unless an invalidation has happened since
// gen was captured, in which case the page may be stale and is dropped.
func (c *Cache) SetIfCurrent(key string, page Page, gen uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.generation != gen {
		return false
	}
	c.Set(key, page)
	return true
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.data.Delete(key)
}

// DeletePrefix removes every key starting with prefix.
func (c *Cache) DeletePrefix(prefix string) {
	c.data.Range(func(k, _ any) bool {
		if strings.HasPrefix(k.(string), prefix) {
			c.data.Delete(k)
		}
		return true
	})
}

// InvalidateIndex drops the post listing and every tag page.
func (c *Cache) InvalidateIndex(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.invalidations.Add(1)
	c.Delete(IndexPage)
	c.DeletePrefix(TagsPage)
	return nil
}

// InvalidatePost drops the page of one post.
func (c *Cache) InvalidatePost(_ context.Context, slug string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.invalidations.Add(1)
	c.Delete(PostPage(slug))
	return nil
}

// Stats returns current cache statistics.
func (c *Cache) Stats() Stats {
	items := 0
	c.data.Range(func(_, _ any) bool {
		items++
		return true
	})
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Invalidations: c.invalidations.Load(),
		Items:         items,
	}
}
