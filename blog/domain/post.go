package domain

import (
	"context"
	"sort"
	"time"
)

// PostStatus governs whether a post appears in listings. Every status remains
// fetchable by slug.
type PostStatus string

const (
	StatusPublished PostStatus = "published"
	StatusUnlisted  PostStatus = "unlisted"
	StatusDraft     PostStatus = "draft"
)

// Valid reports whether s is one of the known statuses.
func (s PostStatus) Valid() bool {
	switch s {
	case StatusPublished, StatusUnlisted, StatusDraft:
		return true
	}
	return false
}

// PostMeta is the identity and classification of one post.
// Path is the storage identity (posts/NNN-name.md), Slug is derived from it.
type PostMeta struct {
	Path        string     `json:"path"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	CreatedAt   string     `json:"createdAt"`
	Tags        []string   `json:"tags"`
	Status      PostStatus `json:"status"`
	Description *string    `json:"description"`
}

// Listed reports whether the post should appear in listings.
func (m *PostMeta) Listed() bool {
	return m.Status == StatusPublished
}

// HasTag reports whether the post carries tag.
func (m *PostMeta) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// BlogPost is a post with its body. LastModifiedAt is nil when the source
// repository has fewer than two revisions of the file.
type BlogPost struct {
	PostMeta
	Content        string     `json:"content"`
	LastModifiedAt *time.Time `json:"lastModifiedAt"`
}

// Meta returns a copy of the post without its content.
func (p *BlogPost) Meta() PostMeta {
	return p.PostMeta
}

// BlogData is the read capability shared by the source repository and the cache store.
type BlogData interface {
	// GetPost returns the post with the given slug, or an error matching ErrNotFound.
	GetPost(ctx context.Context, slug string) (*BlogPost, error)
	// ListAllPosts returns every post ordered by CreatedAt, newest first.
	ListAllPosts(ctx context.Context) ([]PostMeta, error)
}

// PostStore is the write-capable cache of posts, keyed by path.
type PostStore interface {
	BlogData

	// GetPostByPath returns the stored record for path, or an error matching ErrNotFound.
	GetPostByPath(ctx context.Context, path string) (*BlogPost, error)

	// UpsertPosts writes all posts in one transaction.
	UpsertPosts(ctx context.Context, posts []*BlogPost) error

	// DeletePostsByPath removes the given keys. Absent keys are not an error.
	DeletePostsByPath(ctx context.Context, paths []string) error
}

// SortByCreatedAtDesc orders posts newest first, keeping input order for ties.
// Dates that fail to parse sort as the zero time.
func SortByCreatedAtDesc(posts []PostMeta) {
	keys := make(map[string]time.Time, len(posts))
	for _, p := range posts {
		t, _ := ParseISOTime(p.CreatedAt)
		keys[p.CreatedAt] = t
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return keys[posts[i].CreatedAt].After(keys[posts[j].CreatedAt])
	})
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

// ParseISOTime parses an ISO-8601 date or date-time.
func ParseISOTime(s string) (time.Time, error) {
	var err error
	for _, layout := range isoLayouts {
		var t time.Time
		t, err = time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
