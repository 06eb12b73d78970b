package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/dfryer1193/blogsync/blog/domain"
)

var _ domain.BlogData = (*SourceBlogData)(nil)

// SourceBlogData is the read-only view of posts in the source repository.
// Every operation goes to the remote; nothing is cached here.
type SourceBlogData struct {
	source      domain.SourceRepository
	concurrency int
}

// NewSourceBlogData creates a SourceBlogData. concurrency bounds the number of
// posts fetched at once by ListAllPosts; zero or less means unbounded.
func NewSourceBlogData(source domain.SourceRepository, concurrency int) *SourceBlogData {
	return &SourceBlogData{
		source:      source,
		concurrency: concurrency,
	}
}

// ListPostPaths lists every file directly under posts/.
func (d *SourceBlogData) ListPostPaths(ctx context.Context) ([]string, error) {
	paths, err := d.source.ListFiles(ctx, domain.PostsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list post paths: %w", err)
	}
	return paths, nil
}

// GetRawContent fetches the raw text of one file.
func (d *SourceBlogData) GetRawContent(ctx context.Context, path string) (string, error) {
	content, err := d.source.GetFileContents(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to get contents of %s: %w", path, err)
	}
	return string(content), nil
}

// GetPostByPath fetches and parses one post, and looks up its commit history to
// fill LastModifiedAt.
func (d *SourceBlogData) GetPostByPath(ctx context.Context, path string) (*domain.BlogPost, error) {
	slug, err := domain.SlugFromPath(path)
	if err != nil {
		return nil, err
	}

	raw, err := d.GetRawContent(ctx, path)
	if err != nil {
		return nil, err
	}

	post, err := newBlogPost(path, slug, raw)
	if err != nil {
		return nil, err
	}

	dates, err := d.source.GetFileCommitDates(ctx, path, 2)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit history of %s: %w", path, err)
	}
	if len(dates) >= 2 {
		lastModified := dates[0]
		post.LastModifiedAt = &lastModified
	}

	return post, nil
}

// ListAllPosts resolves every post under posts/ and returns their metadata newest
// first. One malformed post fails the whole listing.
func (d *SourceBlogData) ListAllPosts(ctx context.Context) ([]domain.PostMeta, error) {
	posts, err := d.listAllPostsWithContents(ctx)
	if err != nil {
		return nil, err
	}

	metas := make([]domain.PostMeta, len(posts))
	for i, p := range posts {
		metas[i] = p.Meta()
	}
	domain.SortByCreatedAtDesc(metas)
	return metas, nil
}

// GetPost returns the post whose path derives to slug.
func (d *SourceBlogData) GetPost(ctx context.Context, slug string) (*domain.BlogPost, error) {
	paths, err := d.ListPostPaths(ctx)
	if err != nil {
		return nil, err
	}

	mappings, err := domain.BuildMappings(paths)
	if err != nil {
		return nil, err
	}

	path, ok := mappings.PathFor(slug)
	if !ok {
		return nil, fmt.Errorf("post %q: %w", slug, domain.ErrNotFound)
	}
	return d.GetPostByPath(ctx, path)
}

// GetPosts fetches the given paths concurrently. Results keep the input order.
func (d *SourceBlogData) GetPosts(ctx context.Context, paths []string) ([]*domain.BlogPost, error) {
	return fetchPosts(ctx, d, paths, d.concurrency)
}

func (d *SourceBlogData) listAllPostsWithContents(ctx context.Context) ([]*domain.BlogPost, error) {
	paths, err := d.ListPostPaths(ctx)
	if err != nil {
		return nil, err
	}
	return d.GetPosts(ctx, paths)
}

// newBlogPost builds a post from the raw file text.
func newBlogPost(path, slug, raw string) (*domain.BlogPost, error) {
	fm, err := ParseFrontMatter(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	attrs := fm.Attributes
	return &domain.BlogPost{
		PostMeta: domain.PostMeta{
			Path:        path,
			Slug:        slug,
			Title:       attrs.Title,
			CreatedAt:   attrs.CreatedAt,
			Tags:        attrs.Tags,
			Status:      attrs.Status,
			Description: attrs.Description,
		},
		Content: raw[fm.ContentStart:],
	}, nil
}

// isNotFound reports whether err means the post does not exist.
func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
