package application

import (
	"context"

	"github.com/dfryer1193/blogsync/blog/domain"
	"golang.org/x/sync/errgroup"
)

type postGetter interface {
	GetPostByPath(ctx context.Context, path string) (*domain.BlogPost, error)
}

// fetchPosts resolves paths concurrently, at most limit at a time (unbounded if
// limit <= 0). The first failure cancels the rest. Results keep the input order.
func fetchPosts(ctx context.Context, getter postGetter, paths []string, limit int) ([]*domain.BlogPost, error) {
	posts := make([]*domain.BlogPost, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, path := range paths {
		g.Go(func() error {
			post, err := getter.GetPostByPath(gctx, path)
			if err != nil {
				return err
			}
			posts[i] = post
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return posts, nil
}
