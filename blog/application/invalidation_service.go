package application

import (
	"context"

	"github.com/dfryer1193/blogsync/blog/domain"
	"github.com/rs/zerolog/log"
)

// InvalidationService tells the rendering layer which pages a push made stale.
type InvalidationService struct {
	pages domain.PageInvalidator
}

func NewInvalidationService(pages domain.PageInvalidator) *InvalidationService {
	return &InvalidationService{pages: pages}
}

// HandlePushEvent always invalidates the index, then the page of every changed
// post. Invalidation is best effort: failures are logged and skipped. It returns
// the slugs whose pages were invalidated.
func (s *InvalidationService) HandlePushEvent(ctx context.Context, evt *domain.PushEvent) []string {
	if err := s.pages.InvalidateIndex(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate index pages")
	}

	slugs := make([]string, 0)
	for _, path := range ChangedPosts(evt) {
		slug, err := domain.SlugFromPath(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping invalidation of unrecognised post path")
			continue
		}

		if err := s.pages.InvalidatePost(ctx, slug); err != nil {
			log.Warn().Err(err).Str("slug", slug).Msg("Failed to invalidate post page")
			continue
		}
		slugs = append(slugs, slug)
	}

	return slugs
}
