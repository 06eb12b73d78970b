package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dfryer1193/blogsync/blog/domain"
	"github.com/rs/zerolog/log"
)

// PostSource is the part of the source repository the sync pipeline reads.
type PostSource interface {
	ListPostPaths(ctx context.Context) ([]string, error)
	GetPostByPath(ctx context.Context, path string) (*domain.BlogPost, error)
}

// PostService keeps the post store consistent with the source repository and
// serves reads from the store.
type PostService struct {
	store       domain.PostStore
	source      PostSource
	branchRef   string
	concurrency int

	// serializes apply phases within this process
	mu sync.Mutex
}

// NewPostService creates a PostService. When branch is non-empty only pushes to
// that branch are applied. concurrency bounds parallel source reads.
func NewPostService(store domain.PostStore, source PostSource, branch string, concurrency int) *PostService {
	branchRef := ""
	if branch != "" {
		branchRef = "refs/heads/" + strings.TrimPrefix(branch, "refs/heads/")
	}
	return &PostService{
		store:       store,
		source:      source,
		branchRef:   branchRef,
		concurrency: concurrency,
	}
}

// HandlePushEvent classifies the files changed by evt and applies them to the store.
// It returns the changes that were applied.
func (s *PostService) HandlePushEvent(ctx context.Context, evt *domain.PushEvent) (Changes, error) {
	if s.branchRef != "" && evt.GetRef() != s.branchRef {
		log.Info().Str("ref", evt.GetRef()).Str("branch", s.branchRef).Msg("Ignoring push to untracked ref")
		return Changes{}, nil
	}

	changes := ClassifyPushEvent(evt)
	if changes.Empty() {
		log.Debug().Str("ref", evt.GetRef()).Msg("Push touched no posts")
		return changes, nil
	}

	log.Info().
		Strs("upsert", changes.ToUpsert).
		Strs("remove", changes.ToRemove).
		Msg("Processing changes")

	if err := s.Apply(ctx, changes); err != nil {
		return Changes{}, err
	}
	return changes, nil
}

// Apply deletes removed posts, then reads every post to upsert from the source and
// writes them in one batch. The delete completes before any read starts, so a
// failure part way leaves the store stale rather than inconsistent.
func (s *PostService) Apply(ctx context.Context, changes Changes) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(changes.ToRemove) > 0 {
		if err := s.store.DeletePostsByPath(ctx, changes.ToRemove); err != nil {
			return fmt.Errorf("failed to delete posts: %w", err)
		}
	}

	if len(changes.ToUpsert) == 0 {
		return nil
	}

	posts, err := fetchPosts(ctx, s.source, changes.ToUpsert, s.concurrency)
	if err != nil {
		return fmt.Errorf("failed to read posts from source: %w", err)
	}

	if err := s.store.UpsertPosts(ctx, posts); err != nil {
		return fmt.Errorf("failed to upsert posts: %w", err)
	}

	return nil
}

// Resync rebuilds the store from the full source listing. Stored posts missing
// from the source are deleted first, then every source post is upserted. A single
// invalid source path fails the resync before the store is touched.
func (s *PostService) Resync(ctx context.Context) error {
	paths, err := s.source.ListPostPaths(ctx)
	if err != nil {
		return fmt.Errorf("could not list source posts: %w", err)
	}

	mappings, err := domain.BuildMappings(paths)
	if err != nil {
		return fmt.Errorf("could not map source posts: %w", err)
	}
	for _, p := range paths {
		slug, _ := mappings.SlugFor(p)
		if winner, _ := mappings.PathFor(slug); winner != p {
			log.Warn().Str("path", p).Str("slug", slug).Str("served_from", winner).Msg("Post slug is shadowed by another path")
		}
	}

	stored, err := s.store.ListAllPosts(ctx)
	if err != nil {
		return fmt.Errorf("could not list stored posts: %w", err)
	}

	current := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		current[p] = struct{}{}
	}

	var stale []string
	for _, meta := range stored {
		if _, ok := current[meta.Path]; !ok {
			stale = append(stale, meta.Path)
		}
	}

	log.Info().Int("posts", mappings.Len()).Strs("stale", stale).Msg("Resyncing posts")

	return s.Apply(ctx, Changes{ToUpsert: paths, ToRemove: stale})
}

// GetPost returns a stored post by slug, whatever its status.
func (s *PostService) GetPost(ctx context.Context, slug string) (*domain.BlogPost, error) {
	return s.store.GetPost(ctx, slug)
}

// ResolveLegacyPath treats id as a file name under posts/ (with or without the .md
// extension) and returns the current slug of that post. The store is checked first,
// then the source. Returns an error matching domain.ErrNotFound if neither has it.
func (s *PostService) ResolveLegacyPath(ctx context.Context, id string) (string, error) {
	path := domain.PostsDir + "/" + id
	if !strings.HasSuffix(path, ".md") {
		path += ".md"
	}

	slug, err := domain.SlugFromPath(path)
	if err != nil {
		return "", fmt.Errorf("legacy path %q: %w", id, domain.ErrNotFound)
	}

	if _, err := s.store.GetPostByPath(ctx, path); err == nil {
		return slug, nil
	} else if !isNotFound(err) {
		return "", err
	}

	if _, err := s.source.GetPostByPath(ctx, path); err != nil {
		return "", err
	}
	return slug, nil
}

// ListPosts returns listed posts, newest first. A non-empty tag keeps only posts
// carrying it.
func (s *PostService) ListPosts(ctx context.Context, tag string) ([]domain.PostMeta, error) {
	all, err := s.store.ListAllPosts(ctx)
	if err != nil {
		return nil, err
	}

	posts := make([]domain.PostMeta, 0, len(all))
	for _, p := range all {
		if !p.Listed() {
			continue
		}
		if tag != "" && !p.HasTag(tag) {
			continue
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// ListTags returns the distinct tags of listed posts, sorted.
func (s *PostService) ListTags(ctx context.Context) ([]string, error) {
	posts, err := s.ListPosts(ctx, "")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	tags := make([]string, 0)
	for _, p := range posts {
		for _, t := range p.Tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
	}
	sort.Strings(tags)
	return tags, nil
}
