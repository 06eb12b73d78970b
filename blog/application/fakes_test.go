package application

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dfryer1193/blogsync/blog/domain"
)

// fakeSourceRepo serves files from memory.
type fakeSourceRepo struct {
	mu          sync.Mutex
	files       map[string]string
	commitDates map[string][]time.Time
	failPaths   map[string]int
	fetched     []string
}

func newFakeSourceRepo() *fakeSourceRepo {
	return &fakeSourceRepo{
		files:       make(map[string]string),
		commitDates: make(map[string][]time.Time),
		failPaths:   make(map[string]int),
	}
}

func (f *fakeSourceRepo) ListFiles(_ context.Context, dir string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var paths []string
	for p := range f.files {
		if strings.HasPrefix(p, dir+"/") && !strings.Contains(strings.TrimPrefix(p, dir+"/"), "/") {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (f *fakeSourceRepo) GetFileContents(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetched = append(f.fetched, path)
	if status, ok := f.failPaths[path]; ok {
		return nil, &domain.FetchError{Op: "get " + path, StatusCode: status, Err: fmt.Errorf("status %d", status)}
	}
	content, ok := f.files[path]
	if !ok {
		return nil, &domain.FetchError{Op: "get " + path, StatusCode: http.StatusNotFound, Err: fmt.Errorf("Not Found")}
	}
	return []byte(content), nil
}

func (f *fakeSourceRepo) GetFileCommitDates(_ context.Context, path string, limit int) ([]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	dates := f.commitDates[path]
	if len(dates) > limit {
		dates = dates[:limit]
	}
	return dates, nil
}

func (f *fakeSourceRepo) GetRepoFullName() string {
	return "owner/blog"
}

func (f *fakeSourceRepo) fetchedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

// fakeStore is an in-memory domain.PostStore that records every call.
type fakeStore struct {
	mu        sync.Mutex
	posts     map[string]*domain.BlogPost
	calls     []string
	upserts   [][]*domain.BlogPost
	deletes   [][]string
	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{posts: make(map[string]*domain.BlogPost)}
}

func (s *fakeStore) record(call string) {
	s.calls = append(s.calls, call)
}

func (s *fakeStore) GetPost(_ context.Context, slug string) (*domain.BlogPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetPost")

	for _, p := range s.posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, fmt.Errorf("post %s: %w", slug, domain.ErrNotFound)
}

func (s *fakeStore) GetPostByPath(_ context.Context, path string) (*domain.BlogPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetPostByPath")

	p, ok := s.posts[path]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", path, domain.ErrNotFound)
	}
	return p, nil
}

func (s *fakeStore) ListAllPosts(_ context.Context) ([]domain.PostMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListAllPosts")

	paths := make([]string, 0, len(s.posts))
	for p := range s.posts {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	metas := make([]domain.PostMeta, 0, len(paths))
	for _, p := range paths {
		metas = append(metas, s.posts[p].Meta())
	}
	domain.SortByCreatedAtDesc(metas)
	return metas, nil
}

func (s *fakeStore) UpsertPosts(_ context.Context, posts []*domain.BlogPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("UpsertPosts")

	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserts = append(s.upserts, posts)
	for _, p := range posts {
		s.posts[p.Path] = p
	}
	return nil
}

func (s *fakeStore) DeletePostsByPath(_ context.Context, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeletePostsByPath")

	s.deletes = append(s.deletes, paths)
	for _, p := range paths {
		delete(s.posts, p)
	}
	return nil
}

func (s *fakeStore) callLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func postFile(title, createdAt, body string, extra ...string) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", title)
	fmt.Fprintf(&b, "createdAt: %q\n", createdAt)
	for _, line := range extra {
		b.WriteString(line + "\n")
	}
	b.WriteString("---\n")
	b.WriteString(body)
	return b.String()
}

func strPtr(s string) *string {
	return &s
}

func pushEvent(commits ...domain.PushCommit) *domain.PushEvent {
	return &domain.PushEvent{Ref: strPtr("refs/heads/main"), Commits: commits}
}

func commit(added, modified, removed []string) domain.PushCommit {
	if added == nil {
		added = []string{}
	}
	if modified == nil {
		modified = []string{}
	}
	if removed == nil {
		removed = []string{}
	}
	return domain.PushCommit{ID: strPtr("sha"), Added: added, Modified: modified, Removed: removed}
}
