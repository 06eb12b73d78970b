package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// PostsDir is the repository directory holding post files.
const PostsDir = "posts"

var (
	postPathRegex = regexp.MustCompile(`^posts/(\d+)-([^/]+)\.md$`)
)

// IsPostFile is the loose shape check used to classify changed files:
// anything under posts/ ending in .md.
func IsPostFile(path string) bool {
	return strings.HasPrefix(path, PostsDir+"/") && strings.HasSuffix(path, ".md")
}

// SlugFromPath derives the slug of a post from its storage path.
// Example: "posts/001-my-post.md" -> "my-post"
func SlugFromPath(path string) (string, error) {
	matches := postPathRegex.FindStringSubmatch(path)
	if len(matches) < 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return matches[2], nil
}

// PathMappings resolves post identity in both directions.
type PathMappings struct {
	pathToSlug map[string]string
	slugToPath map[string]string
}

// BuildMappings derives the slug of every path in one pass. A single malformed
// path fails the whole batch. When two paths share a slug the lexically greatest
// path wins.
func BuildMappings(paths []string) (*PathMappings, error) {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	m := &PathMappings{
		pathToSlug: make(map[string]string, len(sorted)),
		slugToPath: make(map[string]string, len(sorted)),
	}
	for _, p := range sorted {
		slug, err := SlugFromPath(p)
		if err != nil {
			return nil, err
		}
		m.pathToSlug[p] = slug
		m.slugToPath[slug] = p
	}
	return m, nil
}

// SlugFor returns the slug of path.
func (m *PathMappings) SlugFor(path string) (string, bool) {
	slug, ok := m.pathToSlug[path]
	return slug, ok
}

// PathFor returns the path currently holding slug.
func (m *PathMappings) PathFor(slug string) (string, bool) {
	path, ok := m.slugToPath[slug]
	return path, ok
}

// Len returns the number of known paths.
func (m *PathMappings) Len() int {
	return len(m.pathToSlug)
}
