package application

import (
	"github.com/dfryer1193/blogsync/blog/domain"
)

// Changes is the net effect of a push on the post cache. A path is never in both sets.
type Changes struct {
	ToUpsert []string
	ToRemove []string
}

// Empty reports whether there is nothing to apply.
func (c Changes) Empty() bool {
	return len(c.ToUpsert) == 0 && len(c.ToRemove) == 0
}

// pathSet is an insertion-ordered set of paths.
type pathSet struct {
	index map[string]int
	items []string
}

func newPathSet() *pathSet {
	return &pathSet{index: make(map[string]int)}
}

func (s *pathSet) Add(path string) {
	if _, ok := s.index[path]; ok {
		return
	}
	s.index[path] = len(s.items)
	s.items = append(s.items, path)
}

func (s *pathSet) Remove(path string) {
	i, ok := s.index[path]
	if !ok {
		return
	}
	delete(s.index, path)
	s.items = append(s.items[:i], s.items[i+1:]...)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j]] = j
	}
}

func (s *pathSet) Items() []string {
	return append([]string{}, s.items...)
}

// ClassifyPushEvent folds the commits of evt, in order, into the paths to upsert
// and the paths to remove. Only post files are kept. A later removal evicts an
// earlier add or modify and vice versa, so the last state of each path wins.
func ClassifyPushEvent(evt *domain.PushEvent) Changes {
	toUpsert := newPathSet()
	toRemove := newPathSet()

	for _, commit := range evt.Commits {
		for _, files := range [][]string{commit.Added, commit.Modified} {
			for _, path := range files {
				if !domain.IsPostFile(path) {
					continue
				}
				toUpsert.Add(path)
				toRemove.Remove(path)
			}
		}

		for _, path := range commit.Removed {
			if !domain.IsPostFile(path) {
				continue
			}
			toRemove.Add(path)
			toUpsert.Remove(path)
		}
	}

	return Changes{
		ToUpsert: toUpsert.Items(),
		ToRemove: toRemove.Items(),
	}
}

// ChangedPosts returns every post file touched by evt (added, modified or
// removed), deduplicated, in first-seen order.
func ChangedPosts(evt *domain.PushEvent) []string {
	seen := newPathSet()
	for _, commit := range evt.Commits {
		for _, files := range [][]string{commit.Added, commit.Modified, commit.Removed} {
			for _, path := range files {
				if domain.IsPostFile(path) {
					seen.Add(path)
				}
			}
		}
	}
	return seen.Items()
}
