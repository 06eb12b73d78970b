package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dfryer1193/blogsync/blog/domain"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPost(path, slug, createdAt string) *domain.BlogPost {
	return &domain.BlogPost{
		PostMeta: domain.PostMeta{
			Path:      path,
			Slug:      slug,
			Title:     "Title of " + slug,
			CreatedAt: createdAt,
			Tags:      []string{"go"},
			Status:    domain.StatusPublished,
		},
		Content: "body of " + slug,
	}
}

// runStoreContract exercises the behaviour every domain.PostStore must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) domain.PostStore) {
	ctx := context.Background()

	t.Run("upsert then get", func(t *testing.T) {
		store := newStore(t)
		modified := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
		desc := "about hello"
		post := testPost("posts/1-hello.md", "hello", "2024-01-01")
		post.LastModifiedAt = &modified
		post.Description = &desc

		require.NoError(t, store.UpsertPosts(ctx, []*domain.BlogPost{post}))

		got, err := store.GetPostByPath(ctx, "posts/1-hello.md")
		require.NoError(t, err)
		assert.Equal(t, post.PostMeta, got.PostMeta)
		assert.Equal(t, post.Content, got.Content)
		require.NotNil(t, got.LastModifiedAt)
		assert.True(t, modified.Equal(*got.LastModifiedAt))

		got, err = store.GetPost(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, "posts/1-hello.md", got.Path)
	})

	t.Run("upsert replaces", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.UpsertPosts(ctx, []*domain.BlogPost{testPost("posts/1-hello.md", "hello", "2024-01-01")}))

		updated := testPost("posts/1-hello.md", "hello", "2024-01-01")
		updated.Title = "Updated"
		updated.Status = domain.StatusDraft
		require.NoError(t, store.UpsertPosts(ctx, []*domain.BlogPost{updated}))

		got, err := store.GetPostByPath(ctx, "posts/1-hello.md")
		require.NoError(t, err)
		assert.Equal(t, "Updated", got.Title)
		assert.Equal(t, domain.StatusDraft, got.Status)

		all, err := store.ListAllPosts(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("missing post", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetPostByPath(ctx, "posts/9-none.md")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.GetPost(ctx, "none")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.UpsertPosts(ctx, []*domain.BlogPost{
			testPost("posts/1-a.md", "a", "2024-01-01"),
			testPost("posts/2-b.md", "b", "2024-01-02"),
		}))

		require.NoError(t, store.DeletePostsByPath(ctx, []string{"posts/1-a.md", "posts/7-never.md"}))
		require.NoError(t, store.DeletePostsByPath(ctx, []string{"posts/1-a.md"}))
		require.NoError(t, store.DeletePostsByPath(ctx, nil))

		_, err := store.GetPostByPath(ctx, "posts/1-a.md")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.GetPostByPath(ctx, "posts/2-b.md")
		assert.NoError(t, err)
	})

	t.Run("list newest first without content", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.UpsertPosts(ctx, []*domain.BlogPost{
			testPost("posts/1-a.md", "a", "2024-01-01"),
			testPost("posts/2-b.md", "b", "2024-03-01"),
			testPost("posts/3-c.md", "c", "2024-02-01T10:00:00Z"),
		}))

		all, err := store.ListAllPosts(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "b", all[0].Slug)
		assert.Equal(t, "c", all[1].Slug)
		assert.Equal(t, "a", all[2].Slug)
	})

	t.Run("empty store lists nothing", func(t *testing.T) {
		store := newStore(t)
		all, err := store.ListAllPosts(ctx)
		require.NoError(t, err)
		assert.NotNil(t, all)
		assert.Empty(t, all)
	})

	t.Run("shared slug resolves to greatest path", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.UpsertPosts(ctx, []*domain.BlogPost{
			testPost("posts/2-hello.md", "hello", "2024-02-01"),
			testPost("posts/1-hello.md", "hello", "2024-01-01"),
		}))

		got, err := store.GetPost(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, "posts/2-hello.md", got.Path)
	})

	t.Run("empty path is rejected", func(t *testing.T) {
		store := newStore(t)
		err := store.UpsertPosts(ctx, []*domain.BlogPost{
			testPost("posts/1-a.md", "a", "2024-01-01"),
			testPost("", "b", "2024-01-01"),
		})
		require.Error(t, err)

		_, err = store.GetPostByPath(ctx, "posts/1-a.md")
		assert.ErrorIs(t, err, domain.ErrNotFound, "a failed batch writes nothing")
	})

	t.Run("re-upsert after delete restores posts", func(t *testing.T) {
		store := newStore(t)
		posts := []*domain.BlogPost{
			testPost("posts/1-a.md", "a", "2024-01-01"),
			testPost("posts/2-b.md", "b", "2024-02-01"),
		}
		paths := []string{"posts/1-a.md", "posts/2-b.md"}

		require.NoError(t, store.UpsertPosts(ctx, posts))
		require.NoError(t, store.DeletePostsByPath(ctx, paths))

		all, err := store.ListAllPosts(ctx)
		require.NoError(t, err)
		require.Empty(t, all)

		require.NoError(t, store.UpsertPosts(ctx, posts))

		for _, p := range posts {
			got, err := store.GetPostByPath(ctx, p.Path)
			require.NoError(t, err)
			assert.Equal(t, p.PostMeta, got.PostMeta)
			assert.Equal(t, p.Content, got.Content)
		}

		all, err = store.ListAllPosts(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "posts/2-b.md", all[0].Path)
		assert.Equal(t, "posts/1-a.md", all[1].Path)

		got, err := store.GetPost(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "posts/1-a.md", got.Path)
	})

	t.Run("upsert then delete leaves nothing behind", func(t *testing.T) {
		parameters := gopter.DefaultTestParameters()
		parameters.MinSuccessfulTests = 25
		properties := gopter.NewProperties(parameters)

		properties.Property("deleted paths are gone, others remain", prop.ForAll(
			func(ids []int, drop []bool) bool {
				store := newStore(t)

				seen := make(map[string]bool)
				var posts []*domain.BlogPost
				for _, id := range ids {
					path := fmt.Sprintf("posts/%d-post-%d.md", id, id)
					if seen[path] {
						continue
					}
					seen[path] = true
					posts = append(posts, testPost(path, fmt.Sprintf("post-%d", id), "2024-01-01"))
				}
				if err := store.UpsertPosts(ctx, posts); err != nil {
					return false
				}

				var deleted []string
				kept := make(map[string]bool)
				for i, p := range posts {
					if i < len(drop) && drop[i] {
						deleted = append(deleted, p.Path)
					} else {
						kept[p.Path] = true
					}
				}
				if err := store.DeletePostsByPath(ctx, deleted); err != nil {
					return false
				}

				all, err := store.ListAllPosts(ctx)
				if err != nil || len(all) != len(kept) {
					return false
				}
				for _, m := range all {
					if !kept[m.Path] {
						return false
					}
				}
				return true
			},
			gen.SliceOf(gen.IntRange(1, 50)),
			gen.SliceOf(gen.Bool()),
		))

		properties.TestingRun(t)
	})
}
