package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dfryer1193/blogsync/api"
	"github.com/dfryer1193/blogsync/blog/domain"
	"github.com/dfryer1193/blogsync/shared/pagecache"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const jsonContentType = "application/json; charset=utf-8"

func (a *API) GetPosts(c *gin.Context) {
	a.cached(c, func() (any, error) {
		posts, err := a.posts.ListPosts(c.Request.Context(), "")
		if err != nil {
			return nil, err
		}
		return api.PostList{Posts: toSummaries(posts)}, nil
	})
}

func (a *API) GetTaggedPosts(c *gin.Context) {
	tag := c.Param("tag")
	a.cached(c, func() (any, error) {
		posts, err := a.posts.ListPosts(c.Request.Context(), tag)
		if err != nil {
			return nil, err
		}
		return api.PostList{Tag: tag, Posts: toSummaries(posts)}, nil
	})
}

func (a *API) GetTags(c *gin.Context) {
	a.cached(c, func() (any, error) {
		tags, err := a.posts.ListTags(c.Request.Context())
		if err != nil {
			return nil, err
		}
		return api.TagList{Tags: tags}, nil
	})
}

// GetPost serves a post by slug. An unknown slug is retried as a legacy file name
// and redirected to the current slug when that resolves.
func (a *API) GetPost(c *gin.Context) {
	slug := c.Param("slug")
	ctx := c.Request.Context()

	gen := a.pages.Generation()
	if a.serveCached(c) {
		return
	}

	post, err := a.posts.GetPost(ctx, slug)
	if errors.Is(err, domain.ErrNotFound) {
		a.redirectLegacy(c, slug)
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}

	a.build(c, gen, func() (any, error) {
		rendered, err := a.markdown.Render(post.Content)
		if err != nil {
			return nil, err
		}
		return api.Post{
			PostSummary:    toSummary(post.Meta()),
			Status:         string(post.Status),
			LastModifiedAt: post.LastModifiedAt,
			Snippet:        rendered.Snippet,
			ReadingMinutes: rendered.ReadingMinutes,
			HTML:           rendered.HTML,
		}, nil
	})
}

func (a *API) redirectLegacy(c *gin.Context, id string) {
	slug, err := a.posts.ResolveLegacyPath(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Str("id", id).Msg("Failed to resolve legacy post path")
		}
		c.JSON(http.StatusNotFound, api.Error{Error: "post not found"})
		return
	}

	c.Redirect(http.StatusMovedPermanently, pagecache.PostPage(slug))
}

// serveCached writes the cached page for the request path, if there is one.
func (a *API) serveCached(c *gin.Context) bool {
	page, ok := a.pages.Get(c.Request.URL.Path)
	if !ok {
		return false
	}
	c.Data(http.StatusOK, page.ContentType, page.Body)
	return true
}

// cached serves the page for the request path from the page cache, building and
// storing it on a miss.
func (a *API) cached(c *gin.Context, fn func() (any, error)) {
	gen := a.pages.Generation()
	if a.serveCached(c) {
		return
	}
	a.build(c, gen, fn)
}

// build renders the response, stores it in the page cache and writes it. gen is
// the cache generation observed before the data was read; a page built across an
// invalidation is served but not cached.
func (a *API) build(c *gin.Context, gen uint64, fn func() (any, error)) {
	resp, err := fn()
	if err != nil {
		a.fail(c, err)
		return
	}

	body, err := json.Marshal(resp)
	if err != nil {
		a.fail(c, err)
		return
	}

	a.pages.SetIfCurrent(c.Request.URL.Path, pagecache.Page{ContentType: jsonContentType, Body: body}, gen)
	c.Data(http.StatusOK, jsonContentType, body)
}

func (a *API) fail(c *gin.Context, err error) {
	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Failed to serve request")
	c.JSON(http.StatusInternalServerError, api.Error{Error: "internal error"})
}

func toSummary(m domain.PostMeta) api.PostSummary {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	return api.PostSummary{
		Slug:        m.Slug,
		Title:       m.Title,
		CreatedAt:   m.CreatedAt,
		Tags:        tags,
		Description: m.Description,
	}
}

func toSummaries(posts []domain.PostMeta) []api.PostSummary {
	out := make([]api.PostSummary, len(posts))
	for i, p := range posts {
		out[i] = toSummary(p)
	}
	return out
}
