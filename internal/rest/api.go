package rest

import (
	"github.com/dfryer1193/blogsync/blog/application"
	"github.com/dfryer1193/blogsync/shared/pagecache"
	"github.com/gin-gonic/gin"
)

// API serves posts from the store, caching rendered responses by path.
type API struct {
	posts    *application.PostService
	markdown application.MarkdownRenderer
	pages    *pagecache.Cache
}

func NewApi(posts *application.PostService, markdown application.MarkdownRenderer, pages *pagecache.Cache) *API {
	return &API{
		posts:    posts,
		markdown: markdown,
		pages:    pages,
	}
}

func (a *API) RegisterRoutes(router gin.IRouter) {
	blog := router.Group("/blog")
	{
		blog.GET("", a.GetPosts)
		blog.GET("/:slug", a.GetPost)
	}

	tags := router.Group("/tags")
	{
		tags.GET("", a.GetTags)
		tags.GET("/:tag", a.GetTaggedPosts)
	}
}
