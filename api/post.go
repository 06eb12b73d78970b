package api

import "time"

// PostSummary is one entry of a post listing.
type PostSummary struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	CreatedAt   string   `json:"created_at"`
	Tags        []string `json:"tags"`
	Description *string  `json:"description"`
}

// Post is a single post with its rendered body.
type Post struct {
	PostSummary
	Status         string     `json:"status"`
	LastModifiedAt *time.Time `json:"last_modified_at"`
	Snippet        string     `json:"snippet"`
	ReadingMinutes int        `json:"reading_minutes"`
	HTML           string     `json:"html"`
}

// PostList is the response of the listing endpoints.
type PostList struct {
	Tag   string        `json:"tag,omitempty"`
	Posts []PostSummary `json:"posts"`
}

// TagList is the response of the tag index.
type TagList struct {
	Tags []string `json:"tags"`
}

// Error is the body of every error response.
type Error struct {
	Error string `json:"error"`
}
