package model

import "time"

// Blog is a stored blog post.
//
// Tags keeps the author's order and duplicates. It is never nil once a Blog
// leaves the repository so the JSON is always an array, never null.
type Blog struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Excerpt       *string   `json:"excerpt"`
	Tags          []string  `json:"tags"`
	AuthorID      string    `json:"authorId"`
	Published     bool      `json:"published"`
	FeaturedImage *string   `json:"featuredImage"`
	ReadTime      int       `json:"readTime"`
	Likes         int       `json:"likes"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// BlogWithAuthor is a Blog with its author embedded. The embedded Blog's
// fields are flattened into the JSON object next to "author".
type BlogWithAuthor struct {
	Blog
	Author User `json:"author"`
}

// DefaultReadTime is the column default used when a row is written without
// content-derived timing.
const DefaultReadTime = 5

// InsertBlog is the client payload for creating a blog.
//
// There is no AuthorID field: the author is always the session user, and an
// "authorId" key in the request body is silently dropped by the decoder.
type InsertBlog struct {
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	Excerpt       *string  `json:"excerpt"`
	Tags          []string `json:"tags"`
	Published     *bool    `json:"published"`
	FeaturedImage *string  `json:"featuredImage"`
	ReadTime      *int     `json:"readTime"`
}

// UpdateBlog is a partial blog update. A nil field means "leave unchanged".
//
// Tags is a pointer to a slice so that "tags": [] (clear all tags) can be
// told apart from a missing "tags" key.
type UpdateBlog struct {
	Title         *string   `json:"title"`
	Content       *string   `json:"content"`
	Excerpt       *string   `json:"excerpt"`
	Tags          *[]string `json:"tags"`
	Published     *bool     `json:"published"`
	FeaturedImage *string   `json:"featuredImage"`
	ReadTime      *int      `json:"readTime"`
}

// IsEmpty reports whether the update carries no fields at all.
func (u UpdateBlog) IsEmpty() bool {
	return u.Title == nil && u.Content == nil && u.Excerpt == nil && u.Tags == nil &&
		u.Published == nil && u.FeaturedImage == nil && u.ReadTime == nil
}
