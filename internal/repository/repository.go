// Package repository declares the storage contracts the service layer
// depends on. Implementations live in the sqlite and postgres subpackages.
//
// Every lookup that misses returns an error wrapping apperror.ErrNotFound,
// never (nil, nil).
package repository

import (
	"context"

	"github.com/sakif/inkwell/internal/model"
)

type UserRepository interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	// UpsertUser inserts the user or overwrites the supplied profile fields of
	// an existing row. CreatedAt of an existing row is preserved.
	UpsertUser(ctx context.Context, user *model.User) (*model.User, error)
	UpdateUser(ctx context.Context, id string, patch model.UserPatch) (*model.User, error)
}

type BlogRepository interface {
	// ListBlogs returns published blogs only, newest first.
	ListBlogs(ctx context.Context, q model.BlogQuery) ([]model.BlogWithAuthor, error)
	// GetBlog returns a blog regardless of its published state.
	GetBlog(ctx context.Context, id int64) (*model.BlogWithAuthor, error)
	CreateBlog(ctx context.Context, authorID string, b model.InsertBlog) (*model.Blog, error)
	UpdateBlog(ctx context.Context, id int64, u model.UpdateBlog) (*model.Blog, error)
	// DeleteBlog is idempotent: deleting a missing blog is not an error.
	DeleteBlog(ctx context.Context, id int64) error
	// LikeBlog increments the like counter in a single statement.
	LikeBlog(ctx context.Context, id int64) (*model.Blog, error)
	// ListUserBlogs returns every blog by the author, drafts included.
	ListUserBlogs(ctx context.Context, userID string, p model.Page) ([]model.BlogWithAuthor, error)
	// ListTags returns the distinct tags of published blogs.
	ListTags(ctx context.Context) ([]string, error)
}

// Store is a complete storage backend.
type Store interface {
	UserRepository
	BlogRepository
	Close() error
}
