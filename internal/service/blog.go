// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, authorizes, derives, logs
//	Repository (data layer)  → reads/writes the database
//
// Services take repository interfaces, never a concrete database, and
// return apperror values, never HTTP status codes. The handler package
// translates one into the other.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/derive"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

// BlogService handles blog publishing, editing and browsing.
type BlogService struct {
	repo   repository.BlogRepository
	logger *slog.Logger
}

func NewBlogService(repo repository.BlogRepository, logger *slog.Logger) *BlogService {
	return &BlogService{
		repo:   repo,
		logger: logger,
	}
}

// List returns one page of the public feed. Paging values are clamped to
// sane ranges, so a client can never request an unbounded page.
func (s *BlogService) List(ctx context.Context, q model.BlogQuery) ([]model.BlogWithAuthor, error) {
	q.Page = q.Page.Normalize()
	q.Tag = strings.TrimSpace(q.Tag)
	q.Search = strings.TrimSpace(q.Search)

	blogs, err := s.repo.ListBlogs(ctx, q)
	if err != nil {
		s.logger.Error("failed to list blogs",
			slog.String("tag", q.Tag),
			slog.String("search", q.Search),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing blogs: %w", err)
	}
	return blogs, nil
}

// Get returns a single blog with its author. Drafts are returned too:
// anyone holding a draft's id can read it.
func (s *BlogService) Get(ctx context.Context, id int64) (*model.BlogWithAuthor, error) {
	blog, err := s.repo.GetBlog(ctx, id)
	if err != nil {
		return nil, s.repoError("failed to get blog", id, err)
	}
	return blog, nil
}

// Create validates a new blog, derives its excerpt and read time, and
// stores it with callerID as the author.
func (s *BlogService) Create(ctx context.Context, callerID string, in model.InsertBlog) (*model.Blog, error) {
	if callerID == "" {
		return nil, apperror.Unauthorized("Unauthorized")
	}

	in.Tags = trimTags(in.Tags)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	blog, err := s.repo.CreateBlog(ctx, callerID, derive.ApplyInsert(in))
	if err != nil {
		s.logger.Error("failed to create blog",
			slog.String("authorID", callerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating blog: %w", err)
	}

	s.logger.Info("blog created",
		slog.Int64("id", blog.ID),
		slog.String("authorID", callerID),
		slog.Bool("published", blog.Published),
	)
	return blog, nil
}

// Update applies a partial update to a blog the caller owns.
//
// ORDER OF CHECKS:
//  1. the blog exists (404)
//  2. the caller is its author (403)
//  3. the payload is valid (400)
//
// Ownership is settled before the payload is looked at, so a non-owner
// learns nothing about validation rules from the response.
func (s *BlogService) Update(ctx context.Context, callerID string, id int64, u model.UpdateBlog) (*model.Blog, error) {
	if err := s.authorize(ctx, callerID, id, "Not authorized to edit this blog"); err != nil {
		return nil, err
	}

	if u.Tags != nil {
		tags := trimTags(*u.Tags)
		u.Tags = &tags
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}

	blog, err := s.repo.UpdateBlog(ctx, id, derive.ApplyUpdate(u))
	if err != nil {
		return nil, s.repoError("failed to update blog", id, err)
	}

	s.logger.Info("blog updated", slog.Int64("id", id), slog.String("authorID", callerID))
	return blog, nil
}

// Delete removes a blog the caller owns.
func (s *BlogService) Delete(ctx context.Context, callerID string, id int64) error {
	if err := s.authorize(ctx, callerID, id, "Not authorized to delete this blog"); err != nil {
		return err
	}

	if err := s.repo.DeleteBlog(ctx, id); err != nil {
		return s.repoError("failed to delete blog", id, err)
	}

	s.logger.Info("blog deleted", slog.Int64("id", id), slog.String("authorID", callerID))
	return nil
}

// Like adds one like to a blog. Any signed-in user may like any blog, any
// number of times.
func (s *BlogService) Like(ctx context.Context, callerID string, id int64) (*model.Blog, error) {
	if callerID == "" {
		return nil, apperror.Unauthorized("Unauthorized")
	}

	blog, err := s.repo.LikeBlog(ctx, id)
	if err != nil {
		return nil, s.repoError("failed to like blog", id, err)
	}
	return blog, nil
}

// ListByAuthor returns one page of an author's blogs, drafts included.
func (s *BlogService) ListByAuthor(ctx context.Context, authorID string, p model.Page) ([]model.BlogWithAuthor, error) {
	blogs, err := s.repo.ListUserBlogs(ctx, authorID, p.Normalize())
	if err != nil {
		s.logger.Error("failed to list user blogs",
			slog.String("authorID", authorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing blogs for %s: %w", authorID, err)
	}
	return blogs, nil
}

// Tags returns every distinct tag used by a published blog.
func (s *BlogService) Tags(ctx context.Context) ([]string, error) {
	tags, err := s.repo.ListTags(ctx)
	if err != nil {
		s.logger.Error("failed to list tags", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return tags, nil
}

// authorize loads the blog and checks that callerID wrote it.
func (s *BlogService) authorize(ctx context.Context, callerID string, id int64, denied string) error {
	if callerID == "" {
		return apperror.Unauthorized("Unauthorized")
	}

	existing, err := s.repo.GetBlog(ctx, id)
	if err != nil {
		return s.repoError("failed to load blog for authorization", id, err)
	}

	if existing.AuthorID != callerID {
		s.logger.Warn("blog ownership check failed",
			slog.Int64("id", id),
			slog.String("callerID", callerID),
		)
		return apperror.Forbidden(denied)
	}
	return nil
}

// repoError logs unexpected repository failures and passes domain errors
// (not found and friends) through untouched.
func (s *BlogService) repoError(msg string, id int64, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	s.logger.Error(msg, slog.Int64("id", id), slog.String("error", err.Error()))
	return fmt.Errorf("blog %d: %w", id, err)
}

// trimTags trims surrounding whitespace from every tag. Blank tags are kept
// so validation can report them.
func trimTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = strings.TrimSpace(t)
	}
	return out
}
