package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory repository.UserRepository. A hand-written
// fake keeps the tests readable: what it does is right here.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User

	// set to a non-nil error to simulate a database failure
	upsertErr error
	getErr    error

	updates int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) GetUser(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) UpsertUser(_ context.Context, user *model.User) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	now := time.Now().UTC()
	existing, ok := f.users[user.ID]
	if !ok {
		cp := *user
		cp.CreatedAt, cp.UpdatedAt = now, now
		f.users[user.ID] = &cp
		out := cp
		return &out, nil
	}
	if user.Email != nil {
		existing.Email = user.Email
	}
	if user.FirstName != nil {
		existing.FirstName = user.FirstName
	}
	if user.LastName != nil {
		existing.LastName = user.LastName
	}
	if user.ProfileImageURL != nil {
		existing.ProfileImageURL = user.ProfileImageURL
	}
	existing.UpdatedAt = now
	out := *existing
	return &out, nil
}

func (f *fakeUserRepo) UpdateUser(_ context.Context, id string, patch model.UserPatch) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	patch.Apply(u)
	u.UpdatedAt = time.Now().UTC()
	f.updates++
	out := *u
	return &out, nil
}

// fakeBlogRepo is an in-memory repository.BlogRepository.
type fakeBlogRepo struct {
	mu     sync.Mutex
	blogs  map[int64]*model.Blog
	nextID int64

	// last arguments seen, for assertions on what the service passed down
	lastQuery  model.BlogQuery
	lastPage   model.Page
	lastInsert model.InsertBlog
	lastUpdate model.UpdateBlog

	listErr error
	deletes int
}

func newFakeBlogRepo() *fakeBlogRepo {
	return &fakeBlogRepo{blogs: make(map[int64]*model.Blog), nextID: 1}
}

// seed stores a blog directly and returns its id.
func (f *fakeBlogRepo) seed(authorID, title string, published bool) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.blogs[id] = &model.Blog{
		ID:        id,
		Title:     title,
		Content:   "seeded content",
		AuthorID:  authorID,
		Tags:      []string{},
		Published: published,
		ReadTime:  1,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	return id
}

func (f *fakeBlogRepo) ListBlogs(_ context.Context, q model.BlogQuery) ([]model.BlogWithAuthor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.BlogWithAuthor, 0, len(f.blogs))
	for _, b := range f.blogs {
		if b.Published {
			out = append(out, model.BlogWithAuthor{Blog: *b})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeBlogRepo) GetBlog(_ context.Context, id int64) (*model.BlogWithAuthor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blogs[id]
	if !ok {
		return nil, apperror.NotFound("blog", itoa(id))
	}
	return &model.BlogWithAuthor{Blog: *b}, nil
}

func (f *fakeBlogRepo) CreateBlog(_ context.Context, authorID string, in model.InsertBlog) (*model.Blog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastInsert = in
	id := f.nextID
	f.nextID++
	b := &model.Blog{
		ID:        id,
		Title:     in.Title,
		Content:   in.Content,
		AuthorID:  authorID,
		Excerpt:   in.Excerpt,
		Tags:      in.Tags,
		Published: in.Published != nil && *in.Published,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if in.ReadTime != nil {
		b.ReadTime = *in.ReadTime
	}
	f.blogs[id] = b
	out := *b
	return &out, nil
}

func (f *fakeBlogRepo) UpdateBlog(_ context.Context, id int64, u model.UpdateBlog) (*model.Blog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUpdate = u
	b, ok := f.blogs[id]
	if !ok {
		return nil, apperror.NotFound("blog", itoa(id))
	}
	if u.Title != nil {
		b.Title = *u.Title
	}
	if u.Content != nil {
		b.Content = *u.Content
	}
	if u.Excerpt != nil {
		b.Excerpt = u.Excerpt
	}
	if u.ReadTime != nil {
		b.ReadTime = *u.ReadTime
	}
	if u.Published != nil {
		b.Published = *u.Published
	}
	if u.Tags != nil {
		b.Tags = *u.Tags
	}
	out := *b
	return &out, nil
}

func (f *fakeBlogRepo) DeleteBlog(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	delete(f.blogs, id)
	return nil
}

func (f *fakeBlogRepo) LikeBlog(_ context.Context, id int64) (*model.Blog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blogs[id]
	if !ok {
		return nil, apperror.NotFound("blog", itoa(id))
	}
	b.Likes++
	out := *b
	return &out, nil
}

func (f *fakeBlogRepo) ListUserBlogs(_ context.Context, userID string, p model.Page) ([]model.BlogWithAuthor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPage = p
	out := make([]model.BlogWithAuthor, 0)
	for _, b := range f.blogs {
		if b.AuthorID == userID {
			out = append(out, model.BlogWithAuthor{Blog: *b})
		}
	}
	return out, nil
}

func (f *fakeBlogRepo) ListTags(context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return []string{"go", "web"}, nil
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strp(s string) *string { return &s }

// wantKind fails the test unless err wraps the given sentinel.
func wantKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("error = %v, want it to wrap %v", err, kind)
	}
}
