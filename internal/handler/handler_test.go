package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/handler"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository/sqlite"
	"github.com/sakif/inkwell/internal/service"
)

// testEnv is a complete API backed by an in-memory database. Requests go
// through a real chi router so URL params and auth middleware behave as in
// production.
type testEnv struct {
	t      *testing.T
	router chi.Router
	db     *sqlite.DB
	tokens *auth.TokenService
	users  *service.UserService
}

func newTestEnv(t *testing.T, opts ...func(*testEnvOptions)) *testEnv {
	t.Helper()

	o := testEnvOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", 0)
	require.NoError(t, err)

	blogSvc := service.NewBlogService(db, logger)
	userSvc := service.NewUserService(db, logger)
	authSvc := service.NewAuthService(db, tokens, logger)

	blogs := handler.NewBlogHandler(blogSvc, logger)
	users := handler.NewUserHandler(userSvc, blogSvc, logger)
	authH := handler.NewAuthHandler(auth.NewProviders(o.providers...), authSvc, false, logger)

	r := chi.NewRouter()
	r.Get("/health", handler.HandleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/login", authH.HandleLogin)
		r.Get("/login/{provider}", authH.HandleLogin)
		r.Get("/callback/{provider}", authH.HandleCallback)
		r.Get("/logout", authH.HandleLogout)
		r.Post("/logout", authH.HandleLogout)
		r.Get("/auth/providers", authH.HandleProviders)

		r.Get("/blogs", blogs.HandleList)
		r.Get("/blogs/{id}", blogs.HandleGet)
		r.Get("/tags", blogs.HandleTags)
		r.Get("/users/{id}", users.HandleGet)
		r.Get("/users/{id}/blogs", users.HandleListBlogs)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/auth/user", authH.HandleMe)
			r.Post("/blogs", blogs.HandleCreate)
			r.Put("/blogs/{id}", blogs.HandleUpdate)
			r.Delete("/blogs/{id}", blogs.HandleDelete)
			r.Post("/blogs/{id}/like", blogs.HandleLike)
			r.Put("/users/{id}", users.HandleUpdate)

			if o.media != nil {
				mediaH := handler.NewMediaHandler(o.media, userSvc, logger)
				r.Post("/media/presign", mediaH.HandlePresign)
				r.Post("/media/avatar", mediaH.HandleAvatar)
			}
		})

		r.NotFound(handler.HandleAPINotFound)
	})

	return &testEnv{t: t, router: r, db: db, tokens: tokens, users: userSvc}
}

type testEnvOptions struct {
	providers []auth.Provider
	media     handler.MediaStore
}

func withProviders(p ...auth.Provider) func(*testEnvOptions) {
	return func(o *testEnvOptions) { o.providers = p }
}

func withMedia(m handler.MediaStore) func(*testEnvOptions) {
	return func(o *testEnvOptions) { o.media = m }
}

// createUser inserts a user and returns a bearer token for it.
func (e *testEnv) createUser(id, first string) string {
	e.t.Helper()
	_, err := e.db.UpsertUser(context.Background(), &model.User{ID: id, FirstName: &first})
	require.NoError(e.t, err)

	token, err := e.tokens.Generate(id)
	require.NoError(e.t, err)
	return token
}

// do sends a request through the router. body may be nil, a string, or any
// value that is encoded as JSON.
func (e *testEnv) do(method, target, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// createBlog posts a blog as token's user and returns it.
func (e *testEnv) createBlog(token string, body map[string]any) model.Blog {
	e.t.Helper()
	rr := e.do(http.MethodPost, "/api/blogs", token, body)
	require.Equal(e.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[model.Blog](e.t, rr)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}
