package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/service"
)

// BlogHandler serves the /api/blogs and /api/tags endpoints.
//
// The handler never touches the database and never decides who may do
// what. It parses the request, passes the caller's id to BlogService and
// writes whatever comes back.
type BlogHandler struct {
	blogs  *service.BlogService
	logger *slog.Logger
}

func NewBlogHandler(blogs *service.BlogService, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{blogs: blogs, logger: logger}
}

// HandleList returns one page of published blogs, newest first.
//
// HTTP: GET /api/blogs?page=1&limit=10&tag=go&search=chi
func (h *BlogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := model.BlogQuery{
		Page:   pageFromQuery(r),
		Tag:    r.URL.Query().Get("tag"),
		Search: r.URL.Query().Get("search"),
	}

	blogs, err := h.blogs.List(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blogs)
}

// HandleGet returns one blog with its author. Drafts are included.
//
// HTTP: GET /api/blogs/{id}
func (h *BlogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := blogID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	blog, err := h.blogs.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

// HandleCreate publishes or drafts a new blog as the session user.
//
// HTTP: POST /api/blogs (auth required)
func (h *BlogHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())

	var in model.InsertBlog
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	blog, err := h.blogs.Create(r.Context(), callerID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, blog)
}

// HandleUpdate applies a partial update. Only the author may edit.
//
// HTTP: PUT /api/blogs/{id} (auth required)
func (h *BlogHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())

	id, err := blogID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var u model.UpdateBlog
	if err := decodeJSON(w, r, &u); err != nil {
		writeError(w, err)
		return
	}

	blog, err := h.blogs.Update(r.Context(), callerID, id, u)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

// HandleDelete removes a blog. Only the author may delete.
//
// HTTP: DELETE /api/blogs/{id} (auth required) → 204 No Content
func (h *BlogHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())

	id, err := blogID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.blogs.Delete(r.Context(), callerID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLike adds one like and returns the updated blog.
//
// HTTP: POST /api/blogs/{id}/like (auth required)
func (h *BlogHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())

	id, err := blogID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	blog, err := h.blogs.Like(r.Context(), callerID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

// HandleTags lists every tag in use on a published blog.
//
// HTTP: GET /api/tags
func (h *BlogHandler) HandleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.blogs.Tags(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}
