package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/service"
)

// UserHandler serves public profiles and profile edits.
type UserHandler struct {
	users  *service.UserService
	blogs  *service.BlogService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, blogs *service.BlogService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, blogs: blogs, logger: logger}
}

// HandleGet returns a public profile.
//
// HTTP: GET /api/users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleListBlogs returns a page of the user's blogs, drafts included. An
// unknown user simply has no blogs.
//
// HTTP: GET /api/users/{id}/blogs?page=&limit=
func (h *UserHandler) HandleListBlogs(w http.ResponseWriter, r *http.Request) {
	blogs, err := h.blogs.ListByAuthor(r.Context(), chi.URLParam(r, "id"), pageFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blogs)
}

// HandleUpdate edits the caller's own profile.
//
// HTTP: PUT /api/users/{id} (auth required, {id} must be the caller)
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())

	var patch model.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), callerID, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
