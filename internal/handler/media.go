package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/media"
	"github.com/sakif/inkwell/internal/service"
)

// maxAvatarForm caps the multipart body: the image plus form overhead.
const maxAvatarForm = media.MaxAvatarSizeBytes + 1<<20

// MediaStore is the object storage the media endpoints need. *media.Store
// implements it; tests substitute a fake.
type MediaStore interface {
	PresignFeaturedImage(ctx context.Context, contentType string, fileSize int64) (*media.PresignResult, error)
	UploadAvatar(ctx context.Context, r io.Reader, contentType string) (*media.UploadResult, error)
}

// MediaHandler serves image uploads.
type MediaHandler struct {
	store  MediaStore
	users  *service.UserService
	logger *slog.Logger
}

func NewMediaHandler(store MediaStore, users *service.UserService, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{store: store, users: users, logger: logger}
}

type presignRequest struct {
	ContentType string `json:"contentType"`
	FileSize    int64  `json:"fileSize"`
}

// HandlePresign returns a presigned PUT URL for a blog's featured image.
// The client uploads straight to the bucket and then sends publicUrl as the
// blog's featuredImage.
//
// HTTP: POST /api/media/presign (auth required)
func (h *MediaHandler) HandlePresign(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req presignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.store.PresignFeaturedImage(r.Context(), req.ContentType, req.FileSize)
	if err != nil {
		if !errors.Is(err, apperror.ErrValidation) {
			h.logger.Error("presign failed", slog.String("userID", userID), slog.String("error", err.Error()))
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleAvatar stores an uploaded avatar and points the caller's profile at
// it. The response is the updated user.
//
// HTTP: POST /api/media/avatar (auth required, multipart field "avatar")
func (h *MediaHandler) HandleAvatar(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarForm)
	if err := r.ParseMultipartForm(maxAvatarForm); err != nil {
		writeError(w, apperror.ValidationFailed("avatar", "Invalid or oversized upload"))
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, apperror.ValidationFailed("avatar", "avatar file is required"))
		return
	}
	defer file.Close()

	res, err := h.store.UploadAvatar(r.Context(), file, header.Header.Get("Content-Type"))
	if err != nil {
		if !errors.Is(err, apperror.ErrValidation) {
			h.logger.Error("avatar upload failed", slog.String("userID", userID), slog.String("error", err.Error()))
		}
		writeError(w, err)
		return
	}

	user, err := h.users.SetAvatar(r.Context(), userID, res.URL)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("avatar updated", slog.String("userID", userID), slog.String("key", res.Key))
	writeJSON(w, http.StatusOK, user)
}
