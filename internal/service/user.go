package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

// UserService reads and edits user profiles.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
	}
}

// Get returns a public profile.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.NotFound("user", id)
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, s.repoError("failed to get user", id, err)
	}
	return user, nil
}

// UpdateProfile applies a partial profile update. Users may only edit their
// own profile.
func (s *UserService) UpdateProfile(ctx context.Context, callerID, id string, patch model.UserPatch) (*model.User, error) {
	if callerID == "" {
		return nil, apperror.Unauthorized("Unauthorized")
	}
	if callerID != id {
		s.logger.Warn("profile ownership check failed",
			slog.String("userID", id),
			slog.String("callerID", callerID),
		)
		return nil, apperror.Forbidden("Not authorized to update this profile")
	}

	patch.FirstName = trimPtr(patch.FirstName)
	patch.LastName = trimPtr(patch.LastName)
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateUser(ctx, id, patch)
	if err != nil {
		return nil, s.repoError("failed to update user", id, err)
	}

	s.logger.Info("profile updated", slog.String("userID", id))
	return user, nil
}

// SetAvatar points the user's profile image at url. It is called after an
// avatar upload has been stored.
func (s *UserService) SetAvatar(ctx context.Context, userID, url string) (*model.User, error) {
	return s.UpdateProfile(ctx, userID, userID, model.UserPatch{ProfileImageURL: &url})
}

func (s *UserService) repoError(msg, id string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	s.logger.Error(msg, slog.String("userID", id), slog.String("error", err.Error()))
	return fmt.Errorf("user %s: %w", id, err)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
