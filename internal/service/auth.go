package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

// AuthService turns an identity-provider login into a local user and a
// session token.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                               ↘ TokenService (JWT)
//
// It never touches cookies or redirects; those belong to the handler.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// AuthResult bundles the user record and the issued session token so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginOrRegister is the identity sync point. On every successful login the
// provider's view of the user (email, names, avatar) overwrites ours; fields
// the provider did not share are left as they are. Bio is never touched.
//
// First login → INSERT. Later logins → UPDATE of the profile fields.
func (s *AuthService) LoginOrRegister(ctx context.Context, id *auth.Identity) (*AuthResult, error) {
	if id == nil || id.Provider == "" || id.Subject == "" {
		return nil, fmt.Errorf("service/auth: identity must carry a provider and subject")
	}

	user, err := s.users.UpsertUser(ctx, &model.User{
		ID:              id.UserID(),
		Email:           optional(id.Email),
		FirstName:       optional(id.FirstName),
		LastName:        optional(id.LastName),
		ProfileImageURL: optional(id.AvatarURL),
	})
	if err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to upsert user",
				slog.String("userID", id.UserID()),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("service/auth: upserting user %s: %w", id.UserID(), err)
	}

	s.logger.Info("user authenticated",
		slog.String("userID", user.ID),
		slog.String("provider", id.Provider),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// CurrentUser returns the signed-in user's record. The id comes from a
// validated session token, so a miss means the account was removed after
// the token was issued.
func (s *AuthService) CurrentUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthorized("Unauthorized")
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// SessionTTL is how long issued session tokens stay valid. The handler
// uses it as the cookie's Max-Age.
func (s *AuthService) SessionTTL() int {
	return int(s.tokens.TTL().Seconds())
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
