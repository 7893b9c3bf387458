package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/model"
)

// newTestAuthService returns an AuthService wired with fake dependencies.
func newTestAuthService(t *testing.T, repo *fakeUserRepo) (*AuthService, *auth.TokenService) {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return NewAuthService(repo, ts, testLogger()), ts
}

func TestLoginOrRegister_NewUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc, tokens := newTestAuthService(t, repo)

	result, err := svc.LoginOrRegister(context.Background(), &auth.Identity{
		Provider:  "github",
		Subject:   "42",
		Email:     "octocat@github.com",
		FirstName: "Mona",
		AvatarURL: "https://avatars.githubusercontent.com/u/42",
	})
	if err != nil {
		t.Fatalf("LoginOrRegister() error = %v", err)
	}

	if result.User.ID != "github|42" {
		t.Errorf("User.ID = %q, want %q", result.User.ID, "github|42")
	}
	if result.User.LastName != nil {
		t.Errorf("LastName = %q, want nil for an empty provider field", *result.User.LastName)
	}

	sub, err := tokens.Validate(result.Token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if sub != "github|42" {
		t.Errorf("token subject = %q, want %q", sub, "github|42")
	}
}

func TestLoginOrRegister_ReturningUserKeepsBio(t *testing.T) {
	repo := newFakeUserRepo()
	repo.users["github|42"] = &model.User{
		ID:    "github|42",
		Email: strp("old@example.com"),
		Bio:   strp("hand-written bio"),
	}
	svc, _ := newTestAuthService(t, repo)

	result, err := svc.LoginOrRegister(context.Background(), &auth.Identity{
		Provider: "github",
		Subject:  "42",
		Email:    "new@example.com",
	})
	if err != nil {
		t.Fatalf("LoginOrRegister() error = %v", err)
	}
	if *result.User.Email != "new@example.com" {
		t.Errorf("Email = %q, want the provider's new value", *result.User.Email)
	}
	if result.User.Bio == nil || *result.User.Bio != "hand-written bio" {
		t.Errorf("Bio = %v, want preserved", result.User.Bio)
	}
}

func TestLoginOrRegister_Errors(t *testing.T) {
	t.Run("nil identity", func(t *testing.T) {
		svc, _ := newTestAuthService(t, newFakeUserRepo())
		if _, err := svc.LoginOrRegister(context.Background(), nil); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := newFakeUserRepo()
		repo.upsertErr = errors.New("db down")
		svc, _ := newTestAuthService(t, repo)

		_, err := svc.LoginOrRegister(context.Background(), &auth.Identity{Provider: "github", Subject: "1"})
		if !errors.Is(err, repo.upsertErr) {
			t.Fatalf("error = %v, want wrapped repository error", err)
		}
	})

	t.Run("email taken", func(t *testing.T) {
		repo := newFakeUserRepo()
		repo.upsertErr = apperror.Conflict("user", "github|1")
		svc, _ := newTestAuthService(t, repo)

		_, err := svc.LoginOrRegister(context.Background(), &auth.Identity{Provider: "github", Subject: "1"})
		wantKind(t, err, apperror.ErrConflict)
	})
}

func TestCurrentUser(t *testing.T) {
	repo := newFakeUserRepo()
	repo.users["google|7"] = &model.User{ID: "google|7"}
	svc, _ := newTestAuthService(t, repo)

	user, err := svc.CurrentUser(context.Background(), "google|7")
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if user.ID != "google|7" {
		t.Errorf("ID = %q", user.ID)
	}

	_, err = svc.CurrentUser(context.Background(), "google|8")
	wantKind(t, err, apperror.ErrNotFound)

	_, err = svc.CurrentUser(context.Background(), "")
	wantKind(t, err, apperror.ErrUnauthorized)
}

func TestSessionTTL(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())
	if got, want := svc.SessionTTL(), int(auth.DefaultSessionTTL.Seconds()); got != want {
		t.Errorf("SessionTTL() = %d, want %d", got, want)
	}
}
