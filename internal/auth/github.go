package auth

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubUserURL = "https://api.github.com/user"

// githubUser is the portion of the GitHub /user response we use.
// https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type githubUser struct {
	ID        int64  `json:"id"`    // stable numeric id, never changes
	Login     string `json:"login"` // username, may change
	Name      string `json:"name"`  // display name, may be empty
	Email     string `json:"email"` // empty if hidden in GitHub settings
	AvatarURL string `json:"avatar_url"`
}

// GitHubProvider logs users in with GitHub.
type GitHubProvider struct {
	config  *oauth2.Config
	userURL string
}

// NewGitHubProvider creates a GitHubProvider.
//
// ClientID and ClientSecret come from a GitHub OAuth App
// (https://github.com/settings/developers). callbackURL must match the
// app's "Authorization callback URL" exactly, e.g.
// "http://localhost:8080/api/callback/github".
//
// Scopes: "read:user" for the public profile, "user:email" for the email.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		userURL: githubUserURL,
	}
}

func (p *GitHubProvider) Name() string { return "github" }

// AuthURL returns the GitHub authorization URL. state is echoed back on the
// callback and checked against the oauth_state cookie.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the code for the user's GitHub profile.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	var gh githubUser
	if err := exchangeAndFetch(ctx, p.config, code, p.userURL, &gh); err != nil {
		return nil, err
	}

	if gh.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	first, last := splitName(gh.Name)
	if first == "" {
		first = gh.Login
	}

	return &Identity{
		Provider:  p.Name(),
		Subject:   strconv.FormatInt(gh.ID, 10),
		Email:     gh.Email,
		FirstName: first,
		LastName:  last,
		AvatarURL: gh.AvatarURL,
	}, nil
}
