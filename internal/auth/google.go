package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// googleUser is the OpenID Connect userinfo response.
type googleUser struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Name       string `json:"name"`
	Picture    string `json:"picture"`
}

// GoogleProvider logs users in with a Google account.
type GoogleProvider struct {
	config  *oauth2.Config
	userURL string
}

// NewGoogleProvider creates a GoogleProvider requesting the "openid email
// profile" scopes. callbackURL is e.g. "http://localhost:8080/api/callback/google".
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userURL: googleUserInfoURL,
	}
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the code for the user's Google profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	var g googleUser
	if err := exchangeAndFetch(ctx, p.config, code, p.userURL, &g); err != nil {
		return nil, err
	}

	if g.Sub == "" {
		return nil, fmt.Errorf("auth: Google returned a profile without a subject")
	}

	first, last := g.GivenName, g.FamilyName
	if first == "" && last == "" {
		first, last = splitName(g.Name)
	}

	return &Identity{
		Provider:  p.Name(),
		Subject:   g.Sub,
		Email:     g.Email,
		FirstName: first,
		LastName:  last,
		AvatarURL: g.Picture,
	}, nil
}
