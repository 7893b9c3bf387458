package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// Identity is a user profile as reported by an identity provider, already
// normalised to the fields the users table stores. Empty strings mean the
// provider did not share that field.
type Identity struct {
	Provider  string
	Subject   string // the provider's stable user id
	Email     string
	FirstName string
	LastName  string
	AvatarURL string
}

// UserID is the application user id for this identity: "<provider>|<subject>".
func (i Identity) UserID() string {
	return i.Provider + "|" + i.Subject
}

// Provider is one OAuth 2.0 Authorization Code identity provider.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. The server redirects the browser to AuthURL(state).
//  2. The user approves the request at the provider.
//  3. The provider redirects back to the callback URL with a short-lived code.
//  4. Exchange trades the code for an access token (server-to-server, using
//     the client secret) and fetches the user's profile with it.
type Provider interface {
	Name() string
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// Providers is the set of configured providers, in configuration order.
// The first one is the default for /api/login.
type Providers struct {
	list []Provider
}

func NewProviders(providers ...Provider) *Providers {
	return &Providers{list: providers}
}

// Get returns the provider with the given name.
func (p *Providers) Get(name string) (Provider, bool) {
	for _, pr := range p.list {
		if pr.Name() == name {
			return pr, true
		}
	}
	return nil, false
}

// Default returns the first configured provider, if any.
func (p *Providers) Default() (Provider, bool) {
	if len(p.list) == 0 {
		return nil, false
	}
	return p.list[0], true
}

// Names lists the configured provider names.
func (p *Providers) Names() []string {
	names := make([]string, len(p.list))
	for i, pr := range p.list {
		names[i] = pr.Name()
	}
	return names
}

// exchangeAndFetch runs the code exchange and decodes the JSON profile at
// profileURL into dst, using an HTTP client that carries the access token.
func exchangeAndFetch(ctx context.Context, cfg *oauth2.Config, code, profileURL string, dst any) error {
	oauthToken, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// cfg.Client adds "Authorization: Bearer <token>" to every request.
	client := cfg.Client(ctx, oauthToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return fmt.Errorf("auth: building profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("auth: calling %s: %w", profileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: %s returned status %d", profileURL, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("auth: decoding profile response: %w", err)
	}
	return nil
}

// splitName splits a display name into first and last name on the first space.
func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	first, last, _ = strings.Cut(name, " ")
	return first, strings.TrimSpace(last)
}
