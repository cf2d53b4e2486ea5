// Package auth provides OAuth2 client-credentials HTTP clients for result
// publishers.
package auth

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Conf represents the client-credentials grant of a remote API. An empty
// TokenURL disables authentication.
type Conf struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	TokenURL     string   `json:"token_url"`
	Scopes       []string `json:"scopes"`
}

// Enabled reports whether requests must carry a bearer token.
func (c Conf) Enabled() bool { return c.TokenURL != "" }

// Validate checks the credentials are complete when enabled.
func (c Conf) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("auth: client_id and client_secret are required with token_url")
	}
	return nil
}

func (c Conf) oauth2Config() *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
}

// Client returns base wrapped with a transport that fetches, caches and
// refreshes tokens. base also performs the token requests. When
// authentication is disabled base is returned as is.
func (c Conf) Client(ctx context.Context, base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	if !c.Enabled() {
		return base
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	cl := c.oauth2Config().Client(ctx)
	cl.Timeout = base.Timeout
	return cl
}

// Token fetches a fresh access token.
func (c Conf) Token(ctx context.Context) (string, error) {
	tok, err := c.oauth2Config().Token(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	return tok.AccessToken, nil
}
