package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/agentstation/fiscal/pkg/constants"
	"github.com/agentstation/fiscal/pkg/errors"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request) error
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request) error {
	return nil
}

// BearerAuth applies a static bearer token.
type BearerAuth struct {
	Token string
}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+a.Token)
	return nil
}

// TokenAuth applies tokens from an OAuth2 token source, refreshing them as they expire.
type TokenAuth struct {
	Source oauth2.TokenSource
	System string
}

// Apply implements the Authenticator interface for TokenAuth.
func (a *TokenAuth) Apply(req *http.Request) error {
	token, err := a.Source.Token()
	if err != nil {
		return &errors.APIError{
			System:     a.System,
			StatusCode: http.StatusUnauthorized,
			Message:    "failed to acquire access token",
			Endpoint:   req.URL.Host,
			Err:        err,
		}
	}
	token.SetAuthHeader(req)
	return nil
}

// ClientCredentials holds an app registration's client credentials grant.
type ClientCredentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	// TokenURL overrides the tenant token endpoint.
	TokenURL string
	Scopes   []string
}

// Validate checks the required credentials are present.
func (c ClientCredentials) Validate() error {
	var missing []string
	if c.TenantID == "" && c.TokenURL == "" {
		missing = append(missing, "tenant_id")
	}
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if len(missing) > 0 {
		return errors.NewConfigError("sharepoint", "missing "+strings.Join(missing, ", "), nil)
	}
	return nil
}

// NewClientCredentialsAuth returns an authenticator for the client credentials grant.
// The http client in ctx, if any, is used to fetch tokens.
func NewClientCredentialsAuth(ctx context.Context, creds ClientCredentials) (*TokenAuth, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = fmt.Sprintf("%s/%s/oauth2/v2.0/token", constants.LoginBaseURL, creds.TenantID)
	}
	scopes := creds.Scopes
	if len(scopes) == 0 {
		scopes = []string{constants.GraphScope}
	}
	cfg := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return &TokenAuth{Source: cfg.TokenSource(ctx), System: "sharepoint"}, nil
}
