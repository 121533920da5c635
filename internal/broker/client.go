// Package broker speaks OIDC to the eID identity broker that fronts BankID.
// It builds authorization URLs, exchanges authorization codes, and verifies
// broker-issued identity tokens against the broker's published signing keys.
// The broker itself is a protocol peer; nothing here re-implements eID.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"caregate/internal/platform/config"
	dErrors "caregate/pkg/domain-errors"
)

const tracerName = "caregate/internal/broker"

// Client is the confidential OIDC client. Constructed once at startup from
// immutable configuration; safe for concurrent use.
type Client struct {
	cfg  config.BrokerConfig
	http *http.Client
	keys *KeySet

	// Endpoint overrides for tests; empty means derived from cfg.Domain.
	authorizeURL string
	tokenURL     string
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoints overrides the derived broker endpoints. Used by tests to
// point the client at an httptest server.
func WithEndpoints(authorizeURL, tokenURL, jwksURL string) Option {
	return func(c *Client) {
		c.authorizeURL = authorizeURL
		c.tokenURL = tokenURL
		c.keys.url = jwksURL
	}
}

// WithHTTPClient overrides the HTTP client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
		c.keys.http = h
	}
}

// New builds a broker client. Enabled() reports false when the broker is not
// configured; every operation then fails with a service-unavailable error
// instead of a panic.
func New(cfg config.BrokerConfig, opts ...Option) *Client {
	httpClient := &http.Client{Timeout: cfg.ExchangeTimeout}
	c := &Client{
		cfg:  cfg,
		http: httpClient,
		keys: &KeySet{
			url:    strings.TrimSuffix(cfg.Domain, "/") + "/.well-known/jwks.json",
			issuer: strings.TrimSuffix(cfg.Domain, "/"),
			http:   httpClient,
		},
	}
	if cfg.Domain != "" {
		c.authorizeURL = strings.TrimSuffix(cfg.Domain, "/") + "/oauth2/authorize"
		c.tokenURL = strings.TrimSuffix(cfg.Domain, "/") + "/oauth2/token"
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether the broker is configured for logins.
func (c *Client) Enabled() bool {
	return c.cfg.Configured()
}

// Keys exposes the broker key set so main can run the refresh loop.
func (c *Client) Keys() *KeySet { return c.keys }

// ClientIDFor returns the registered broker client for a transport: the
// native app registers separately from the web frontends.
func (c *Client) ClientIDFor(native bool) string {
	if native {
		return c.cfg.AppClientID
	}
	return c.cfg.WebClientID
}

// AuthorizeURL builds the broker authorization URL for the redirect leg.
// acrHint selects the BankID method (same-device vs cross-device QR);
// redirectURI must be the exact callback URL later presented at exchange.
func (c *Client) AuthorizeURL(clientID, redirectURI, state, acrHint string) string {
	params := url.Values{
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"response_type": {"code"},
		"scope":         {strings.Join(c.cfg.Scopes, " ")},
		"state":         {state},
		"acr_values":    {acrHint},
	}
	return c.authorizeURL + "?" + params.Encode()
}

// tokenResponse is the broker token endpoint payload.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Exchange trades an authorization code for the broker-issued identity
// token. redirectURI must byte-match the one used at initiation. The raw
// identity token is returned unverified; callers must pass it through
// VerifyIdentityToken before trusting any claim.
func (c *Client) Exchange(ctx context.Context, code, clientID, redirectURI string) (string, error) {
	if !c.Enabled() {
		return "", dErrors.New(dErrors.CodeUnavailable, "identity broker is not configured")
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "broker.exchange")
	defer span.End()
	span.SetAttributes(attribute.String("broker.client_id", clientID))

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {clientID},
		"client_secret": {c.cfg.ClientSecret},
		"redirect_uri":  {redirectURI},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return "", dErrors.Wrap(dErrors.CodeBadGateway, "identity broker timed out", err)
		}
		return "", dErrors.Wrap(dErrors.CodeBadGateway, "identity broker unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeBadGateway, "reading broker response failed", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", dErrors.New(dErrors.CodeBadGateway,
			fmt.Sprintf("code exchange rejected by broker (status %d)", resp.StatusCode))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", dErrors.Wrap(dErrors.CodeBadGateway, "malformed broker token response", err)
	}
	if tr.IDToken == "" {
		return "", dErrors.New(dErrors.CodeBadGateway, "broker response is missing the identity token")
	}
	return tr.IDToken, nil
}
