package broker_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caregate/internal/broker"
	"caregate/internal/platform/config"
	dErrors "caregate/pkg/domain-errors"
)

func brokerConfig(domain string) config.BrokerConfig {
	return config.BrokerConfig{
		Domain:          domain,
		WebClientID:     "web-client",
		AppClientID:     "app-client",
		ClientSecret:    "secret",
		Scopes:          []string{"openid", "profile"},
		ExchangeTimeout: 5 * time.Second,
		JWKSRefresh:     time.Minute,
	}
}

func TestClient_Enabled(t *testing.T) {
	assert.True(t, broker.New(brokerConfig("https://broker.example.com")).Enabled())
	assert.False(t, broker.New(config.BrokerConfig{}).Enabled())
}

func TestClient_ClientIDFor(t *testing.T) {
	c := broker.New(brokerConfig("https://broker.example.com"))

	assert.Equal(t, "web-client", c.ClientIDFor(false))
	assert.Equal(t, "app-client", c.ClientIDFor(true))
}

func TestClient_AuthorizeURL(t *testing.T) {
	c := broker.New(brokerConfig("https://broker.example.com"))

	raw := c.AuthorizeURL("web-client", "https://app.example.com/callback", "state-nonce",
		"urn:grn:authn:se:bankid:another-device:qr")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/oauth2/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "web-client", q.Get("client_id"))
	assert.Equal(t, "https://app.example.com/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "openid profile", q.Get("scope"))
	assert.Equal(t, "state-nonce", q.Get("state"))
	assert.Equal(t, "urn:grn:authn:se:bankid:another-device:qr", q.Get("acr_values"))
}

func TestClient_ExchangeSuccess(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth2/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id_token":"raw-identity-token","access_token":"at","token_type":"Bearer","expires_in":300}`))
	}))
	defer srv.Close()

	c := broker.New(brokerConfig(srv.URL))

	idToken, err := c.Exchange(context.Background(), "auth-code", "web-client", "https://app.example.com/callback")
	require.NoError(t, err)
	assert.Equal(t, "raw-identity-token", idToken)

	assert.Equal(t, "authorization_code", gotForm.Get("grant_type"))
	assert.Equal(t, "auth-code", gotForm.Get("code"))
	assert.Equal(t, "web-client", gotForm.Get("client_id"))
	assert.Equal(t, "secret", gotForm.Get("client_secret"))
	assert.Equal(t, "https://app.example.com/callback", gotForm.Get("redirect_uri"))
}

func TestClient_ExchangeBrokerRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := broker.New(brokerConfig(srv.URL))

	_, err := c.Exchange(context.Background(), "expired-code", "web-client", "https://app.example.com/callback")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeBadGateway, dErrors.CodeOf(err))
}

func TestClient_ExchangeMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := broker.New(brokerConfig(srv.URL))

	_, err := c.Exchange(context.Background(), "code", "web-client", "https://app.example.com/callback")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeBadGateway, dErrors.CodeOf(err))
}

func TestClient_ExchangeMissingIDToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"at"}`))
	}))
	defer srv.Close()

	c := broker.New(brokerConfig(srv.URL))

	_, err := c.Exchange(context.Background(), "code", "web-client", "https://app.example.com/callback")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeBadGateway, dErrors.CodeOf(err))
}

func TestClient_ExchangeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := brokerConfig(srv.URL)
	cfg.ExchangeTimeout = 50 * time.Millisecond
	c := broker.New(cfg)

	_, err := c.Exchange(context.Background(), "code", "web-client", "https://app.example.com/callback")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeBadGateway, dErrors.CodeOf(err))
}

func TestClient_ExchangeUnreachable(t *testing.T) {
	c := broker.New(brokerConfig("http://127.0.0.1:1"))

	_, err := c.Exchange(context.Background(), "code", "web-client", "https://app.example.com/callback")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeBadGateway, dErrors.CodeOf(err))
}

func TestClient_ExchangeUnconfigured(t *testing.T) {
	c := broker.New(config.BrokerConfig{})

	_, err := c.Exchange(context.Background(), "code", "web-client", "https://app.example.com/callback")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeUnavailable, dErrors.CodeOf(err))
}
