// Package service drives the login flow: initiation against the identity
// broker, callback verification, code exchange, identity resolution and
// session issuance. Transport concerns (cookies, redirects, JSON) stay in
// the HTTP layer.
package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"caregate/internal/audit"
	"caregate/internal/auth/models"
	"caregate/internal/broker"
	"caregate/internal/clienttype"
	"caregate/internal/identity"
	"caregate/internal/platform/metrics"
	"caregate/internal/token"
	dErrors "caregate/pkg/domain-errors"
	"caregate/pkg/requestcontext"
)

// Revoker invalidates issued session credentials by jti. Nil-safe: without a
// configured denylist, logout degrades to cookie clearing only.
type Revoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

// Broker is the identity broker surface the service needs. Satisfied by
// *broker.Client; narrowed to an interface so tests can fake the broker
// without HTTP.
type Broker interface {
	Enabled() bool
	ClientIDFor(native bool) string
	AuthorizeURL(clientID, redirectURI, state, acrHint string) string
	Exchange(ctx context.Context, code, clientID, redirectURI string) (string, error)
	VerifyIdentityToken(ctx context.Context, rawToken, audience string) (identity.Claims, error)
}

// Service composes the auth core. All fields are set at construction and
// never mutated; the service is safe for concurrent use.
type Service struct {
	broker   Broker
	resolver *identity.Resolver
	codec    *token.Codec
	revoker  Revoker
	audit    *audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New constructs the auth service. revoker may be nil.
func New(
	b Broker,
	resolver *identity.Resolver,
	codec *token.Codec,
	revoker Revoker,
	auditor *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		broker:   b,
		resolver: resolver,
		codec:    codec,
		revoker:  revoker,
		audit:    auditor,
		metrics:  m,
		logger:   logger,
	}
}

var _ Broker = (*broker.Client)(nil)

// Initiate starts a browser login: mints the anti-forgery state nonce and
// builds the broker authorization URL with the client-type-appropriate
// BankID hint. The transport must set the state cookie before redirecting.
func (s *Service) Initiate(ctx context.Context, ct clienttype.ClientType, redirectURI string) (*models.LoginRedirect, error) {
	if !s.broker.Enabled() {
		return nil, dErrors.New(dErrors.CodeUnavailable, "identity broker is not configured")
	}

	state, err := newNonce()
	if err != nil {
		return nil, fmt.Errorf("generate state nonce: %w", err)
	}

	s.metrics.LoginsStarted.WithLabelValues(string(ct)).Inc()
	s.audit.Emit(ctx, audit.Event{
		Action:     audit.ActionLoginInitiated,
		ClientType: string(ct),
		Outcome:    "ok",
		RequestID:  requestcontext.RequestID(ctx),
	})

	url := s.broker.AuthorizeURL(s.broker.ClientIDFor(ct == clienttype.NativeApp), redirectURI, state, ct.BrokerHint())
	return &models.LoginRedirect{URL: url, State: state}, nil
}

// Callback completes the redirect leg: nonce check, broker error surfacing,
// code exchange, identity token verification, account resolution, session
// issuance. The nonce check happens before anything else — a code is never
// exchanged without a validated state.
func (s *Service) Callback(ctx context.Context, req *models.CallbackRequest) (*models.LoginResult, error) {
	if req.StoredState == "" || req.State == "" ||
		subtle.ConstantTimeCompare([]byte(req.StoredState), []byte(req.State)) != 1 {
		s.loginFailed(ctx, req.ClientType, "invalid_state")
		return nil, dErrors.New(dErrors.CodeBadRequest, "Invalid state parameter")
	}

	if req.ErrorParam != "" {
		s.loginFailed(ctx, req.ClientType, req.ErrorParam)
		msg := "authentication rejected by identity broker: " + req.ErrorParam
		if req.ErrorDescription != "" {
			msg += " (" + req.ErrorDescription + ")"
		}
		return nil, dErrors.New(dErrors.CodeBadRequest, msg)
	}

	if req.Code == "" {
		s.loginFailed(ctx, req.ClientType, "missing_code")
		return nil, dErrors.New(dErrors.CodeBadRequest, "missing authorization code")
	}

	// The exchange and the audience check must use the client the authorize
	// URL was built with, or the broker rejects the code outright.
	clientID := s.broker.ClientIDFor(req.InitiatingClient == clienttype.NativeApp)

	start := time.Now()
	rawIDToken, err := s.broker.Exchange(ctx, req.Code, clientID, req.RedirectURI)
	s.metrics.BrokerExchangeMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		s.loginFailed(ctx, req.ClientType, string(dErrors.CodeOf(err)))
		return nil, err
	}

	claims, err := s.broker.VerifyIdentityToken(ctx, rawIDToken, clientID)
	if err != nil {
		s.loginFailed(ctx, req.ClientType, "identity_token_rejected")
		return nil, err
	}

	return s.issueSession(ctx, claims, req.ClientType)
}

// NativeLogin is the non-redirect entry point for the native app: the client
// obtained a broker identity token itself and presents it as a bearer
// credential. Verification is identical to the callback path; no CSRF token
// is minted because bearer transport is outside the browser forgery model.
func (s *Service) NativeLogin(ctx context.Context, rawIDToken string) (*models.LoginResult, error) {
	if !s.broker.Enabled() {
		return nil, dErrors.New(dErrors.CodeUnavailable, "identity broker is not configured")
	}

	claims, err := s.broker.VerifyIdentityToken(ctx, rawIDToken, s.broker.ClientIDFor(true))
	if err != nil {
		s.loginFailed(ctx, clienttype.NativeApp, "identity_token_rejected")
		return nil, err
	}

	result, err := s.issueSession(ctx, claims, clienttype.NativeApp)
	if err != nil {
		return nil, err
	}
	result.CSRFToken = ""
	return result, nil
}

// Logout best-effort revokes the presented credential. Never fails the
// request: an invalid or absent token still results in cleared cookies and a
// 200 at the transport layer.
func (s *Service) Logout(ctx context.Context, rawToken string) {
	if rawToken == "" {
		return
	}

	claims, err := s.codec.Verify(rawToken)
	if err != nil {
		return
	}

	if s.revoker != nil && claims.ID != "" && claims.ExpiresAt != nil {
		remaining := time.Until(claims.ExpiresAt.Time)
		if err := s.revoker.RevokeToken(ctx, claims.ID, remaining); err != nil {
			s.logger.WarnContext(ctx, "failed to revoke session credential",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}

	s.audit.Emit(ctx, audit.Event{
		Action:    audit.ActionLogout,
		AccountID: claims.Subject,
		Role:      claims.Role,
		Outcome:   "ok",
		RequestID: requestcontext.RequestID(ctx),
	})
}

// issueSession resolves the verified identity to a durable account and mints
// the session credential. The resolver's write completes before issuance;
// a failed write fails the whole attempt.
func (s *Service) issueSession(ctx context.Context, claims identity.Claims, ct clienttype.ClientType) (*models.LoginResult, error) {
	acc, isNew, err := s.resolver.Resolve(ctx, claims)
	if err != nil {
		s.loginFailed(ctx, ct, string(dErrors.CodeOf(err)))
		return nil, err
	}

	cred, err := s.codec.Issue(acc.ID, string(acc.Role), requestcontext.Now(ctx))
	if err != nil {
		s.loginFailed(ctx, ct, "issue_failed")
		return nil, fmt.Errorf("issue session credential: %w", err)
	}

	csrfToken, err := newNonce()
	if err != nil {
		return nil, fmt.Errorf("generate csrf token: %w", err)
	}

	if isNew {
		s.metrics.AccountsCreated.Inc()
		s.audit.Emit(ctx, audit.Event{
			Action:    audit.ActionAccountCreated,
			AccountID: acc.ID.String(),
			Role:      string(acc.Role),
			Outcome:   "ok",
			RequestID: requestcontext.RequestID(ctx),
		})
	}
	s.metrics.LoginsCompleted.WithLabelValues(string(ct)).Inc()
	s.audit.Emit(ctx, audit.Event{
		Action:     audit.ActionLoginSucceeded,
		AccountID:  acc.ID.String(),
		Role:       string(acc.Role),
		ClientType: string(ct),
		Outcome:    "ok",
		RequestID:  requestcontext.RequestID(ctx),
	})

	return &models.LoginResult{
		Token:     cred.Token,
		TokenID:   cred.JTI,
		ExpiresAt: cred.ExpiresAt,
		CSRFToken: csrfToken,
		Account:   acc,
		IsNew:     isNew,
	}, nil
}

func (s *Service) loginFailed(ctx context.Context, ct clienttype.ClientType, reason string) {
	s.metrics.LoginsFailed.WithLabelValues(reason).Inc()
	s.audit.Emit(ctx, audit.Event{
		Action:     audit.ActionLoginFailed,
		ClientType: string(ct),
		Outcome:    "failed",
		Reason:     reason,
		RequestID:  requestcontext.RequestID(ctx),
	})
}

// newNonce returns a 256-bit URL-safe random value, used for both the OAuth
// state nonce and the CSRF token.
func newNonce() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// SessionTTL exposes the configured credential lifetime to the transport for
// cookie Max-Age.
func (s *Service) SessionTTL() time.Duration {
	return s.codec.TTL()
}
