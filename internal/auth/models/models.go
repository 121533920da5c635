// Package models holds the request/result shapes exchanged between the auth
// service and its transport layer. Cookie mechanics stay in transport; the
// service sees plain values.
package models

import (
	"time"

	"caregate/internal/account"
	"caregate/internal/clienttype"
)

// LoginRedirect is the outcome of a login initiation: where to send the
// browser, and the anti-forgery state the transport must pin in a cookie
// before issuing the redirect.
type LoginRedirect struct {
	URL   string
	State string
}

// CallbackRequest carries the broker redirect parameters plus the state
// nonce the transport recovered from the cookie. StoredState empty means the
// cookie was missing — which must reject, never silently pass.
//
// InitiatingClient is the client type recorded when the login started, not
// the one detected on the callback request: the code must be exchanged under
// the same broker client ID the authorize URL was built with, and the
// callback leg often arrives without the initiator's headers.
type CallbackRequest struct {
	Code             string
	State            string
	StoredState      string
	ErrorParam       string
	ErrorDescription string
	RedirectURI      string
	ClientType       clienttype.ClientType
	InitiatingClient clienttype.ClientType
}

// LoginResult is a completed authentication: the session credential, the
// CSRF token for browser transports (empty for native logins), and the
// resolved account.
type LoginResult struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
	CSRFToken string
	Account   *account.Account
	IsNew     bool
}
