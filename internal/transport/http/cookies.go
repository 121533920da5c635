package httptransport

import (
	"net/http"
	"strings"
	"time"

	"caregate/internal/clienttype"
)

// Cookie names. session_token is the httpOnly credential carrier for browser
// transports; csrf_token must stay script-readable for the double-submit
// echo; oauth_state pins a login initiation to its callback.
const (
	cookieSession = "session_token"
	cookieCSRF    = "csrf_token"
	cookieState   = "oauth_state"
)

// stateCookieTTL bounds an abandoned login attempt. The nonce is single-use
// and consumed at callback; expiry only matters for flows that never return.
const stateCookieTTL = 10 * time.Minute

// CookieConfig carries the deployment-specific cookie attributes.
type CookieConfig struct {
	Domain string
	Secure bool
}

func (c CookieConfig) setSession(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieSession,
		Value:    token,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieConfig) setCSRF(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieCSRF,
		Value:    token,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: false, // double-submit: client script echoes this in a header
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// setState pins the login initiation to its callback: the nonce for the
// anti-forgery check, and the initiating client type so the code exchange
// reuses the broker client the authorize URL was built with.
func (c CookieConfig) setState(w http.ResponseWriter, nonce string, ct clienttype.ClientType) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieState,
		Value:    nonce + "." + string(ct),
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieConfig) clear(w http.ResponseWriter, names ...string) {
	for _, name := range names {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   c.Domain,
			MaxAge:   -1,
			HttpOnly: name != cookieCSRF,
			Secure:   c.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// parseStateCookie splits a stored state value back into the nonce and the
// recorded initiating client. The nonce alphabet is dot-free, so the first
// dot is the separator. A missing or unknown suffix falls back to web.
func parseStateCookie(value string) (string, clienttype.ClientType) {
	nonce, suffix, found := strings.Cut(value, ".")
	if found {
		if ct, ok := clienttype.FromString(suffix); ok {
			return nonce, ct
		}
	}
	return nonce, clienttype.Web
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
