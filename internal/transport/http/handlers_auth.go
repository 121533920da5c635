package httptransport

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"caregate/internal/account"
	"caregate/internal/account/store"
	"caregate/internal/auth/models"
	"caregate/internal/clienttype"
	dErrors "caregate/pkg/domain-errors"
	"caregate/pkg/platform/sentinel"
	"caregate/pkg/requestcontext"
)

// AuthService is the login flow surface the handlers delegate to.
type AuthService interface {
	Initiate(ctx context.Context, ct clienttype.ClientType, redirectURI string) (*models.LoginRedirect, error)
	Callback(ctx context.Context, req *models.CallbackRequest) (*models.LoginResult, error)
	NativeLogin(ctx context.Context, rawIDToken string) (*models.LoginResult, error)
	Logout(ctx context.Context, rawToken string)
	SessionTTL() time.Duration
}

// AuthHandler is the thin HTTP layer over the auth service. It owns cookies,
// redirects and JSON shapes; the service owns the flow.
type AuthHandler struct {
	auth        AuthService
	accounts    store.Store
	cookies     CookieConfig
	frontendURL string
}

// NewAuthHandler constructs the auth handlers.
func NewAuthHandler(auth AuthService, accounts store.Store, cookies CookieConfig, frontendURL string) *AuthHandler {
	return &AuthHandler{
		auth:        auth,
		accounts:    accounts,
		cookies:     cookies,
		frontendURL: frontendURL,
	}
}

// handleLoginRedirect starts the browser login. The state cookie is set
// before the redirect response goes out; a callback can then always be
// matched against its initiation.
func (h *AuthHandler) handleLoginRedirect(w http.ResponseWriter, r *http.Request) {
	ct := clientTypeFrom(r)

	res, err := h.auth.Initiate(r.Context(), ct, callbackURL(r))
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.setState(w, res.State, ct)
	http.Redirect(w, r, res.URL, http.StatusFound)
}

// handleNativeLogin is the non-redirect entry point. Restricted to clients
// declaring themselves native-app; the broker identity token arrives as a
// bearer credential.
func (h *AuthHandler) handleNativeLogin(w http.ResponseWriter, r *http.Request) {
	if ct, ok := clienttype.Parse(r.Header.Get(clienttype.Header)); !ok || ct != clienttype.NativeApp {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "native login requires the app client type"))
		return
	}

	rawIDToken, ok := bearerToken(r)
	if !ok {
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "missing broker identity token"))
		return
	}

	res, err := h.auth.NativeLogin(r.Context(), rawIDToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":     res.Token,
		"expiresAt": res.ExpiresAt.UTC().Format(time.RFC3339),
		"user":      userBody(res.Account),
	})
}

// handleCallback is the broker redirect target. The state cookie is cleared
// unconditionally — before the outcome is even known — so a nonce can never
// be replayed. Protocol-level failures (bad state, missing code, broker
// rejection) return JSON 400; server-side failures send the browser back to
// the frontend with an error indicator instead of stranding it on a JSON
// page.
func (h *AuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	params := callbackParams(r)
	storedState, initiating := parseStateCookie(cookieValue(r, cookieState))
	h.cookies.clear(w, cookieState)

	req := &models.CallbackRequest{
		Code:             params.Get("code"),
		State:            params.Get("state"),
		StoredState:      storedState,
		ErrorParam:       params.Get("error"),
		ErrorDescription: params.Get("error_description"),
		RedirectURI:      callbackURL(r),
		ClientType:       clientTypeFrom(r),
		InitiatingClient: initiating,
	}

	res, err := h.auth.Callback(r.Context(), req)
	if err != nil {
		switch dErrors.CodeOf(err) {
		case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
			writeError(w, err)
		default:
			h.redirectFrontend(w, r, url.Values{
				"login":  {"error"},
				"reason": {string(dErrors.CodeOf(err))},
			})
		}
		return
	}

	ttl := h.auth.SessionTTL()
	h.cookies.setSession(w, res.Token, ttl)
	h.cookies.setCSRF(w, res.CSRFToken, ttl)

	indicator := "success"
	if res.IsNew {
		indicator = "welcome"
	}
	h.redirectFrontend(w, r, url.Values{"login": {indicator}})
}

// handleMe reports the authenticated identity. RequireSession has already
// verified the credential; this only materializes the account for display.
func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(requestcontext.AccountID(ctx))
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, "invalid_or_expired_token", "Invalid session subject")
		return
	}

	acc, err := h.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			writeAuthError(w, http.StatusUnauthorized, "not_authenticated", "Account no longer exists")
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          userBody(acc),
		"csrfToken":     cookieValue(r, cookieCSRF),
	})
}

// handleLogout clears the browser cookies and best-effort revokes the
// credential. Always 200: logging out an already-dead session is success.
func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	raw, _ := extractCredential(r, clientTypeFrom(r))
	h.auth.Logout(r.Context(), raw)

	h.cookies.clear(w, cookieSession, cookieCSRF)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AuthHandler) redirectFrontend(w http.ResponseWriter, r *http.Request, params url.Values) {
	http.Redirect(w, r, h.frontendURL+"?"+params.Encode(), http.StatusFound)
}

// callbackParams merges the broker parameters from query or form body; the
// broker may use either binding for the redirect leg.
func callbackParams(r *http.Request) url.Values {
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err == nil && len(r.PostForm) > 0 {
			return r.PostForm
		}
	}
	return r.URL.Query()
}

// callbackURL derives the callback from the request host so one deployment
// can serve several domains. The same value must be presented again at code
// exchange.
func callbackURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + "/callback"
}

func bearerToken(r *http.Request) (string, bool) {
	return strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func userBody(acc *account.Account) map[string]any {
	return map[string]any{
		"id":   acc.ID.String(),
		"name": acc.Name,
		"role": string(acc.Role),
	}
}
