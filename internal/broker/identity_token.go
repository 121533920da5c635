package broker

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"caregate/internal/identity"
	dErrors "caregate/pkg/domain-errors"
)

// identityTokenClaims is the broker identity token payload we consume. The
// broker surfaces the BankID-verified personnummer in the "ssn" claim.
type identityTokenClaims struct {
	SSN        string `json:"ssn"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	jwt.RegisteredClaims
}

// VerifyIdentityToken validates a broker-issued identity token — signature
// against the broker JWKS, issuer, audience, expiry — and extracts identity
// claims. No claim is trusted before the signature checks out; an unverified
// decode would be forgeable by anyone who can reach the callback endpoint.
func (c *Client) VerifyIdentityToken(ctx context.Context, rawToken, audience string) (identity.Claims, error) {
	if !c.Enabled() {
		return identity.Claims{}, dErrors.New(dErrors.CodeUnavailable, "identity broker is not configured")
	}

	parsed, err := jwt.ParseWithClaims(rawToken, &identityTokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		kid, _ := t.Header["kid"].(string)
		return c.keys.Key(ctx, kid)
	},
		jwt.WithIssuer(c.keys.issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{"RS256"}),
	)
	if err != nil {
		return identity.Claims{}, dErrors.Wrap(dErrors.CodeUnauthorized, "identity token verification failed", err)
	}

	claims, ok := parsed.Claims.(*identityTokenClaims)
	if !ok || !parsed.Valid {
		return identity.Claims{}, dErrors.New(dErrors.CodeUnauthorized, "identity token verification failed")
	}

	return identity.Claims{
		Subject:        claims.Subject,
		PersonalNumber: claims.SSN,
		Name:           claims.Name,
		GivenName:      claims.GivenName,
		FamilyName:     claims.FamilyName,
	}, nil
}
