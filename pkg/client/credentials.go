package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CredentialProvider yields the bearer token for a request.
// An empty token means the request is sent without an Authorization header.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is an immutable credential.
type StaticToken string

// Token returns the token unchanged.
func (t StaticToken) Token(context.Context) (string, error) {
	return strings.TrimSpace(string(t)), nil
}

// CredentialFunc adapts a function to CredentialProvider.
type CredentialFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f CredentialFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// TokenInfo is the display-only view of a bearer token's claims.
type TokenInfo struct {
	Subject   string
	Username  string
	Name      string
	Email     string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry that has passed.
func (t *TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// ParseTokenInfo decodes a JWT's claims without verifying the signature.
// The backend remains the authority; this is only used to show who is signed in.
func ParseTokenInfo(token string) (*TokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(token), claims); err != nil {
		return nil, fmt.Errorf("compliscan: parse token: %w", err)
	}

	info := &TokenInfo{}
	info.Subject, _ = claims.GetSubject()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		info.IssuedAt = iat.Time
	}
	info.Username = stringClaim(claims, "username", "preferred_username", "cognito:username")
	info.Name = stringClaim(claims, "name")
	info.Email = stringClaim(claims, "email")

	if raw, ok := claims["roles"].([]any); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				info.Roles = append(info.Roles, s)
			}
		}
	}
	return info, nil
}

func stringClaim(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if s, ok := claims[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
