// Package auth resolves bearer credentials to platform user identities.
//
// Two credential kinds are accepted: session tokens (HS256 JWTs issued at
// login) and static API keys (cfk_-prefixed strings stored in the
// user_settings table). Session verification is tried first; any failure
// falls through to the API key lookup.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/callforge/callforge/internal/database"
)

// APIKeyPrefix marks static API keys. Credentials without this prefix are
// never matched against the settings table.
const APIKeyPrefix = "cfk_"

// sessionTokenTTL is the lifetime of an issued session token.
const sessionTokenTTL = 7 * 24 * time.Hour

// ErrUnauthenticated is returned when a credential resolves to no user.
// Endpoints receiving it must reject the request without mutating anything.
var ErrUnauthenticated = errors.New("unauthenticated")

// SessionClaims holds the JWT claims for a login session.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Resolver maps bearer credentials to user IDs.
type Resolver struct {
	secret   []byte
	settings database.UserSettingRepository
}

// NewResolver creates a Resolver with the given JWT signing secret and
// settings repository for API key lookups.
func NewResolver(secret []byte, settings database.UserSettingRepository) *Resolver {
	return &Resolver{secret: secret, settings: settings}
}

// IssueToken creates a signed session token for the given user.
func (r *Resolver) IssueToken(userID, email string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(sessionTokenTTL)

	claims := SessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "callforge",
			Subject:   userID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Resolve determines the user identity behind a bearer credential. The
// optional "Bearer " scheme prefix is stripped. Session token verification
// is attempted first; on any failure the raw credential is matched as an
// API key. Returns ErrUnauthenticated when neither path yields a user,
// including when the settings lookup itself fails, so a store outage never
// lets a request through.
func (r *Resolver) Resolve(ctx context.Context, credential string) (string, error) {
	token := strings.TrimSpace(credential)
	if after, ok := strings.CutPrefix(token, "Bearer "); ok {
		token = after
	}
	if token == "" {
		return "", ErrUnauthenticated
	}

	if userID := r.verifySessionToken(token); userID != "" {
		return userID, nil
	}

	if strings.HasPrefix(token, APIKeyPrefix) {
		userID, err := r.settings.FindUserByAPIKey(ctx, token)
		if err == nil && userID != "" {
			return userID, nil
		}
	}

	return "", ErrUnauthenticated
}

// verifySessionToken parses and validates a session JWT, returning the
// subject user ID or the empty string on any failure.
func (r *Resolver) verifySessionToken(tokenString string) string {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return ""
	}
	return claims.Subject
}
