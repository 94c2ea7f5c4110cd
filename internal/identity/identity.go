// Package identity provides bearer-token authentication and role-based
// access control for the HTTP surface. Actors are extracted from signed
// JWTs and carried through the request context.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the coarse permission level carried by an actor.
type Role string

// Known roles.
const (
	RoleAuthor   Role = "author"
	RoleReviewer Role = "reviewer"
	RoleEditor   Role = "editor"
	RoleAdmin    Role = "admin"
)

// IsValid returns true for a recognized role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAuthor, RoleReviewer, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated principal making a request.
type Actor struct {
	ID    string
	Role  Role
	Email string
}

// Is reports whether the actor holds any of the given roles.
// Admin passes every role check.
func (a Actor) Is(roles ...Role) bool {
	if a.Role == RoleAdmin {
		return true
	}
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// Claims is the JWT payload carried by access tokens.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Sentinel errors for token verification.
var (
	ErrMissingToken = errors.New("identity: missing bearer token")
	ErrInvalidToken = errors.New("identity: invalid or expired token")
)

// Verifier parses and validates access tokens.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a token verifier for the given signing secret and issuer.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses the token string and returns the actor it asserts.
func (v *Verifier) Verify(tokenString string) (*Actor, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithValidMethods([]string{"HS256"}))

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	role := Role(claims.Role)
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	return &Actor{
		ID:    claims.Subject,
		Role:  role,
		Email: claims.Email,
	}, nil
}

// IssueToken signs a token for the given actor. Used by tests and tooling;
// production tokens come from the identity provider.
func IssueToken(secret, issuer string, actor Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: actor.Email,
		Role:  string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// actorContextKey is the context key type for the authenticated actor.
type actorContextKey struct{}

// WithActor returns a context carrying the authenticated actor.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the authenticated actor, or nil if unauthenticated.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*Actor)
	return actor
}
