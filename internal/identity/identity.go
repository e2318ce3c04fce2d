// Package identity resolves who is calling and what they may do.
package identity

import (
	"context"
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/segyhp/layaway-engine/internal/domain"
)

// Capability names an operation class checked once per route.
type Capability string

const (
	CapPlansWrite    Capability = "plans:write"
	CapPaymentsWrite Capability = "payments:write"
	CapPlansCancel   Capability = "plans:cancel"
	CapPlansPurge    Capability = "plans:purge"
	CapPlansRead     Capability = "plans:read"
	CapReportsRead   Capability = "reports:read"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Authorizer decides whether an actor holds a capability.
type Authorizer interface {
	Can(actor domain.Actor, capability Capability) bool
}

// RoleAuthorizer grants capabilities by role.
type RoleAuthorizer struct {
	grants map[string]map[Capability]bool
}

func NewRoleAuthorizer() *RoleAuthorizer {
	all := map[Capability]bool{
		CapPlansWrite:    true,
		CapPaymentsWrite: true,
		CapPlansCancel:   true,
		CapPlansPurge:    true,
		CapPlansRead:     true,
		CapReportsRead:   true,
	}
	return &RoleAuthorizer{grants: map[string]map[Capability]bool{
		RoleAdmin: all,
		RoleCashier: {
			CapPlansWrite:    true,
			CapPaymentsWrite: true,
			CapPlansCancel:   true,
			CapPlansRead:     true,
			CapReportsRead:   true,
		},
	}}
}

func (a *RoleAuthorizer) Can(actor domain.Actor, capability Capability) bool {
	if actor.ID == "" {
		return false
	}
	return a.grants[actor.Role][capability]
}

type claims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

// Tokens signs and verifies HS256 bearer tokens carrying the actor.
type Tokens struct {
	secret []byte
	issuer string
}

func NewTokens(secret, issuer string) *Tokens {
	return &Tokens{secret: []byte(secret), issuer: issuer}
}

func (t *Tokens) Sign(actor domain.Actor, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	c := claims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    t.issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
		Role: actor.Role,
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, c).SignedString(t.secret)
}

func (t *Tokens) Parse(tokenStr string) (domain.Actor, error) {
	c := &claims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, c, func(tok *jwtlib.Token) (interface{}, error) {
		return t.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(t.issuer))
	if err != nil || !token.Valid {
		return domain.Actor{}, ErrInvalidToken
	}
	sub, err := c.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, ErrInvalidToken
	}
	return domain.Actor{ID: sub, Role: c.Role}, nil
}

type actorKey struct{}

// WithActor stores the authenticated actor for handlers downstream.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}
