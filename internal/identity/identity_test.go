package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/layaway-engine/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestRoleAuthorizer(t *testing.T) {
	authz := NewRoleAuthorizer()

	tests := []struct {
		name     string
		actor    domain.Actor
		cap      Capability
		expected bool
	}{
		{name: "cashier records payments", actor: domain.Actor{ID: "u1", Role: RoleCashier}, cap: CapPaymentsWrite, expected: true},
		{name: "cashier cannot purge", actor: domain.Actor{ID: "u1", Role: RoleCashier}, cap: CapPlansPurge, expected: false},
		{name: "admin purges", actor: domain.Actor{ID: "u2", Role: RoleAdmin}, cap: CapPlansPurge, expected: true},
		{name: "unknown role", actor: domain.Actor{ID: "u3", Role: "guest"}, cap: CapPlansRead, expected: false},
		{name: "anonymous", actor: domain.Actor{Role: RoleAdmin}, cap: CapPlansRead, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, authz.Can(tt.actor, tt.cap))
		})
	}
}

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens(testSecret, "layaway-engine")
	actor := domain.Actor{ID: "cashier-7", Role: RoleCashier}

	signed, err := tokens.Sign(actor, time.Hour)
	require.NoError(t, err)

	got, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, actor, got)
}

func TestTokens_Rejects(t *testing.T) {
	tokens := NewTokens(testSecret, "layaway-engine")
	actor := domain.Actor{ID: "cashier-7", Role: RoleCashier}

	expired, err := tokens.Sign(actor, -time.Minute)
	require.NoError(t, err)
	_, err = tokens.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherIssuer, err := NewTokens(testSecret, "someone-else").Sign(actor, time.Hour)
	require.NoError(t, err)
	_, err = tokens.Parse(otherIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongKey, err := NewTokens("ffffffffffffffffffffffffffffffff", "layaway-engine").Sign(actor, time.Hour)
	require.NoError(t, err)
	_, err = tokens.Parse(wrongKey)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestActorContext(t *testing.T) {
	_, ok := ActorFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithActor(context.Background(), domain.Actor{ID: "a", Role: RoleAdmin})
	actor, ok := ActorFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "a", actor.ID)
}
