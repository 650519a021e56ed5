package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/mbd888/botdesk/internal/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUserID(t *testing.T) {
	id, err := NormalizeUserID("  alice ")
	require.NoError(t, err)
	assert.Equal(t, "alice", id)

	_, err = NormalizeUserID("   ")
	assert.ErrorIs(t, err, ErrNoUserID)

	_, err = NormalizeUserID("has space")
	assert.ErrorIs(t, err, ErrInvalidUserID)

	_, err = NormalizeUserID(strings.Repeat("x", maxUserIDLen+1))
	assert.ErrorIs(t, err, ErrInvalidUserID)
}

func TestMemoryDirectory_DefaultPlan(t *testing.T) {
	d := NewMemoryDirectory(plan.Free)
	p, err := d.PlanFor(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, plan.Free, p)
}

func TestMemoryDirectory_SetPlan(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDirectory(plan.Free)

	require.NoError(t, d.SetPlan(ctx, "alice", plan.Premium))
	p, err := d.PlanFor(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, plan.Premium, p)

	other, _ := d.PlanFor(ctx, "bob")
	assert.Equal(t, plan.Free, other)
}

func TestMemoryDirectory_RejectsUnknownPlan(t *testing.T) {
	d := NewMemoryDirectory(plan.Free)
	err := d.SetPlan(context.Background(), "alice", plan.Plan("enterprise"))
	assert.ErrorIs(t, err, plan.ErrUnknownPlan)
}
