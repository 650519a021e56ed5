package session

import (
	"context"
	"testing"
	"time"

	"github.com/mbd888/botdesk/internal/bots"
	"github.com/mbd888/botdesk/internal/plan"
	"github.com/mbd888/botdesk/internal/quota"
	"github.com/mbd888/botdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_RoundTrip(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	s := NewPostgresStore(db)

	_, err := s.Get(ctx, "alice")
	require.ErrorIs(t, err, ErrSessionNotFound)

	st := NewState("alice", plan.Premium)
	st, _, err = CreateBot(st, CreateBotRequest{Name: "Support", Tone: ptr(bots.ToneFormal)}, "a", testNow)
	require.NoError(t, err)
	st = mustCreate(t, st, "b", "Sales")
	st.Counters.MonthlyMessagesUsed = 12
	st.Counters.URLPagesUsed = 3
	st.Version = 1
	st.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, s.Save(ctx, &st, 0))

	got, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, st.Counters, got.Counters)
	assert.Equal(t, int64(1), got.Version)
	require.Equal(t, 2, got.Bots.Len())
	active, ok := got.BotConfig()
	require.True(t, ok)
	assert.Equal(t, "a", active.ID)
	assert.Equal(t, bots.ToneFormal, active.Tone)
}

func TestPostgresStore_VersionConflict(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	s := NewPostgresStore(db)

	st := NewState("alice", plan.Free)
	st.Version = 1
	st.UpdatedAt = time.Now()
	require.NoError(t, s.Save(ctx, &st, 0))
	assert.ErrorIs(t, s.Save(ctx, &st, 0), ErrVersionConflict)

	next := st
	next.Version = 2
	assert.ErrorIs(t, s.Save(ctx, &next, 7), ErrVersionConflict)
	require.NoError(t, s.Save(ctx, &next, 1))

	ids, err := s.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, ids)
}

func TestService_WithPostgresStore(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	svc := NewService(NewPostgresStore(db), nil)

	snap, err := svc.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.UserTier.BotsCreated)

	_, _, err = svc.CreateBot(ctx, "alice", CreateBotRequest{Name: "Second"})
	assert.ErrorIs(t, err, quota.ErrQuotaExceeded)
}
