package session

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/mbd888/botdesk/internal/bots"
	"github.com/mbd888/botdesk/internal/plan"
	"github.com/mbd888/botdesk/internal/quota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func mustCreate(t *testing.T, st State, id, name string) State {
	t.Helper()
	next, _, err := CreateBot(st, CreateBotRequest{Name: name}, id, testNow)
	require.NoError(t, err)
	return next
}

func activeCount(st State) int {
	n := 0
	for _, b := range st.AllBots() {
		if b.IsActive {
			n++
		}
	}
	return n
}

func TestCreateBot_FirstBotIsActive(t *testing.T) {
	st := NewState("alice", plan.Free)

	next, rec, err := CreateBot(st, CreateBotRequest{Name: "Support"}, "a", testNow)
	require.NoError(t, err)

	assert.True(t, rec.IsActive)
	assert.Equal(t, bots.DefaultWelcomeMessage, rec.WelcomeMessage)
	assert.Equal(t, bots.DefaultTone, rec.Tone)
	assert.Equal(t, 1, next.Counters.BotsCreated)

	active, ok := next.BotConfig()
	require.True(t, ok)
	assert.Equal(t, "a", active.ID)

	// input untouched
	assert.Equal(t, 0, st.Counters.BotsCreated)
	assert.Equal(t, 0, st.Bots.Len())
}

func TestCreateBot_OptionalFields(t *testing.T) {
	st := NewState("alice", plan.Premium)
	next, rec, err := CreateBot(st, CreateBotRequest{
		Name:           "Sales",
		WelcomeMessage: ptr("Hi there"),
		Tone:           ptr(bots.ToneFormal),
	}, "a", testNow)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", rec.WelcomeMessage)
	assert.Equal(t, bots.ToneFormal, rec.Tone)

	stored, _ := next.Bots.Get("a")
	assert.Equal(t, rec, stored)
}

func TestCreateBot_InvalidToneLeavesStateUnchanged(t *testing.T) {
	st := NewState("alice", plan.Premium)
	next, _, err := CreateBot(st, CreateBotRequest{Name: "X", Tone: ptr(bots.Tone("angry"))}, "a", testNow)
	assert.ErrorIs(t, err, bots.ErrInvalidTone)
	assert.Equal(t, st, next)
}

func TestCreateBot_EmptyName(t *testing.T) {
	st := NewState("alice", plan.Free)
	next, _, err := CreateBot(st, CreateBotRequest{Name: "   "}, "a", testNow)
	assert.ErrorIs(t, err, bots.ErrInvalidName)
	assert.Equal(t, 0, next.Counters.BotsCreated)
}

// Bot count always matches the registry.
func TestCreateBot_CounterMatchesRegistry(t *testing.T) {
	st := NewState("alice", plan.Premium)
	for i := 0; i < 8; i++ {
		next, _, err := CreateBot(st, CreateBotRequest{Name: fmt.Sprintf("bot-%d", i)}, fmt.Sprintf("id-%d", i), testNow)
		if err == nil {
			st = next
		}
		assert.Equal(t, st.Bots.Len(), st.Counters.BotsCreated, "after create %d", i)
	}
	assert.Equal(t, 5, st.Counters.BotsCreated)
}

func TestCreateBot_FreePlanCeiling(t *testing.T) {
	st := mustCreate(t, NewState("alice", plan.Free), "a", "First")

	next, _, err := CreateBot(st, CreateBotRequest{Name: "X"}, "b", testNow)
	require.ErrorIs(t, err, quota.ErrQuotaExceeded)
	assert.Equal(t, st, next)
	assert.Equal(t, 1, next.Bots.Len())

	var exceeded *quota.ExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, quota.ResourceBots, exceeded.Resource)
	assert.Equal(t, 1, exceeded.Used)
}

func TestAtMostOneActive_AnyOrdering(t *testing.T) {
	st := NewState("alice", plan.Premium)
	ops := []func(State) (State, error){
		func(s State) (State, error) { n, _, e := CreateBot(s, CreateBotRequest{Name: "A"}, "a", testNow); return n, e },
		func(s State) (State, error) { n, _, e := CreateBot(s, CreateBotRequest{Name: "B"}, "b", testNow); return n, e },
		func(s State) (State, error) { return SwitchBot(s, "b") },
		func(s State) (State, error) { n, _, e := CreateBot(s, CreateBotRequest{Name: "C"}, "c", testNow); return n, e },
		func(s State) (State, error) { n, _, e := DeleteBot(s, "b"); return n, e },
		func(s State) (State, error) { return SwitchBot(s, "c") },
		func(s State) (State, error) { n, _, e := DeleteBot(s, "a"); return n, e },
		func(s State) (State, error) { n, _, e := DeleteBot(s, "c"); return n, e },
	}
	for i, op := range ops {
		next, err := op(st)
		if err == nil {
			st = next
		}
		assert.Equal(t, 1, activeCount(st), "after op %d", i)
		assert.Equal(t, st.Bots.Len(), st.Counters.BotsCreated, "after op %d", i)
	}
}

func TestCreateBot_BlankWelcomeRejected(t *testing.T) {
	st := NewState("alice", plan.Free)

	next, _, err := CreateBot(st, CreateBotRequest{Name: "A", WelcomeMessage: ptr(" ")}, "a", testNow)
	require.ErrorIs(t, err, bots.ErrInvalidWelcome)
	assert.Equal(t, CodeValidation, ErrorCode(err))
	assert.Equal(t, st, next)
}

func TestDeleteBot_LastBotRejected(t *testing.T) {
	st := mustCreate(t, NewState("alice", plan.Free), "a", "Only")

	next, _, err := DeleteBot(st, "a")
	require.ErrorIs(t, err, bots.ErrLastBot)
	assert.Equal(t, st, next)
	assert.Equal(t, 1, next.Counters.BotsCreated)
}

func TestDeleteBot_NotFound(t *testing.T) {
	st := mustCreate(t, NewState("alice", plan.Premium), "a", "A")
	st = mustCreate(t, st, "b", "B")
	_, _, err := DeleteBot(st, "zzz")
	assert.ErrorIs(t, err, bots.ErrBotNotFound)
}

func TestDeleteBot_UnknownIDOnLastBot(t *testing.T) {
	st := mustCreate(t, NewState("alice", plan.Free), "a", "Only")

	next, _, err := DeleteBot(st, "zzz")
	require.ErrorIs(t, err, bots.ErrLastBot)
	assert.Equal(t, CodeLastBot, ErrorCode(err))
	assert.Equal(t, st, next)
}

func TestDeleteBot_ActiveReassignedToFirst(t *testing.T) {
	st := NewState("alice", plan.Premium)
	st = mustCreate(t, st, "a", "A")
	st = mustCreate(t, st, "b", "B")
	st = mustCreate(t, st, "c", "C")

	next, removed, err := DeleteBot(st, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", removed.ID)
	assert.Equal(t, 2, next.Counters.BotsCreated)

	active, ok := next.BotConfig()
	require.True(t, ok)
	assert.Equal(t, "b", active.ID)
	assert.Equal(t, 1, activeCount(next))
}

func TestDeleteBot_FreesSlotOnFreePlan(t *testing.T) {
	st := NewState("alice", plan.Premium)
	st = mustCreate(t, st, "a", "A")
	st = mustCreate(t, st, "b", "B")
	st = SyncPlan(st, plan.Free)

	// Downgrade keeps both bots but blocks creates.
	assert.Equal(t, 2, st.Bots.Len())
	_, _, err := CreateBot(st, CreateBotRequest{Name: "C"}, "c", testNow)
	assert.ErrorIs(t, err, quota.ErrQuotaExceeded)

	st, _, err = DeleteBot(st, "b")
	require.NoError(t, err)
	_, _, err = CreateBot(st, CreateBotRequest{Name: "C"}, "c", testNow)
	assert.ErrorIs(t, err, quota.ErrQuotaExceeded, "one bot still fills the free plan")
}

func TestUpdateActiveBot_RoundTrip(t *testing.T) {
	st := mustCreate(t, NewState("alice", plan.Free), "a", "Support")
	before, _ := st.BotConfig()

	next, rec, err := UpdateActiveBot(st, bots.Patch{Tone: ptr(bots.ToneFormal)})
	require.NoError(t, err)
	assert.Equal(t, bots.ToneFormal, rec.Tone)

	after, ok := next.BotConfig()
	require.True(t, ok)
	assert.Equal(t, bots.ToneFormal, after.Tone)
	after.Tone = before.Tone
	assert.Equal(t, before, after, "other fields unchanged")
}

func TestUpdateActiveBot_NoBots(t *testing.T) {
	_, _, err := UpdateActiveBot(NewState("alice", plan.Free), bots.Patch{Name: ptr("X")})
	assert.ErrorIs(t, err, ErrNoActiveBot)
	assert.Equal(t, CodeNotFound, ErrorCode(err))
}

func TestUpdateBot_Unknown(t *testing.T) {
	st := mustCreate(t, NewState("alice", plan.Free), "a", "A")
	_, _, err := UpdateBot(st, "zzz", bots.Patch{Name: ptr("X")})
	assert.ErrorIs(t, err, bots.ErrBotNotFound)
}

func TestSwitchBot(t *testing.T) {
	st := NewState("alice", plan.Premium)
	st = mustCreate(t, st, "a", "A")
	st = mustCreate(t, st, "b", "B")

	next, err := SwitchBot(st, "b")
	require.NoError(t, err)
	active, _ := next.BotConfig()
	assert.Equal(t, "b", active.ID)

	// original still has a active
	orig, _ := st.BotConfig()
	assert.Equal(t, "a", orig.ID)

	_, err = SwitchBot(st, "zzz")
	assert.ErrorIs(t, err, bots.ErrBotNotFound)
}

func TestSendMessage_FreeCeiling(t *testing.T) {
	st := mustCreate(t, NewState("alice", plan.Free), "a", "A")
	st.Counters.MonthlyMessagesUsed = 30

	next, _, err := SendMessage(st, "hello")
	require.ErrorIs(t, err, quota.ErrQuotaExceeded)
	assert.Equal(t, 30, next.Counters.MonthlyMessagesUsed)
}

func TestSendMessage_PremiumUnbounded(t *testing.T) {
	st := mustCreate(t, NewState("alice", plan.Premium), "a", "A")
	st.Counters.MonthlyMessagesUsed = 30

	next, reply, err := SendMessage(st, "hello")
	require.NoError(t, err)
	assert.Equal(t, 31, next.Counters.MonthlyMessagesUsed)
	assert.NotEmpty(t, reply.Content)
}

func TestSendMessage_Empty(t *testing.T) {
	st := mustCreate(t, NewState("alice", plan.Free), "a", "A")
	next, _, err := SendMessage(st, "  ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, CodeValidation, ErrorCode(err))
	assert.Equal(t, 0, next.Counters.MonthlyMessagesUsed)
}

func TestSendMessage_CountersNeverDecrease(t *testing.T) {
	st := mustCreate(t, NewState("alice", plan.Free), "a", "A")
	prev := 0
	for i := 0; i < 40; i++ {
		next, _, err := SendMessage(st, "ping")
		if err == nil {
			st = next
		}
		assert.GreaterOrEqual(t, st.Counters.MonthlyMessagesUsed, prev)
		prev = st.Counters.MonthlyMessagesUsed
	}
	assert.Equal(t, 30, st.Counters.MonthlyMessagesUsed)
}

func TestAddPages(t *testing.T) {
	st := NewState("alice", plan.Free)

	next, err := AddPages(st, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, next.Counters.URLPagesUsed)

	same, err := AddPages(next, 4)
	require.ErrorIs(t, err, quota.ErrQuotaExceeded)
	assert.Equal(t, 7, same.Counters.URLPagesUsed)

	next, err = AddPages(next, 3)
	require.NoError(t, err)
	assert.Equal(t, 10, next.Counters.URLPagesUsed)

	_, err = AddPages(next, -1)
	assert.ErrorIs(t, err, quota.ErrNegativeCount)
}

func TestAddPages_HugeCountKeepsCounter(t *testing.T) {
	free, err := AddPages(NewState("alice", plan.Free), 1)
	require.NoError(t, err)

	same, err := AddPages(free, math.MaxInt)
	require.ErrorIs(t, err, quota.ErrQuotaExceeded)
	assert.Equal(t, 1, same.Counters.URLPagesUsed)

	premium, err := AddPages(NewState("bob", plan.Premium), 1)
	require.NoError(t, err)

	same, err = AddPages(premium, math.MaxInt)
	require.ErrorIs(t, err, quota.ErrCountTooLarge)
	assert.Equal(t, CodeValidation, ErrorCode(err))
	assert.Equal(t, 1, same.Counters.URLPagesUsed)
}

func TestResetMonthly(t *testing.T) {
	st := mustCreate(t, NewState("alice", plan.Free), "a", "A")
	st.Counters.MonthlyMessagesUsed = 30
	st.Counters.URLPagesUsed = 5

	next := ResetMonthly(st)
	assert.Equal(t, 0, next.Counters.MonthlyMessagesUsed)
	assert.Equal(t, 5, next.Counters.URLPagesUsed)
	assert.Equal(t, 1, next.Counters.BotsCreated)
}

func TestSnapshot(t *testing.T) {
	empty := NewState("alice", plan.Free).Snapshot()
	assert.Nil(t, empty.BotConfig)
	assert.NotNil(t, empty.AllBots)
	assert.Empty(t, empty.AllBots)

	st := mustCreate(t, NewState("alice", plan.Premium), "a", "A")
	snap := st.Snapshot()
	require.NotNil(t, snap.BotConfig)
	assert.Equal(t, "a", snap.BotConfig.ID)
	assert.Equal(t, plan.Premium, snap.UserTier.Plan)
	assert.True(t, snap.Ceilings.MaxMonthlyMessages.IsUnbounded())
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{quota.Exceeded(quota.New(plan.Free), quota.ResourceBots), CodeQuotaExceeded},
		{bots.ErrLastBot, CodeLastBot},
		{fmt.Errorf("wrapped: %w", bots.ErrBotNotFound), CodeNotFound},
		{bots.ErrInvalidName, CodeValidation},
		{plan.ErrUnknownPlan, CodeValidation},
		{ErrVersionConflict, CodeConflict},
		{fmt.Errorf("db down"), CodeInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorCode(tt.err), "%v", tt.err)
	}
}
