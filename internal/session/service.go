package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mbd888/botdesk/internal/bots"
	"github.com/mbd888/botdesk/internal/idgen"
	"github.com/mbd888/botdesk/internal/logging"
	"github.com/mbd888/botdesk/internal/plan"
	"github.com/mbd888/botdesk/internal/quota"
	"github.com/mbd888/botdesk/internal/retry"
	"github.com/mbd888/botdesk/internal/syncutil"
	"github.com/mbd888/botdesk/internal/traces"
)

// DefaultBotName is the bot seeded into new sessions.
const DefaultBotName = "My Chatbot"

const (
	maxUserIDLen      = 128
	saveAttempts      = 5
	saveBackoff       = 5 * time.Millisecond
	resetBatchLogSize = 1000
)

// PlanSource resolves the plan a user is currently on.
type PlanSource interface {
	PlanFor(ctx context.Context, userID string) (plan.Plan, error)
}

// Service applies session transitions atomically per user.
type Service struct {
	store          Store
	plans          PlanSource
	defaultPlan    plan.Plan
	events         EventEmitter
	logger         *slog.Logger
	locks          syncutil.ShardedMutex
	newID          func() string
	now            func() time.Time
	seedDefaultBot bool
}

// NewService creates a session service backed by store.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:          store,
		defaultPlan:    plan.Free,
		logger:         logger,
		newID:          func() string { return idgen.WithPrefix("bot_") },
		now:            time.Now,
		seedDefaultBot: true,
	}
}

// WithPlanSource sets where user plans are looked up. Without one every
// session uses the default plan.
func (s *Service) WithPlanSource(p PlanSource) *Service {
	s.plans = p
	return s
}

// WithDefaultPlan sets the plan used when no plan source is configured.
func (s *Service) WithDefaultPlan(p plan.Plan) *Service {
	s.defaultPlan = p
	return s
}

// WithEventEmitter sets the receiver for committed changes.
func (s *Service) WithEventEmitter(e EventEmitter) *Service {
	s.events = e
	return s
}

// WithSeedDefaultBot controls whether new sessions start with "My Chatbot".
func (s *Service) WithSeedDefaultBot(seed bool) *Service {
	s.seedDefaultBot = seed
	return s
}

// WithIDGenerator overrides bot ID generation.
func (s *Service) WithIDGenerator(fn func() string) *Service {
	s.newID = fn
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(fn func() time.Time) *Service {
	s.now = fn
	return s
}

// loaded is a session read from the store, plus what changed while loading it.
type loaded struct {
	state       State
	expected    int64
	created     bool
	planChanged bool
	prevPlan    plan.Plan
}

func (l loaded) dirty() bool { return l.created || l.planChanged }

// Get returns the user's session, creating it on first use.
func (s *Service) Get(ctx context.Context, userID string) (Snapshot, error) {
	st, err := s.run(ctx, userID, "get", nil)
	if err != nil {
		return Snapshot{}, err
	}
	return st.Snapshot(), nil
}

// Usage returns the usage report for the user's session.
func (s *Service) Usage(ctx context.Context, userID string) (quota.Report, error) {
	st, err := s.run(ctx, userID, "usage", nil)
	if err != nil {
		return quota.Report{}, err
	}
	return quota.Usage(st.Counters), nil
}

// CreateBot creates a bot if the plan allows another one.
func (s *Service) CreateBot(ctx context.Context, userID string, req CreateBotRequest) (bots.Record, Snapshot, error) {
	var rec bots.Record
	st, err := s.run(ctx, userID, "create_bot", func(cur State) (State, error) {
		next, r, err := CreateBot(cur, req, s.newID(), s.now())
		rec = r
		return next, err
	})
	if err != nil {
		return bots.Record{}, Snapshot{}, err
	}
	botsCreatedTotal.Inc()
	s.emit(userID, EventBotCreated, map[string]interface{}{"bot": rec, "userTier": st.Counters})
	return rec, st.Snapshot(), nil
}

// SwitchBot makes botID the active bot.
func (s *Service) SwitchBot(ctx context.Context, userID, botID string) (Snapshot, error) {
	st, err := s.run(ctx, userID, "switch_bot", func(cur State) (State, error) {
		return SwitchBot(cur, botID)
	})
	if err != nil {
		return Snapshot{}, err
	}
	s.emit(userID, EventBotSwitched, map[string]interface{}{"botId": botID})
	return st.Snapshot(), nil
}

// UpdateBot edits the bot with the given ID.
func (s *Service) UpdateBot(ctx context.Context, userID, botID string, patch bots.Patch) (bots.Record, Snapshot, error) {
	var rec bots.Record
	st, err := s.run(ctx, userID, "update_bot", func(cur State) (State, error) {
		next, r, err := UpdateBot(cur, botID, patch)
		rec = r
		return next, err
	})
	if err != nil {
		return bots.Record{}, Snapshot{}, err
	}
	s.emit(userID, EventBotUpdated, map[string]interface{}{"bot": rec})
	return rec, st.Snapshot(), nil
}

// UpdateActiveBot edits whichever bot is active.
func (s *Service) UpdateActiveBot(ctx context.Context, userID string, patch bots.Patch) (bots.Record, Snapshot, error) {
	var rec bots.Record
	st, err := s.run(ctx, userID, "update_active_bot", func(cur State) (State, error) {
		next, r, err := UpdateActiveBot(cur, patch)
		rec = r
		return next, err
	})
	if err != nil {
		return bots.Record{}, Snapshot{}, err
	}
	s.emit(userID, EventBotUpdated, map[string]interface{}{"bot": rec})
	return rec, st.Snapshot(), nil
}

// DeleteBot removes a bot and frees its plan slot.
func (s *Service) DeleteBot(ctx context.Context, userID, botID string) (bots.Record, Snapshot, error) {
	var removed bots.Record
	st, err := s.run(ctx, userID, "delete_bot", func(cur State) (State, error) {
		next, r, err := DeleteBot(cur, botID)
		removed = r
		return next, err
	})
	if err != nil {
		return bots.Record{}, Snapshot{}, err
	}
	botsDeletedTotal.Inc()
	data := map[string]interface{}{"botId": removed.ID, "userTier": st.Counters}
	if active, ok := st.BotConfig(); ok {
		data["activeBotId"] = active.ID
	}
	s.emit(userID, EventBotDeleted, data)
	return removed, st.Snapshot(), nil
}

// SendMessage records a chat message and returns the bot's reply.
func (s *Service) SendMessage(ctx context.Context, userID, text string) (Reply, Snapshot, error) {
	var reply Reply
	st, err := s.run(ctx, userID, "send_message", func(cur State) (State, error) {
		next, r, err := SendMessage(cur, text)
		reply = r
		return next, err
	})
	if err != nil {
		return Reply{}, Snapshot{}, err
	}
	messagesSentTotal.Inc()
	s.emit(userID, EventMessageSent, map[string]interface{}{
		"monthlyMessagesUsed": st.Counters.MonthlyMessagesUsed,
	})
	return reply, st.Snapshot(), nil
}

// AddPages records count trained URL pages.
func (s *Service) AddPages(ctx context.Context, userID string, count int) (Snapshot, error) {
	st, err := s.run(ctx, userID, "add_pages", func(cur State) (State, error) {
		return AddPages(cur, count)
	})
	if err != nil {
		return Snapshot{}, err
	}
	pagesAddedTotal.Add(float64(count))
	s.emit(userID, EventPagesAdded, map[string]interface{}{"urlPagesUsed": st.Counters.URLPagesUsed})
	return st.Snapshot(), nil
}

// ResetMonthly zeroes the user's monthly message counter.
func (s *Service) ResetMonthly(ctx context.Context, userID string) (Snapshot, error) {
	st, err := s.run(ctx, userID, "reset_monthly", func(cur State) (State, error) {
		return ResetMonthly(cur), nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	monthlyResetsTotal.Inc()
	s.emit(userID, EventMonthlyReset, nil)
	return st.Snapshot(), nil
}

// ResetAllMonthly resets every stored session and returns how many were
// reset. A failure on one session does not stop the others.
func (s *Service) ResetAllMonthly(ctx context.Context) (int, error) {
	ids, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	var errs []error
	n := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := s.ResetMonthly(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("reset %s: %w", id, err))
			continue
		}
		n++
		if n%resetBatchLogSize == 0 {
			s.logger.Info("monthly reset progress", "reset", n, "total", len(ids))
		}
	}
	return n, errors.Join(errs...)
}

// run loads the user's session under its lock, applies apply and saves the
// result with a version check, retrying lost races. A nil apply is a read
// that only persists when loading created the session or changed its plan.
func (s *Service) run(ctx context.Context, userID, op string, apply func(State) (State, error)) (st State, err error) {
	start := time.Now()
	ctx, span := traces.StartSpan(ctx, "session."+op, traces.UserID(userID))
	defer func() {
		traces.End(span, err)
		operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	if err := validateUserID(userID); err != nil {
		return State{}, err
	}

	unlock := s.locks.Lock(userID)
	defer func() { unlock() }()

	var committed loaded
	err = retry.DoWithUnlock(ctx, saveAttempts, saveBackoff,
		func() { unlock() },
		func() { unlock = s.locks.Lock(userID) },
		func() error {
			l, err := s.load(ctx, userID)
			if err != nil {
				return retry.Permanent(err)
			}
			if apply == nil && !l.dirty() {
				committed = l
				return nil
			}

			next := l.state
			if apply != nil {
				next, err = apply(l.state)
				if err != nil {
					return retry.Permanent(err)
				}
			}
			next.Version = l.expected + 1
			next.UpdatedAt = s.now()

			if err := s.store.Save(ctx, &next, l.expected); err != nil {
				if errors.Is(err, ErrVersionConflict) {
					storeConflictsTotal.Inc()
					return err
				}
				return retry.Permanent(err)
			}
			l.state = next
			committed = l
			return nil
		})

	if err != nil {
		s.logFailure(ctx, op, userID, err)
		return State{}, err
	}

	if committed.created {
		s.emit(userID, EventSessionCreated, map[string]interface{}{"plan": committed.state.Counters.Plan})
	}
	if committed.planChanged {
		s.logger.Info("plan synchronized", "userId", userID,
			"from", committed.prevPlan, "to", committed.state.Counters.Plan)
		s.emit(userID, EventPlanChanged, map[string]interface{}{
			"from": committed.prevPlan,
			"to":   committed.state.Counters.Plan,
		})
	}
	return committed.state, nil
}

// load reads the session, creating it when missing and re-binding it to the
// user's current plan.
func (s *Service) load(ctx context.Context, userID string) (loaded, error) {
	p, err := s.planFor(ctx, userID)
	if err != nil {
		return loaded{}, err
	}

	stored, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrSessionNotFound) {
		st, err := s.newSession(userID, p)
		if err != nil {
			return loaded{}, err
		}
		return loaded{state: st, created: true}, nil
	}
	if err != nil {
		return loaded{}, err
	}

	l := loaded{state: *stored, expected: stored.Version}
	if stored.Counters.Plan != p {
		l.planChanged = true
		l.prevPlan = stored.Counters.Plan
		l.state = SyncPlan(l.state, p)
	}
	return l, nil
}

func (s *Service) newSession(userID string, p plan.Plan) (State, error) {
	st := NewState(userID, p)
	if !s.seedDefaultBot {
		return st, nil
	}
	seeded, _, err := CreateBot(st, CreateBotRequest{Name: DefaultBotName}, s.newID(), s.now())
	if err != nil {
		return State{}, fmt.Errorf("seed default bot: %w", err)
	}
	return seeded, nil
}

func (s *Service) planFor(ctx context.Context, userID string) (plan.Plan, error) {
	if s.plans == nil {
		return s.defaultPlan, nil
	}
	p, err := s.plans.PlanFor(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("resolve plan: %w", err)
	}
	if !plan.Valid(p) {
		return s.defaultPlan, nil
	}
	return p, nil
}

func (s *Service) logFailure(ctx context.Context, op, userID string, err error) {
	log := s.logger
	if reqID := logging.RequestID(ctx); reqID != "" {
		log = log.With("request_id", reqID)
	}
	var exceeded *quota.ExceededError
	switch {
	case errors.As(err, &exceeded):
		quotaDenialsTotal.WithLabelValues(string(exceeded.Resource)).Inc()
		log.Info("quota exceeded", "op", op, "userId", userID,
			"resource", exceeded.Resource, "used", exceeded.Used, "limit", exceeded.Limit.String())
		s.emit(userID, EventQuotaExceeded, map[string]interface{}{
			"resource": exceeded.Resource,
			"used":     exceeded.Used,
			"limit":    exceeded.Limit,
		})
	case ErrorCode(err) == CodeInternal || ErrorCode(err) == CodeConflict:
		log.Error("session operation failed", "op", op, "userId", userID, "error", err)
	default:
		log.Debug("session operation rejected", "op", op, "userId", userID, "error", err)
	}
}

func (s *Service) emit(userID, eventType string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	s.events.EmitSessionEvent(userID, eventType, data)
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" || len(userID) > maxUserIDLen {
		return ErrInvalidUserID
	}
	return nil
}
