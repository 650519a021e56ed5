// Package session composes plan policy, quota counters and the bot registry
// into the atomic operations the dashboard calls.
package session

import (
	"errors"
	"time"

	"github.com/mbd888/botdesk/internal/bots"
	"github.com/mbd888/botdesk/internal/plan"
	"github.com/mbd888/botdesk/internal/quota"
)

// Errors
var (
	ErrSessionNotFound = errors.New("session: not found")
	ErrVersionConflict = errors.New("session: concurrent modification")
	ErrNoActiveBot     = errors.New("session: no active bot")
	ErrEmptyMessage    = errors.New("session: message must not be empty")
	ErrInvalidUserID   = errors.New("session: invalid user id")
)

// Error codes returned to callers.
const (
	CodeValidation    = "validation"
	CodeNotFound      = "not_found"
	CodeQuotaExceeded = "quota_exceeded"
	CodeLastBot       = "last_bot"
	CodeConflict      = "conflict"
	CodeInternal      = "internal"
)

// ErrorCode classifies err into one of the Code* values.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, quota.ErrQuotaExceeded):
		return CodeQuotaExceeded
	case errors.Is(err, bots.ErrLastBot):
		return CodeLastBot
	case errors.Is(err, ErrVersionConflict):
		return CodeConflict
	case errors.Is(err, bots.ErrBotNotFound),
		errors.Is(err, ErrNoActiveBot),
		errors.Is(err, ErrSessionNotFound):
		return CodeNotFound
	case errors.Is(err, bots.ErrInvalidName),
		errors.Is(err, bots.ErrInvalidWelcome),
		errors.Is(err, bots.ErrInvalidTone),
		errors.Is(err, quota.ErrNegativeCount),
		errors.Is(err, quota.ErrCountTooLarge),
		errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrInvalidUserID),
		errors.Is(err, plan.ErrUnknownPlan):
		return CodeValidation
	default:
		return CodeInternal
	}
}

// State is everything one user session owns. It is a value: transitions
// return a new State and never modify their input.
type State struct {
	UserID    string         `json:"userId"`
	Counters  quota.Counters `json:"userTier"`
	Bots      bots.Registry  `json:"allBots"`
	Version   int64          `json:"version"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// NewState returns an empty session on plan p.
func NewState(userID string, p plan.Plan) State {
	return State{
		UserID:   userID,
		Counters: quota.New(p),
	}
}

// BotConfig returns the active bot, if any.
func (s State) BotConfig() (bots.Record, bool) {
	return s.Bots.Active()
}

// AllBots returns every bot in insertion order.
func (s State) AllBots() []bots.Record {
	return s.Bots.List()
}

// UserTier returns the usage counters together with the plan.
func (s State) UserTier() quota.Counters {
	return s.Counters
}

// Snapshot is the read model handed to presentation code.
type Snapshot struct {
	UserID    string         `json:"userId"`
	BotConfig *bots.Record   `json:"botConfig"`
	AllBots   []bots.Record  `json:"allBots"`
	UserTier  quota.Counters `json:"userTier"`
	Ceilings  plan.Ceilings  `json:"ceilings"`
	Version   int64          `json:"version"`
}

// Snapshot builds the read model for s.
func (s State) Snapshot() Snapshot {
	snap := Snapshot{
		UserID:   s.UserID,
		AllBots:  s.AllBots(),
		UserTier: s.Counters,
		Ceilings: plan.CeilingsFor(s.Counters.Plan),
		Version:  s.Version,
	}
	if snap.AllBots == nil {
		snap.AllBots = []bots.Record{}
	}
	if active, ok := s.BotConfig(); ok {
		snap.BotConfig = &active
	}
	return snap
}
