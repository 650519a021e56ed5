// Package quota tracks per-session usage counters and checks them against plan ceilings.
//
// Every function here is pure: counters are passed and returned by value.
// Checks and records are split so callers decide when to act on a check.
package quota

import (
	"errors"
	"fmt"
	"math"

	"github.com/mbd888/botdesk/internal/plan"
)

// Errors
var (
	ErrQuotaExceeded = errors.New("quota: limit reached for plan")
	ErrNegativeCount = errors.New("quota: count must not be negative")
	ErrCountTooLarge = errors.New("quota: count overflows the page counter")
)

// Resource names a metered resource.
type Resource string

const (
	ResourceBots     Resource = "bots"
	ResourceMessages Resource = "messages"
	ResourcePages    Resource = "pages"
)

// ExceededError reports which ceiling denied an operation.
// It matches ErrQuotaExceeded under errors.Is.
type ExceededError struct {
	Resource Resource
	Used     int
	Limit    plan.Ceiling
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("%s: %s used %d of %s", ErrQuotaExceeded, e.Resource, e.Used, e.Limit)
}

func (e *ExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// Exceeded builds the error for resource r given current counters.
func Exceeded(c Counters, r Resource) *ExceededError {
	ceil := plan.CeilingsFor(c.Plan)
	switch r {
	case ResourceBots:
		return &ExceededError{Resource: r, Used: c.BotsCreated, Limit: ceil.MaxBots}
	case ResourceMessages:
		return &ExceededError{Resource: r, Used: c.MonthlyMessagesUsed, Limit: ceil.MaxMonthlyMessages}
	default:
		return &ExceededError{Resource: r, Used: c.URLPagesUsed, Limit: ceil.MaxTrainedPages}
	}
}

// Counters is the usage state of one session.
type Counters struct {
	Plan                plan.Plan `json:"plan"`
	URLPagesUsed        int       `json:"urlPagesUsed"`
	MonthlyMessagesUsed int       `json:"monthlyMessagesUsed"`
	BotsCreated         int       `json:"botsCreated"`
}

// New returns zeroed counters for p.
func New(p plan.Plan) Counters {
	return Counters{Plan: p}
}

// CanSendMessage reports whether another message fits in the monthly allowance.
func CanSendMessage(c Counters) bool {
	return plan.CeilingsFor(c.Plan).MaxMonthlyMessages.Allows(c.MonthlyMessagesUsed)
}

// CanAddPages reports whether count more trained pages fit in the plan.
func CanAddPages(c Counters, count int) (bool, error) {
	if count < 0 {
		return false, ErrNegativeCount
	}
	ceil := plan.CeilingsFor(c.Plan).MaxTrainedPages
	if ceil.IsUnbounded() && count > math.MaxInt-c.URLPagesUsed {
		return false, ErrCountTooLarge
	}
	return ceil.AllowsAdd(c.URLPagesUsed, count), nil
}

// CanCreateBot reports whether the plan allows one more bot.
func CanCreateBot(c Counters) bool {
	return plan.CeilingsFor(c.Plan).MaxBots.Allows(c.BotsCreated)
}

// RecordMessageSent adds one message. Callers check CanSendMessage first.
func RecordMessageSent(c Counters) Counters {
	c.MonthlyMessagesUsed++
	return c
}

// RecordPagesAdded adds count trained pages. Callers check CanAddPages first.
func RecordPagesAdded(c Counters, count int) Counters {
	c.URLPagesUsed += count
	return c
}

// RecordBotCreated adds one bot.
func RecordBotCreated(c Counters) Counters {
	c.BotsCreated++
	return c
}

// RecordBotDeleted removes one bot, never going below zero.
func RecordBotDeleted(c Counters) Counters {
	if c.BotsCreated > 0 {
		c.BotsCreated--
	}
	return c
}

// ResetMonthly zeroes the monthly message counter. Page and bot counts are kept.
func ResetMonthly(c Counters) Counters {
	c.MonthlyMessagesUsed = 0
	return c
}

// WithPlan returns c re-bound to p. Usage is kept as-is.
func WithPlan(c Counters, p plan.Plan) Counters {
	c.Plan = p
	return c
}
