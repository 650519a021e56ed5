// Package auth identifies dashboard users and tracks which plan each one is on.
//
// Identity comes from the X-User-ID header set by the fronting gateway.
// Plans are assigned by operators through the admin API and read by the
// session service on every request.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/mbd888/botdesk/internal/plan"
)

// Errors
var (
	ErrNoUserID      = errors.New("auth: user id required")
	ErrInvalidUserID = errors.New("auth: invalid user id")
)

const maxUserIDLen = 128

// Directory maps users to plans.
type Directory interface {
	// PlanFor returns the user's plan, or the default plan for unknown users.
	PlanFor(ctx context.Context, userID string) (plan.Plan, error)
	SetPlan(ctx context.Context, userID string, p plan.Plan) error
}

// NormalizeUserID trims the ID and checks its length.
func NormalizeUserID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", ErrNoUserID
	}
	if len(id) > maxUserIDLen || strings.ContainsAny(id, " \t\r\n") {
		return "", ErrInvalidUserID
	}
	return id, nil
}

// MemoryDirectory is an in-memory plan directory for development and tests.
type MemoryDirectory struct {
	mu          sync.RWMutex
	plans       map[string]plan.Plan
	defaultPlan plan.Plan
}

// NewMemoryDirectory creates a directory where unknown users are on defaultPlan.
func NewMemoryDirectory(defaultPlan plan.Plan) *MemoryDirectory {
	return &MemoryDirectory{
		plans:       make(map[string]plan.Plan),
		defaultPlan: defaultPlan,
	}
}

func (d *MemoryDirectory) PlanFor(_ context.Context, userID string) (plan.Plan, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if p, ok := d.plans[userID]; ok {
		return p, nil
	}
	return d.defaultPlan, nil
}

func (d *MemoryDirectory) SetPlan(_ context.Context, userID string, p plan.Plan) error {
	if !plan.Valid(p) {
		return plan.ErrUnknownPlan
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.plans[userID] = p
	return nil
}

var _ Directory = (*MemoryDirectory)(nil)
