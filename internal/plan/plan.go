// Package plan maps subscription plans to their resource ceilings.
package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPlan is returned by Parse for unrecognised plan names.
var ErrUnknownPlan = errors.New("plan: unknown plan")

// Plan identifies the subscription tier.
type Plan string

const (
	Free    Plan = "free"
	Premium Plan = "premium"
)

// Ceiling is either a bounded integer limit or unbounded.
// The zero value is Bounded(0).
type Ceiling struct {
	limit     int
	unbounded bool
}

// Bounded returns a ceiling of n.
func Bounded(n int) Ceiling {
	return Ceiling{limit: n}
}

// Unbounded returns a ceiling that never denies.
func Unbounded() Ceiling {
	return Ceiling{unbounded: true}
}

// IsUnbounded reports whether the ceiling has no limit.
func (c Ceiling) IsUnbounded() bool { return c.unbounded }

// Limit returns the bounded limit and true, or 0 and false when unbounded.
func (c Ceiling) Limit() (int, bool) {
	if c.unbounded {
		return 0, false
	}
	return c.limit, true
}

// Allows reports whether one more unit may be consumed when used units are already spent.
func (c Ceiling) Allows(used int) bool {
	return c.unbounded || used < c.limit
}

// AllowsAdd reports whether n more units fit when used units are already spent.
// The comparison never adds used and n, so it cannot overflow.
func (c Ceiling) AllowsAdd(used, n int) bool {
	if n < 0 {
		return false
	}
	return c.unbounded || n <= c.limit-used
}

// Remaining returns how many units are left, and false when unbounded.
func (c Ceiling) Remaining(used int) (int, bool) {
	if c.unbounded {
		return 0, false
	}
	if used >= c.limit {
		return 0, true
	}
	return c.limit - used, true
}

func (c Ceiling) String() string {
	if c.unbounded {
		return "unbounded"
	}
	return fmt.Sprintf("%d", c.limit)
}

// MarshalJSON encodes a bounded ceiling as its number and an unbounded one as null.
func (c Ceiling) MarshalJSON() ([]byte, error) {
	if c.unbounded {
		return []byte("null"), nil
	}
	return json.Marshal(c.limit)
}

// Ceilings are the resource limits of a plan.
type Ceilings struct {
	MaxBots            Ceiling `json:"maxBots"`
	MaxMonthlyMessages Ceiling `json:"maxMonthlyMessages"`
	MaxTrainedPages    Ceiling `json:"maxTrainedPages"`
}

// catalogue is the hardcoded plan table.
var catalogue = map[Plan]Ceilings{
	Free: {
		MaxBots:            Bounded(1),
		MaxMonthlyMessages: Bounded(30),
		MaxTrainedPages:    Bounded(10),
	},
	Premium: {
		MaxBots:            Bounded(5),
		MaxMonthlyMessages: Unbounded(),
		MaxTrainedPages:    Unbounded(),
	},
}

// CeilingsFor returns the ceilings of p, falling back to the free plan for unknown plans.
func CeilingsFor(p Plan) Ceilings {
	if c, ok := catalogue[p]; ok {
		return c
	}
	return catalogue[Free]
}

// Valid returns true if the plan name is recognised.
func Valid(p Plan) bool {
	_, ok := catalogue[p]
	return ok
}

// Parse normalises s and returns the matching plan.
func Parse(s string) (Plan, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	if !Valid(p) {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, s)
	}
	return p, nil
}
