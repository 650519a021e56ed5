package quota

import "github.com/mbd888/botdesk/internal/plan"

// ResourceUsage is the used/limit/remaining view of one resource.
// Limit and Remaining are nil when the plan has no ceiling for it.
type ResourceUsage struct {
	Used      int  `json:"used"`
	Limit     *int `json:"limit"`
	Remaining *int `json:"remaining"`
	Unbounded bool `json:"unbounded"`
}

// Report is the usage summary rendered by the dashboard's limits card.
type Report struct {
	Plan      plan.Plan                  `json:"plan"`
	Resources map[Resource]ResourceUsage `json:"resources"`
}

// Usage builds a Report for c.
func Usage(c Counters) Report {
	ceil := plan.CeilingsFor(c.Plan)
	return Report{
		Plan: c.Plan,
		Resources: map[Resource]ResourceUsage{
			ResourceBots:     resourceUsage(c.BotsCreated, ceil.MaxBots),
			ResourceMessages: resourceUsage(c.MonthlyMessagesUsed, ceil.MaxMonthlyMessages),
			ResourcePages:    resourceUsage(c.URLPagesUsed, ceil.MaxTrainedPages),
		},
	}
}

func resourceUsage(used int, c plan.Ceiling) ResourceUsage {
	limit, ok := c.Limit()
	if !ok {
		return ResourceUsage{Used: used, Unbounded: true}
	}
	remaining, _ := c.Remaining(used)
	return ResourceUsage{Used: used, Limit: &limit, Remaining: &remaining}
}
