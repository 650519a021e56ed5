package session

import "github.com/prometheus/client_golang/prometheus"

var (
	botsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "botdesk",
		Subsystem: "session",
		Name:      "bots_created_total",
		Help:      "Total bots created.",
	})

	botsDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "botdesk",
		Subsystem: "session",
		Name:      "bots_deleted_total",
		Help:      "Total bots deleted.",
	})

	messagesSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "botdesk",
		Subsystem: "session",
		Name:      "messages_sent_total",
		Help:      "Total chat messages accepted.",
	})

	pagesAddedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "botdesk",
		Subsystem: "session",
		Name:      "pages_added_total",
		Help:      "Total URL pages recorded as trained.",
	})

	quotaDenialsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "botdesk",
		Subsystem: "session",
		Name:      "quota_denials_total",
		Help:      "Operations refused because a plan ceiling was reached.",
	}, []string{"resource"}) // "bots", "messages", "pages"

	storeConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "botdesk",
		Subsystem: "session",
		Name:      "store_conflicts_total",
		Help:      "Optimistic save attempts that lost a version race.",
	})

	monthlyResetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "botdesk",
		Subsystem: "session",
		Name:      "monthly_resets_total",
		Help:      "Sessions whose monthly message counter was reset.",
	})

	operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "botdesk",
		Subsystem: "session",
		Name:      "operation_duration_seconds",
		Help:      "Latency of session operations including store round trips.",
		Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"operation"})
)

func init() {
	prometheus.MustRegister(
		botsCreatedTotal,
		botsDeletedTotal,
		messagesSentTotal,
		pagesAddedTotal,
		quotaDenialsTotal,
		storeConflictsTotal,
		monthlyResetsTotal,
		operationDuration,
	)
}
