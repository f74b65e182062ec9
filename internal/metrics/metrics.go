package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "csgo_seller"

var (
	// PollCycles counts finished poll cycles by poller and outcome (ok, error).
	PollCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poll_cycles_total",
		Help:      "Finished poll cycles.",
	}, []string{"poller", "outcome"})

	// MarketCalls counts marketplace API calls by endpoint and outcome.
	MarketCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "market_calls_total",
		Help:      "Marketplace API calls issued through the rate limiter.",
	}, []string{"endpoint", "outcome"})

	// RateLimitWait observes how long callers waited for a permit.
	RateLimitWait = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rate_limit_wait_seconds",
		Help:      "Time spent waiting for a marketplace call permit.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	// TradeTransitions counts reconciler lifecycle transitions.
	TradeTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trade_transitions_total",
		Help:      "Trade lifecycle transitions by direction and resulting state.",
	}, []string{"direction", "state"})

	// OffersObserved counts received offers awaiting action.
	OffersObserved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "offers_observed_total",
		Help:      "Received trade offers seen in the awaiting-action state.",
	})

	// SellOutcomes counts sell-cycle item outcomes (listed, skipped_price, failed).
	SellOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sell_items_total",
		Help:      "Sell cycle results per inventory item.",
	}, []string{"outcome"})

	// Confirmations counts mobile confirmations accepted.
	Confirmations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mobile_confirmations_total",
		Help:      "Mobile confirmations accepted by the checker.",
	})
)

func init() {
	prometheus.MustRegister(
		PollCycles,
		MarketCalls,
		RateLimitWait,
		TradeTransitions,
		OffersObserved,
		SellOutcomes,
		Confirmations,
	)
}

// Outcome maps an error to the outcome label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
