// Package metrics exports raffle activity to Prometheus.
package metrics

import (
	"github.com/bitfsorg/raffle-go/raffle"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "raffle"

// Collector counts raffle events and samples ledger gauges at scrape time.
type Collector struct {
	entries       prometheus.Counter
	roundsClosed  prometheus.Counter
	roundsOpened  prometheus.Counter
	refundsIssued prometheus.Counter
	refundUnits   prometheus.Counter
	prizeFailures prometheus.Counter
	roundSize     prometheus.Histogram
}

// New registers the raffle metrics on reg. Gauges read r on every scrape.
func New(reg prometheus.Registerer, r *raffle.Raffle) *Collector {
	f := promauto.With(reg)
	c := &Collector{
		entries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_total",
			Help:      "Accepted raffle entries",
		}),
		roundsClosed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_closed_total",
			Help:      "Rounds closed with a winner",
		}),
		roundsOpened: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_opened_total",
			Help:      "Rounds reopened by the authority",
		}),
		refundsIssued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refunds_issued_total",
			Help:      "Successful refund withdrawals",
		}),
		refundUnits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refunded_units_total",
			Help:      "Base units transferred by refund withdrawals",
		}),
		prizeFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prize_failures_total",
			Help:      "Prize issuance failures after a round closed",
		}),
		roundSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_participants",
			Help:      "Entries per closed round",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}

	if r != nil {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "round_open",
			Help:      "1 while the current round accepts entries",
		}, func() float64 {
			if r.IsRoundOpen() {
				return 1
			}
			return 0
		})
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_participants",
			Help:      "Entries in the current or last closed round",
		}, func() float64 { return float64(len(r.Participants())) })
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outstanding_refund_units",
			Help:      "Base units owed to participants and not yet withdrawn",
		}, func() float64 {
			a, _ := r.Audit()
			if a == nil {
				return 0
			}
			return float64(a.Outstanding)
		})
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "retained_units",
			Help:      "Base units kept from winning entries",
		}, func() float64 { return float64(r.Totals().Retained) })
	}
	return c
}

// Observe updates the counters for ev. Subscribe it with raffle.Subscribe.
func (c *Collector) Observe(ev raffle.Event) {
	switch e := ev.(type) {
	case raffle.RaffleEntered:
		c.entries.Inc()
	case raffle.WinnerSelected:
		c.roundsClosed.Inc()
		c.roundSize.Observe(float64(e.Entries))
	case raffle.RoundOpened:
		c.roundsOpened.Inc()
	case raffle.RefundIssued:
		c.refundsIssued.Inc()
		c.refundUnits.Add(float64(e.Amount))
	case raffle.PrizeIssueFailed:
		c.prizeFailures.Inc()
	}
}
