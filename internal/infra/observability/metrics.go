// Package observability exposes Prometheus metrics for the ledger daemon.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/leadfive-network/leadfive/internal/domain"
)

// ─── Registry Metrics ───────────────────────────────────────────────────────

// Registrations tracks user registrations by package tier.
var Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "leadfive",
	Subsystem: "registry",
	Name:      "registrations_total",
	Help:      "Total user registrations by package tier.",
}, []string{"tier"})

// Upgrades tracks package upgrades by target tier.
var Upgrades = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "leadfive",
	Subsystem: "registry",
	Name:      "upgrades_total",
	Help:      "Total package upgrades by target tier.",
}, []string{"tier"})

// RegisteredUsers tracks the current user count.
var RegisteredUsers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "leadfive",
	Subsystem: "registry",
	Name:      "users",
	Help:      "Number of registered users.",
})

// ─── Commission Metrics ─────────────────────────────────────────────────────

// CommissionsPaid tracks commission volume by earnings source, in USDT.
var CommissionsPaid = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "leadfive",
	Subsystem: "commission",
	Name:      "paid_usdt_total",
	Help:      "Total commissions credited by earnings source, in USDT.",
}, []string{"source"})

// ─── Pool Metrics ───────────────────────────────────────────────────────────

// PoolBalance tracks the current balance of each shared pool, in USDT.
var PoolBalance = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "leadfive",
	Subsystem: "pool",
	Name:      "balance_usdt",
	Help:      "Current balance of each shared pool, in USDT.",
}, []string{"pool"})

// PoolDistributions tracks completed pool distributions.
var PoolDistributions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "leadfive",
	Subsystem: "pool",
	Name:      "distributions_total",
	Help:      "Total completed pool distributions.",
}, []string{"pool"})

// ─── Withdrawal Metrics ─────────────────────────────────────────────────────

// Withdrawals tracks processed withdrawals.
var Withdrawals = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "leadfive",
	Subsystem: "withdrawal",
	Name:      "processed_total",
	Help:      "Total processed withdrawals.",
})

// WithdrawnUSDT tracks the paid-out withdrawal volume, in USDT.
var WithdrawnUSDT = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "leadfive",
	Subsystem: "withdrawal",
	Name:      "paid_usdt_total",
	Help:      "Total USDT paid out through withdrawals.",
})

// ─── API Metrics ────────────────────────────────────────────────────────────

// HTTPRequests tracks API requests by route and status.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "leadfive",
	Subsystem: "api",
	Name:      "requests_total",
	Help:      "Total API requests by route and status code.",
}, []string{"route", "status"})

// ─── Snapshot Export ────────────────────────────────────────────────────────

// usdt converts a token amount to a float USDT value for gauge export.
func usdt(a domain.Amount) float64 {
	return float64(a) / float64(domain.UnitsPerUSDT)
}

// ObserveStats refreshes the gauges derived from engine totals. Called after
// every committed operation and on startup after replay.
func ObserveStats(s domain.Stats, pools []domain.Pool) {
	RegisteredUsers.Set(float64(s.Users))
	for _, p := range pools {
		PoolBalance.WithLabelValues(string(p.Name)).Set(usdt(p.Balance))
	}
}

// ─── Event Sink Decorator ───────────────────────────────────────────────────

// MetricsSink wraps an event sink and updates counters from the committed
// event stream. Metrics failures cannot occur, so durability semantics are
// exactly those of the wrapped sink.
type MetricsSink struct {
	Next domain.EventSink
}

func (s MetricsSink) Append(ev domain.Event) error {
	if err := s.Next.Append(ev); err != nil {
		return err
	}

	switch ev.Type {
	case domain.EventUserRegistered:
		Registrations.WithLabelValues(strconv.Itoa(ev.PackageTier)).Inc()
	case domain.EventPackageUpgraded:
		Upgrades.WithLabelValues(strconv.Itoa(ev.PackageTier)).Inc()
	case domain.EventCommissionDistributed:
		CommissionsPaid.WithLabelValues(ev.Source).Add(usdt(ev.Amount))
	case domain.EventPoolDistributed:
		PoolDistributions.WithLabelValues(string(ev.Pool)).Inc()
	case domain.EventWithdrawalProcessed:
		Withdrawals.Inc()
		WithdrawnUSDT.Add(usdt(ev.Amount - ev.Reinvested - ev.Fee))
	}
	return nil
}
