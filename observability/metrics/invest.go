package metrics

import (
	"math"
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	coreerrors "stakebank/core/errors"
)

// InvestMetrics records bonding engine outcomes and the supply cache.
type InvestMetrics struct {
	operations *prometheus.CounterVec
	supply     *prometheus.GaugeVec
	invariants *prometheus.CounterVec
}

var (
	investOnce     sync.Once
	investRegistry *InvestMetrics
)

// NewInvestMetrics creates the collectors and registers them with reg.
func NewInvestMetrics(reg prometheus.Registerer) *InvestMetrics {
	m := &InvestMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stakebank",
			Subsystem: "invest",
			Name:      "operations_total",
			Help:      "Bonding engine operations segmented by operation and error class.",
		}, []string{"operation", "class"}),
		supply: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "stakebank",
			Subsystem: "invest",
			Name:      "supply",
			Help:      "Cached supply figures of the bonding engine.",
		}, []string{"field"}),
		invariants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stakebank",
			Subsystem: "invest",
			Name:      "invariant_violations_total",
			Help:      "Reconciliation failures segmented by kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.supply, m.invariants)
	}
	return m
}

// Invest returns the process-wide bonding engine metrics registered with the
// default registry.
func Invest() *InvestMetrics {
	investOnce.Do(func() {
		investRegistry = NewInvestMetrics(prometheus.DefaultRegisterer)
	})
	return investRegistry
}

// ObserveOperation counts an operation under the class of its error, "ok"
// on success.
func (m *InvestMetrics) ObserveOperation(op string, err error) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	class := "ok"
	if err != nil {
		class = coreerrors.ClassOf(err).String()
	}
	m.operations.WithLabelValues(op, class).Inc()
}

// SetSupply publishes the cached supply.
func (m *InvestMetrics) SetSupply(issued, bonded, claims *big.Int) {
	if m == nil {
		return
	}
	m.supply.WithLabelValues("issued").Set(bigToFloat(issued))
	m.supply.WithLabelValues("bonded").Set(bigToFloat(bonded))
	m.supply.WithLabelValues("claims").Set(bigToFloat(claims))
}

// RecordInvariantViolation counts a reconciliation failure.
func (m *InvestMetrics) RecordInvariantViolation(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.invariants.WithLabelValues(kind).Inc()
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
