package metrics

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coreerrors "stakebank/core/errors"
	"stakebank/native/invest"
)

var _ invest.Metrics = (*InvestMetrics)(nil)

func TestInvestMetricsOperations(t *testing.T) {
	m := NewInvestMetrics(prometheus.NewRegistry())
	m.ObserveOperation("bond", nil)
	m.ObserveOperation("bond", nil)
	m.ObserveOperation("claim", fmt.Errorf("claim: %w", coreerrors.ErrNothingToClaim))
	m.ObserveOperation("unbond", errors.New("unclassified"))

	if got := testutil.ToFloat64(m.operations.WithLabelValues("bond", "ok")); got != 2 {
		t.Fatalf("expected 2 successful bonds, got %v", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("claim", "insufficient")); got != 1 {
		t.Fatalf("expected 1 insufficient claim, got %v", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("unbond", "none")); got != 1 {
		t.Fatalf("expected 1 unclassified unbond, got %v", got)
	}
}

func TestInvestMetricsSupply(t *testing.T) {
	m := NewInvestMetrics(prometheus.NewRegistry())
	m.SetSupply(big.NewInt(905), big.NewInt(910), big.NewInt(95))
	if got := testutil.ToFloat64(m.supply.WithLabelValues("bonded")); got != 910 {
		t.Fatalf("expected bonded 910, got %v", got)
	}
	m.RecordInvariantViolation("bonded_mismatch")
	if got := testutil.ToFloat64(m.invariants.WithLabelValues("bonded_mismatch")); got != 1 {
		t.Fatalf("expected one violation, got %v", got)
	}
}

func TestInvestMetricsNilSafe(t *testing.T) {
	var m *InvestMetrics
	m.ObserveOperation("bond", nil)
	m.SetSupply(nil, nil, nil)
	m.RecordInvariantViolation("")
}
