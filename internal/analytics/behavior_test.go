package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// customerFixture returns payments newest first, mirroring the ledger
// contract for CustomerPayments.
func customerFixture(daysOverdue ...int) []PaymentRecord {
	payments := make([]PaymentRecord, 0, len(daysOverdue))
	for i, overdue := range daysOverdue {
		p := pay(100, testNow.AddDate(0, 0, -(i+1)*7), StatusCompleted, TypeIncome)
		p.CustomerName = "Al Safa Transport"
		p.PaymentMethod = "bank_transfer"
		p.DaysOverdue = overdue
		payments = append(payments, p)
	}
	return payments
}

func TestCustomerBehaviorLowRisk(t *testing.T) {
	ledger := &mockLedger{customer: customerFixture(0, 0, 0, 0)}
	svc := newTestService(ledger)

	behavior, err := svc.CustomerBehavior(context.Background(), testCustomerID, BehaviorOptions{})
	require.NoError(t, err)

	assert.Equal(t, 4, behavior.TotalPayments)
	assert.InDelta(t, 100, behavior.OnTimeRate, 1e-9)
	assert.Equal(t, RiskLow, behavior.RiskLevel)
	assert.Zero(t, behavior.RiskScore)
	assert.Equal(t, "bank_transfer", behavior.PreferredPaymentMethod)
	assert.Equal(t, "Al Safa Transport", behavior.CustomerName)
	assert.Equal(t, 7, behavior.DaysSinceLastPayment)
}

func TestCustomerBehaviorHighRisk(t *testing.T) {
	// Both payments late, badly late, and almost three months apart:
	// every risk weight fires.
	newer := pay(100, testNow.AddDate(0, 0, -1), StatusCompleted, TypeIncome)
	newer.DaysOverdue = 30
	older := pay(100, testNow.AddDate(0, 0, -85), StatusCompleted, TypeIncome)
	older.DaysOverdue = 20
	ledger := &mockLedger{customer: []PaymentRecord{newer, older}}
	svc := newTestService(ledger)

	behavior, err := svc.CustomerBehavior(context.Background(), testCustomerID, BehaviorOptions{})
	require.NoError(t, err)

	// On-time rate 0 (<50): +30. Average 25 days late (>7): +20.
	// Max 30 days late (>14): +25. Frequency below monthly: +25.
	assert.Equal(t, 100, behavior.RiskScore)
	assert.Equal(t, RiskHigh, behavior.RiskLevel)
	assert.Equal(t, 30, behavior.MaxDaysLate)
	assert.InDelta(t, 25, behavior.AverageDaysLate, 1e-9)
}

func TestCustomerBehaviorMediumRisk(t *testing.T) {
	// Half late with moderate delays: only the on-time weight fires.
	ledger := &mockLedger{customer: customerFixture(5, 3, 5, 6, 2, 3, 0, 0, 0, 0, 0)}
	svc := newTestService(ledger)

	behavior, err := svc.CustomerBehavior(context.Background(), testCustomerID, BehaviorOptions{})
	require.NoError(t, err)
	assert.Equal(t, RiskMedium, behavior.RiskLevel)
	assert.Equal(t, riskWeightLowOnTimeRate, behavior.RiskScore)
}

func TestCustomerBehaviorNoHistory(t *testing.T) {
	ledger := &mockLedger{}
	svc := newTestService(ledger)

	_, err := svc.CustomerBehavior(context.Background(), testCustomerID, BehaviorOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoPaymentHistory))
}
