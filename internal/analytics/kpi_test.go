package analytics

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateKPIsSingleMonthScenario(t *testing.T) {
	inWindow := testNow.AddDate(0, 0, -3)
	ledger := &mockLedger{payments: []PaymentRecord{
		pay(100, inWindow, StatusCompleted, TypeIncome),
		pay(200, inWindow.Add(time.Hour), StatusCompleted, TypeIncome),
		pay(300, inWindow.Add(2*time.Hour), StatusCompleted, TypeIncome),
		pay(50, inWindow.Add(3*time.Hour), StatusFailed, TypeExpense),
	}}
	svc := newTestService(ledger)

	kpis, err := svc.CalculateKPIs(context.Background(), testCompanyID, KPIOptions{})
	require.NoError(t, err)

	assert.Equal(t, 4, kpis.TotalPayments)
	assert.InDelta(t, 650, kpis.TotalAmount, 1e-9)
	assert.InDelta(t, 600, kpis.TotalIncome, 1e-9)
	assert.InDelta(t, 50, kpis.TotalExpenses, 1e-9)
	assert.InDelta(t, 75, kpis.PaymentCompletionRate, 1e-9)
	// Even-sized set: the two central sorted values average out.
	assert.InDelta(t, 150, kpis.MedianPaymentAmount, 1e-9)
	assert.InDelta(t, 162.5, kpis.AveragePaymentAmount, 1e-9)
}

func TestCalculateKPIsEmptyWindowEchoesDates(t *testing.T) {
	ledger := &mockLedger{}
	svc := newTestService(ledger)

	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.January, 31, 23, 59, 59, 0, time.UTC)
	kpis, err := svc.CalculateKPIs(context.Background(), testCompanyID, KPIOptions{StartDate: start, EndDate: end})
	require.NoError(t, err)

	assert.Zero(t, kpis.TotalPayments)
	assert.Zero(t, kpis.TotalAmount)
	assert.Zero(t, kpis.AutoMatchedRate)
	assert.Equal(t, TrendStable, kpis.MonthlyTrend)
	assert.True(t, kpis.StartDate.Equal(start), "start date echoed back")
	assert.True(t, kpis.EndDate.Equal(end), "end date echoed back")
	// Only the main window fetch runs for an empty result.
	assert.Equal(t, 1, ledger.paymentCalls)
}

func TestOnTimeAndLateRatesAreComplementary(t *testing.T) {
	due := testNow.AddDate(0, 0, -10)
	onTime := due.AddDate(0, 0, 3)
	insideGrace := due.AddDate(0, 0, 12)
	late := due.AddDate(0, 0, 20)
	ledger := &mockLedger{
		payments: []PaymentRecord{
			pay(100, testNow.AddDate(0, 0, -1), StatusCompleted, TypeIncome),
		},
		settlements: []InvoiceSettlement{
			{DueDate: due, TotalAmount: 100, FirstPaymentAt: &onTime},
			{DueDate: due, TotalAmount: 100, FirstPaymentAt: &insideGrace},
			{DueDate: due, TotalAmount: 100, FirstPaymentAt: &late},
			{DueDate: due, TotalAmount: 100}, // unpaid: excluded from both buckets
		},
	}
	svc := newTestService(ledger)

	kpis, err := svc.CalculateKPIs(context.Background(), testCompanyID, KPIOptions{})
	require.NoError(t, err)

	// 12 days past due is still inside the grace period; only >14 is late.
	assert.InDelta(t, 100.0*2/3, kpis.OnTimePaymentRate, 1e-9)
	assert.InDelta(t, 100, kpis.OnTimePaymentRate+kpis.LatePaymentRate, 1e-9)
}

func TestMonthlyGrowthRateZeroWhenPreviousMonthEmpty(t *testing.T) {
	ledger := &mockLedger{payments: []PaymentRecord{
		pay(500, testNow.AddDate(0, 0, -1), StatusCompleted, TypeIncome),
	}}
	svc := newTestService(ledger)

	kpis, err := svc.CalculateKPIs(context.Background(), testCompanyID, KPIOptions{})
	require.NoError(t, err)
	assert.Zero(t, kpis.MonthlyGrowthRate)
}

func TestMonthlyGrowthRateComparesCalendarMonths(t *testing.T) {
	previousMonth := MonthStart(testNow, -1).AddDate(0, 0, 5)
	ledger := &mockLedger{payments: []PaymentRecord{
		pay(1000, previousMonth, StatusCompleted, TypeIncome),
		pay(1500, testNow.AddDate(0, 0, -1), StatusCompleted, TypeIncome),
	}}
	svc := newTestService(ledger)

	kpis, err := svc.CalculateKPIs(context.Background(), testCompanyID, KPIOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 50, kpis.MonthlyGrowthRate, 1e-9)
}

func TestAutoMatchedRateThreshold(t *testing.T) {
	below, at := 69.0, 70.0
	p1 := pay(100, testNow.AddDate(0, 0, -1), StatusCompleted, TypeIncome)
	p1.LinkingConfidence = &below
	p2 := pay(100, testNow.AddDate(0, 0, -2), StatusCompleted, TypeIncome)
	p2.LinkingConfidence = &at
	ledger := &mockLedger{payments: []PaymentRecord{p1, p2}}
	svc := newTestService(ledger)

	kpis, err := svc.CalculateKPIs(context.Background(), testCompanyID, KPIOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 50, kpis.AutoMatchedRate, 1e-9)
}

func TestRatePerPeriodUsesApproximateDivisors(t *testing.T) {
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	ledger := &mockLedger{payments: []PaymentRecord{
		pay(100, start.AddDate(0, 0, 1), StatusCompleted, TypeIncome),
		pay(100, start.AddDate(0, 0, 2), StatusCompleted, TypeIncome),
		pay(100, start.AddDate(0, 0, 3), StatusCompleted, TypeIncome),
		pay(100, start.AddDate(0, 0, 4), StatusCompleted, TypeIncome),
		pay(100, start.AddDate(0, 0, 5), StatusCompleted, TypeIncome),
		pay(100, start.AddDate(0, 0, 6), StatusCompleted, TypeIncome),
		pay(100, start.AddDate(0, 0, 7), StatusCompleted, TypeIncome),
	}}
	svc := newTestService(ledger)

	kpis, err := svc.CalculateKPIs(context.Background(), testCompanyID, KPIOptions{StartDate: start, EndDate: end})
	require.NoError(t, err)

	days := 14.0
	assert.InDelta(t, 7/days, kpis.AveragePaymentsPerDay, 1e-9)
	assert.InDelta(t, 7/(days/7), kpis.AveragePaymentsPerWeek, 1e-9)
	// Windows shorter than a month divide by one month, not a fraction.
	assert.False(t, math.IsInf(kpis.AveragePaymentsPerMonth, 0))
	assert.InDelta(t, 7, kpis.AveragePaymentsPerMonth, 1e-9)
}
