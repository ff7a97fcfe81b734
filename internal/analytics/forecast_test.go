package analytics

import (
	"context"
	"testing"
	"time"
)

func TestForecastDailyCashFlowEmptyHistory(t *testing.T) {
	ledger := &mockLedger{}
	svc := newTestService(ledger)

	forecasts, err := svc.ForecastDailyCashFlow(context.Background(), testCompanyID, ForecastOptions{Days: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(forecasts) != 0 {
		t.Fatalf("expected empty forecast without history, got %d days", len(forecasts))
	}
}

func TestForecastDailyCashFlowHorizonAndShape(t *testing.T) {
	payments := make([]PaymentRecord, 0, 30)
	for i := 1; i <= 30; i++ {
		payments = append(payments, pay(100, testNow.AddDate(0, 0, -i), StatusCompleted, TypeIncome))
	}
	ledger := &mockLedger{payments: payments}
	svc := newTestService(ledger)

	forecasts, err := svc.ForecastDailyCashFlow(context.Background(), testCompanyID, ForecastOptions{Days: 14})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(forecasts) != 14 {
		t.Fatalf("expected 14 days, got %d", len(forecasts))
	}
	for i, f := range forecasts {
		if !f.Date.Equal(testNow.AddDate(0, 0, i)) {
			t.Fatalf("day %d has date %v", i, f.Date)
		}
		if f.Confidence < 0 || f.Confidence > 100 {
			t.Fatalf("confidence out of range: %v", f.Confidence)
		}
		if f.NetCashFlow != f.ExpectedIncome-f.ExpectedExpenses {
			t.Fatalf("net flow inconsistent on day %d", i)
		}
		if len(f.Factors) == 0 {
			t.Fatalf("expected at least one factor on day %d", i)
		}
	}
}

func TestForecastWeekendDamping(t *testing.T) {
	// Uniform history across all weekdays, then compare a weekday against a
	// weekend day in the horizon.
	payments := make([]PaymentRecord, 0, 28)
	for i := 1; i <= 28; i++ {
		payments = append(payments, pay(100, testNow.AddDate(0, 0, -i), StatusCompleted, TypeIncome))
	}
	ledger := &mockLedger{payments: payments}
	svc := newTestService(ledger)

	forecasts, err := svc.ForecastDailyCashFlow(context.Background(), testCompanyID, ForecastOptions{Days: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var weekday, weekend *DailyForecast
	for i := range forecasts {
		switch forecasts[i].Date.Weekday() {
		case time.Saturday:
			weekend = &forecasts[i]
		case time.Wednesday:
			weekday = &forecasts[i]
		}
	}
	if weekday == nil || weekend == nil {
		t.Fatalf("expected both a Wednesday and a Saturday in a 7-day horizon")
	}
	if weekend.ExpectedIncome >= weekday.ExpectedIncome {
		t.Fatalf("weekend income %v not damped below weekday %v", weekend.ExpectedIncome, weekday.ExpectedIncome)
	}
}
