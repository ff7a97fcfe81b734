package analytics

import (
	"context"
	"testing"
	"time"
)

func trendFixture() []PaymentRecord {
	january := time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)
	february := time.Date(2026, time.February, 12, 9, 0, 0, 0, time.UTC)
	p1 := pay(100, january, StatusCompleted, TypeIncome)
	p1.PaymentMethod = "cash"
	p2 := pay(300, january.AddDate(0, 0, 5), StatusPending, TypeIncome)
	p2.PaymentMethod = "bank_transfer"
	p3 := pay(600, february, StatusCompleted, TypeIncome)
	p3.PaymentMethod = "cash"
	return []PaymentRecord{p1, p2, p3}
}

func TestPaymentTrendsMonthlyBuckets(t *testing.T) {
	ledger := &mockLedger{payments: trendFixture()}
	svc := newTestService(ledger)

	trends, err := svc.PaymentTrends(context.Background(), testCompanyID, TrendOptions{GroupBy: GroupByMonth})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trends) != 2 {
		t.Fatalf("expected 2 monthly buckets, got %d", len(trends))
	}

	jan, feb := trends[0], trends[1]
	if jan.Period != "2026-01" || feb.Period != "2026-02" {
		t.Fatalf("buckets out of order: %q %q", jan.Period, feb.Period)
	}
	if jan.PaymentCount != 2 || jan.TotalAmount != 400 || jan.AverageAmount != 200 {
		t.Fatalf("unexpected january bucket: %+v", jan)
	}
	if jan.ByMethod["cash"] != 1 || jan.ByMethod["bank_transfer"] != 1 {
		t.Fatalf("unexpected method distribution: %v", jan.ByMethod)
	}
	if jan.ByStatus[StatusPending] != 1 {
		t.Fatalf("unexpected status distribution: %v", jan.ByStatus)
	}
	if jan.Previous != nil {
		t.Fatalf("first bucket must not reference a previous period")
	}
	if feb.Previous == nil || feb.Previous.TotalAmount != 400 || feb.Previous.PaymentCount != 2 {
		t.Fatalf("unexpected previous reference: %+v", feb.Previous)
	}
	if feb.Previous.ChangePercent != 50 {
		t.Fatalf("expected 50%% change, got %v", feb.Previous.ChangePercent)
	}
}

func TestPaymentTrendsQuarterKeys(t *testing.T) {
	ledger := &mockLedger{payments: trendFixture()}
	svc := newTestService(ledger)

	trends, err := svc.PaymentTrends(context.Background(), testCompanyID, TrendOptions{GroupBy: GroupByQuarter})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trends) != 1 {
		t.Fatalf("expected a single Q1 bucket, got %d", len(trends))
	}
	if trends[0].Period != "2026-Q1" {
		t.Fatalf("unexpected quarter key %q", trends[0].Period)
	}
	if trends[0].PaymentCount != 3 {
		t.Fatalf("expected all fixture payments in Q1, got %d", trends[0].PaymentCount)
	}
}

func TestPeriodKeyWeekStartsSunday(t *testing.T) {
	// 2026-03-11 is a Wednesday; its week bucket starts Sunday 2026-03-08.
	wednesday := time.Date(2026, time.March, 11, 15, 0, 0, 0, time.UTC)
	if got := periodKey(wednesday, GroupByWeek); got != "2026-03-08" {
		t.Fatalf("week key = %q, want 2026-03-08", got)
	}
}
