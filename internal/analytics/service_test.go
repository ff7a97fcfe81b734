package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	testCompanyID  = uuid.MustParse("7b8c9d0e-1f2a-4b3c-8d4e-5f6a7b8c9d0e")
	testCustomerID = uuid.MustParse("0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d")
	testNow        = time.Date(2026, time.March, 17, 12, 0, 0, 0, time.UTC)
)

// mockLedger behaves like a tiny in-memory ledger: it applies the window and
// field filters the real repository would, so one fixture serves every
// sub-query an operation issues.
type mockLedger struct {
	payments    []PaymentRecord
	settlements []InvoiceSettlement
	customer    []PaymentRecord
	err         error

	paymentCalls    int
	settlementCalls int
	customerCalls   int
}

func (m *mockLedger) Payments(ctx context.Context, companyID uuid.UUID, filter PaymentFilter) ([]PaymentRecord, error) {
	m.paymentCalls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]PaymentRecord, 0, len(m.payments))
	for _, p := range m.payments {
		if p.PaymentDate.Before(filter.From) || p.PaymentDate.After(filter.To) {
			continue
		}
		if filter.Status != "" && p.PaymentStatus != filter.Status {
			continue
		}
		if filter.TransactionType != "" && p.TransactionType != filter.TransactionType {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *mockLedger) InvoiceSettlements(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]InvoiceSettlement, error) {
	m.settlementCalls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]InvoiceSettlement, 0, len(m.settlements))
	for _, s := range m.settlements {
		if s.DueDate.Before(from) || s.DueDate.After(to) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *mockLedger) CustomerPayments(ctx context.Context, customerID uuid.UUID, since time.Time) ([]PaymentRecord, error) {
	m.customerCalls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]PaymentRecord, 0, len(m.customer))
	for _, p := range m.customer {
		if p.PaymentDate.Before(since) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// pay builds a payment fixture with the fields most tests care about.
func pay(amount float64, date time.Time, status, transactionType string) PaymentRecord {
	return PaymentRecord{
		ID:              uuid.New(),
		CompanyID:       testCompanyID,
		Amount:          amount,
		PaymentDate:     date,
		PaymentStatus:   status,
		TransactionType: transactionType,
	}
}

func newTestService(ledger Ledger) *Service {
	svc := NewService(ledger, nil, nil)
	svc.WithNow(func() time.Time { return testNow })
	return svc
}

func newCachedService(t *testing.T, ledger Ledger) (*Service, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := NewService(ledger, NewCache(client, time.Minute), nil)
	svc.WithNow(func() time.Time { return testNow })
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestCalculateKPIsCaches(t *testing.T) {
	ledger := &mockLedger{payments: []PaymentRecord{
		pay(100, testNow.AddDate(0, 0, -1), StatusCompleted, TypeIncome),
		pay(200, testNow.AddDate(0, 0, -2), StatusCompleted, TypeIncome),
	}}
	svc, cleanup := newCachedService(t, ledger)
	defer cleanup()

	ctx := context.Background()
	kpis, err := svc.CalculateKPIs(ctx, testCompanyID, KPIOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kpis.TotalPayments != 2 {
		t.Fatalf("expected 2 payments got %d", kpis.TotalPayments)
	}
	firstCalls := ledger.paymentCalls

	// Second call should hit the cache without touching the ledger.
	if _, err := svc.CalculateKPIs(ctx, testCompanyID, KPIOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ledger.paymentCalls != firstCalls {
		t.Fatalf("expected cached result, ledger called %d -> %d times", firstCalls, ledger.paymentCalls)
	}

	// Bumping the version should trigger a reload.
	if err := svc.cache.Bump(ctx); err != nil {
		t.Fatalf("bump failed: %v", err)
	}
	ledger.payments = append(ledger.payments, pay(300, testNow.AddDate(0, 0, -3), StatusCompleted, TypeIncome))
	kpis, err = svc.CalculateKPIs(ctx, testCompanyID, KPIOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kpis.TotalPayments != 3 {
		t.Fatalf("expected refreshed KPIs with 3 payments, got %d", kpis.TotalPayments)
	}
	if ledger.paymentCalls == firstCalls {
		t.Fatalf("expected ledger refresh after bump")
	}
}

func TestLedgerFailureReturnsZeroResultAndError(t *testing.T) {
	ledger := &mockLedger{err: errors.New("connection refused")}
	svc := newTestService(ledger)

	ctx := context.Background()
	kpis, err := svc.CalculateKPIs(ctx, testCompanyID, KPIOptions{})
	if err == nil {
		t.Fatalf("expected error to surface")
	}
	if kpis.TotalPayments != 0 || kpis.TotalAmount != 0 {
		t.Fatalf("expected zero-valued KPIs, got %+v", kpis)
	}
	if !kpis.StartDate.Equal(MonthStart(testNow, 0)) {
		t.Fatalf("expected window echoed on failure, got %v", kpis.StartDate)
	}

	top, err := svc.TopPayments(ctx, testCompanyID, TopPaymentsOptions{})
	if err == nil {
		t.Fatalf("expected error to surface")
	}
	if len(top) != 0 {
		t.Fatalf("expected empty top payments on failure, got %d", len(top))
	}
}

func TestClassifyTrend(t *testing.T) {
	cases := []struct {
		name   string
		totals []float64
		want   TrendDirection
	}{
		{"too short", []float64{100}, TrendStable},
		{"flat", []float64{1000, 1000, 1000, 1000, 1000, 1000}, TrendStable},
		{"rising", []float64{100, 120, 150, 200}, TrendIncreasing},
		{"falling", []float64{200, 150, 120, 100}, TrendDecreasing},
		{"drifting", []float64{800, 900, 1000, 1170}, TrendStable},
		{"spike", []float64{1000, 1000, 1700, 1000}, TrendVolatile},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyTrend(tc.totals); got != tc.want {
				t.Fatalf("classifyTrend(%v) = %s, want %s", tc.totals, got, tc.want)
			}
		})
	}
}

func TestMedian(t *testing.T) {
	if got := median([]float64{300, 100, 200}); got != 200 {
		t.Fatalf("odd median = %v, want 200", got)
	}
	if got := median([]float64{300, 100, 200, 50}); got != 150 {
		t.Fatalf("even median = %v, want average of central values 150", got)
	}
	if got := median(nil); got != 0 {
		t.Fatalf("empty median = %v, want 0", got)
	}
}
