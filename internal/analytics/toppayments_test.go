package analytics

import (
	"context"
	"testing"
	"time"
)

func TestTopPaymentsByAmount(t *testing.T) {
	date := testNow.AddDate(0, 0, -5)
	ledger := &mockLedger{payments: []PaymentRecord{
		pay(50, date, StatusCompleted, TypeIncome),
		pay(200, date.Add(time.Hour), StatusCompleted, TypeIncome),
		pay(75, date.Add(2*time.Hour), StatusCompleted, TypeIncome),
	}}
	svc := newTestService(ledger)

	top, err := svc.TopPayments(context.Background(), testCompanyID, TopPaymentsOptions{SortBy: SortByAmount, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(top))
	}
	if top[0].Amount != 200 || top[1].Amount != 75 {
		t.Fatalf("expected [200 75], got [%v %v]", top[0].Amount, top[1].Amount)
	}
}

func TestTopPaymentsByDateDefaults(t *testing.T) {
	oldest := testNow.AddDate(0, 0, -10)
	newest := testNow.AddDate(0, 0, -1)
	pending := pay(999, testNow.AddDate(0, 0, -2), StatusPending, TypeIncome)
	ledger := &mockLedger{payments: []PaymentRecord{
		pay(50, oldest, StatusCompleted, TypeIncome),
		pay(80, newest, StatusCompleted, TypeIncome),
		pending,
	}}
	svc := newTestService(ledger)

	top, err := svc.TopPayments(context.Background(), testCompanyID, TopPaymentsOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("pending payments must not appear; got %d rows", len(top))
	}
	if !top[0].PaymentDate.Equal(newest) {
		t.Fatalf("expected newest first, got %v", top[0].PaymentDate)
	}
}

func TestTopPaymentsCarriesDisplayFields(t *testing.T) {
	p := pay(120, testNow.AddDate(0, 0, -1), StatusCompleted, TypeIncome)
	p.CustomerName = "Desert Wheels Rental"
	p.ContractNumber = "CT-2026-0142"
	p.InvoiceNumber = "INV-8841"
	ledger := &mockLedger{payments: []PaymentRecord{p}}
	svc := newTestService(ledger)

	top, err := svc.TopPayments(context.Background(), testCompanyID, TopPaymentsOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != 1 {
		t.Fatalf("expected 1 payment, got %d", len(top))
	}
	got := top[0]
	if got.CustomerName != p.CustomerName || got.ContractNumber != p.ContractNumber || got.InvoiceNumber != p.InvoiceNumber {
		t.Fatalf("display fields not carried: %+v", got)
	}
}
