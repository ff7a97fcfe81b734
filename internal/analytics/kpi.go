package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// onTimeGraceDays is the settlement delay, in days after the invoice due
// date, still classified as on time. Only invoices settled later than this
// count as late.
const onTimeGraceDays = 14

// trendMonths is the depth of the trailing series behind MonthlyTrend.
const trendMonths = 6

// KPIOptions scopes a KPI calculation. A zero StartDate defaults to the
// current month start, a zero EndDate to now. Status restricts the fetched
// rows when set.
type KPIOptions struct {
	StartDate time.Time
	EndDate   time.Time
	Status    string
}

// CalculateKPIs computes the aggregate payment statistics for the window.
// An empty window yields an all-zero result with the window echoed back; a
// ledger failure is logged and returned alongside the zero result so the
// caller decides between an error banner and a zero-state dashboard.
func (s *Service) CalculateKPIs(ctx context.Context, companyID uuid.UUID, opts KPIOptions) (PaymentKPIs, error) {
	now := s.now()
	start := opts.StartDate
	if start.IsZero() {
		start = MonthStart(now, 0)
	}
	end := opts.EndDate
	if end.IsZero() {
		end = now
	}

	loader := func(ctx context.Context) (interface{}, error) {
		return s.computeKPIs(ctx, companyID, start, end, opts.Status)
	}

	var kpis PaymentKPIs
	if err := s.fetchCached(ctx, keyKPI(companyID, start, end, opts.Status), &kpis, loader); err != nil {
		s.logger.Error("calculate kpis",
			slog.String("company_id", companyID.String()),
			slog.Time("start", start),
			slog.Time("end", end),
			slog.Any("error", err))
		return emptyKPIs(start, end), err
	}
	return kpis, nil
}

func (s *Service) computeKPIs(ctx context.Context, companyID uuid.UUID, start, end time.Time, status string) (PaymentKPIs, error) {
	payments, err := s.ledger.Payments(ctx, companyID, PaymentFilter{From: start, To: end, Status: status})
	if err != nil {
		return PaymentKPIs{}, err
	}
	if len(payments) == 0 {
		return emptyKPIs(start, end), nil
	}

	kpis := emptyKPIs(start, end)
	kpis.TotalPayments = len(payments)
	kpis.TotalAmount = sumAmounts(payments)
	kpis.TotalIncome = sumByType(payments, TypeIncome)
	kpis.TotalExpenses = sumByType(payments, TypeExpense)
	kpis.AveragePaymentAmount = kpis.TotalAmount / float64(kpis.TotalPayments)

	amounts := make([]float64, len(payments))
	for i, p := range payments {
		amounts[i] = p.Amount
	}
	kpis.MedianPaymentAmount = median(amounts)

	// Dashboard approximations, deliberately not calendar-aware.
	days := daysBetween(start, end)
	kpis.AveragePaymentsPerDay = float64(kpis.TotalPayments) / days
	kpis.AveragePaymentsPerWeek = float64(kpis.TotalPayments) / maxFloat(1, days/7)
	kpis.AveragePaymentsPerMonth = float64(kpis.TotalPayments) / maxFloat(1, days/30)

	kpis.PaymentCompletionRate = safePercent(float64(countByStatus(payments, StatusCompleted)), float64(kpis.TotalPayments))

	onTime, late, err := s.settlementSplit(ctx, companyID, start, end)
	if err != nil {
		return PaymentKPIs{}, err
	}
	kpis.OnTimePaymentRate = safePercent(float64(onTime), float64(onTime+late))
	kpis.LatePaymentRate = 100 - kpis.OnTimePaymentRate

	autoMatched := 0
	for _, p := range payments {
		if p.AutoMatched() {
			autoMatched++
		}
	}
	kpis.AutoMatchedRate = safePercent(float64(autoMatched), float64(kpis.TotalPayments))

	monthTotals, err := s.monthlyTotals(ctx, companyID, trendMonths, PaymentFilter{Status: status})
	if err != nil {
		return PaymentKPIs{}, err
	}
	kpis.MonthlyTrend = classifyTrend(monthTotals)
	kpis.WeeklyTrend = classifyTrend(weeklyTotals(payments, start, end))

	currentIncome, previousIncome, err := s.incomePair(ctx, companyID)
	if err != nil {
		return PaymentKPIs{}, err
	}
	kpis.MonthlyGrowthRate = growthPercent(previousIncome, currentIncome)

	return kpis, nil
}

// settlementSplit classifies every in-window invoice that has at least one
// completed payment as on time or late. Invoices nobody has paid yet stay
// out of both buckets.
func (s *Service) settlementSplit(ctx context.Context, companyID uuid.UUID, start, end time.Time) (onTime, late int, err error) {
	settlements, err := s.ledger.InvoiceSettlements(ctx, companyID, start, end)
	if err != nil {
		return 0, 0, err
	}
	grace := time.Duration(onTimeGraceDays) * 24 * time.Hour
	for _, inv := range settlements {
		if inv.FirstPaymentAt == nil {
			continue
		}
		if inv.FirstPaymentAt.Sub(inv.DueDate) > grace {
			late++
		} else {
			onTime++
		}
	}
	return onTime, late, nil
}

// incomePair fetches income totals for the current and previous calendar
// month, feeding the month-over-month growth rate.
func (s *Service) incomePair(ctx context.Context, companyID uuid.UUID) (current, previous float64, err error) {
	now := s.now()
	for _, offset := range []int{0, -1} {
		payments, err := s.ledger.Payments(ctx, companyID, PaymentFilter{
			From:            MonthStart(now, offset),
			To:              MonthEnd(now, offset),
			TransactionType: TypeIncome,
		})
		if err != nil {
			return 0, 0, err
		}
		if offset == 0 {
			current = sumAmounts(payments)
		} else {
			previous = sumAmounts(payments)
		}
	}
	return current, previous, nil
}

// weeklyTotals buckets in-window payments into consecutive seven-day spans
// anchored at the window start, oldest first.
func weeklyTotals(payments []PaymentRecord, start, end time.Time) []float64 {
	weeks := int(daysBetween(start, end)+6) / 7
	if weeks < 1 {
		weeks = 1
	}
	totals := make([]float64, weeks)
	for _, p := range payments {
		idx := int(p.PaymentDate.Sub(start).Hours() / (24 * 7))
		if idx < 0 {
			idx = 0
		}
		if idx >= weeks {
			idx = weeks - 1
		}
		totals[idx] += p.Amount
	}
	return totals
}

func emptyKPIs(start, end time.Time) PaymentKPIs {
	return PaymentKPIs{
		MonthlyTrend: TrendStable,
		WeeklyTrend:  TrendStable,
		StartDate:    start,
		EndDate:      end,
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
