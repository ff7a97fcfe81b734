package analytics

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	defaultRevenueMonths = 12
	// predictionWindow is how many trailing growth rates feed the naive
	// linear extrapolation.
	predictionWindow = 6
	// defaultWeekdayMonths is the lookback for the weekday ranking when the
	// caller does not size it.
	defaultWeekdayMonths = 4
)

// RevenueOptions controls the trailing revenue analysis.
type RevenueOptions struct {
	MonthsToAnalyze    int
	IncludePredictions bool
}

// AnalyzeRevenue builds the trailing monthly revenue series from completed
// income payments, oldest month first, with each growth rate computed
// against the chronologically prior month. The naive forecast extrapolates
// the average of the latest growth rates onto the current month.
func (s *Service) AnalyzeRevenue(ctx context.Context, companyID uuid.UUID, opts RevenueOptions) (RevenueAnalytics, error) {
	months := opts.MonthsToAnalyze
	if months <= 0 {
		months = defaultRevenueMonths
	}

	loader := func(ctx context.Context) (interface{}, error) {
		return s.computeRevenue(ctx, companyID, months, opts.IncludePredictions)
	}

	var result RevenueAnalytics
	if err := s.fetchCached(ctx, keyRevenue(companyID, months, opts.IncludePredictions), &result, loader); err != nil {
		s.logger.Error("analyze revenue",
			slog.String("company_id", companyID.String()),
			slog.Int("months", months),
			slog.Any("error", err))
		return RevenueAnalytics{}, err
	}
	return result, nil
}

func (s *Service) computeRevenue(ctx context.Context, companyID uuid.UUID, months int, predictions bool) (RevenueAnalytics, error) {
	now := s.now()
	series := make([]RevenueMonth, 0, months)
	for offset := -(months - 1); offset <= 0; offset++ {
		payments, err := s.ledger.Payments(ctx, companyID, PaymentFilter{
			From:            MonthStart(now, offset),
			To:              MonthEnd(now, offset),
			Status:          StatusCompleted,
			TransactionType: TypeIncome,
		})
		if err != nil {
			return RevenueAnalytics{}, err
		}
		revenue := sumAmounts(payments)
		growth := 0.0
		if len(series) > 0 {
			growth = growthPercent(series[len(series)-1].Revenue, revenue)
		}
		series = append(series, RevenueMonth{
			Month:      MonthLabel(now, offset),
			Revenue:    revenue,
			GrowthRate: growth,
		})
	}

	result := RevenueAnalytics{
		CurrentMonthRevenue: series[len(series)-1].Revenue,
		MonthlySeries:       series,
	}

	if predictions {
		window := predictionWindow
		if window > len(series) {
			window = len(series)
		}
		var sum float64
		for _, entry := range series[len(series)-window:] {
			sum += entry.GrowthRate
		}
		avg := sum / float64(window)
		result.PredictedGrowthRate = avg
		result.PredictedRevenue = result.CurrentMonthRevenue * (1 + avg/100)
	}

	weekdays, err := s.weekdayRevenue(ctx, companyID, defaultWeekdayMonths)
	if err != nil {
		return RevenueAnalytics{}, err
	}
	result.BestWeekdays = weekdays

	return result, nil
}

// weekdayRevenue ranks days of the week by completed income collected over
// the trailing months, highest total first.
func (s *Service) weekdayRevenue(ctx context.Context, companyID uuid.UUID, months int) ([]WeekdayRevenue, error) {
	if months <= 0 {
		months = defaultWeekdayMonths
	}
	now := s.now()
	payments, err := s.ledger.Payments(ctx, companyID, PaymentFilter{
		From:            MonthStart(now, -(months - 1)),
		To:              now,
		Status:          StatusCompleted,
		TransactionType: TypeIncome,
	})
	if err != nil {
		return nil, err
	}

	var buckets [7]WeekdayRevenue
	for _, p := range payments {
		day := p.PaymentDate.Weekday()
		buckets[day].Weekday = day
		buckets[day].TotalAmount += p.Amount
		buckets[day].PaymentCount++
	}

	ranked := make([]WeekdayRevenue, 0, 7)
	for day, bucket := range buckets {
		if bucket.PaymentCount == 0 {
			continue
		}
		bucket.Weekday = time.Weekday(day)
		ranked = append(ranked, bucket)
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].TotalAmount > ranked[j].TotalAmount
	})
	return ranked, nil
}
