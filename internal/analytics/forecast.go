package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	defaultForecastDays  = 30
	forecastHistoryDays  = 90
	weekendActivityShare = 0.3
	summerActivityShare  = 0.7
	// forecastExpenseShare estimates operating outflow as a share of
	// expected income for days where no expense schedule exists.
	forecastExpenseShare = 0.05
)

// Forecast factor weights. Confidence is the attained share of the total
// attainable weight.
const (
	weightDayOfWeek  = 30
	weightDayOfMonth = 20
	weightWeekend    = 15
	weightSeasonal   = 25
)

// ForecastOptions controls the daily forecast horizon.
type ForecastOptions struct {
	Days int
}

// ForecastDailyCashFlow projects per-day cash flow for the horizon from the
// trailing 90 days of completed payments, weighting day-of-week and
// day-of-month collection patterns and damping weekends and the summer
// season. With no history it returns an empty forecast, not an error.
func (s *Service) ForecastDailyCashFlow(ctx context.Context, companyID uuid.UUID, opts ForecastOptions) ([]DailyForecast, error) {
	days := opts.Days
	if days <= 0 {
		days = defaultForecastDays
	}
	now := s.now()

	history, err := s.ledger.Payments(ctx, companyID, PaymentFilter{
		From:   now.AddDate(0, 0, -forecastHistoryDays),
		To:     now,
		Status: StatusCompleted,
	})
	if err != nil {
		s.logger.Error("daily cash flow forecast",
			slog.String("company_id", companyID.String()),
			slog.Any("error", err))
		return []DailyForecast{}, err
	}
	if len(history) == 0 {
		return []DailyForecast{}, nil
	}

	dailyAverage := sumAmounts(history) / forecastHistoryDays
	averageAmount := sumAmounts(history) / float64(len(history))

	type bucket struct {
		count  int
		amount float64
	}
	var byWeekday [8]bucket
	var byMonthday [32]bucket
	for _, p := range history {
		wd := int(p.PaymentDate.Weekday())
		byWeekday[wd].count++
		byWeekday[wd].amount += p.Amount
		md := p.PaymentDate.Day()
		byMonthday[md].count++
		byMonthday[md].amount += p.Amount
	}

	forecasts := make([]DailyForecast, 0, days)
	for i := 0; i < days; i++ {
		date := now.AddDate(0, 0, i)
		expected := 0.0
		confidence := 0
		factors := make([]ForecastFactor, 0, 4)

		if wd := byWeekday[int(date.Weekday())]; wd.count > 0 {
			weekdayRate := wd.amount / float64(wd.count)
			expected = dailyAverage * (weekdayRate / nonZero(averageAmount))
			confidence += weightDayOfWeek
			impact := "Lower payment day"
			if weekdayRate > averageAmount {
				impact = "Higher payment day"
			}
			factors = append(factors, ForecastFactor{Factor: "Day of week pattern", Impact: impact, Weight: weightDayOfWeek})
		}

		if md := byMonthday[date.Day()]; md.count > 0 {
			monthdayRate := md.amount / float64(md.count)
			adjusted := expected * (monthdayRate / nonZero(averageAmount))
			expected = maxFloat(0, (expected+adjusted)/2)
			confidence += weightDayOfMonth
			factors = append(factors, ForecastFactor{Factor: "Day of month pattern", Impact: "Payday adjustment", Weight: weightDayOfMonth})
		}

		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			expected *= weekendActivityShare
			confidence += weightWeekend
			factors = append(factors, ForecastFactor{Factor: "Weekend adjustment", Impact: "Reduced activity", Weight: weightWeekend})
		}

		if date.Month() >= time.June && date.Month() <= time.September {
			expected *= summerActivityShare
			confidence += weightSeasonal
			factors = append(factors, ForecastFactor{Factor: "Seasonal trend", Impact: "Summer slowdown", Weight: weightSeasonal})
		}

		totalWeight := weightDayOfWeek + weightDayOfMonth + weightWeekend + weightSeasonal
		expenses := expected * forecastExpenseShare
		forecasts = append(forecasts, DailyForecast{
			Date:             date,
			ExpectedPayments: expected / nonZero(averageAmount),
			ExpectedIncome:   expected,
			ExpectedExpenses: expenses,
			NetCashFlow:      expected - expenses,
			Confidence:       float64(confidence) / float64(totalWeight) * 100,
			Factors:          factors,
		})
	}
	return forecasts, nil
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
