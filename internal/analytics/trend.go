package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Trend groupings accepted by PaymentTrends.
const (
	GroupByDay     = "day"
	GroupByWeek    = "week"
	GroupByMonth   = "month"
	GroupByQuarter = "quarter"
	GroupByYear    = "year"
)

// TrendOptions scopes the grouped trend report. GroupBy defaults to month;
// the window defaults to the trailing twelve months.
type TrendOptions struct {
	StartDate time.Time
	EndDate   time.Time
	GroupBy   string
}

// PaymentTrends buckets the window's payments by calendar period and reports
// volume, amount, and method/type/status distributions per bucket, each
// compared against the bucket before it.
func (s *Service) PaymentTrends(ctx context.Context, companyID uuid.UUID, opts TrendOptions) ([]PaymentTrend, error) {
	now := s.now()
	start := opts.StartDate
	if start.IsZero() {
		start = MonthStart(now, -(defaultRevenueMonths - 1))
	}
	end := opts.EndDate
	if end.IsZero() {
		end = now
	}
	groupBy := opts.GroupBy
	if groupBy == "" {
		groupBy = GroupByMonth
	}

	loader := func(ctx context.Context) (interface{}, error) {
		payments, err := s.ledger.Payments(ctx, companyID, PaymentFilter{From: start, To: end})
		if err != nil {
			return nil, err
		}
		return bucketTrends(payments, groupBy), nil
	}

	var trends []PaymentTrend
	if err := s.fetchCached(ctx, keyTrends(companyID, groupBy, start, end), &trends, loader); err != nil {
		s.logger.Error("payment trends",
			slog.String("company_id", companyID.String()),
			slog.String("group_by", groupBy),
			slog.Any("error", err))
		return []PaymentTrend{}, err
	}
	return trends, nil
}

func bucketTrends(payments []PaymentRecord, groupBy string) []PaymentTrend {
	buckets := make(map[string][]PaymentRecord)
	for _, p := range payments {
		key := periodKey(p.PaymentDate, groupBy)
		buckets[key] = append(buckets[key], p)
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	trends := make([]PaymentTrend, 0, len(keys))
	for i, key := range keys {
		group := buckets[key]
		trend := PaymentTrend{
			Period:       key,
			PeriodType:   groupBy,
			PaymentCount: len(group),
			TotalAmount:  sumAmounts(group),
			ByMethod:     map[string]int{},
			ByType:       map[string]int{},
			ByStatus:     map[string]int{},
			StartDate:    group[0].PaymentDate,
			EndDate:      group[0].PaymentDate,
		}
		trend.AverageAmount = trend.TotalAmount / float64(trend.PaymentCount)
		for _, p := range group {
			trend.ByMethod[labelOrUnknown(p.PaymentMethod)]++
			trend.ByType[labelOrUnknown(p.PaymentType)]++
			trend.ByStatus[labelOrUnknown(p.PaymentStatus)]++
			if p.PaymentDate.Before(trend.StartDate) {
				trend.StartDate = p.PaymentDate
			}
			if p.PaymentDate.After(trend.EndDate) {
				trend.EndDate = p.PaymentDate
			}
		}
		if i > 0 {
			prev := buckets[keys[i-1]]
			prevTotal := sumAmounts(prev)
			trend.Previous = &PreviousPeriodRef{
				PaymentCount:  len(prev),
				TotalAmount:   prevTotal,
				ChangePercent: growthPercent(prevTotal, trend.TotalAmount),
			}
		}
		trends = append(trends, trend)
	}
	return trends
}

// periodKey renders the bucket key for a payment date. Keys sort
// lexicographically in chronological order within one grouping.
func periodKey(t time.Time, groupBy string) string {
	switch groupBy {
	case GroupByDay:
		return t.Format("2006-01-02")
	case GroupByWeek:
		// Buckets start on Sunday.
		weekStart := t.AddDate(0, 0, -int(t.Weekday()))
		return weekStart.Format("2006-01-02")
	case GroupByQuarter:
		quarter := (int(t.Month())-1)/3 + 1
		return fmt.Sprintf("%d-Q%d", t.Year(), quarter)
	case GroupByYear:
		return t.Format("2006")
	default:
		return MonthKey(t)
	}
}

func labelOrUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
