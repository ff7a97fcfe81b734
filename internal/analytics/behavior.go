package analytics

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/google/uuid"
)

// ErrNoPaymentHistory indicates a customer with no payments in the lookback
// window; behavior analysis has nothing to score.
var ErrNoPaymentHistory = errors.New("analytics: no payment history for customer")

const defaultBehaviorLookbackDays = 90

// Risk score contributions. The thresholds mirror the collection team's
// working definitions of a problem payer.
const (
	riskWeightLowOnTimeRate = 30
	riskWeightOftenLate     = 20
	riskWeightVeryLate      = 25
	riskWeightLowFrequency  = 25
)

// BehaviorOptions scopes a customer behavior analysis.
type BehaviorOptions struct {
	LookbackDays int
}

// CustomerBehavior analyses a customer's payment patterns over the lookback
// window and assigns an additive risk score. Unlike the company-level
// reports, a customer without history is an error rather than a zero result.
func (s *Service) CustomerBehavior(ctx context.Context, customerID uuid.UUID, opts BehaviorOptions) (CustomerBehavior, error) {
	lookback := opts.LookbackDays
	if lookback <= 0 {
		lookback = defaultBehaviorLookbackDays
	}
	now := s.now()
	since := now.AddDate(0, 0, -lookback)

	payments, err := s.ledger.CustomerPayments(ctx, customerID, since)
	if err != nil {
		s.logger.Error("customer behavior",
			slog.String("customer_id", customerID.String()),
			slog.Any("error", err))
		return CustomerBehavior{}, err
	}
	if len(payments) == 0 {
		return CustomerBehavior{}, ErrNoPaymentHistory
	}

	// Ledger contract: newest first.
	newest, oldest := payments[0], payments[len(payments)-1]

	behavior := CustomerBehavior{
		CustomerID:         customerID,
		CustomerName:       newest.CustomerName,
		TotalPayments:      len(payments),
		TotalAmount:        sumAmounts(payments),
		MethodDistribution: map[string]int{},
		LastPaymentDate:    newest.PaymentDate,
	}
	behavior.AveragePaymentAmount = behavior.TotalAmount / float64(behavior.TotalPayments)
	behavior.DaysSinceLastPayment = int(now.Sub(newest.PaymentDate).Hours() / 24)

	rangeMonths := daysBetween(oldest.PaymentDate, newest.PaymentDate) / 30
	behavior.PaymentFrequency = float64(behavior.TotalPayments) / maxFloat(1, rangeMonths)

	var lateDaysSum int
	for _, p := range payments {
		behavior.MethodDistribution[labelOrUnknown(p.PaymentMethod)]++
		if p.DaysOverdue > 0 {
			behavior.LatePayments++
			lateDaysSum += p.DaysOverdue
			if p.DaysOverdue > behavior.MaxDaysLate {
				behavior.MaxDaysLate = p.DaysOverdue
			}
		} else {
			behavior.OnTimePayments++
		}
	}
	behavior.OnTimeRate = safePercent(float64(behavior.OnTimePayments), float64(behavior.TotalPayments))
	if behavior.LatePayments > 0 {
		behavior.AverageDaysLate = float64(lateDaysSum) / float64(behavior.LatePayments)
	}

	behavior.PreferredPaymentMethod = dominantKey(behavior.MethodDistribution)

	if behavior.OnTimeRate < 50 {
		behavior.RiskScore += riskWeightLowOnTimeRate
	}
	if behavior.AverageDaysLate > 7 {
		behavior.RiskScore += riskWeightOftenLate
	}
	if behavior.MaxDaysLate > onTimeGraceDays {
		behavior.RiskScore += riskWeightVeryLate
	}
	if behavior.PaymentFrequency < 1 {
		behavior.RiskScore += riskWeightLowFrequency
	}
	switch {
	case behavior.RiskScore >= 60:
		behavior.RiskLevel = RiskHigh
	case behavior.RiskScore >= 30:
		behavior.RiskLevel = RiskMedium
	default:
		behavior.RiskLevel = RiskLow
	}

	return behavior, nil
}

// dominantKey picks the most frequent key, breaking ties alphabetically so
// the result is deterministic.
func dominantKey(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	best, bestCount := "", -1
	for _, key := range keys {
		if counts[key] > bestCount {
			best, bestCount = key, counts[key]
		}
	}
	return best
}
