package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	defaultProjectionMonths = 6
	// projectionGrowthStep is the flat per-month growth heuristic applied to
	// the current month's baseline when projecting forward.
	projectionGrowthStep = 0.05
	// warningInflowShare marks the net cash flow, as a share of inflow,
	// below which the position is only a warning rather than healthy.
	warningInflowShare = 0.2
)

// CashFlowOptions controls the forward projection depth.
type CashFlowOptions struct {
	ProjectionMonths int
}

// AnalyzeCashFlow sums the current calendar month's completed inflow and
// outflow and projects future months by scaling both baselines with the flat
// growth heuristic. The running balance is seeded at the current net flow.
func (s *Service) AnalyzeCashFlow(ctx context.Context, companyID uuid.UUID, opts CashFlowOptions) (CashFlowAnalytics, error) {
	months := opts.ProjectionMonths
	if months <= 0 {
		months = defaultProjectionMonths
	}

	loader := func(ctx context.Context) (interface{}, error) {
		return s.computeCashFlow(ctx, companyID, months)
	}

	var result CashFlowAnalytics
	if err := s.fetchCached(ctx, keyCashflow(companyID, months), &result, loader); err != nil {
		s.logger.Error("analyze cash flow",
			slog.String("company_id", companyID.String()),
			slog.Int("projection_months", months),
			slog.Any("error", err))
		return CashFlowAnalytics{}, err
	}
	return result, nil
}

func (s *Service) computeCashFlow(ctx context.Context, companyID uuid.UUID, projectionMonths int) (CashFlowAnalytics, error) {
	now := s.now()
	from, to := MonthStart(now, 0), MonthEnd(now, 0)

	inflow, err := s.completedTotal(ctx, companyID, from, to, TypeIncome)
	if err != nil {
		return CashFlowAnalytics{}, err
	}
	outflow, err := s.completedTotal(ctx, companyID, from, to, TypeExpense)
	if err != nil {
		return CashFlowAnalytics{}, err
	}

	result := CashFlowAnalytics{
		TotalInflow:  inflow,
		TotalOutflow: outflow,
		NetCashFlow:  inflow - outflow,
	}
	result.Health = classifyHealth(result.NetCashFlow, inflow)

	// Baselines are fetched once; each projected month scales them rather
	// than re-querying the ledger.
	balance := result.NetCashFlow
	result.Projections = make([]CashFlowProjection, 0, projectionMonths)
	for i := 1; i <= projectionMonths; i++ {
		factor := 1 + projectionGrowthStep*float64(i)
		projected := CashFlowProjection{
			Month:            MonthLabel(now, i),
			ProjectedInflow:  inflow * factor,
			ProjectedOutflow: outflow * factor,
		}
		projected.NetFlow = projected.ProjectedInflow - projected.ProjectedOutflow
		balance += projected.NetFlow
		projected.Balance = balance
		result.Projections = append(result.Projections, projected)
	}

	return result, nil
}

func (s *Service) completedTotal(ctx context.Context, companyID uuid.UUID, from, to time.Time, transactionType string) (float64, error) {
	payments, err := s.ledger.Payments(ctx, companyID, PaymentFilter{
		From:            from,
		To:              to,
		Status:          StatusCompleted,
		TransactionType: transactionType,
	})
	if err != nil {
		return 0, err
	}
	return sumAmounts(payments), nil
}

func classifyHealth(net, inflow float64) CashFlowHealth {
	switch {
	case net < 0:
		return HealthCritical
	case net < warningInflowShare*inflow:
		return HealthWarning
	default:
		return HealthHealthy
	}
}
