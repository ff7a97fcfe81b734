package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ReportOptions selects which sections a composite report carries. Section
// options are forwarded as-is to the underlying operations.
type ReportOptions struct {
	StartDate time.Time
	EndDate   time.Time

	IncludeKPIs        bool
	IncludeRevenue     bool
	IncludeCashFlow    bool
	IncludeTopPayments bool
	IncludeTrends      bool

	Revenue     RevenueOptions
	CashFlow    CashFlowOptions
	TopPayments TopPaymentsOptions
	Trends      TrendOptions
}

// Report assembles the selected analytics sections concurrently. The
// sections are independent read paths, so one ledger failure cancels the
// remaining fetches and surfaces as the report error.
func (s *Service) Report(ctx context.Context, companyID uuid.UUID, opts ReportOptions) (Report, error) {
	report := Report{GeneratedAt: s.now()}

	g, ctx := errgroup.WithContext(ctx)

	if opts.IncludeKPIs {
		g.Go(func() error {
			kpis, err := s.CalculateKPIs(ctx, companyID, KPIOptions{StartDate: opts.StartDate, EndDate: opts.EndDate})
			if err != nil {
				return err
			}
			report.KPIs = &kpis
			return nil
		})
	}
	if opts.IncludeRevenue {
		g.Go(func() error {
			revenue, err := s.AnalyzeRevenue(ctx, companyID, opts.Revenue)
			if err != nil {
				return err
			}
			report.Revenue = &revenue
			return nil
		})
	}
	if opts.IncludeCashFlow {
		g.Go(func() error {
			cashFlow, err := s.AnalyzeCashFlow(ctx, companyID, opts.CashFlow)
			if err != nil {
				return err
			}
			report.CashFlow = &cashFlow
			return nil
		})
	}
	if opts.IncludeTopPayments {
		g.Go(func() error {
			topOpts := opts.TopPayments
			if topOpts.StartDate.IsZero() {
				topOpts.StartDate = opts.StartDate
			}
			if topOpts.EndDate.IsZero() {
				topOpts.EndDate = opts.EndDate
			}
			top, err := s.TopPayments(ctx, companyID, topOpts)
			if err != nil {
				return err
			}
			report.TopPayments = top
			return nil
		})
	}
	if opts.IncludeTrends {
		g.Go(func() error {
			trendOpts := opts.Trends
			if trendOpts.StartDate.IsZero() {
				trendOpts.StartDate = opts.StartDate
			}
			if trendOpts.EndDate.IsZero() {
				trendOpts.EndDate = opts.EndDate
			}
			trends, err := s.PaymentTrends(ctx, companyID, trendOpts)
			if err != nil {
				return err
			}
			report.Trends = trends
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("assemble analytics report",
			slog.String("company_id", companyID.String()),
			slog.Any("error", err))
		return Report{GeneratedAt: report.GeneratedAt}, err
	}
	return report, nil
}
