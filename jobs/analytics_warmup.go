package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetdesk/fleetdesk/internal/analytics"
	jobmetrics "github.com/fleetdesk/fleetdesk/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// AnalyticsWarmupJob pre-populates analytics caches so the first dashboard
// request of the day does not pay the ledger scan.
type AnalyticsWarmupJob struct {
	Analytics *analytics.Service
	Pool      *pgxpool.Pool
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewAnalyticsWarmupJob wires dependencies for the warmup handler.
func NewAnalyticsWarmupJob(analyticsSvc *analytics.Service, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *AnalyticsWarmupJob {
	return &AnalyticsWarmupJob{
		Analytics: analyticsSvc,
		Pool:      pool,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes analytics warmup tasks.
func (j *AnalyticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("analytics warmup: handler not configured")
	}
	var payload AnalyticsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskAnalyticsWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting analytics warmup")

	companies, err := j.resolveCompanies(ctx, payload)
	if err != nil {
		resultErr = err
		logger.Error("resolve warmup companies", slog.Any("error", err))
		return resultErr
	}
	if len(companies) == 0 {
		logger.Info("no companies discovered for warmup")
		return resultErr
	}

	started := j.now()
	for _, companyID := range companies {
		if err := j.warmCompany(ctx, companyID); err != nil {
			resultErr = err
			logger.Error("warm company", slog.String("company_id", companyID.String()), slog.Any("error", err))
			return resultErr
		}
		j.metrics().AddWarmedCaches(companyID.String(), 4)
	}

	logger.Info("completed analytics warmup",
		slog.Int("companies", len(companies)),
		slog.Duration("duration", time.Since(started)))
	return resultErr
}

func (j *AnalyticsWarmupJob) warmCompany(ctx context.Context, companyID uuid.UUID) error {
	if j.Analytics == nil {
		return nil
	}
	// Each company gets its own timeout to keep one slow scope from
	// starving the rest of the run.
	companyCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if _, err := j.Analytics.CalculateKPIs(companyCtx, companyID, analytics.KPIOptions{}); err != nil {
		return err
	}
	if _, err := j.Analytics.AnalyzeRevenue(companyCtx, companyID, analytics.RevenueOptions{IncludePredictions: true}); err != nil {
		return err
	}
	if _, err := j.Analytics.AnalyzeCashFlow(companyCtx, companyID, analytics.CashFlowOptions{}); err != nil {
		return err
	}
	if _, err := j.Analytics.PaymentTrends(companyCtx, companyID, analytics.TrendOptions{}); err != nil {
		return err
	}
	return nil
}

func (j *AnalyticsWarmupJob) resolveCompanies(ctx context.Context, payload AnalyticsWarmupPayload) ([]uuid.UUID, error) {
	if len(payload.CompanyIDs) > 0 {
		companies := make([]uuid.UUID, 0, len(payload.CompanyIDs))
		for _, raw := range payload.CompanyIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, err
			}
			companies = append(companies, id)
		}
		return companies, nil
	}
	return j.fetchActiveCompanies(ctx)
}

func (j *AnalyticsWarmupJob) fetchActiveCompanies(ctx context.Context) ([]uuid.UUID, error) {
	if j.Pool == nil {
		return nil, errors.New("analytics warmup: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `
		SELECT DISTINCT company_id
		FROM payments
		WHERE payment_date >= NOW() - INTERVAL '90 days'
		ORDER BY company_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := make([]uuid.UUID, 0)
	for rows.Next() {
		var companyID uuid.UUID
		if err := rows.Scan(&companyID); err != nil {
			return nil, err
		}
		companies = append(companies, companyID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return companies, nil
}

func (j *AnalyticsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAnalyticsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskAnalyticsWarmup))
}

func (j *AnalyticsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AnalyticsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
