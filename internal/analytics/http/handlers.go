package analytichttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fleetdesk/fleetdesk/internal/analytics"
	"github.com/fleetdesk/fleetdesk/internal/platform/httpx"
)

const requestTimeout = 5 * time.Second

const dateLayout = "2006-01-02"

// AnalyticsService defines the payment analytics contract used by the handler.
type AnalyticsService interface {
	CalculateKPIs(ctx context.Context, companyID uuid.UUID, opts analytics.KPIOptions) (analytics.PaymentKPIs, error)
	AnalyzeRevenue(ctx context.Context, companyID uuid.UUID, opts analytics.RevenueOptions) (analytics.RevenueAnalytics, error)
	AnalyzeCashFlow(ctx context.Context, companyID uuid.UUID, opts analytics.CashFlowOptions) (analytics.CashFlowAnalytics, error)
	TopPayments(ctx context.Context, companyID uuid.UUID, opts analytics.TopPaymentsOptions) ([]analytics.TopPayment, error)
	PaymentTrends(ctx context.Context, companyID uuid.UUID, opts analytics.TrendOptions) ([]analytics.PaymentTrend, error)
	CustomerBehavior(ctx context.Context, customerID uuid.UUID, opts analytics.BehaviorOptions) (analytics.CustomerBehavior, error)
	ForecastDailyCashFlow(ctx context.Context, companyID uuid.UUID, opts analytics.ForecastOptions) ([]analytics.DailyForecast, error)
	Report(ctx context.Context, companyID uuid.UUID, opts analytics.ReportOptions) (analytics.Report, error)
}

// Handler serves the read-only payment analytics JSON API.
type Handler struct {
	logger    *slog.Logger
	service   AnalyticsService
	validator *validator.Validate
}

// NewHandler constructs the analytics HTTP handler.
func NewHandler(logger *slog.Logger, service AnalyticsService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

type kpiQuery struct {
	StartDate string `validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `validate:"omitempty,datetime=2006-01-02"`
	Status    string `validate:"omitempty,oneof=completed pending failed"`
}

func (h *Handler) handleKPIs(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	q := kpiQuery{
		StartDate: queryValue(r, "start_date"),
		EndDate:   queryValue(r, "end_date"),
		Status:    queryValue(r, "status"),
	}
	if err := h.validator.Struct(q); err != nil {
		httpx.RespondError(w, validationErr(err))
		return
	}

	opts := analytics.KPIOptions{Status: q.Status}
	opts.StartDate, opts.EndDate = parseWindow(q.StartDate, q.EndDate)

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	kpis, err := h.service.CalculateKPIs(ctx, companyID, opts)
	if err != nil {
		h.respondServiceError(w, "calculate kpis", err)
		return
	}
	httpx.JSON(w, http.StatusOK, kpis)
}

type revenueQuery struct {
	Months      int  `validate:"omitempty,min=1,max=60"`
	Predictions bool `validate:"-"`
}

func (h *Handler) handleRevenue(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	q := revenueQuery{Predictions: queryValue(r, "predictions") == "true"}
	if q.Months, err = queryInt(r, "months"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(q); err != nil {
		httpx.RespondError(w, validationErr(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	revenue, err := h.service.AnalyzeRevenue(ctx, companyID, analytics.RevenueOptions{
		MonthsToAnalyze:    q.Months,
		IncludePredictions: q.Predictions,
	})
	if err != nil {
		h.respondServiceError(w, "analyze revenue", err)
		return
	}
	httpx.JSON(w, http.StatusOK, revenue)
}

type cashFlowQuery struct {
	Months int `validate:"omitempty,min=1,max=36"`
}

func (h *Handler) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var q cashFlowQuery
	if q.Months, err = queryInt(r, "months"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(q); err != nil {
		httpx.RespondError(w, validationErr(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	cashFlow, err := h.service.AnalyzeCashFlow(ctx, companyID, analytics.CashFlowOptions{ProjectionMonths: q.Months})
	if err != nil {
		h.respondServiceError(w, "analyze cash flow", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cashFlow)
}

type topPaymentsQuery struct {
	Limit     int    `validate:"omitempty,min=1,max=100"`
	StartDate string `validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `validate:"omitempty,datetime=2006-01-02"`
	SortBy    string `validate:"omitempty,oneof=date amount"`
}

func (h *Handler) handleTopPayments(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	q := topPaymentsQuery{
		StartDate: queryValue(r, "start_date"),
		EndDate:   queryValue(r, "end_date"),
		SortBy:    queryValue(r, "sort_by"),
	}
	if q.Limit, err = queryInt(r, "limit"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(q); err != nil {
		httpx.RespondError(w, validationErr(err))
		return
	}

	opts := analytics.TopPaymentsOptions{Limit: q.Limit, SortBy: q.SortBy}
	opts.StartDate, opts.EndDate = parseWindow(q.StartDate, q.EndDate)

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	top, err := h.service.TopPayments(ctx, companyID, opts)
	if err != nil {
		h.respondServiceError(w, "top payments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, top)
}

type trendsQuery struct {
	GroupBy   string `validate:"omitempty,oneof=day week month quarter year"`
	StartDate string `validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) handleTrends(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	q := trendsQuery{
		GroupBy:   queryValue(r, "group_by"),
		StartDate: queryValue(r, "start_date"),
		EndDate:   queryValue(r, "end_date"),
	}
	if err := h.validator.Struct(q); err != nil {
		httpx.RespondError(w, validationErr(err))
		return
	}

	opts := analytics.TrendOptions{GroupBy: q.GroupBy}
	opts.StartDate, opts.EndDate = parseWindow(q.StartDate, q.EndDate)

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	trends, err := h.service.PaymentTrends(ctx, companyID, opts)
	if err != nil {
		h.respondServiceError(w, "payment trends", err)
		return
	}
	httpx.JSON(w, http.StatusOK, trends)
}

type behaviorQuery struct {
	LookbackDays int `validate:"omitempty,min=1,max=730"`
}

func (h *Handler) handleCustomerBehavior(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: customer id must be a uuid", httpx.ErrValidation))
		return
	}

	var q behaviorQuery
	if q.LookbackDays, err = queryInt(r, "lookback_days"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(q); err != nil {
		httpx.RespondError(w, validationErr(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	behavior, err := h.service.CustomerBehavior(ctx, customerID, analytics.BehaviorOptions{LookbackDays: q.LookbackDays})
	if err != nil {
		if errors.Is(err, analytics.ErrNoPaymentHistory) {
			httpx.RespondError(w, fmt.Errorf("%w: no payment history for customer", httpx.ErrNotFound))
			return
		}
		h.respondServiceError(w, "customer behavior", err)
		return
	}
	httpx.JSON(w, http.StatusOK, behavior)
}

type forecastQuery struct {
	Days int `validate:"omitempty,min=1,max=365"`
}

func (h *Handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var q forecastQuery
	if q.Days, err = queryInt(r, "days"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(q); err != nil {
		httpx.RespondError(w, validationErr(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	forecasts, err := h.service.ForecastDailyCashFlow(ctx, companyID, analytics.ForecastOptions{Days: q.Days})
	if err != nil {
		h.respondServiceError(w, "daily forecast", err)
		return
	}
	httpx.JSON(w, http.StatusOK, forecasts)
}

type reportQuery struct {
	StartDate string `validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `validate:"omitempty,datetime=2006-01-02"`
	Sections  string `validate:"omitempty"`
}

var reportSections = map[string]bool{
	"kpis": true, "revenue": true, "cashflow": true, "top_payments": true, "trends": true,
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	q := reportQuery{
		StartDate: queryValue(r, "start_date"),
		EndDate:   queryValue(r, "end_date"),
		Sections:  queryValue(r, "sections"),
	}
	if err := h.validator.Struct(q); err != nil {
		httpx.RespondError(w, validationErr(err))
		return
	}

	opts := analytics.ReportOptions{}
	opts.StartDate, opts.EndDate = parseWindow(q.StartDate, q.EndDate)

	if q.Sections == "" {
		opts.IncludeKPIs = true
		opts.IncludeRevenue = true
		opts.IncludeCashFlow = true
		opts.IncludeTopPayments = true
		opts.IncludeTrends = true
	} else {
		for _, section := range strings.Split(q.Sections, ",") {
			section = strings.TrimSpace(section)
			if !reportSections[section] {
				httpx.RespondError(w, fmt.Errorf("%w: unknown report section %q", httpx.ErrValidation, section))
				return
			}
			switch section {
			case "kpis":
				opts.IncludeKPIs = true
			case "revenue":
				opts.IncludeRevenue = true
			case "cashflow":
				opts.IncludeCashFlow = true
			case "top_payments":
				opts.IncludeTopPayments = true
			case "trends":
				opts.IncludeTrends = true
			}
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.Report(ctx, companyID, opts)
	if err != nil {
		h.respondServiceError(w, "assemble report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func companyIDParam(r *http.Request) (uuid.UUID, error) {
	raw := queryValue(r, "company_id")
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: company_id is required", httpx.ErrValidation)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: company_id must be a uuid", httpx.ErrValidation)
	}
	return id, nil
}

func queryValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", httpx.ErrValidation, key)
	}
	return value, nil
}

// parseWindow converts the optional date strings, already validated against
// the layout, into a [start of day, end of day] window.
func parseWindow(start, end string) (time.Time, time.Time) {
	var from, to time.Time
	if start != "" {
		from, _ = time.Parse(dateLayout, start)
	}
	if end != "" {
		to, _ = time.Parse(dateLayout, end)
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to
}

func validationErr(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fmt.Errorf("%w: invalid %s", httpx.ErrValidation, strings.ToLower(fieldErrs[0].Field()))
	}
	return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
}
