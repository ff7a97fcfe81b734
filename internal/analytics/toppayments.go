package analytics

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

const defaultTopPaymentsLimit = 20

// Sort keys accepted by TopPayments.
const (
	SortByDate   = "date"
	SortByAmount = "amount"
)

// TopPaymentsOptions scopes the top payments report. The window defaults to
// the current month through now and the limit to 20.
type TopPaymentsOptions struct {
	Limit     int
	StartDate time.Time
	EndDate   time.Time
	SortBy    string
}

// TopPayments returns the highest or most recent completed payments in the
// window, descending, with their joined display fields.
func (s *Service) TopPayments(ctx context.Context, companyID uuid.UUID, opts TopPaymentsOptions) ([]TopPayment, error) {
	now := s.now()
	start := opts.StartDate
	if start.IsZero() {
		start = MonthStart(now, 0)
	}
	end := opts.EndDate
	if end.IsZero() {
		end = now
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultTopPaymentsLimit
	}
	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = SortByDate
	}

	payments, err := s.ledger.Payments(ctx, companyID, PaymentFilter{
		From:   start,
		To:     end,
		Status: StatusCompleted,
	})
	if err != nil {
		s.logger.Error("top payments",
			slog.String("company_id", companyID.String()),
			slog.Any("error", err))
		return []TopPayment{}, err
	}

	if sortBy == SortByAmount {
		sort.Slice(payments, func(i, j int) bool {
			return payments[i].Amount > payments[j].Amount
		})
	} else {
		sort.Slice(payments, func(i, j int) bool {
			return payments[i].PaymentDate.After(payments[j].PaymentDate)
		})
	}
	if len(payments) > limit {
		payments = payments[:limit]
	}

	top := make([]TopPayment, 0, len(payments))
	for _, p := range payments {
		top = append(top, TopPayment{
			PaymentID:      p.ID,
			Amount:         p.Amount,
			PaymentDate:    p.PaymentDate,
			PaymentMethod:  p.PaymentMethod,
			CustomerName:   p.CustomerName,
			ContractNumber: p.ContractNumber,
			InvoiceNumber:  p.InvoiceNumber,
		})
	}
	return top, nil
}
