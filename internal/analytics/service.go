package analytics

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// PaymentFilter narrows a ledger payment fetch. Zero values mean "no filter"
// for Status and TransactionType; From/To are always applied inclusively.
type PaymentFilter struct {
	From            time.Time
	To              time.Time
	Status          string
	TransactionType string
}

// Ledger is the read interface the engine requires from the external payment
// store. Implementations return empty slices when no rows match; "no data"
// is never an error.
type Ledger interface {
	// Payments returns payment rows for a company whose payment_date falls
	// within the filter window, with joined display attributes.
	Payments(ctx context.Context, companyID uuid.UUID, filter PaymentFilter) ([]PaymentRecord, error)
	// InvoiceSettlements returns one row per invoice due inside the window
	// together with the date of its earliest completed payment, if any.
	InvoiceSettlements(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]InvoiceSettlement, error)
	// CustomerPayments returns a customer's payments since the given time,
	// newest first.
	CustomerPayments(ctx context.Context, customerID uuid.UUID, since time.Time) ([]PaymentRecord, error)
}

// Service computes payment analytics over a Ledger. It holds no mutable
// state; every operation issues its own reads and may run concurrently with
// any other.
type Service struct {
	ledger Ledger
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the ledger dependency with an optional cache. A nil cache
// disables caching; a nil logger falls back to slog.Default.
func NewService(ledger Ledger, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ledger: ledger,
		cache:  cache,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// fetchCached routes a loader through the cache when one is configured.
func (s *Service) fetchCached(ctx context.Context, keyParts []string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return assignJSON(value, dest)
	}
	key, err := s.cache.BuildKey(ctx, keyParts...)
	if err != nil {
		return err
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}

func sumAmounts(payments []PaymentRecord) float64 {
	var total float64
	for _, p := range payments {
		total += p.Amount
	}
	return total
}

func sumByType(payments []PaymentRecord, transactionType string) float64 {
	var total float64
	for _, p := range payments {
		if p.TransactionType == transactionType {
			total += p.Amount
		}
	}
	return total
}

func countByStatus(payments []PaymentRecord, status string) int {
	n := 0
	for _, p := range payments {
		if p.PaymentStatus == status {
			n++
		}
	}
	return n
}

// median averages the two central sorted values for even-sized inputs.
func median(amounts []float64) float64 {
	if len(amounts) == 0 {
		return 0
	}
	sorted := make([]float64, len(amounts))
	copy(sorted, amounts)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// safePercent returns value/total as a percentage, 0 when total is 0.
func safePercent(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return value / total * 100
}

// growthPercent returns the relative change from base to current, 0 when the
// base is 0 so a first non-zero month never divides by zero.
func growthPercent(base, current float64) float64 {
	if base == 0 {
		return 0
	}
	return (current - base) / base * 100
}

// classifyTrend applies the threshold rules to a chronological totals series:
// any single swing beyond half the latest total is volatile, an average move
// beyond 15% of the latest total picks a direction, everything else is
// stable. Fewer than two periods is stable by definition.
func classifyTrend(totals []float64) TrendDirection {
	if len(totals) < 2 {
		return TrendStable
	}
	latest := totals[len(totals)-1]
	var sum float64
	nonzero := 0
	for i := 1; i < len(totals); i++ {
		delta := totals[i] - totals[i-1]
		if delta > 0.5*latest || delta < -0.5*latest {
			return TrendVolatile
		}
		if delta != 0 {
			sum += delta
			nonzero++
		}
	}
	if nonzero == 0 {
		return TrendStable
	}
	avgChange := sum / float64(nonzero)
	switch {
	case avgChange > 0.15*latest:
		return TrendIncreasing
	case avgChange < -0.15*latest:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// monthlyTotals fetches per-month amount totals for the trailing months,
// oldest first, applying the same filter to every month.
func (s *Service) monthlyTotals(ctx context.Context, companyID uuid.UUID, months int, base PaymentFilter) ([]float64, error) {
	now := s.now()
	totals := make([]float64, 0, months)
	for offset := -(months - 1); offset <= 0; offset++ {
		filter := base
		filter.From = MonthStart(now, offset)
		filter.To = MonthEnd(now, offset)
		payments, err := s.ledger.Payments(ctx, companyID, filter)
		if err != nil {
			return nil, err
		}
		totals = append(totals, sumAmounts(payments))
	}
	return totals, nil
}
