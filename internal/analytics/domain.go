package analytics

import (
	"time"

	"github.com/google/uuid"
)

// Payment statuses recognised by the engine. The ledger may carry more;
// only these participate in rate calculations.
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusFailed    = "failed"
)

// Transaction types on a payment row.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// AutoMatchConfidence is the linking confidence at or above which a payment
// counts as automatically reconciled.
const AutoMatchConfidence = 70

// PaymentRecord is a read-only snapshot of a ledger payment row with its
// joined display attributes.
type PaymentRecord struct {
	ID                uuid.UUID
	CompanyID         uuid.UUID
	Amount            float64
	PaymentDate       time.Time
	PaymentStatus     string
	PaymentMethod     string
	PaymentType       string
	TransactionType   string
	LinkingConfidence *float64
	DaysOverdue       int
	LateFineAmount    float64

	CustomerID uuid.NullUUID
	ContractID uuid.NullUUID
	InvoiceID  uuid.NullUUID

	CustomerName   string
	ContractNumber string
	InvoiceNumber  string
}

// AutoMatched reports whether the payment was linked by the reconciliation
// pipeline with sufficient confidence.
func (p PaymentRecord) AutoMatched() bool {
	return p.LinkingConfidence != nil && *p.LinkingConfidence >= AutoMatchConfidence
}

// InvoiceSettlement pairs an invoice due in a window with the date of its
// earliest completed payment. FirstPaymentAt is unset when nothing has been
// collected against the invoice yet.
type InvoiceSettlement struct {
	InvoiceID      uuid.UUID
	DueDate        time.Time
	TotalAmount    float64
	FirstPaymentAt *time.Time
}

// TrendDirection classifies the recent movement of a totals series.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
	TrendVolatile   TrendDirection = "volatile"
)

// PaymentKPIs is the aggregate statistics bundle for a date window. It is an
// ephemeral value object, never persisted.
type PaymentKPIs struct {
	TotalPayments int     `json:"totalPayments"`
	TotalAmount   float64 `json:"totalAmount"`
	TotalIncome   float64 `json:"totalIncome"`
	TotalExpenses float64 `json:"totalExpenses"`

	AveragePaymentAmount float64 `json:"averagePaymentAmount"`
	MedianPaymentAmount  float64 `json:"medianPaymentAmount"`

	AveragePaymentsPerDay   float64 `json:"averagePaymentsPerDay"`
	AveragePaymentsPerWeek  float64 `json:"averagePaymentsPerWeek"`
	AveragePaymentsPerMonth float64 `json:"averagePaymentsPerMonth"`

	PaymentCompletionRate float64 `json:"paymentCompletionRate"`
	OnTimePaymentRate     float64 `json:"onTimePaymentRate"`
	LatePaymentRate       float64 `json:"latePaymentRate"`
	AutoMatchedRate       float64 `json:"autoMatchedRate"`

	MonthlyTrend      TrendDirection `json:"monthlyTrend"`
	WeeklyTrend       TrendDirection `json:"weeklyTrend"`
	MonthlyGrowthRate float64        `json:"monthlyGrowthRate"`

	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// RevenueMonth is one entry of the trailing revenue series, ordered
// oldest to newest.
type RevenueMonth struct {
	Month      string  `json:"month"`
	Revenue    float64 `json:"revenue"`
	GrowthRate float64 `json:"growthRate"`
}

// WeekdayRevenue aggregates completed income by day of week.
type WeekdayRevenue struct {
	Weekday      time.Weekday `json:"weekday"`
	TotalAmount  float64      `json:"totalAmount"`
	PaymentCount int          `json:"paymentCount"`
}

// RevenueAnalytics is the result of AnalyzeRevenue.
type RevenueAnalytics struct {
	CurrentMonthRevenue float64          `json:"currentMonthRevenue"`
	PredictedRevenue    float64          `json:"predictedRevenue"`
	PredictedGrowthRate float64          `json:"predictedGrowthRate"`
	MonthlySeries       []RevenueMonth   `json:"monthlySeries"`
	BestWeekdays        []WeekdayRevenue `json:"bestWeekdays"`
}

// CashFlowHealth is the coarse classification of the net cash position.
type CashFlowHealth string

const (
	HealthHealthy  CashFlowHealth = "healthy"
	HealthWarning  CashFlowHealth = "warning"
	HealthCritical CashFlowHealth = "critical"
)

// CashFlowProjection is one projected future month.
type CashFlowProjection struct {
	Month            string  `json:"month"`
	ProjectedInflow  float64 `json:"projectedInflow"`
	ProjectedOutflow float64 `json:"projectedOutflow"`
	NetFlow          float64 `json:"netFlow"`
	Balance          float64 `json:"balance"`
}

// CashFlowAnalytics is the result of AnalyzeCashFlow.
type CashFlowAnalytics struct {
	TotalInflow  float64              `json:"totalInflow"`
	TotalOutflow float64              `json:"totalOutflow"`
	NetCashFlow  float64              `json:"netCashFlow"`
	Health       CashFlowHealth       `json:"health"`
	Projections  []CashFlowProjection `json:"projections"`
}

// TopPayment is one completed payment with its joined display fields.
type TopPayment struct {
	PaymentID      uuid.UUID `json:"paymentId"`
	Amount         float64   `json:"amount"`
	PaymentDate    time.Time `json:"paymentDate"`
	PaymentMethod  string    `json:"paymentMethod"`
	CustomerName   string    `json:"customerName"`
	ContractNumber string    `json:"contractNumber"`
	InvoiceNumber  string    `json:"invoiceNumber"`
}

// PaymentTrend aggregates payments that fall into one period bucket.
type PaymentTrend struct {
	Period        string             `json:"period"`
	PeriodType    string             `json:"periodType"`
	PaymentCount  int                `json:"paymentCount"`
	TotalAmount   float64            `json:"totalAmount"`
	AverageAmount float64            `json:"averageAmount"`
	ByMethod      map[string]int     `json:"byMethod"`
	ByType        map[string]int     `json:"byType"`
	ByStatus      map[string]int     `json:"byStatus"`
	Previous      *PreviousPeriodRef `json:"previousPeriod,omitempty"`
	StartDate     time.Time          `json:"startDate"`
	EndDate       time.Time          `json:"endDate"`
}

// PreviousPeriodRef compares a trend bucket against the one before it.
type PreviousPeriodRef struct {
	PaymentCount  int     `json:"paymentCount"`
	TotalAmount   float64 `json:"totalAmount"`
	ChangePercent float64 `json:"changePercent"`
}

// RiskLevel buckets a customer's payment risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// CustomerBehavior describes a customer's payment patterns over a lookback
// window.
type CustomerBehavior struct {
	CustomerID   uuid.UUID `json:"customerId"`
	CustomerName string    `json:"customerName"`

	TotalPayments        int     `json:"totalPayments"`
	TotalAmount          float64 `json:"totalAmount"`
	AveragePaymentAmount float64 `json:"averagePaymentAmount"`
	PaymentFrequency     float64 `json:"paymentFrequency"`

	OnTimePayments  int     `json:"onTimePayments"`
	LatePayments    int     `json:"latePayments"`
	OnTimeRate      float64 `json:"onTimeRate"`
	AverageDaysLate float64 `json:"averageDaysLate"`
	MaxDaysLate     int     `json:"maxDaysLate"`

	PreferredPaymentMethod string         `json:"preferredPaymentMethod"`
	MethodDistribution     map[string]int `json:"methodDistribution"`

	RiskLevel RiskLevel `json:"riskLevel"`
	RiskScore int       `json:"riskScore"`

	LastPaymentDate      time.Time `json:"lastPaymentDate"`
	DaysSinceLastPayment int       `json:"daysSinceLastPayment"`
}

// ForecastFactor names one signal that contributed to a daily forecast.
type ForecastFactor struct {
	Factor string `json:"factor"`
	Impact string `json:"impact"`
	Weight int    `json:"weight"`
}

// DailyForecast is one predicted day of cash flow.
type DailyForecast struct {
	Date             time.Time        `json:"date"`
	ExpectedPayments float64          `json:"expectedPayments"`
	ExpectedIncome   float64          `json:"expectedIncome"`
	ExpectedExpenses float64          `json:"expectedExpenses"`
	NetCashFlow      float64          `json:"netCashFlow"`
	Confidence       float64          `json:"confidence"`
	Factors          []ForecastFactor `json:"factors"`
}

// Report bundles the independently computed analytics sections.
type Report struct {
	KPIs        *PaymentKPIs       `json:"kpis,omitempty"`
	Revenue     *RevenueAnalytics  `json:"revenue,omitempty"`
	CashFlow    *CashFlowAnalytics `json:"cashFlow,omitempty"`
	TopPayments []TopPayment       `json:"topPayments,omitempty"`
	Trends      []PaymentTrend     `json:"trends,omitempty"`
	GeneratedAt time.Time          `json:"generatedAt"`
}
