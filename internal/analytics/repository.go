package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Repository is the PostgreSQL-backed Ledger implementation. It only reads;
// the fleet back-office owns every write to these tables.
type Repository struct {
	pool  *pgxpool.Pool
	title cases.Caser
}

// NewRepository constructs a repository over the shared pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool:  pool,
		title: cases.Title(language.English, cases.NoLower),
	}
}

var _ Ledger = (*Repository)(nil)

const paymentColumns = `
	p.id, p.company_id, p.amount, p.payment_date, p.payment_status,
	COALESCE(p.payment_method, ''), COALESCE(p.payment_type, ''),
	COALESCE(p.transaction_type, ''), p.linking_confidence,
	COALESCE(p.days_overdue, 0), COALESCE(p.late_fine_amount, 0),
	p.customer_id, p.contract_id, p.invoice_id,
	COALESCE(c.company_name, TRIM(COALESCE(c.first_name, '') || ' ' || COALESCE(c.last_name, '')), ''),
	COALESCE(ct.contract_number, ''),
	COALESCE(i.invoice_number, '')`

const paymentJoins = `
	LEFT JOIN customers c ON c.id = p.customer_id
	LEFT JOIN contracts ct ON ct.id = p.contract_id
	LEFT JOIN invoices i ON i.id = p.invoice_id`

// Payments fetches payment rows in the window with joined display fields.
// Both window bounds are inclusive.
func (r *Repository) Payments(ctx context.Context, companyID uuid.UUID, filter PaymentFilter) ([]PaymentRecord, error) {
	query := `SELECT` + paymentColumns + `
		FROM payments p` + paymentJoins + `
		WHERE p.company_id = $1
		  AND p.payment_date >= $2
		  AND p.payment_date <= $3`
	args := []interface{}{companyID, filter.From, filter.To}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND p.payment_status = $%d", len(args))
	}
	if filter.TransactionType != "" {
		args = append(args, filter.TransactionType)
		query += fmt.Sprintf(" AND p.transaction_type = $%d", len(args))
	}
	query += " ORDER BY p.payment_date"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("analytics: query payments: %w", err)
	}
	defer rows.Close()

	return r.scanPayments(rows)
}

// InvoiceSettlements resolves on-time classification inputs in one query
// instead of one lookup per invoice: each invoice due in the window is
// paired with its earliest completed payment date.
func (r *Repository) InvoiceSettlements(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]InvoiceSettlement, error) {
	const query = `
		SELECT i.id, i.due_date, i.total_amount, fp.first_payment_at
		FROM invoices i
		LEFT JOIN LATERAL (
			SELECT MIN(p.payment_date) AS first_payment_at
			FROM payments p
			WHERE p.invoice_id = i.id AND p.payment_status = 'completed'
		) fp ON TRUE
		WHERE i.company_id = $1
		  AND i.due_date >= $2
		  AND i.due_date <= $3
		ORDER BY i.due_date`

	rows, err := r.pool.Query(ctx, query, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("analytics: query invoice settlements: %w", err)
	}
	defer rows.Close()

	settlements := make([]InvoiceSettlement, 0)
	for rows.Next() {
		var s InvoiceSettlement
		var firstPayment pgtype.Timestamptz
		if err := rows.Scan(&s.InvoiceID, &s.DueDate, &s.TotalAmount, &firstPayment); err != nil {
			return nil, fmt.Errorf("analytics: scan invoice settlement: %w", err)
		}
		if firstPayment.Valid {
			t := firstPayment.Time
			s.FirstPaymentAt = &t
		}
		settlements = append(settlements, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analytics: iterate invoice settlements: %w", err)
	}
	return settlements, nil
}

// CustomerPayments fetches a customer's payments since the given time,
// newest first.
func (r *Repository) CustomerPayments(ctx context.Context, customerID uuid.UUID, since time.Time) ([]PaymentRecord, error) {
	query := `SELECT` + paymentColumns + `
		FROM payments p` + paymentJoins + `
		WHERE p.customer_id = $1
		  AND p.payment_date >= $2
		ORDER BY p.payment_date DESC`

	rows, err := r.pool.Query(ctx, query, customerID, since)
	if err != nil {
		return nil, fmt.Errorf("analytics: query customer payments: %w", err)
	}
	defer rows.Close()

	return r.scanPayments(rows)
}

func (r *Repository) scanPayments(rows pgx.Rows) ([]PaymentRecord, error) {
	payments := make([]PaymentRecord, 0)
	for rows.Next() {
		var p PaymentRecord
		var confidence pgtype.Float8
		var customerID, contractID, invoiceID pgtype.UUID
		if err := rows.Scan(
			&p.ID, &p.CompanyID, &p.Amount, &p.PaymentDate, &p.PaymentStatus,
			&p.PaymentMethod, &p.PaymentType, &p.TransactionType, &confidence,
			&p.DaysOverdue, &p.LateFineAmount,
			&customerID, &contractID, &invoiceID,
			&p.CustomerName, &p.ContractNumber, &p.InvoiceNumber,
		); err != nil {
			return nil, fmt.Errorf("analytics: scan payment: %w", err)
		}
		if confidence.Valid {
			v := confidence.Float64
			p.LinkingConfidence = &v
		}
		p.CustomerID = nullUUID(customerID)
		p.ContractID = nullUUID(contractID)
		p.InvoiceID = nullUUID(invoiceID)
		p.CustomerName = r.title.String(p.CustomerName)
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analytics: iterate payments: %w", err)
	}
	return payments, nil
}

func nullUUID(v pgtype.UUID) uuid.NullUUID {
	if !v.Valid {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(v.Bytes), Valid: true}
}
