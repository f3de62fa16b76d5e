package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/opinia/opinia/pkg/billing"
)

type invoiceStore struct {
	db querier
}

const invoiceColumns = `id, provider_invoice_id, subscription_id, total, subtotal,
	amount_paid, currency, status, billing_reason, hosted_invoice_url, invoice_pdf,
	created_at, paid_at`

// Upsert inserts the invoice unless one already exists for the provider
// invoice id. ON CONFLICT DO NOTHING keeps replayed webhook deliveries from
// touching the ledger; the existing row is loaded back into inv so callers
// see the recorded state.
func (s *invoiceStore) Upsert(ctx context.Context, inv *billing.Invoice) (bool, error) {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	tag, err := s.db.Exec(ctx, `
		INSERT INTO invoices (id, provider_invoice_id, subscription_id, total, subtotal,
			amount_paid, currency, status, billing_reason, hosted_invoice_url, invoice_pdf,
			created_at, paid_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (provider_invoice_id) DO NOTHING`,
		inv.ID, inv.ProviderInvoiceID, inv.SubscriptionID, inv.Total, inv.Subtotal,
		inv.AmountPaid, inv.Currency, string(inv.Status), string(inv.BillingReason),
		inv.HostedInvoiceURL, inv.InvoicePDF, inv.CreatedAt, inv.PaidAt)
	if err != nil {
		return false, fmt.Errorf("upsert invoice %s: %w", inv.ProviderInvoiceID, err)
	}

	if tag.RowsAffected() > 0 {
		return true, nil
	}

	existing, err := s.ByProviderID(ctx, inv.ProviderInvoiceID)
	if err != nil {
		return false, err
	}
	*inv = *existing
	return false, nil
}

func (s *invoiceStore) ByProviderID(ctx context.Context, providerInvoiceID string) (*billing.Invoice, error) {
	var (
		inv    billing.Invoice
		status string
		reason string
	)
	err := s.db.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE provider_invoice_id = $1`,
		providerInvoiceID).Scan(
		&inv.ID, &inv.ProviderInvoiceID, &inv.SubscriptionID, &inv.Total, &inv.Subtotal,
		&inv.AmountPaid, &inv.Currency, &status, &reason, &inv.HostedInvoiceURL,
		&inv.InvoicePDF, &inv.CreatedAt, &inv.PaidAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, billing.ErrUnknownExternalReference
		}
		return nil, fmt.Errorf("query invoice: %w", err)
	}
	inv.Status = billing.InvoiceStatus(status)
	inv.BillingReason = billing.BillingReason(reason)
	return &inv, nil
}

func (s *invoiceStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]billing.Invoice, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+invoiceColumnsPrefixed+` FROM invoices i
		JOIN subscriptions s ON s.id = i.subscription_id
		WHERE s.organization_id = $1
		ORDER BY i.created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []billing.Invoice
	for rows.Next() {
		var (
			inv    billing.Invoice
			status string
			reason string
		)
		if err := rows.Scan(
			&inv.ID, &inv.ProviderInvoiceID, &inv.SubscriptionID, &inv.Total, &inv.Subtotal,
			&inv.AmountPaid, &inv.Currency, &status, &reason, &inv.HostedInvoiceURL,
			&inv.InvoicePDF, &inv.CreatedAt, &inv.PaidAt); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		inv.Status = billing.InvoiceStatus(status)
		inv.BillingReason = billing.BillingReason(reason)
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

const invoiceColumnsPrefixed = `i.id, i.provider_invoice_id, i.subscription_id, i.total, i.subtotal,
	i.amount_paid, i.currency, i.status, i.billing_reason, i.hosted_invoice_url, i.invoice_pdf,
	i.created_at, i.paid_at`
