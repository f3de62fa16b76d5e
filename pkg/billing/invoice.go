package billing

import (
	"time"

	"github.com/google/uuid"
)

// Invoice mirrors one provider invoice. Rows are keyed uniquely by the
// provider's invoice id and written once: the ledger upsert never overwrites
// an existing row for the same external id.
type Invoice struct {
	ID                uuid.UUID
	ProviderInvoiceID string // unique external id
	SubscriptionID    uuid.UUID
	Total             int64
	Subtotal          int64
	AmountPaid        int64
	Currency          string
	Status            InvoiceStatus
	BillingReason     BillingReason
	HostedInvoiceURL  string
	InvoicePDF        string
	CreatedAt         time.Time
	PaidAt            *time.Time
}
