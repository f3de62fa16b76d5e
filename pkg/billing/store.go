package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OrganizationStore persists organizations.
type OrganizationStore interface {
	// Get retrieves an organization by id.
	// Returns ErrOrganizationNotFound if no organization exists.
	Get(ctx context.Context, id uuid.UUID) (*Organization, error)

	// ByBillingCustomerID retrieves the organization linked to a provider
	// customer id. Returns ErrOrganizationNotFound when no link exists.
	ByBillingCustomerID(ctx context.Context, customerID string) (*Organization, error)

	// ByPortal retrieves an organization by its unique portal slug.
	// Returns ErrOrganizationNotFound when no organization claims the slug.
	ByPortal(ctx context.Context, portal string) (*Organization, error)

	// Save creates or updates an organization.
	Save(ctx context.Context, org *Organization) error

	// DeactivateExpiredTrials flips is_active off for organizations still on
	// trial that were created before the cutoff. Returns the number of
	// organizations deactivated.
	DeactivateExpiredTrials(ctx context.Context, before time.Time) (int64, error)
}

// SubscriptionStore persists the subscription history.
type SubscriptionStore interface {
	// Get retrieves a subscription by id.
	Get(ctx context.Context, id uuid.UUID) (*Subscription, error)

	// ByProviderID retrieves a subscription by the provider's subscription id.
	// Returns ErrSubscriptionNotFound when no row matches.
	ByProviderID(ctx context.Context, providerSubID string) (*Subscription, error)

	// LatestByOrganization returns the organization's most recent subscription
	// by creation time. This is the single source of truth for "current
	// subscription"; access control and limit checks consult it exclusively.
	// Returns ErrSubscriptionNotFound when the organization has no history.
	LatestByOrganization(ctx context.Context, orgID uuid.UUID) (*Subscription, error)

	// Save creates or updates a subscription row.
	Save(ctx context.Context, sub *Subscription) error
}

// InvoiceStore is the append-mostly invoice ledger.
type InvoiceStore interface {
	// Upsert inserts the invoice if no row exists for its provider invoice id.
	// Existing rows are left untouched and created reports false, which is how
	// duplicate webhook deliveries collapse into a no-op.
	Upsert(ctx context.Context, inv *Invoice) (created bool, err error)

	// ByProviderID retrieves an invoice by the provider's invoice id.
	ByProviderID(ctx context.Context, providerInvoiceID string) (*Invoice, error)

	// ListByOrganization returns the organization's invoices, newest first.
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]Invoice, error)
}

// PaymentMethodStore keeps at most one live payment method per organization.
type PaymentMethodStore interface {
	// ByOrganization returns the organization's live payment method.
	// Returns ErrPaymentMethodNotFound when none is on file.
	ByOrganization(ctx context.Context, orgID uuid.UUID) (*PaymentMethod, error)

	// Replace deletes any prior rows for the organization and inserts the new
	// method in the same transaction.
	Replace(ctx context.Context, method *PaymentMethod) error
}

// Store aggregates the billing persistence interfaces.
//
// WithinTx runs fn against a store view whose operations share one database
// transaction; implementations must also take row locks on subscription and
// organization rows read inside the transaction so that "read status, decide,
// write status" is atomic with respect to concurrent writers. The in-memory
// implementation serializes transactions with a mutex instead.
type Store interface {
	Organizations() OrganizationStore
	Subscriptions() SubscriptionStore
	Invoices() InvoiceStore
	PaymentMethods() PaymentMethodStore

	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
