package billing

import (
	"context"
)

// Provider defines the capability set the billing core needs from a payment
// provider. The abstraction keeps the state machine and reconciler free of
// vendor types while still letting the Stripe implementation use the official
// SDK. Every call must honor ctx cancellation; callers bound outbound calls
// with a timeout and treat a timed-out call's external effect as unknown.
type Provider interface {
	// CreateCustomer registers a customer with the provider. The metadata
	// must include the organization_id back-reference; it is the join key
	// every subsequent webhook uses to resolve the local organization.
	CreateCustomer(ctx context.Context, email, displayName string, metadata map[string]string) (customerID string, err error)

	// CreateCheckoutSession starts a hosted checkout for the given price.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// RetrieveSubscription fetches the provider's view of a subscription.
	RetrieveSubscription(ctx context.Context, providerSubID string) (*SubscriptionSnapshot, error)

	// ModifySubscription swaps the subscription's single line item to a new
	// price, creating prorations. Called before any local mutation.
	ModifySubscription(ctx context.Context, providerSubID, newPriceID string) error

	// CancelSubscription cancels the subscription at the provider, optionally
	// prorating without forcing an immediate invoice. Local state changes
	// follow asynchronously through the deletion webhook.
	CancelSubscription(ctx context.Context, providerSubID string, prorate, invoiceNow bool) error

	// RetrieveCustomer fetches the provider's customer record, including the
	// metadata back-reference set at creation time.
	RetrieveCustomer(ctx context.Context, customerID string) (*CustomerSnapshot, error)
}

// CheckoutRequest contains data needed to create a checkout session.
type CheckoutRequest struct {
	CustomerID string // provider customer id
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession represents a hosted checkout session.
type CheckoutSession struct {
	SessionID string
	URL       string
}

// SubscriptionSnapshot is the provider's view of a subscription, reduced to
// the fields the reconciler and plan-change flow need.
type SubscriptionSnapshot struct {
	ID         string
	CustomerID string
	Status     string
	PriceID    string // price of the single non-proration line item
	UnitAmount int64
	Currency   string
}

// CustomerSnapshot is the provider's customer record.
type CustomerSnapshot struct {
	ID       string
	Email    string
	Metadata map[string]string
}

// MetadataOrganizationID is the customer metadata key carrying the local
// organization id back-reference.
const MetadataOrganizationID = "organization_id"
