package billing_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/opinia/opinia/pkg/billing"
)

// stubProvider is a func-field Provider fake. Unset fields succeed with zero
// values, so each test only wires the calls it cares about.
type stubProvider struct {
	createCustomerFn   func(ctx context.Context, email, displayName string, metadata map[string]string) (string, error)
	createCheckoutFn   func(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutSession, error)
	retrieveSubFn      func(ctx context.Context, providerSubID string) (*billing.SubscriptionSnapshot, error)
	modifySubFn        func(ctx context.Context, providerSubID, newPriceID string) error
	cancelSubFn        func(ctx context.Context, providerSubID string, prorate, invoiceNow bool) error
	retrieveCustomerFn func(ctx context.Context, customerID string) (*billing.CustomerSnapshot, error)

	modifyCalls int
	cancelCalls int
}

func (p *stubProvider) CreateCustomer(ctx context.Context, email, displayName string, metadata map[string]string) (string, error) {
	if p.createCustomerFn != nil {
		return p.createCustomerFn(ctx, email, displayName, metadata)
	}
	return "cus_stub", nil
}

func (p *stubProvider) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutSession, error) {
	if p.createCheckoutFn != nil {
		return p.createCheckoutFn(ctx, req)
	}
	return &billing.CheckoutSession{SessionID: "cs_stub", URL: "https://checkout.example/cs_stub"}, nil
}

func (p *stubProvider) RetrieveSubscription(ctx context.Context, providerSubID string) (*billing.SubscriptionSnapshot, error) {
	if p.retrieveSubFn != nil {
		return p.retrieveSubFn(ctx, providerSubID)
	}
	return &billing.SubscriptionSnapshot{ID: providerSubID}, nil
}

func (p *stubProvider) ModifySubscription(ctx context.Context, providerSubID, newPriceID string) error {
	p.modifyCalls++
	if p.modifySubFn != nil {
		return p.modifySubFn(ctx, providerSubID, newPriceID)
	}
	return nil
}

func (p *stubProvider) CancelSubscription(ctx context.Context, providerSubID string, prorate, invoiceNow bool) error {
	p.cancelCalls++
	if p.cancelSubFn != nil {
		return p.cancelSubFn(ctx, providerSubID, prorate, invoiceNow)
	}
	return nil
}

func (p *stubProvider) RetrieveCustomer(ctx context.Context, customerID string) (*billing.CustomerSnapshot, error) {
	if p.retrieveCustomerFn != nil {
		return p.retrieveCustomerFn(ctx, customerID)
	}
	return &billing.CustomerSnapshot{ID: customerID}, nil
}

// recordingNotifier captures dispatched notifications for assertions.
type recordingNotifier struct {
	kinds []billing.NotificationKind
}

func (n *recordingNotifier) Notify(ctx context.Context, kind billing.NotificationKind, org *billing.Organization, sub *billing.Subscription) {
	n.kinds = append(n.kinds, kind)
}

func testCatalog(t *testing.T) *billing.Catalog {
	t.Helper()

	catalog, err := billing.NewCatalog(context.Background(), billing.NewInMemPlanSource(
		billing.Plan{
			ID: "price_basic_monthly", Name: "Basic", Tier: billing.TierBasic,
			Interval:   billing.IntervalMonthly,
			UnitAmount: billing.Money{Amount: 2900, Currency: "usd"},
			Limit:      billing.Limit{MaxLocations: 1, MaxUsers: 3, MaxFeedbacks: 100},
		},
		billing.Plan{
			ID: "price_basic_annual", Name: "Basic Annual", Tier: billing.TierBasic,
			Interval:   billing.IntervalAnnual,
			UnitAmount: billing.Money{Amount: 29900, Currency: "usd"},
			Limit:      billing.Limit{MaxLocations: 1, MaxUsers: 3, MaxFeedbacks: 100},
		},
		billing.Plan{
			ID: "price_pro_monthly", Name: "Professional", Tier: billing.TierProfessional,
			Interval:   billing.IntervalMonthly,
			UnitAmount: billing.Money{Amount: 7900, Currency: "usd"},
			Limit:      billing.Limit{MaxLocations: 5, MaxUsers: 10, MaxFeedbacks: 1000},
		},
		billing.Plan{
			ID: "price_pro_annual", Name: "Professional Annual", Tier: billing.TierProfessional,
			Interval:   billing.IntervalAnnual,
			UnitAmount: billing.Money{Amount: 79900, Currency: "usd"},
			Limit:      billing.Limit{MaxLocations: 5, MaxUsers: 10, MaxFeedbacks: 1000},
		},
		billing.Plan{
			ID: "price_ent_monthly", Name: "Enterprise", Tier: billing.TierEnterprise,
			Interval:   billing.IntervalMonthly,
			UnitAmount: billing.Money{Amount: 29900, Currency: "usd"},
		},
	))
	require.NoError(t, err)
	return catalog
}

// seedOrg stores an organization linked to the given provider customer id.
func seedOrg(t *testing.T, store *billing.MemoryStore, customerID string) *billing.Organization {
	t.Helper()

	org := &billing.Organization{
		ID:                uuid.New(),
		Name:              "Tacos El Norte",
		CompanyEmail:      "billing@elnorte.example",
		BillingCustomerID: customerID,
		OnTrial:           true,
	}
	require.NoError(t, store.Organizations().Save(context.Background(), org))
	return org
}

// seedSub stores a subscription in the given state.
func seedSub(t *testing.T, store *billing.MemoryStore, orgID uuid.UUID, providerSubID, planID string, status billing.SubscriptionStatus, age time.Duration) *billing.Subscription {
	t.Helper()

	sub := &billing.Subscription{
		ID:             uuid.New(),
		OrganizationID: orgID,
		PlanID:         planID,
		ProviderSubID:  providerSubID,
		Status:         status,
		CreatedAt:      time.Now().UTC().Add(-age),
	}
	require.NoError(t, store.Subscriptions().Save(context.Background(), sub))
	return sub
}

func seedPaymentMethod(t *testing.T, store *billing.MemoryStore, orgID uuid.UUID) {
	t.Helper()

	require.NoError(t, store.PaymentMethods().Replace(context.Background(), &billing.PaymentMethod{
		ProviderMethodID: "pm_test",
		OrganizationID:   orgID,
		Type:             billing.MethodCard,
		LastFour:         "4242",
		Brand:            "visa",
	}))
}

// invoiceEventJSON builds an invoice.payment_succeeded payload with a single
// non-proration line for the given price.
func invoiceEventJSON(t *testing.T, eventID, customerID, subID, reason, priceID string, unitAmount int64) []byte {
	t.Helper()

	payload := fmt.Sprintf(`{
		"id": %q,
		"type": "invoice.payment_succeeded",
		"data": {"object": {
			"id": "in_%s",
			"customer": %q,
			"subscription": %q,
			"status": "paid",
			"billing_reason": %q,
			"total": %d,
			"subtotal": %d,
			"amount_paid": %d,
			"currency": "usd",
			"subscription_status": "active",
			"status_transitions": {"paid_at": 1700000000},
			"lines": {"data": [
				{"proration": false, "amount": %d, "price": {"id": %q, "unit_amount": %d}}
			]}
		}}
	}`, eventID, eventID, customerID, subID, reason, unitAmount, unitAmount, unitAmount, unitAmount, priceID, unitAmount)

	require.True(t, json.Valid([]byte(payload)))
	return []byte(payload)
}

func parseEvent(t *testing.T, payload []byte) billing.Event {
	t.Helper()

	event, err := billing.ParseEvent(payload)
	require.NoError(t, err)
	return event
}
