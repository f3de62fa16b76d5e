package billing

import (
	"context"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v82"
)

// StripeConfig holds configuration for the Stripe billing provider.
type StripeConfig struct {
	SecretKey     string        `env:"STRIPE_SECRET_KEY,required"`
	WebhookSecret string        `env:"STRIPE_WEBHOOK_SECRET,required"`
	CallTimeout   time.Duration `env:"STRIPE_CALL_TIMEOUT" envDefault:"15s"`
}

// StripeProvider implements Provider on the official Stripe SDK.
type StripeProvider struct {
	client  *stripe.Client
	timeout time.Duration
}

// NewStripeProvider creates a Stripe-backed billing provider. The client is
// stateless and safe for concurrent use; construct it once at process start
// and inject it where needed.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingAPIKey
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &StripeProvider{
		client:  stripe.NewClient(cfg.SecretKey, nil),
		timeout: timeout,
	}, nil
}

// callCtx bounds every outbound Stripe call. On timeout the external effect
// is unknown and the caller must not commit local state that assumes success.
func (p *StripeProvider) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.timeout)
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, email, displayName string, metadata map[string]string) (string, error) {
	ctx, cancel := p.callCtx(ctx)
	defer cancel()

	params := &stripe.CustomerCreateParams{
		Email:    stripe.String(email),
		Name:     stripe.String(displayName),
		Metadata: metadata,
	}

	customer, err := p.client.V1Customers.Create(ctx, params)
	if err != nil {
		return "", errors.Join(ErrExternalCallFailed, err)
	}
	return customer.ID, nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	ctx, cancel := p.callCtx(ctx)
	defer cancel()

	params := &stripe.CheckoutSessionCreateParams{
		Mode:     stripe.String("subscription"),
		Customer: stripe.String(req.CustomerID),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}

	session, err := p.client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, errors.Join(ErrExternalCallFailed, err)
	}

	return &CheckoutSession{SessionID: session.ID, URL: session.URL}, nil
}

func (p *StripeProvider) RetrieveSubscription(ctx context.Context, providerSubID string) (*SubscriptionSnapshot, error) {
	ctx, cancel := p.callCtx(ctx)
	defer cancel()

	params := &stripe.SubscriptionRetrieveParams{
		Expand: []*string{stripe.String("items.data.price")},
	}

	sub, err := p.client.V1Subscriptions.Retrieve(ctx, providerSubID, params)
	if err != nil {
		return nil, errors.Join(ErrExternalCallFailed, err)
	}

	snapshot := &SubscriptionSnapshot{
		ID:     sub.ID,
		Status: string(sub.Status),
	}
	if sub.Customer != nil {
		snapshot.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		if price := sub.Items.Data[0].Price; price != nil {
			snapshot.PriceID = price.ID
			snapshot.UnitAmount = price.UnitAmount
			snapshot.Currency = string(price.Currency)
		}
	}

	return snapshot, nil
}

func (p *StripeProvider) ModifySubscription(ctx context.Context, providerSubID, newPriceID string) error {
	ctx, cancel := p.callCtx(ctx)
	defer cancel()

	// The swap targets the subscription's single line item; retrieval is
	// needed first because the item id differs from the subscription id.
	sub, err := p.client.V1Subscriptions.Retrieve(ctx, providerSubID, nil)
	if err != nil {
		return errors.Join(ErrExternalCallFailed, err)
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return errors.Join(ErrExternalCallFailed, errors.New("subscription has no line items"))
	}

	params := &stripe.SubscriptionUpdateParams{
		Items: []*stripe.SubscriptionUpdateItemParams{
			{
				ID:    stripe.String(sub.Items.Data[0].ID),
				Price: stripe.String(newPriceID),
			},
		},
		ProrationBehavior: stripe.String("create_prorations"),
		PaymentBehavior:   stripe.String("allow_incomplete"),
	}

	if _, err := p.client.V1Subscriptions.Update(ctx, providerSubID, params); err != nil {
		return errors.Join(ErrExternalCallFailed, err)
	}
	return nil
}

func (p *StripeProvider) CancelSubscription(ctx context.Context, providerSubID string, prorate, invoiceNow bool) error {
	ctx, cancel := p.callCtx(ctx)
	defer cancel()

	params := &stripe.SubscriptionCancelParams{
		Prorate:    stripe.Bool(prorate),
		InvoiceNow: stripe.Bool(invoiceNow),
	}

	if _, err := p.client.V1Subscriptions.Cancel(ctx, providerSubID, params); err != nil {
		return errors.Join(ErrExternalCallFailed, err)
	}
	return nil
}

func (p *StripeProvider) RetrieveCustomer(ctx context.Context, customerID string) (*CustomerSnapshot, error) {
	ctx, cancel := p.callCtx(ctx)
	defer cancel()

	customer, err := p.client.V1Customers.Retrieve(ctx, customerID, nil)
	if err != nil {
		return nil, errors.Join(ErrExternalCallFailed, err)
	}

	return &CustomerSnapshot{
		ID:       customer.ID,
		Email:    customer.Email,
		Metadata: customer.Metadata,
	}, nil
}
