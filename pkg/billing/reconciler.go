package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Notifier consumes subscription lifecycle notifications. Implementations
// must be fire-and-forget: Notify never blocks reconciliation and its
// failures never affect the reconciliation outcome.
type Notifier interface {
	Notify(ctx context.Context, kind NotificationKind, org *Organization, sub *Subscription)
}

// Reconciler maps provider webhook events to local state transitions and
// ledger entries, applying each idempotently inside one transaction.
type Reconciler struct {
	store    Store
	provider Provider
	catalog  *Catalog
	notifier Notifier
	log      *slog.Logger
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithNotifier sets the lifecycle notification dispatcher.
func WithNotifier(n Notifier) ReconcilerOption {
	return func(r *Reconciler) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithReconcilerLogger sets the reconciler's logger.
func WithReconcilerLogger(log *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
	}
}

// NewReconciler creates a Reconciler. Panics if a required dependency is nil
// to fail fast during initialization.
func NewReconciler(catalog *Catalog, provider Provider, store Store, opts ...ReconcilerOption) *Reconciler {
	if catalog == nil {
		panic("billing: Catalog is required")
	}
	if provider == nil {
		panic("billing: Provider is required")
	}
	if store == nil {
		panic("billing: Store is required")
	}

	r := &Reconciler{
		store:    store,
		provider: provider,
		catalog:  catalog,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// pendingNotification is collected during the transaction and dispatched only
// after a successful commit, so replayed events and rolled-back transactions
// never notify.
type pendingNotification struct {
	kind NotificationKind
	org  Organization
	sub  Subscription
}

// Handle applies one provider event. All database mutations happen inside a
// single transaction; replaying an already-handled event converges to the
// same end state without duplicate invoice rows or double notification.
func (r *Reconciler) Handle(ctx context.Context, event Event) error {
	var pending *pendingNotification

	err := r.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		var err error
		switch e := event.(type) {
		case *InvoicePaymentSucceeded:
			pending, err = r.applyInvoicePaymentSucceeded(ctx, tx, e)
		case *InvoicePaymentFailed:
			err = r.applyInvoicePaymentFailed(ctx, tx, e)
		case *SubscriptionUpdated:
			err = r.applySubscriptionUpdated(ctx, tx, e)
		case *SubscriptionDeleted:
			pending, err = r.applySubscriptionDeleted(ctx, tx, e)
		case *PaymentMethodAttached:
			err = r.applyPaymentMethodAttached(ctx, tx, e)
		default:
			r.log.WarnContext(ctx, "ignoring event of unexpected type",
				slog.String("event_id", event.EventID()),
				slog.String("event_type", fmt.Sprintf("%T", event)))
		}
		return err
	})
	if err != nil {
		return err
	}

	if pending != nil && r.notifier != nil {
		r.notifier.Notify(ctx, pending.kind, &pending.org, &pending.sub)
	}
	return nil
}

// resolveOrganization maps a provider customer id to the local organization.
// The local billing-customer link is tried first; before the first successful
// payment that link does not exist yet, so the provider's customer metadata
// back-reference is the fallback join key.
func (r *Reconciler) resolveOrganization(ctx context.Context, tx Store, customerID string) (*Organization, error) {
	org, err := tx.Organizations().ByBillingCustomerID(ctx, customerID)
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, ErrOrganizationNotFound) {
		return nil, err
	}

	customer, err := r.provider.RetrieveCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	rawID, ok := customer.Metadata[MetadataOrganizationID]
	if !ok {
		return nil, fmt.Errorf("%w: customer %s has no %s metadata", ErrUnknownExternalReference, customerID, MetadataOrganizationID)
	}
	orgID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: customer %s metadata %q is not a valid organization id", ErrUnknownExternalReference, customerID, rawID)
	}

	org, err = tx.Organizations().Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, ErrOrganizationNotFound) {
			return nil, fmt.Errorf("%w: customer %s references missing organization %s", ErrUnknownExternalReference, customerID, orgID)
		}
		return nil, err
	}
	return org, nil
}

// applyStatus performs a status-guarded transition and mirrors the activation
// flag. Applying the current status again is a no-op, which is how replayed
// events collapse. A transition outside the table means the event is stale or
// out of order: it is logged and skipped without mutation, since provider
// redelivery of an old event must never corrupt newer local state.
func (r *Reconciler) applyStatus(ctx context.Context, tx Store, org *Organization, sub *Subscription, to SubscriptionStatus) error {
	if sub.Status == to {
		return nil
	}
	if err := checkTransition(sub.Status, to); err != nil {
		r.log.WarnContext(ctx, "skipping out-of-order status transition",
			slog.String("subscription_id", sub.ID.String()),
			slog.String("from", string(sub.Status)),
			slog.String("to", string(to)))
		return nil
	}

	sub.Status = to
	if err := tx.Subscriptions().Save(ctx, sub); err != nil {
		return err
	}
	org.IsActive = to.GrantsAccess()
	return tx.Organizations().Save(ctx, org)
}

func (r *Reconciler) applyInvoicePaymentSucceeded(ctx context.Context, tx Store, e *InvoicePaymentSucceeded) (*pendingNotification, error) {
	sub, org, err := r.resolveSubscription(ctx, tx, e)
	if err != nil {
		return nil, err
	}

	// A redelivered or out-of-order invoice can target a subscription that
	// already reached a terminal status. The payment is still ledgered, but
	// the closed row's plan and locked-in amount are history and must not be
	// rewritten.
	if sub.IsTerminal() {
		r.log.WarnContext(ctx, "ignoring paid invoice for terminal subscription",
			slog.String("event_id", e.EventID()),
			slog.String("subscription_id", sub.ID.String()),
			slog.String("status", string(sub.Status)))
		_, err := r.upsertInvoice(ctx, tx, sub, e)
		return nil, err
	}

	status := StatusActive
	if e.ProviderStatus != "" {
		parsed, ok := ParseSubscriptionStatus(e.ProviderStatus)
		if !ok {
			return nil, malformed("event %s carries unknown subscription status %q", e.EventID(), e.ProviderStatus)
		}
		status = parsed
	}

	switch e.BillingReason {
	case ReasonSubscriptionCreate:
		// A payment without a preceding attach webhook is a recoverable
		// inconsistency: do not activate, let the provider redeliver after
		// the attach arrives.
		if _, err := tx.PaymentMethods().ByOrganization(ctx, org.ID); err != nil {
			if errors.Is(err, ErrPaymentMethodNotFound) {
				r.log.ErrorContext(ctx, "payment succeeded but no payment method on file, refusing to activate",
					slog.String("event_id", e.EventID()),
					slog.String("organization_id", org.ID.String()))
				return nil, fmt.Errorf("%w for organization %s", ErrPaymentMethodNotFound, org.ID)
			}
			return nil, err
		}
		fallthrough

	case ReasonSubscriptionUpdate:
		plan, err := r.catalog.Plan(e.PriceID)
		if err != nil {
			return nil, fmt.Errorf("%w: invoice line price %s is not in the catalog", ErrUnknownExternalReference, e.PriceID)
		}

		sub.ProviderSubID = e.ProviderSubID
		sub.PlanID = plan.ID
		sub.UnitAmount = Money{Amount: e.UnitAmount, Currency: e.Currency}
		if err := tx.Subscriptions().Save(ctx, sub); err != nil {
			return nil, err
		}

		org.BillingCustomerID = e.CustomerID()
		org.OnTrial = false
		if err := r.applyStatus(ctx, tx, org, sub, status); err != nil {
			return nil, err
		}
		// applyStatus skips the save when the status is unchanged, but the
		// customer link and trial flag above still need persisting.
		if err := tx.Organizations().Save(ctx, org); err != nil {
			return nil, err
		}

	case ReasonSubscriptionCycle:
		// Routine renewal: only the ledger is written. Status is synced
		// defensively when the provider disagrees with local state.
		if status != sub.Status {
			if err := r.applyStatus(ctx, tx, org, sub, status); err != nil {
				return nil, err
			}
		}
	}

	created, err := r.upsertInvoice(ctx, tx, sub, e)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, nil
	}

	switch e.BillingReason {
	case ReasonSubscriptionCreate:
		return &pendingNotification{kind: NotificationCreated, org: *org, sub: *sub}, nil
	case ReasonSubscriptionUpdate:
		return &pendingNotification{kind: NotificationUpdated, org: *org, sub: *sub}, nil
	}
	return nil, nil
}

// resolveSubscription finds the subscription an invoice event targets. The
// provider subscription id matches after the first confirmation; before it,
// the organization's latest open subscription is the registration-created row
// awaiting confirmation.
func (r *Reconciler) resolveSubscription(ctx context.Context, tx Store, e *InvoicePaymentSucceeded) (*Subscription, *Organization, error) {
	sub, err := tx.Subscriptions().ByProviderID(ctx, e.ProviderSubID)
	switch {
	case err == nil:
		org, err := tx.Organizations().Get(ctx, sub.OrganizationID)
		if err != nil {
			return nil, nil, err
		}
		return sub, org, nil
	case !errors.Is(err, ErrSubscriptionNotFound):
		return nil, nil, err
	}

	org, err := r.resolveOrganization(ctx, tx, e.CustomerID())
	if err != nil {
		return nil, nil, err
	}

	sub, err = tx.Subscriptions().LatestByOrganization(ctx, org.ID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return nil, nil, fmt.Errorf("%w: no subscription for organization %s", ErrUnknownExternalReference, org.ID)
		}
		return nil, nil, err
	}
	if sub.IsTerminal() {
		return nil, nil, fmt.Errorf("%w: latest subscription for organization %s is terminal", ErrUnknownExternalReference, org.ID)
	}
	return sub, org, nil
}

func (r *Reconciler) upsertInvoice(ctx context.Context, tx Store, sub *Subscription, e *InvoicePaymentSucceeded) (bool, error) {
	inv := &Invoice{
		ProviderInvoiceID: e.InvoiceID,
		SubscriptionID:    sub.ID,
		Total:             e.Total,
		Subtotal:          e.Subtotal,
		AmountPaid:        e.AmountPaid,
		Currency:          e.Currency,
		Status:            e.Status,
		BillingReason:     e.BillingReason,
		HostedInvoiceURL:  e.HostedInvoiceURL,
		InvoicePDF:        e.InvoicePDF,
		PaidAt:            e.PaidAt,
	}
	return tx.Invoices().Upsert(ctx, inv)
}

// applyInvoicePaymentFailed moves the subscription to past_due. Any known
// subscription goes past due regardless of its prior state. No invoice row is
// written since no charge occurred.
func (r *Reconciler) applyInvoicePaymentFailed(ctx context.Context, tx Store, e *InvoicePaymentFailed) error {
	sub, err := tx.Subscriptions().ByProviderID(ctx, e.ProviderSubID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return fmt.Errorf("%w: payment failed for unknown subscription %s", ErrUnknownExternalReference, e.ProviderSubID)
		}
		return err
	}
	if sub.Status == StatusPastDue {
		return nil
	}

	sub.Status = StatusPastDue
	if err := tx.Subscriptions().Save(ctx, sub); err != nil {
		return err
	}

	org, err := tx.Organizations().Get(ctx, sub.OrganizationID)
	if err != nil {
		return err
	}
	org.IsActive = false
	return tx.Organizations().Save(ctx, org)
}

func (r *Reconciler) applySubscriptionUpdated(ctx context.Context, tx Store, e *SubscriptionUpdated) error {
	sub, err := tx.Subscriptions().ByProviderID(ctx, e.ProviderSubID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return fmt.Errorf("%w: update for unknown subscription %s", ErrUnknownExternalReference, e.ProviderSubID)
		}
		return err
	}
	org, err := tx.Organizations().Get(ctx, sub.OrganizationID)
	if err != nil {
		return err
	}

	status, ok := ParseSubscriptionStatus(e.ProviderStatus)
	if !ok {
		return malformed("event %s carries unknown subscription status %q", e.EventID(), e.ProviderStatus)
	}

	// An active update re-resolves price and amount from the subscription's
	// current line item. This covers plan changes made directly at the
	// provider that never passed through this system.
	if status == StatusActive && e.PriceID != "" {
		if plan, err := r.catalog.Plan(e.PriceID); err == nil {
			sub.PlanID = plan.ID
			sub.UnitAmount = Money{Amount: e.UnitAmount, Currency: e.Currency}
			if err := tx.Subscriptions().Save(ctx, sub); err != nil {
				return err
			}
		} else {
			r.log.WarnContext(ctx, "provider reports price missing from catalog",
				slog.String("event_id", e.EventID()),
				slog.String("price_id", e.PriceID))
		}
	}

	return r.applyStatus(ctx, tx, org, sub, status)
}

func (r *Reconciler) applySubscriptionDeleted(ctx context.Context, tx Store, e *SubscriptionDeleted) (*pendingNotification, error) {
	if e.ProviderStatus != string(StatusCanceled) {
		// Unexpected provider behavior, not a local error.
		r.log.WarnContext(ctx, "ignoring subscription deletion with unexpected status",
			slog.String("event_id", e.EventID()),
			slog.String("provider_status", e.ProviderStatus))
		return nil, nil
	}

	sub, err := tx.Subscriptions().ByProviderID(ctx, e.ProviderSubID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return nil, fmt.Errorf("%w: deletion for unknown subscription %s", ErrUnknownExternalReference, e.ProviderSubID)
		}
		return nil, err
	}
	if sub.Status == StatusCanceled {
		return nil, nil
	}

	org, err := tx.Organizations().Get(ctx, sub.OrganizationID)
	if err != nil {
		return nil, err
	}
	if err := r.applyStatus(ctx, tx, org, sub, StatusCanceled); err != nil {
		return nil, err
	}
	if sub.Status != StatusCanceled {
		return nil, nil
	}

	return &pendingNotification{kind: NotificationCanceled, org: *org, sub: *sub}, nil
}

// applyPaymentMethodAttached replaces the organization's payment method with
// the newly attached one. Only masked display fields reach storage.
func (r *Reconciler) applyPaymentMethodAttached(ctx context.Context, tx Store, e *PaymentMethodAttached) error {
	org, err := r.resolveOrganization(ctx, tx, e.CustomerID())
	if err != nil {
		return err
	}

	return tx.PaymentMethods().Replace(ctx, &PaymentMethod{
		ProviderMethodID: e.MethodID,
		OrganizationID:   org.ID,
		Type:             e.Type,
		LastFour:         e.LastFour,
		Brand:            e.Brand,
		ExpMonth:         e.ExpMonth,
		ExpYear:          e.ExpYear,
	})
}
