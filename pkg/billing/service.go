package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opinia/opinia/pkg/slug"
)

// Service exposes the customer-initiated side of the subscription lifecycle.
// Paid state is never mutated here directly: plan changes and cancellations
// are issued provider-first, and local state follows through the Reconciler
// once the provider confirms via webhook.
type Service interface {
	// Register creates an organization with its provider customer and a
	// pending subscription, and opens a checkout session for the chosen plan.
	Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error)

	// CurrentSubscription returns the organization's latest subscription.
	CurrentSubscription(ctx context.Context, orgID uuid.UUID) (*Subscription, error)

	// ChangePlan switches an active subscription to the plan sold under
	// newPriceID, subject to the tier and interval monotonicity rules.
	ChangePlan(ctx context.Context, orgID uuid.UUID, newPriceID string) error

	// Cancel requests cancellation of the organization's subscription at the
	// provider. Subscriptions younger than the minimum age cannot be
	// canceled; the returned error reports the remaining days.
	Cancel(ctx context.Context, orgID uuid.UUID) error

	// Transition applies a direct status transition, enforcing the
	// transition table strictly and mirroring the activation flag.
	Transition(ctx context.Context, subID uuid.UUID, to SubscriptionStatus) error

	// ListInvoices returns the organization's invoice ledger, newest first.
	ListInvoices(ctx context.Context, orgID uuid.UUID) ([]Invoice, error)

	// ExpireTrials deactivates organizations whose trial has run out and
	// returns how many were deactivated.
	ExpireTrials(ctx context.Context) (int64, error)
}

// RegisterRequest carries everything needed to sign up an organization.
type RegisterRequest struct {
	OrganizationName    string
	CompanyEmail        string
	AdministrativeEmail string
	PhoneNumber         string
	State               string
	Portal              string
	PriceID             string
	SuccessURL          string
	CancelURL           string
}

// RegisterResult is the outcome of a successful registration. Checkout holds
// the URL the customer must be redirected to for payment.
type RegisterResult struct {
	Organization *Organization
	Subscription *Subscription
	Checkout     *CheckoutSession
}

// ServiceOption configures the service.
type ServiceOption func(*service)

// WithServiceLogger sets the service's logger.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTrialPeriod overrides the trial duration used by ExpireTrials.
func WithTrialPeriod(d time.Duration) ServiceOption {
	return func(s *service) {
		if d > 0 {
			s.trialPeriod = d
		}
	}
}

// WithCancelMinAge overrides the minimum subscription age before a customer
// may cancel.
func WithCancelMinAge(d time.Duration) ServiceOption {
	return func(s *service) {
		if d > 0 {
			s.cancelMinAge = d
		}
	}
}

type service struct {
	store        Store
	provider     Provider
	catalog      *Catalog
	log          *slog.Logger
	trialPeriod  time.Duration
	cancelMinAge time.Duration
}

const (
	defaultTrialPeriod  = 30 * 24 * time.Hour
	defaultCancelMinAge = 14 * 24 * time.Hour
)

// NewService creates the subscription service. Panics if a required
// dependency is nil to fail fast during initialization.
func NewService(catalog *Catalog, provider Provider, store Store, opts ...ServiceOption) Service {
	if catalog == nil {
		panic("billing: Catalog is required")
	}
	if provider == nil {
		panic("billing: Provider is required")
	}
	if store == nil {
		panic("billing: Store is required")
	}

	s := &service{
		store:        store,
		provider:     provider,
		catalog:      catalog,
		log:          slog.Default(),
		trialPeriod:  defaultTrialPeriod,
		cancelMinAge: defaultCancelMinAge,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	plan, err := s.catalog.Plan(req.PriceID)
	if err != nil {
		return nil, err
	}

	// Organizations that don't pick a portal slug get one derived from their
	// name, with a random suffix to dodge collisions.
	portal := req.Portal
	if portal == "" {
		portal = slug.Make(req.OrganizationName, slug.WithSuffix(4))
	}

	org := &Organization{
		ID:                  uuid.New(),
		Name:                req.OrganizationName,
		CompanyEmail:        req.CompanyEmail,
		AdministrativeEmail: req.AdministrativeEmail,
		PhoneNumber:         req.PhoneNumber,
		State:               req.State,
		Portal:              portal,
		IsActive:            true,
		OnTrial:             true,
	}

	customerID, err := s.provider.CreateCustomer(ctx, org.CompanyEmail, org.Name, map[string]string{
		MetadataOrganizationID: org.ID.String(),
	})
	if err != nil {
		return nil, err
	}
	org.BillingCustomerID = customerID

	// Pending until checkout completes: the provider subscription id stays
	// empty and the reconciler fills it in on the first payment.
	sub := &Subscription{
		ID:             uuid.New(),
		OrganizationID: org.ID,
		PlanID:         plan.ID,
		UnitAmount:     plan.UnitAmount,
		Status:         StatusIncomplete,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.Organizations().Save(ctx, org); err != nil {
			return err
		}
		return tx.Subscriptions().Save(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		CustomerID: customerID,
		PriceID:    plan.ID,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "organization registered",
		slog.String("organization_id", org.ID.String()),
		slog.String("plan_id", plan.ID))

	return &RegisterResult{Organization: org, Subscription: sub, Checkout: session}, nil
}

func (s *service) CurrentSubscription(ctx context.Context, orgID uuid.UUID) (*Subscription, error) {
	return s.store.Subscriptions().LatestByOrganization(ctx, orgID)
}

func (s *service) ChangePlan(ctx context.Context, orgID uuid.UUID, newPriceID string) error {
	sub, err := s.store.Subscriptions().LatestByOrganization(ctx, orgID)
	if err != nil {
		return err
	}
	if sub.Status != StatusActive {
		return fmt.Errorf("%w: subscription %s is %s", ErrSubscriptionNotActive, sub.ID, sub.Status)
	}

	current, err := s.catalog.Plan(sub.PlanID)
	if err != nil {
		return err
	}
	next, err := s.catalog.Plan(newPriceID)
	if err != nil {
		return err
	}

	if err := checkPlanChange(current, next); err != nil {
		return err
	}

	// Provider first. Local plan and amount follow through the webhook once
	// the provider confirms, so a failed call leaves no local drift.
	if err := s.provider.ModifySubscription(ctx, sub.ProviderSubID, next.ID); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "plan change requested",
		slog.String("organization_id", orgID.String()),
		slog.String("from_plan", current.ID),
		slog.String("to_plan", next.ID))
	return nil
}

// checkPlanChange enforces plan-change monotonicity: moving to a higher tier
// is always allowed, staying on the same tier is allowed only when switching
// from monthly to annual billing. Everything else is rejected.
func checkPlanChange(current, next Plan) error {
	if current.ID == next.ID {
		return &PlanChangeNotAllowedError{Reason: "already subscribed to this plan"}
	}

	curRank, nextRank := current.Tier.Rank(), next.Tier.Rank()
	switch {
	case nextRank < curRank:
		return nil
	case nextRank == curRank && current.Interval == IntervalMonthly && next.Interval == IntervalAnnual:
		return nil
	case nextRank == curRank:
		return &PlanChangeNotAllowedError{Reason: "annual billing cannot be switched back to monthly"}
	default:
		return &PlanChangeNotAllowedError{Reason: "downgrading to a lower tier is not allowed"}
	}
}

func (s *service) Cancel(ctx context.Context, orgID uuid.UUID) error {
	sub, err := s.store.Subscriptions().LatestByOrganization(ctx, orgID)
	if err != nil {
		return err
	}
	if sub.IsTerminal() {
		return fmt.Errorf("%w: subscription %s is already %s", ErrSubscriptionNotActive, sub.ID, sub.Status)
	}
	if sub.ProviderSubID == "" {
		return fmt.Errorf("%w: subscription %s was never confirmed by the provider", ErrSubscriptionNotActive, sub.ID)
	}

	if age := sub.AgeAt(time.Now().UTC()); age < s.cancelMinAge {
		remaining := int((s.cancelMinAge - age + 24*time.Hour - 1) / (24 * time.Hour))
		return &TooEarlyToCancelError{DaysRemaining: remaining}
	}

	// Prorated immediate cancellation without a final invoice. The deletion
	// webhook moves local state to canceled and deactivates the organization.
	if err := s.provider.CancelSubscription(ctx, sub.ProviderSubID, true, false); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "cancellation requested",
		slog.String("organization_id", orgID.String()),
		slog.String("subscription_id", sub.ID.String()))
	return nil
}

func (s *service) Transition(ctx context.Context, subID uuid.UUID, to SubscriptionStatus) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		sub, err := tx.Subscriptions().Get(ctx, subID)
		if err != nil {
			return err
		}
		if err := checkTransition(sub.Status, to); err != nil {
			return err
		}

		sub.Status = to
		if err := tx.Subscriptions().Save(ctx, sub); err != nil {
			return err
		}

		org, err := tx.Organizations().Get(ctx, sub.OrganizationID)
		if err != nil {
			return err
		}
		org.IsActive = to.GrantsAccess()
		return tx.Organizations().Save(ctx, org)
	})
}

func (s *service) ListInvoices(ctx context.Context, orgID uuid.UUID) ([]Invoice, error) {
	return s.store.Invoices().ListByOrganization(ctx, orgID)
}

func (s *service) ExpireTrials(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.trialPeriod)
	n, err := s.store.Organizations().DeactivateExpiredTrials(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.InfoContext(ctx, "expired trial organizations deactivated", slog.Int64("count", n))
	}
	return n, nil
}
