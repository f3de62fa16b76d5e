package billing

// PlanTier identifies a purchasable plan level.
type PlanTier string

const (
	TierBasic        PlanTier = "basic"
	TierProfessional PlanTier = "professional"
	TierEnterprise   PlanTier = "enterprise"
)

// tierRanks orders tiers for upgrade checks. Lower rank wins, so moving to a
// lower rank number is an upgrade.
var tierRanks = map[PlanTier]int{
	TierEnterprise:   1,
	TierProfessional: 2,
	TierBasic:        3,
}

// Rank returns the tier's upgrade rank. Unknown tiers rank below every known
// tier so they can never be upgraded to.
func (t PlanTier) Rank() int {
	if r, ok := tierRanks[t]; ok {
		return r
	}
	return len(tierRanks) + 1
}

// IsValid reports whether the tier is a known catalog tier.
func (t PlanTier) IsValid() bool {
	_, ok := tierRanks[t]
	return ok
}

// BillingInterval represents the billing frequency of a plan.
type BillingInterval string

const (
	IntervalMonthly BillingInterval = "monthly"
	IntervalAnnual  BillingInterval = "annual"
)

// SubscriptionStatus represents the current state of a subscription.
// The values mirror the provider's subscription status vocabulary.
type SubscriptionStatus string

const (
	StatusIncomplete        SubscriptionStatus = "incomplete"
	StatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	StatusTrialing          SubscriptionStatus = "trialing"
	StatusActive            SubscriptionStatus = "active"
	StatusPastDue           SubscriptionStatus = "past_due"
	StatusUnpaid            SubscriptionStatus = "unpaid"
	StatusPaused            SubscriptionStatus = "paused"
	StatusCanceled          SubscriptionStatus = "canceled"
)

// AllStatuses lists every subscription status, useful for exhaustive checks.
var AllStatuses = []SubscriptionStatus{
	StatusIncomplete,
	StatusIncompleteExpired,
	StatusTrialing,
	StatusActive,
	StatusPastDue,
	StatusUnpaid,
	StatusPaused,
	StatusCanceled,
}

// GrantsAccess reports whether the status entitles the organization to use
// the platform. Only active and trialing subscriptions grant access.
func (s SubscriptionStatus) GrantsAccess() bool {
	return s == StatusActive || s == StatusTrialing
}

// IsTerminal reports whether the status is final. A canceled subscription is
// never reactivated; reactivation creates a new subscription row.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == StatusCanceled || s == StatusIncompleteExpired
}

// ParseSubscriptionStatus maps a provider status string to a local status.
func ParseSubscriptionStatus(raw string) (SubscriptionStatus, bool) {
	s := SubscriptionStatus(raw)
	for _, known := range AllStatuses {
		if s == known {
			return s, true
		}
	}
	return "", false
}

// InvoiceStatus represents the provider-reported state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft         InvoiceStatus = "draft"
	InvoiceOpen          InvoiceStatus = "open"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceUncollectible InvoiceStatus = "uncollectible"
	InvoiceVoid          InvoiceStatus = "void"
)

// BillingReason explains why the provider issued an invoice.
type BillingReason string

const (
	ReasonSubscriptionCreate BillingReason = "subscription_create"
	ReasonSubscriptionUpdate BillingReason = "subscription_update"
	ReasonSubscriptionCycle  BillingReason = "subscription_cycle"
)

// PaymentMethodType identifies the kind of payment instrument on file.
type PaymentMethodType string

const (
	MethodCard        PaymentMethodType = "card"
	MethodBankAccount PaymentMethodType = "bank_account"
	MethodSEPA        PaymentMethodType = "sepa"
)

// Money represents a monetary amount in the smallest currency unit.
// For example, $10.99 USD would be Amount: 1099, Currency: "USD".
type Money struct {
	Amount   int64  // amount in smallest currency unit (cents for USD)
	Currency string // ISO 4217 currency code
}

// NotificationKind identifies the lifecycle event a notification announces.
type NotificationKind string

const (
	NotificationCreated  NotificationKind = "created"
	NotificationUpdated  NotificationKind = "updated"
	NotificationCanceled NotificationKind = "canceled"
)
