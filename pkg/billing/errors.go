package billing

import (
	"errors"
	"fmt"
)

var (
	ErrPlanNotFound             = errors.New("billing: plan not found")
	ErrInvalidPlanConfiguration = errors.New("billing: invalid plan configuration")
	ErrFailedToLoadPlans        = errors.New("billing: failed to load plans")

	ErrOrganizationNotFound  = errors.New("billing: organization not found")
	ErrSubscriptionNotFound  = errors.New("billing: subscription not found")
	ErrSubscriptionNotActive = errors.New("billing: subscription is not active")
	ErrPaymentMethodNotFound = errors.New("billing: payment method not found")

	// ErrUnknownExternalReference indicates an event references a provider id
	// with no local match. This is permanent data drift, not a transient
	// failure: callers log and acknowledge instead of retrying forever.
	ErrUnknownExternalReference = errors.New("billing: event references unknown external id")

	ErrExternalCallFailed = errors.New("billing: billing provider call failed")

	// Webhook ingress errors.
	ErrSignatureInvalid = errors.New("billing: webhook signature mismatch")
	ErrMalformedEvent   = errors.New("billing: malformed webhook event")

	// Provider configuration errors.
	ErrMissingAPIKey        = errors.New("billing: provider API key is required")
	ErrMissingWebhookSecret = errors.New("billing: webhook secret is required")
)

// InvalidTransitionError is returned when a subscription status change is not
// present in the transition table.
type InvalidTransitionError struct {
	From SubscriptionStatus
	To   SubscriptionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("billing: invalid subscription transition %s -> %s", e.From, e.To)
}

// PlanChangeNotAllowedError carries the business rule a plan change violated.
type PlanChangeNotAllowedError struct {
	Reason string
}

func (e *PlanChangeNotAllowedError) Error() string {
	return "billing: plan change not allowed: " + e.Reason
}

// TooEarlyToCancelError is returned when a subscription is younger than the
// minimum cancellation age. DaysRemaining counts full days until cancellation
// becomes possible.
type TooEarlyToCancelError struct {
	DaysRemaining int
}

func (e *TooEarlyToCancelError) Error() string {
	return fmt.Sprintf("billing: subscription cannot be canceled yet, wait %d more day(s)", e.DaysRemaining)
}
