package billing

import (
	"time"

	"github.com/google/uuid"
)

// Subscription records one billing period of commitment for an organization.
// An organization accumulates a history of subscription rows over time:
// reactivation after cancellation creates a new row, never reuses one. The
// latest row by creation time is the one consulted for access control.
type Subscription struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	PlanID         string // catalog price id
	ProviderSubID  string // provider's subscription id, empty until confirmed
	UnitAmount     Money  // locked in at creation, later plan price changes don't alter history
	Status         SubscriptionStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// GrantsAccess reports whether this subscription entitles the organization to
// use the platform.
func (s *Subscription) GrantsAccess() bool {
	return s.Status.GrantsAccess()
}

// IsTerminal reports whether the subscription reached a final status.
func (s *Subscription) IsTerminal() bool {
	return s.Status.IsTerminal()
}

// AgeAt returns the subscription's age at the given instant.
func (s *Subscription) AgeAt(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}
