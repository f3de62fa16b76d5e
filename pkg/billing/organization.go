package billing

import (
	"time"

	"github.com/google/uuid"
)

// Organization is the tenant root. IsActive must be false whenever the latest
// subscription's status does not grant access; the Reconciler and the trial
// sweep are the only writers of IsActive and BillingCustomerID.
type Organization struct {
	ID                  uuid.UUID
	Name                string
	CompanyEmail        string
	AdministrativeEmail string
	PhoneNumber         string
	State               string
	Portal              string // unique portal slug
	IsActive            bool
	OnTrial             bool
	BillingCustomerID   string // provider customer id, empty until first successful payment
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
