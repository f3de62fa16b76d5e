package billing

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is the single live payment instrument on file for an
// organization. Attaching a new one supersedes and deletes prior rows in the
// same transaction. Only masked display fields are ever persisted; full
// account numbers and tokens never reach local storage.
type PaymentMethod struct {
	ID               uuid.UUID
	ProviderMethodID string // unique external id
	OrganizationID   uuid.UUID
	Type             PaymentMethodType
	LastFour         string
	Brand            string // card brand or bank name
	ExpMonth         int64  // cards only
	ExpYear          int64  // cards only
	CreatedAt        time.Time
}
