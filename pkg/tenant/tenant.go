package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tenant represents an organization in the system with the minimal
// information needed for request-scoped operations and access checks.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Portal    string    `json:"portal"`
	Name      string    `json:"name"`
	PlanID    string    `json:"plan_id"`
	Active    bool      `json:"active"`
	OnTrial   bool      `json:"on_trial"`
	CreatedAt time.Time `json:"created_at"`
}

// Provider loads tenant information from a data source.
// Implementations should handle various identifier formats
// (UUID, portal slug, etc.) based on application needs.
type Provider interface {
	// GetByIdentifier retrieves a tenant using any unique identifier.
	// The identifier could be a UUID, portal slug, or any other unique field.
	// Returns ErrTenantNotFound if no tenant matches the identifier.
	GetByIdentifier(ctx context.Context, identifier string) (*Tenant, error)
}
