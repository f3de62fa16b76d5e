package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/opinia/opinia/pkg/billing"
)

type paymentMethodStore struct {
	db querier
}

func (s *paymentMethodStore) ByOrganization(ctx context.Context, orgID uuid.UUID) (*billing.PaymentMethod, error) {
	var (
		method billing.PaymentMethod
		typ    string
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, provider_method_id, organization_id, type, last_four, brand,
			exp_month, exp_year, created_at
		FROM payment_methods WHERE organization_id = $1`, orgID).Scan(
		&method.ID, &method.ProviderMethodID, &method.OrganizationID, &typ,
		&method.LastFour, &method.Brand, &method.ExpMonth, &method.ExpYear,
		&method.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, billing.ErrPaymentMethodNotFound
		}
		return nil, fmt.Errorf("query payment method: %w", err)
	}
	method.Type = billing.PaymentMethodType(typ)
	return &method, nil
}

// Replace drops any prior method rows for the organization and inserts the
// new one. Callers run this inside WithinTx so the swap is atomic.
func (s *paymentMethodStore) Replace(ctx context.Context, method *billing.PaymentMethod) error {
	if method.ID == uuid.Nil {
		method.ID = uuid.New()
	}
	if method.CreatedAt.IsZero() {
		method.CreatedAt = time.Now().UTC()
	}

	if _, err := s.db.Exec(ctx,
		`DELETE FROM payment_methods WHERE organization_id = $1`,
		method.OrganizationID); err != nil {
		return fmt.Errorf("clear payment methods for %s: %w", method.OrganizationID, err)
	}

	if _, err := s.db.Exec(ctx, `
		INSERT INTO payment_methods (id, provider_method_id, organization_id, type,
			last_four, brand, exp_month, exp_year, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		method.ID, method.ProviderMethodID, method.OrganizationID, string(method.Type),
		method.LastFour, method.Brand, method.ExpMonth, method.ExpYear,
		method.CreatedAt); err != nil {
		return fmt.Errorf("insert payment method %s: %w", method.ProviderMethodID, err)
	}
	return nil
}
