package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/opinia/opinia/pkg/billing"
)

type organizationStore struct {
	db      querier
	locking bool
}

const organizationColumns = `id, name, company_email, administrative_email, phone_number,
	state, portal, is_active, on_trial, billing_customer_id, created_at, updated_at`

func (s *organizationStore) Get(ctx context.Context, id uuid.UUID) (*billing.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE id = $1` + lockClause(s.locking)
	return s.scanOne(ctx, query, id)
}

func (s *organizationStore) ByBillingCustomerID(ctx context.Context, customerID string) (*billing.Organization, error) {
	if customerID == "" {
		return nil, billing.ErrOrganizationNotFound
	}
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE billing_customer_id = $1` + lockClause(s.locking)
	return s.scanOne(ctx, query, customerID)
}

func (s *organizationStore) ByPortal(ctx context.Context, portal string) (*billing.Organization, error) {
	if portal == "" {
		return nil, billing.ErrOrganizationNotFound
	}
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE portal = $1` + lockClause(s.locking)
	return s.scanOne(ctx, query, portal)
}

func (s *organizationStore) Save(ctx context.Context, org *billing.Organization) error {
	now := time.Now().UTC()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	org.UpdatedAt = now

	_, err := s.db.Exec(ctx, `
		INSERT INTO organizations (id, name, company_email, administrative_email, phone_number,
			state, portal, is_active, on_trial, billing_customer_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			company_email = EXCLUDED.company_email,
			administrative_email = EXCLUDED.administrative_email,
			phone_number = EXCLUDED.phone_number,
			state = EXCLUDED.state,
			portal = EXCLUDED.portal,
			is_active = EXCLUDED.is_active,
			on_trial = EXCLUDED.on_trial,
			billing_customer_id = EXCLUDED.billing_customer_id,
			updated_at = EXCLUDED.updated_at`,
		org.ID, org.Name, org.CompanyEmail, org.AdministrativeEmail, org.PhoneNumber,
		org.State, org.Portal, org.IsActive, org.OnTrial, org.BillingCustomerID,
		org.CreatedAt, org.UpdatedAt)
	if err != nil {
		if isDuplicateError(err) {
			return fmt.Errorf("save organization %s: portal or customer id already taken: %w", org.ID, err)
		}
		return fmt.Errorf("save organization %s: %w", org.ID, err)
	}
	return nil
}

func (s *organizationStore) DeactivateExpiredTrials(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE organizations
		SET is_active = FALSE, updated_at = NOW()
		WHERE on_trial AND is_active AND created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired trials: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *organizationStore) scanOne(ctx context.Context, query string, args ...any) (*billing.Organization, error) {
	var org billing.Organization
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&org.ID, &org.Name, &org.CompanyEmail, &org.AdministrativeEmail, &org.PhoneNumber,
		&org.State, &org.Portal, &org.IsActive, &org.OnTrial, &org.BillingCustomerID,
		&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, billing.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("query organization: %w", err)
	}
	return &org, nil
}
