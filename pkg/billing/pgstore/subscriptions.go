package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/opinia/opinia/pkg/billing"
)

type subscriptionStore struct {
	db      querier
	locking bool
}

const subscriptionColumns = `id, organization_id, plan_id, provider_sub_id,
	unit_amount, currency, status, created_at, updated_at`

func (s *subscriptionStore) Get(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1` + lockClause(s.locking)
	return s.scanOne(ctx, query, id)
}

func (s *subscriptionStore) ByProviderID(ctx context.Context, providerSubID string) (*billing.Subscription, error) {
	if providerSubID == "" {
		return nil, billing.ErrSubscriptionNotFound
	}
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE provider_sub_id = $1` + lockClause(s.locking)
	return s.scanOne(ctx, query, providerSubID)
}

func (s *subscriptionStore) LatestByOrganization(ctx context.Context, orgID uuid.UUID) (*billing.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT 1` + lockClause(s.locking)
	return s.scanOne(ctx, query, orgID)
}

func (s *subscriptionStore) Save(ctx context.Context, sub *billing.Subscription) error {
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	_, err := s.db.Exec(ctx, `
		INSERT INTO subscriptions (id, organization_id, plan_id, provider_sub_id,
			unit_amount, currency, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			provider_sub_id = EXCLUDED.provider_sub_id,
			unit_amount = EXCLUDED.unit_amount,
			currency = EXCLUDED.currency,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		sub.ID, sub.OrganizationID, sub.PlanID, sub.ProviderSubID,
		sub.UnitAmount.Amount, sub.UnitAmount.Currency, string(sub.Status),
		sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		if isDuplicateError(err) {
			return fmt.Errorf("save subscription %s: provider sub id already linked: %w", sub.ID, err)
		}
		return fmt.Errorf("save subscription %s: %w", sub.ID, err)
	}
	return nil
}

func (s *subscriptionStore) scanOne(ctx context.Context, query string, args ...any) (*billing.Subscription, error) {
	var (
		sub    billing.Subscription
		status string
	)
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&sub.ID, &sub.OrganizationID, &sub.PlanID, &sub.ProviderSubID,
		&sub.UnitAmount.Amount, &sub.UnitAmount.Currency, &status,
		&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, billing.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("query subscription: %w", err)
	}
	sub.Status = billing.SubscriptionStatus(status)
	return &sub, nil
}
