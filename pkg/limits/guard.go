package limits

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/opinia/opinia/pkg/billing"
)

// Guard defines the public interface for plan-based resource limit checks.
type Guard interface {
	// CanCreate checks whether the organization may create one more instance
	// of the resource. Returns *LimitExceededError when the cap is reached
	// and ErrNoActiveSubscription when no subscription grants access.
	CanCreate(ctx context.Context, orgID uuid.UUID, res Resource) error

	// Usage returns the current usage and limit for a resource. Limit is
	// Unlimited (-1) for plans that bypass the check.
	Usage(ctx context.Context, orgID uuid.UUID, res Resource) (used, limit int64, err error)

	// AllUsage returns usage for every known resource, for dashboards.
	// Counter failures leave the resource's usage at zero instead of failing
	// the whole call.
	AllUsage(ctx context.Context, orgID uuid.UUID) (map[Resource]UsageInfo, error)
}

type guard struct {
	// The catalog and registry are treated as immutable after initialization.
	// Thread-safety depends on this immutability assumption.
	catalog  *billing.Catalog
	subs     billing.SubscriptionStore
	counters CounterRegistry
}

// NewGuard creates a Guard resolving plans through the organization's latest
// subscription. Panics if catalog or subs is nil to fail fast during
// initialization.
func NewGuard(catalog *billing.Catalog, subs billing.SubscriptionStore, counters CounterRegistry) Guard {
	if catalog == nil {
		panic("limits: billing.Catalog is required")
	}
	if subs == nil {
		panic("limits: billing.SubscriptionStore is required")
	}
	if counters == nil {
		counters = NewRegistry()
	}
	return &guard{catalog: catalog, subs: subs, counters: counters}
}

// resolvePlan finds the plan whose limits apply to the organization. Only a
// subscription that currently grants access carries limits; everything else
// means the organization has no quota at all.
func (g *guard) resolvePlan(ctx context.Context, orgID uuid.UUID) (billing.Plan, error) {
	sub, err := g.subs.LatestByOrganization(ctx, orgID)
	if err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			return billing.Plan{}, ErrNoActiveSubscription
		}
		return billing.Plan{}, err
	}
	if !sub.GrantsAccess() {
		return billing.Plan{}, fmt.Errorf("%w: subscription is %s", ErrNoActiveSubscription, sub.Status)
	}
	return g.catalog.Plan(sub.PlanID)
}

// limitFor maps a resource to its plan cap. The users cap is raised by one:
// the administrator account created at registration does not count against
// the seats the plan sells.
func limitFor(plan billing.Plan, res Resource) (int64, error) {
	if plan.Unlimited() {
		return Unlimited, nil
	}
	switch res {
	case ResourceLocations:
		return plan.Limit.MaxLocations, nil
	case ResourceUsers:
		return plan.Limit.MaxUsers + 1, nil
	case ResourceFeedbacks:
		return plan.Limit.MaxFeedbacks, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidResource, res)
	}
}

func (g *guard) CanCreate(ctx context.Context, orgID uuid.UUID, res Resource) error {
	plan, err := g.resolvePlan(ctx, orgID)
	if err != nil {
		return err
	}

	limit, err := limitFor(plan, res)
	if err != nil {
		return err
	}
	if limit == Unlimited {
		return nil
	}

	counter, exists := g.counters[res]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNoCounterRegistered, res)
	}
	current, err := counter(ctx, orgID)
	if err != nil {
		return errors.Join(ErrFailedToCountResourceUsage, err)
	}

	if current >= limit {
		return &LimitExceededError{Resource: res, Limit: limit, Current: current}
	}
	return nil
}

func (g *guard) Usage(ctx context.Context, orgID uuid.UUID, res Resource) (used, limit int64, err error) {
	plan, err := g.resolvePlan(ctx, orgID)
	if err != nil {
		return 0, 0, err
	}

	limit, err = limitFor(plan, res)
	if err != nil {
		return 0, 0, err
	}

	counter, exists := g.counters[res]
	if !exists {
		return 0, limit, fmt.Errorf("%w: %s", ErrNoCounterRegistered, res)
	}
	used, err = counter(ctx, orgID)
	if err != nil {
		return 0, limit, errors.Join(ErrFailedToCountResourceUsage, err)
	}
	return used, limit, nil
}

func (g *guard) AllUsage(ctx context.Context, orgID uuid.UUID) (map[Resource]UsageInfo, error) {
	plan, err := g.resolvePlan(ctx, orgID)
	if err != nil {
		return nil, err
	}

	result := make(map[Resource]UsageInfo, 3)
	for _, res := range []Resource{ResourceLocations, ResourceUsers, ResourceFeedbacks} {
		limit, err := limitFor(plan, res)
		if err != nil {
			return nil, err
		}

		info := UsageInfo{Limit: limit}
		if counter, exists := g.counters[res]; exists {
			if current, err := counter(ctx, orgID); err == nil {
				info.Current = current
			}
		}
		result[res] = info
	}
	return result, nil
}
