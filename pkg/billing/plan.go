package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Limit holds the per-plan resource caps. MaxFeedbacks is a per-calendar-month
// cap recomputed on every check, not a running counter.
type Limit struct {
	MaxLocations int64
	MaxUsers     int64
	MaxFeedbacks int64
}

// Plan is an immutable catalog entry. ID is the billing provider's price id
// and is globally unique. Plans are never mutated after creation; a price
// change points a subscription at a different plan.
type Plan struct {
	ID          string // provider's price id (e.g. price_basic_monthly)
	Name        string
	Description string
	Tier        PlanTier
	Interval    BillingInterval
	UnitAmount  Money
	Limit       Limit
}

// Unlimited reports whether the plan bypasses every resource limit.
// The enterprise tier is exempt regardless of the stored numeric limits.
func (p Plan) Unlimited() bool {
	return p.Tier == TierEnterprise
}

// PlanSource defines how plans are loaded into the catalog.
type PlanSource interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

// Catalog is the immutable-per-version set of plans, indexed by price id.
// Plans are cached in memory after loading.
type Catalog struct {
	plans map[string]Plan
}

// NewCatalog loads and validates plans from the given source.
func NewCatalog(ctx context.Context, src PlanSource) (*Catalog, error) {
	if src == nil {
		panic("billing: PlanSource is required")
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if err := validatePlans(plans); err != nil {
		return nil, err
	}

	return &Catalog{plans: plans}, nil
}

// Plan returns the plan for the given price id.
func (c *Catalog) Plan(priceID string) (Plan, error) {
	plan, ok := c.plans[priceID]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return plan, nil
}

// Plans returns a copy of all catalog plans.
func (c *Catalog) Plans() map[string]Plan {
	out := make(map[string]Plan, len(c.plans))
	for id, p := range c.plans {
		out[id] = p
	}
	return out
}

// validatePlans catches configuration mistakes early, before the catalog is
// consulted by limit checks or plan changes.
func validatePlans(plans map[string]Plan) error {
	for id, plan := range plans {
		if plan.ID != id {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan id mismatch: map key %s != plan.ID %s", id, plan.ID))
		}
		if !plan.Tier.IsValid() {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has unknown tier %q", id, plan.Tier))
		}
		if plan.Interval != IntervalMonthly && plan.Interval != IntervalAnnual {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has unknown interval %q", id, plan.Interval))
		}
		if plan.UnitAmount.Amount < 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has negative unit amount", id))
		}
	}
	return nil
}

type inMemPlanSource struct {
	mu    sync.RWMutex
	plans map[string]Plan
}

// NewInMemPlanSource returns an in-memory PlanSource with a copy of the given
// plans. Panics if no plans are provided so the catalog always has at least
// one valid plan.
func NewInMemPlanSource(plans ...Plan) PlanSource {
	if len(plans) < 1 {
		panic("billing: at least one plan is required")
	}
	copied := make(map[string]Plan, len(plans))
	for _, plan := range plans {
		copied[plan.ID] = plan
	}
	return &inMemPlanSource{plans: copied}
}

func (s *inMemPlanSource) Load(ctx context.Context) (map[string]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Plan, len(s.plans))
	for id, plan := range s.plans {
		out[id] = plan
	}
	return out, nil
}
