// Package limits gates resource creation against the organization's
// subscribed plan.
//
// Each countable resource registers a CounterFunc returning current usage.
// The guard resolves the organization's plan through its latest subscription,
// compares usage against the plan's caps, and denies creation once a cap is
// reached. Organizations without an access-granting subscription are denied
// outright; enterprise-tier plans bypass every check.
//
// Usage:
//
//	counters := limits.NewRegistry()
//	counters.Register(limits.ResourceUsers, userRepo.CountByOrganization)
//	counters.Register(limits.ResourceLocations, locationRepo.CountByOrganization)
//	counters.Register(limits.ResourceFeedbacks, feedbackRepo.CountThisMonth)
//
//	guard := limits.NewGuard(catalog, store.Subscriptions(), counters)
//	if err := guard.CanCreate(ctx, orgID, limits.ResourceUsers); err != nil {
//		var exceeded *limits.LimitExceededError
//		if errors.As(err, &exceeded) {
//			// surface the cap to the caller
//		}
//		return err
//	}
//
// Counters should be fast: cache or aggregate at the repository level. The
// feedback counter is expected to count the current calendar month only, so
// the cap resets naturally at month boundaries.
package limits
