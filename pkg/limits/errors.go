package limits

import (
	"errors"
	"fmt"
)

// Domain errors for limit checks.
var (
	ErrNoActiveSubscription       = errors.New("limits: organization has no access-granting subscription")
	ErrInvalidResource            = errors.New("limits: unknown resource")
	ErrNoCounterRegistered        = errors.New("limits: no counter registered for resource")
	ErrFailedToCountResourceUsage = errors.New("limits: failed to count resource usage")
)

// LimitExceededError reports which cap was hit and where usage stands.
type LimitExceededError struct {
	Resource Resource
	Limit    int64
	Current  int64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("limits: %s limit exceeded (%d of %d used)", e.Resource, e.Current, e.Limit)
}
