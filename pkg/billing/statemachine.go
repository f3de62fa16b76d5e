package billing

// transitions is the authoritative subscription status transition table.
// Terminal statuses (canceled, incomplete_expired) have no outgoing edges;
// reactivation after cancellation creates a new subscription row instead.
var transitions = map[SubscriptionStatus][]SubscriptionStatus{
	StatusIncomplete: {StatusActive, StatusIncompleteExpired},
	StatusActive:     {StatusPastDue, StatusUnpaid, StatusCanceled, StatusActive},
	StatusTrialing:   {StatusActive, StatusCanceled},
	StatusPastDue:    {StatusActive, StatusUnpaid, StatusCanceled},
	StatusUnpaid:     {StatusActive, StatusCanceled},
	StatusPaused:     {StatusActive, StatusCanceled},
}

// CanTransition reports whether the status change is present in the
// transition table. The active -> active self-loop is allowed so plan changes
// on an active subscription re-apply the status without error.
func CanTransition(from, to SubscriptionStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// checkTransition validates a status change against the transition table.
func checkTransition(from, to SubscriptionStatus) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}
