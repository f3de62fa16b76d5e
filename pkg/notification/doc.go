// Package notification sends subscription lifecycle emails.
//
// The Dispatcher implements the billing notifier contract: Notify never
// blocks the caller and never reports failure upstream. Delivery runs in
// the background with its own timeout, detached from the request that
// triggered it, and failures are only logged. A lost email never affects
// billing reconciliation.
//
// Usage:
//
//	dispatcher := notification.NewDispatcher(sender,
//		notification.WithLogger(log),
//		notification.WithPlanNames(planNames),
//	)
//	reconciler := billing.NewReconciler(catalog, provider, store,
//		billing.WithNotifier(dispatcher),
//	)
package notification
