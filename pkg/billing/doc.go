// Package billing implements the subscription lifecycle and billing-state
// reconciliation core of the Opinia platform.
//
// The package keeps local subscription, invoice, and payment-method state
// consistent with an external billing provider's asynchronous, at-least-once,
// possibly out-of-order webhook feed, while gating tenant access on
// subscription health.
//
// # Architecture
//
//   - Catalog: immutable set of purchasable plans with resource limits
//   - Service: tenant-facing operations (register, change plan, cancel)
//   - Reconciler: translates provider webhook events into local state changes
//   - Provider: abstract billing provider capability set (Stripe implementation included)
//   - Store: persistence interfaces with an in-memory implementation for tests
//
// The provider is always called before any local mutation for plan changes
// and cancellations; local state is mirrored only after the provider confirms,
// or asynchronously through the Reconciler when the provider is the system of
// record (cancellation). All reconciliation mutations for one event happen
// inside a single transaction, and event handling is idempotent: replaying a
// delivered event converges to the same end state.
//
// # Quick Start
//
//	catalog, err := billing.NewCatalog(ctx, billing.NewInMemPlanSource(plans...))
//	if err != nil { ... }
//
//	provider, err := billing.NewStripeProvider(stripeCfg)
//	if err != nil { ... }
//
//	store := billing.NewMemoryStore() // or pgstore.NewStore(pool)
//	svc := billing.NewService(catalog, provider, store)
//	rec := billing.NewReconciler(catalog, provider, store,
//		billing.WithNotifier(dispatcher),
//		billing.WithReconcilerLogger(log),
//	)
//
//	r.Method(http.MethodPost, "/webhooks/billing", billing.NewWebhookHandler(rec, webhookCfg, log))
package billing
