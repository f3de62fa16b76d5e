// Package pgstore implements billing.Store on PostgreSQL using pgx.
//
// All stores share the querier abstraction so the same code serves both
// pooled access and transactional access. WithinTx wraps the callback in a
// database transaction and switches transactional reads to SELECT ... FOR
// UPDATE, which keeps concurrent webhook deliveries for the same
// subscription serialized at the row level.
//
// The schema lives in internal/db/migrations and is applied with goose via
// the pg package's Migrate helper.
package pgstore
