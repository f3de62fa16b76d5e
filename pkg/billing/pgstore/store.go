package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opinia/opinia/pkg/billing"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the same store
// code runs inside and outside transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL implementation of billing.Store. Reads performed
// inside WithinTx take row locks (SELECT ... FOR UPDATE) so status decisions
// stay atomic under concurrent webhook deliveries.
type Store struct {
	pool *pgxpool.Pool
	db   querier
	inTx bool
}

// NewStore creates a PostgreSQL-backed billing store.
func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("pgstore: pool is required")
	}
	return &Store{pool: pool, db: pool}
}

func (s *Store) Organizations() billing.OrganizationStore {
	return &organizationStore{db: s.db, locking: s.inTx}
}

func (s *Store) Subscriptions() billing.SubscriptionStore {
	return &subscriptionStore{db: s.db, locking: s.inTx}
}

func (s *Store) Invoices() billing.InvoiceStore {
	return &invoiceStore{db: s.db}
}

func (s *Store) PaymentMethods() billing.PaymentMethodStore {
	return &paymentMethodStore{db: s.db}
}

// WithinTx runs fn inside a database transaction. Nested calls reuse the
// already open transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx billing.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txStore := &Store{pool: s.pool, db: tx, inTx: true}
	if err := fn(ctx, txStore); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// lockClause returns the row locking suffix for transactional reads.
func lockClause(locking bool) string {
	if locking {
		return " FOR UPDATE"
	}
	return ""
}

// isDuplicateError checks for PostgreSQL unique-violation (23505).
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
