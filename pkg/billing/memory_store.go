package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-guarded in-memory Store used by tests and local
// development. Transactions are serialized through the store mutex, which
// gives the same observable atomicity as the row-locked SQL implementation.
type MemoryStore struct {
	mu sync.Mutex

	orgs     map[uuid.UUID]Organization
	subs     map[uuid.UUID]Subscription
	invoices map[string]Invoice // keyed by provider invoice id
	methods  map[uuid.UUID]PaymentMethod

	inTx bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orgs:     make(map[uuid.UUID]Organization),
		subs:     make(map[uuid.UUID]Subscription),
		invoices: make(map[string]Invoice),
		methods:  make(map[uuid.UUID]PaymentMethod),
	}
}

func (s *MemoryStore) Organizations() OrganizationStore   { return (*memOrgStore)(s) }
func (s *MemoryStore) Subscriptions() SubscriptionStore   { return (*memSubStore)(s) }
func (s *MemoryStore) Invoices() InvoiceStore             { return (*memInvoiceStore)(s) }
func (s *MemoryStore) PaymentMethods() PaymentMethodStore { return (*memMethodStore)(s) }

// WithinTx serializes the callback through the store mutex. Nested calls
// reuse the already-held lock.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Work on a snapshot so a failing callback leaves the store untouched.
	snapshot := &MemoryStore{
		orgs:     cloneMap(s.orgs),
		subs:     cloneMap(s.subs),
		invoices: cloneMap(s.invoices),
		methods:  cloneMap(s.methods),
		inTx:     true,
	}

	if err := fn(ctx, snapshot); err != nil {
		return err
	}

	s.orgs = snapshot.orgs
	s.subs = snapshot.subs
	s.invoices = snapshot.invoices
	s.methods = snapshot.methods
	return nil
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *MemoryStore) lockUnlessTx() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type memOrgStore MemoryStore

func (s *memOrgStore) Get(ctx context.Context, id uuid.UUID) (*Organization, error) {
	defer (*MemoryStore)(s).lockUnlessTx()()
	org, ok := s.orgs[id]
	if !ok {
		return nil, ErrOrganizationNotFound
	}
	return &org, nil
}

func (s *memOrgStore) ByBillingCustomerID(ctx context.Context, customerID string) (*Organization, error) {
	defer (*MemoryStore)(s).lockUnlessTx()()
	if customerID == "" {
		return nil, ErrOrganizationNotFound
	}
	for _, org := range s.orgs {
		if org.BillingCustomerID == customerID {
			o := org
			return &o, nil
		}
	}
	return nil, ErrOrganizationNotFound
}

func (s *memOrgStore) ByPortal(ctx context.Context, portal string) (*Organization, error) {
	defer (*MemoryStore)(s).lockUnlessTx()()
	if portal == "" {
		return nil, ErrOrganizationNotFound
	}
	for _, org := range s.orgs {
		if org.Portal == portal {
			o := org
			return &o, nil
		}
	}
	return nil, ErrOrganizationNotFound
}

func (s *memOrgStore) Save(ctx context.Context, org *Organization) error {
	defer (*MemoryStore)(s).lockUnlessTx()()
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}
	org.UpdatedAt = time.Now().UTC()
	s.orgs[org.ID] = *org
	return nil
}

func (s *memOrgStore) DeactivateExpiredTrials(ctx context.Context, before time.Time) (int64, error) {
	defer (*MemoryStore)(s).lockUnlessTx()()
	var n int64
	for id, org := range s.orgs {
		if org.OnTrial && org.IsActive && org.CreatedAt.Before(before) {
			org.IsActive = false
			org.UpdatedAt = time.Now().UTC()
			s.orgs[id] = org
			n++
		}
	}
	return n, nil
}

type memSubStore MemoryStore

func (s *memSubStore) Get(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	defer (*MemoryStore)(s).lockUnlessTx()()
	sub, ok := s.subs[id]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return &sub, nil
}

func (s *memSubStore) ByProviderID(ctx context.Context, providerSubID string) (*Subscription, error) {
	defer (*MemoryStore)(s).lockUnlessTx()()
	if providerSubID == "" {
		return nil, ErrSubscriptionNotFound
	}
	for _, sub := range s.subs {
		if sub.ProviderSubID == providerSubID {
			out := sub
			return &out, nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (s *memSubStore) LatestByOrganization(ctx context.Context, orgID uuid.UUID) (*Subscription, error) {
	defer (*MemoryStore)(s).lockUnlessTx()()
	var latest *Subscription
	for _, sub := range s.subs {
		if sub.OrganizationID != orgID {
			continue
		}
		if latest == nil || sub.CreatedAt.After(latest.CreatedAt) {
			out := sub
			latest = &out
		}
	}
	if latest == nil {
		return nil, ErrSubscriptionNotFound
	}
	return latest, nil
}

func (s *memSubStore) Save(ctx context.Context, sub *Subscription) error {
	defer (*MemoryStore)(s).lockUnlessTx()()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	sub.UpdatedAt = time.Now().UTC()
	s.subs[sub.ID] = *sub
	return nil
}

type memInvoiceStore MemoryStore

func (s *memInvoiceStore) Upsert(ctx context.Context, inv *Invoice) (bool, error) {
	defer (*MemoryStore)(s).lockUnlessTx()()
	if existing, ok := s.invoices[inv.ProviderInvoiceID]; ok {
		*inv = existing
		return false, nil
	}
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	s.invoices[inv.ProviderInvoiceID] = *inv
	return true, nil
}

func (s *memInvoiceStore) ByProviderID(ctx context.Context, providerInvoiceID string) (*Invoice, error) {
	defer (*MemoryStore)(s).lockUnlessTx()()
	inv, ok := s.invoices[providerInvoiceID]
	if !ok {
		return nil, ErrUnknownExternalReference
	}
	return &inv, nil
}

func (s *memInvoiceStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]Invoice, error) {
	defer (*MemoryStore)(s).lockUnlessTx()()

	subIDs := make(map[uuid.UUID]struct{})
	for _, sub := range s.subs {
		if sub.OrganizationID == orgID {
			subIDs[sub.ID] = struct{}{}
		}
	}

	var out []Invoice
	for _, inv := range s.invoices {
		if _, ok := subIDs[inv.SubscriptionID]; ok {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type memMethodStore MemoryStore

func (s *memMethodStore) ByOrganization(ctx context.Context, orgID uuid.UUID) (*PaymentMethod, error) {
	defer (*MemoryStore)(s).lockUnlessTx()()
	method, ok := s.methods[orgID]
	if !ok {
		return nil, ErrPaymentMethodNotFound
	}
	return &method, nil
}

func (s *memMethodStore) Replace(ctx context.Context, method *PaymentMethod) error {
	defer (*MemoryStore)(s).lockUnlessTx()()
	if method.ID == uuid.Nil {
		method.ID = uuid.New()
	}
	if method.CreatedAt.IsZero() {
		method.CreatedAt = time.Now().UTC()
	}
	s.methods[method.OrganizationID] = *method
	return nil
}
