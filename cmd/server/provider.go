package main

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/opinia/opinia/pkg/billing"
	"github.com/opinia/opinia/pkg/tenant"
)

// tenantProvider adapts the billing organization store to the tenant
// middleware. Identifiers are either a portal slug or an organization UUID,
// depending on which resolver matched the request.
type tenantProvider struct {
	orgs billing.OrganizationStore
	subs billing.SubscriptionStore
}

func newTenantProvider(orgs billing.OrganizationStore, subs billing.SubscriptionStore) *tenantProvider {
	return &tenantProvider{orgs: orgs, subs: subs}
}

func (p *tenantProvider) GetByIdentifier(ctx context.Context, identifier string) (*tenant.Tenant, error) {
	var (
		org *billing.Organization
		err error
	)
	if id, parseErr := uuid.Parse(identifier); parseErr == nil {
		org, err = p.orgs.Get(ctx, id)
	} else {
		org, err = p.orgs.ByPortal(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, billing.ErrOrganizationNotFound) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, err
	}

	t := &tenant.Tenant{
		ID:        org.ID,
		Portal:    org.Portal,
		Name:      org.Name,
		Active:    org.IsActive,
		OnTrial:   org.OnTrial,
		CreatedAt: org.CreatedAt,
	}
	// The plan id is informational here; limit checks resolve the
	// subscription themselves.
	if sub, subErr := p.subs.LatestByOrganization(ctx, org.ID); subErr == nil {
		t.PlanID = sub.PlanID
	}
	return t, nil
}
