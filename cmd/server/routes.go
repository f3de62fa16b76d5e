package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/opinia/opinia/pkg/billing"
	"github.com/opinia/opinia/pkg/binder"
	"github.com/opinia/opinia/pkg/limits"
	"github.com/opinia/opinia/pkg/logger"
	"github.com/opinia/opinia/pkg/redis"
	"github.com/opinia/opinia/pkg/tenant"
)

type routerDeps struct {
	cfg        appConfig
	log        *slog.Logger
	svc        billing.Service
	catalog    *billing.Catalog
	guard      limits.Guard
	store      billing.Store
	webhook    http.Handler
	redis      *goredis.Client
	pgHealth   func(context.Context) error
	redisCheck func(context.Context) error
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", liveness)
	r.Get("/readyz", readiness(d))

	r.Post("/webhooks/billing", d.webhook.ServeHTTP)

	api := apiHandlers{d: d}
	r.Get("/plans", api.listPlans)
	r.Post("/register", api.register)

	resolver := tenant.NewCompositeResolver(
		tenant.NewHeaderResolver(""),
		tenant.NewPortalResolver(d.cfg.PortalSuffix),
	)
	provider := newTenantProvider(d.store.Organizations(), d.store.Subscriptions())
	cache := tenant.NewRedisCache(redis.NewStorage(d.redis), tenant.DefaultRedisKeyPrefix)

	r.Route("/api", func(r chi.Router) {
		// Inactive organizations still reach these endpoints so they can
		// inspect their subscription and settle payment.
		r.Use(tenant.Middleware(resolver, provider,
			tenant.WithCache(cache),
			tenant.WithCacheTTL(d.cfg.TenantCacheTTL),
			tenant.WithRequireActive(false),
			tenant.WithLogger(d.log),
		))
		r.Get("/subscription", api.currentSubscription)
		r.Post("/subscription/change-plan", api.changePlan)
		r.Post("/subscription/cancel", api.cancel)
		r.Get("/invoices", api.listInvoices)
		r.Get("/usage", api.usage)
	})

	return r
}

func liveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ALIVE"))
}

func readiness(d routerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range []func(context.Context) error{d.pgHealth, d.redisCheck} {
			if err := check(r.Context()); err != nil {
				d.log.ErrorContext(r.Context(), "readiness check failed", logger.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("NOT_READY"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	}
}

type apiHandlers struct {
	d routerDeps
}

type planResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Tier         string `json:"tier"`
	Interval     string `json:"interval"`
	AmountCents  int64  `json:"amount_cents"`
	Currency     string `json:"currency"`
	MaxLocations int64  `json:"max_locations"`
	MaxUsers     int64  `json:"max_users"`
	MaxFeedbacks int64  `json:"max_feedbacks"`
	Unlimited    bool   `json:"unlimited"`
}

type planFilter struct {
	Interval string `query:"interval"`
	Tier     string `query:"tier"`
}

func (h apiHandlers) listPlans(w http.ResponseWriter, r *http.Request) {
	var filter planFilter
	if err := binder.Query()(r, &filter); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	plans := h.d.catalog.Plans()
	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		if filter.Interval != "" && string(p.Interval) != filter.Interval {
			continue
		}
		if filter.Tier != "" && string(p.Tier) != filter.Tier {
			continue
		}
		out = append(out, planResponse{
			ID:           p.ID,
			Name:         p.Name,
			Description:  p.Description,
			Tier:         string(p.Tier),
			Interval:     string(p.Interval),
			AmountCents:  p.UnitAmount.Amount,
			Currency:     p.UnitAmount.Currency,
			MaxLocations: p.Limit.MaxLocations,
			MaxUsers:     p.Limit.MaxUsers,
			MaxFeedbacks: p.Limit.MaxFeedbacks,
			Unlimited:    p.Unlimited(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AmountCents != out[j].AmountCents {
			return out[i].AmountCents < out[j].AmountCents
		}
		return out[i].ID < out[j].ID
	})
	respondJSON(w, http.StatusOK, out)
}

type registerRequest struct {
	OrganizationName    string `json:"organization_name"`
	CompanyEmail        string `json:"company_email"`
	AdministrativeEmail string `json:"administrative_email"`
	PhoneNumber         string `json:"phone_number"`
	State               string `json:"state"`
	Portal              string `json:"portal"`
	PriceID             string `json:"price_id"`
	SuccessURL          string `json:"success_url"`
	CancelURL           string `json:"cancel_url"`
}

type registerResponse struct {
	OrganizationID string `json:"organization_id"`
	SubscriptionID string `json:"subscription_id"`
	CheckoutURL    string `json:"checkout_url"`
}

func (h apiHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := binder.JSON()(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.d.svc.Register(r.Context(), billing.RegisterRequest{
		OrganizationName:    req.OrganizationName,
		CompanyEmail:        req.CompanyEmail,
		AdministrativeEmail: req.AdministrativeEmail,
		PhoneNumber:         req.PhoneNumber,
		State:               req.State,
		Portal:              req.Portal,
		PriceID:             req.PriceID,
		SuccessURL:          req.SuccessURL,
		CancelURL:           req.CancelURL,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, registerResponse{
		OrganizationID: result.Organization.ID.String(),
		SubscriptionID: result.Subscription.ID.String(),
		CheckoutURL:    result.Checkout.URL,
	})
}

type subscriptionResponse struct {
	ID          string    `json:"id"`
	PlanID      string    `json:"plan_id"`
	Status      string    `json:"status"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (h apiHandlers) currentSubscription(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "no organization in request")
		return
	}

	sub, err := h.d.svc.CurrentSubscription(r.Context(), t.ID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, subscriptionResponse{
		ID:          sub.ID.String(),
		PlanID:      sub.PlanID,
		Status:      string(sub.Status),
		AmountCents: sub.UnitAmount.Amount,
		Currency:    sub.UnitAmount.Currency,
		Active:      sub.GrantsAccess(),
		CreatedAt:   sub.CreatedAt,
		UpdatedAt:   sub.UpdatedAt,
	})
}

type changePlanRequest struct {
	PriceID string `json:"price_id"`
}

func (h apiHandlers) changePlan(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "no organization in request")
		return
	}

	var req changePlanRequest
	if err := binder.JSON()(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PriceID == "" {
		respondError(w, http.StatusBadRequest, "price_id is required")
		return
	}

	if err := h.d.svc.ChangePlan(r.Context(), t.ID, req.PriceID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h apiHandlers) cancel(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "no organization in request")
		return
	}

	if err := h.d.svc.Cancel(r.Context(), t.ID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type invoiceResponse struct {
	ID               string     `json:"id"`
	Total            int64      `json:"total"`
	AmountPaid       int64      `json:"amount_paid"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	BillingReason    string     `json:"billing_reason"`
	HostedInvoiceURL string     `json:"hosted_invoice_url,omitempty"`
	InvoicePDF       string     `json:"invoice_pdf,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
}

func (h apiHandlers) listInvoices(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "no organization in request")
		return
	}

	invoices, err := h.d.svc.ListInvoices(r.Context(), t.ID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	out := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, invoiceResponse{
			ID:               inv.ID.String(),
			Total:            inv.Total,
			AmountPaid:       inv.AmountPaid,
			Currency:         inv.Currency,
			Status:           string(inv.Status),
			BillingReason:    string(inv.BillingReason),
			HostedInvoiceURL: inv.HostedInvoiceURL,
			InvoicePDF:       inv.InvoicePDF,
			CreatedAt:        inv.CreatedAt,
			PaidAt:           inv.PaidAt,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

type usageResponse struct {
	Resource string `json:"resource"`
	Used     int64  `json:"used"`
	Limit    int64  `json:"limit"`
}

func (h apiHandlers) usage(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "no organization in request")
		return
	}

	all, err := h.d.guard.AllUsage(r.Context(), t.ID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	out := make([]usageResponse, 0, len(all))
	for res, info := range all {
		out = append(out, usageResponse{
			Resource: string(res),
			Used:     info.Current,
			Limit:    info.Limit,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// respondServiceError maps domain errors onto HTTP statuses. Anything
// unrecognized is a 500 and gets logged.
func (h apiHandlers) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		tooEarly   *billing.TooEarlyToCancelError
		notAllowed *billing.PlanChangeNotAllowedError
		invalidTr  *billing.InvalidTransitionError
		exceeded   *limits.LimitExceededError
	)
	switch {
	case errors.Is(err, billing.ErrOrganizationNotFound),
		errors.Is(err, billing.ErrSubscriptionNotFound),
		errors.Is(err, billing.ErrPlanNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &tooEarly),
		errors.As(err, &notAllowed),
		errors.As(err, &invalidTr),
		errors.Is(err, billing.ErrSubscriptionNotActive):
		respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &exceeded):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, limits.ErrNoActiveSubscription):
		respondError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, billing.ErrExternalCallFailed):
		h.d.log.ErrorContext(r.Context(), "billing provider call failed", logger.Error(err))
		respondError(w, http.StatusBadGateway, "billing provider unavailable")
	default:
		h.d.log.ErrorContext(r.Context(), "request failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
