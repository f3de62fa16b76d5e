package billing_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opinia/opinia/pkg/billing"
)

const (
	testWebhookSecret = "whsec_handler_test"
	testRequestID     = "req-handler-1"
	testDataID        = "evt_handler"
)

func newWebhookRequest(payload []byte, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing?data.id="+testDataID, bytes.NewReader(payload))
	req.Header.Set("X-Request-Id", testRequestID)
	if signature != "" {
		req.Header.Set("X-Signature", signature)
	}
	return req
}

func signedRequest(payload []byte) *http.Request {
	return newWebhookRequest(payload, billing.SignManifest(testWebhookSecret, testDataID, testRequestID, "1756500000"))
}

func TestWebhookHandler(t *testing.T) {
	t.Parallel()

	cfg := billing.WebhookConfig{Secret: testWebhookSecret, MaxBodyBytes: 1 << 20}

	t.Run("valid delivery is processed and acknowledged", func(t *testing.T) {
		t.Parallel()

		store := billing.NewMemoryStore()
		org := seedOrg(t, store, "cus_1")
		seedSub(t, store, org.ID, "", "price_basic_monthly", billing.StatusIncomplete, 0)
		seedPaymentMethod(t, store, org.ID)

		rec := billing.NewReconciler(testCatalog(t), &stubProvider{}, store)
		handler := billing.NewWebhookHandler(rec, cfg, nil)

		payload := invoiceEventJSON(t, "evt_ok", "cus_1", "sub_prov_1", "subscription_create", "price_basic_monthly", 2900)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, signedRequest(payload))

		assert.Equal(t, http.StatusOK, rr.Code)

		sub, err := store.Subscriptions().ByProviderID(context.Background(), "sub_prov_1")
		require.NoError(t, err)
		assert.Equal(t, billing.StatusActive, sub.Status)
	})

	t.Run("bad signature is rejected before any processing", func(t *testing.T) {
		t.Parallel()

		store := billing.NewMemoryStore()
		org := seedOrg(t, store, "cus_1")
		sub := seedSub(t, store, org.ID, "", "price_basic_monthly", billing.StatusIncomplete, 0)
		seedPaymentMethod(t, store, org.ID)

		rec := billing.NewReconciler(testCatalog(t), &stubProvider{}, store)
		handler := billing.NewWebhookHandler(rec, cfg, nil)

		// A perfectly valid payload: only the signature is wrong.
		payload := invoiceEventJSON(t, "evt_forged", "cus_1", "sub_prov_1", "subscription_create", "price_basic_monthly", 2900)
		forged := billing.SignManifest("whsec_wrong", testDataID, testRequestID, "1756500000")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, newWebhookRequest(payload, forged))

		assert.Equal(t, http.StatusForbidden, rr.Code)

		got, err := store.Subscriptions().Get(context.Background(), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.StatusIncomplete, got.Status, "forged request must not mutate state")
	})

	t.Run("missing signature header", func(t *testing.T) {
		t.Parallel()

		rec := billing.NewReconciler(testCatalog(t), &stubProvider{}, billing.NewMemoryStore())
		handler := billing.NewWebhookHandler(rec, cfg, nil)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, newWebhookRequest([]byte(`{}`), ""))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unconsumed event type is acknowledged", func(t *testing.T) {
		t.Parallel()

		rec := billing.NewReconciler(testCatalog(t), &stubProvider{}, billing.NewMemoryStore())
		handler := billing.NewWebhookHandler(rec, cfg, nil)

		payload := []byte(`{"id": "evt_x", "type": "charge.refunded", "data": {"object": {"id": "ch_1"}}}`)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, signedRequest(payload))

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("malformed payload", func(t *testing.T) {
		t.Parallel()

		rec := billing.NewReconciler(testCatalog(t), &stubProvider{}, billing.NewMemoryStore())
		handler := billing.NewWebhookHandler(rec, cfg, nil)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, signedRequest([]byte(`{"id": "evt_x"`)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown external reference is logged and acknowledged", func(t *testing.T) {
		t.Parallel()

		provider := &stubProvider{
			retrieveCustomerFn: func(ctx context.Context, customerID string) (*billing.CustomerSnapshot, error) {
				return &billing.CustomerSnapshot{ID: customerID}, nil
			},
		}
		rec := billing.NewReconciler(testCatalog(t), provider, billing.NewMemoryStore())
		handler := billing.NewWebhookHandler(rec, cfg, nil)

		payload := invoiceEventJSON(t, "evt_ghost", "cus_ghost", "sub_ghost", "subscription_create", "price_basic_monthly", 2900)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, signedRequest(payload))

		assert.Equal(t, http.StatusOK, rr.Code, "unresolvable references never resolve on retry")
	})

	t.Run("recoverable inconsistency asks for redelivery", func(t *testing.T) {
		t.Parallel()

		store := billing.NewMemoryStore()
		org := seedOrg(t, store, "cus_1")
		seedSub(t, store, org.ID, "", "price_basic_monthly", billing.StatusIncomplete, 0)
		// No payment method on file: activation must wait for the attach
		// event, so the provider is told to redeliver.

		rec := billing.NewReconciler(testCatalog(t), &stubProvider{}, store)
		handler := billing.NewWebhookHandler(rec, cfg, nil)

		payload := invoiceEventJSON(t, "evt_early", "cus_1", "sub_prov_1", "subscription_create", "price_basic_monthly", 2900)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, signedRequest(payload))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("oversized body is rejected", func(t *testing.T) {
		t.Parallel()

		rec := billing.NewReconciler(testCatalog(t), &stubProvider{}, billing.NewMemoryStore())
		handler := billing.NewWebhookHandler(rec, billing.WebhookConfig{Secret: testWebhookSecret, MaxBodyBytes: 16}, nil)

		payload := []byte(`{"id": "evt_big", "type": "charge.refunded", "data": {"object": {"id": "ch_1"}}}`)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, signedRequest(payload))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
