package billing

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// Webhook request headers and parameters.
const (
	HeaderSignature = "X-Signature"
	HeaderRequestID = "X-Request-Id"
	QueryDataID     = "data.id"
)

type webhookHandler struct {
	rec *Reconciler
	cfg WebhookConfig
	log *slog.Logger
}

// NewWebhookHandler returns the HTTP endpoint receiving provider webhook
// deliveries. Signature verification happens before the body is parsed;
// nothing about an unverified request reaches the reconciler.
//
// Response codes drive provider redelivery: 2xx acknowledges, anything else
// causes a retry. Events this system does not consume and events whose
// external references cannot be resolved are acknowledged so the provider
// stops redelivering them.
func NewWebhookHandler(rec *Reconciler, cfg WebhookConfig, log *slog.Logger) http.Handler {
	if rec == nil {
		panic("billing: Reconciler is required")
	}
	if cfg.Secret == "" {
		panic("billing: webhook secret is required")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &webhookHandler{rec: rec, cfg: cfg, log: log}
}

func (h *webhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	signature := r.Header.Get(HeaderSignature)
	requestID := r.Header.Get(HeaderRequestID)
	dataID := r.URL.Query().Get(QueryDataID)

	if err := VerifySignature(h.cfg.Secret, dataID, requestID, signature); err != nil {
		if errors.Is(err, ErrSignatureInvalid) {
			h.log.WarnContext(ctx, "webhook signature mismatch rejected",
				slog.String("request_id", requestID),
				slog.String("data_id", dataID))
			http.Error(w, "invalid signature", http.StatusForbidden)
			return
		}
		h.log.WarnContext(ctx, "webhook missing signature material",
			slog.String("error", err.Error()))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		h.log.WarnContext(ctx, "webhook body rejected", slog.String("error", err.Error()))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	event, err := ParseEvent(body)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnhandledEventType):
			// Acknowledged without processing so the provider does not
			// redeliver event types this system never consumes.
			w.WriteHeader(http.StatusOK)
		case errors.Is(err, ErrMalformedEvent):
			h.log.WarnContext(ctx, "malformed webhook payload",
				slog.String("request_id", requestID),
				slog.String("error", err.Error()))
			http.Error(w, "bad request", http.StatusBadRequest)
		default:
			h.log.ErrorContext(ctx, "webhook parse failed", slog.String("error", err.Error()))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	if err := h.rec.Handle(ctx, event); err != nil {
		switch {
		case errors.Is(err, ErrUnknownExternalReference):
			// References this system cannot resolve will not resolve on
			// retry either. Logged for operators, acknowledged for the
			// provider.
			h.log.WarnContext(ctx, "webhook references unknown entity, acknowledged",
				slog.String("event_id", event.EventID()),
				slog.String("error", err.Error()))
			w.WriteHeader(http.StatusOK)
		case errors.Is(err, ErrMalformedEvent):
			h.log.WarnContext(ctx, "webhook event rejected during reconciliation",
				slog.String("event_id", event.EventID()),
				slog.String("error", err.Error()))
			http.Error(w, "bad request", http.StatusBadRequest)
		default:
			// Transient failures rely on provider redelivery.
			h.log.ErrorContext(ctx, "webhook reconciliation failed",
				slog.String("event_id", event.EventID()),
				slog.String("error", err.Error()))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}
