package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnhandledEventType marks event types this system does not consume.
// Webhook ingress acknowledges them instead of erroring.
var ErrUnhandledEventType = errors.New("billing: unhandled event type")

// Provider event type strings accepted at the webhook boundary.
const (
	eventPaymentMethodAttached   = "payment_method.attached"
	eventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	eventInvoicePaymentFailed    = "invoice.payment_failed"
	eventSubscriptionUpdated     = "customer.subscription.updated"
	eventSubscriptionDeleted     = "customer.subscription.deleted"
)

// Event is the tagged union of provider events the reconciler consumes.
// Concrete event types are produced by ParseEvent; nothing downstream ever
// touches raw payload JSON.
type Event interface {
	// EventID is the provider's event id, used as the idempotency reference
	// in logs and error reports.
	EventID() string
	// CustomerID is the provider customer the event belongs to.
	CustomerID() string
}

type baseEvent struct {
	ID       string
	Customer string
}

func (e baseEvent) EventID() string    { return e.ID }
func (e baseEvent) CustomerID() string { return e.Customer }

// PaymentMethodAttached reports a new payment instrument on the customer.
type PaymentMethodAttached struct {
	baseEvent
	MethodID string
	Type     PaymentMethodType
	LastFour string
	Brand    string // card brand or bank name
	ExpMonth int64
	ExpYear  int64
}

// InvoicePaymentSucceeded reports a successfully charged invoice.
type InvoicePaymentSucceeded struct {
	baseEvent
	InvoiceID        string
	ProviderSubID    string
	BillingReason    BillingReason
	Status           InvoiceStatus
	Total            int64
	Subtotal         int64
	AmountPaid       int64
	Currency         string
	HostedInvoiceURL string
	InvoicePDF       string
	ProviderStatus   string // subscription status reported alongside the invoice
	PriceID          string // resolved from the single non-proration line
	UnitAmount       int64
	PaidAt           *time.Time
}

// InvoicePaymentFailed reports a failed charge attempt.
type InvoicePaymentFailed struct {
	baseEvent
	InvoiceID     string
	ProviderSubID string
}

// SubscriptionUpdated mirrors a provider-side subscription change.
type SubscriptionUpdated struct {
	baseEvent
	ProviderSubID  string
	ProviderStatus string
	PriceID        string
	UnitAmount     int64
	Currency       string
}

// SubscriptionDeleted reports a subscription reaching its end at the provider.
type SubscriptionDeleted struct {
	baseEvent
	ProviderSubID  string
	ProviderStatus string
}

type eventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type invoiceObject struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	Subscription  string `json:"subscription"`
	Status        string `json:"status"`
	BillingReason string `json:"billing_reason"`
	Total         int64  `json:"total"`
	Subtotal      int64  `json:"subtotal"`
	AmountPaid    int64  `json:"amount_paid"`
	Currency      string `json:"currency"`
	HostedURL     string `json:"hosted_invoice_url"`
	InvoicePDF    string `json:"invoice_pdf"`
	// SubscriptionStatus is the provider-reported subscription status carried
	// with the invoice event, used for status sync on activation.
	SubscriptionStatus string `json:"subscription_status"`
	StatusTransitions  struct {
		PaidAt int64 `json:"paid_at"` // unix seconds, zero when unpaid
	} `json:"status_transitions"`
	Lines struct {
		Data []invoiceLine `json:"data"`
	} `json:"lines"`
}

type invoiceLine struct {
	Proration bool  `json:"proration"`
	Amount    int64 `json:"amount"`
	Price     struct {
		ID         string `json:"id"`
		UnitAmount int64  `json:"unit_amount"`
	} `json:"price"`
}

type subscriptionObject struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
	Items    struct {
		Data []struct {
			Price struct {
				ID         string `json:"id"`
				UnitAmount int64  `json:"unit_amount"`
				Currency   string `json:"currency"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

type paymentMethodObject struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Type     string `json:"type"`
	Card     *struct {
		Brand    string `json:"brand"`
		LastFour string `json:"last4"`
		ExpMonth int64  `json:"exp_month"`
		ExpYear  int64  `json:"exp_year"`
	} `json:"card"`
	BankAccount *struct {
		BankName string `json:"bank_name"`
		LastFour string `json:"last4"`
	} `json:"us_bank_account"`
	SEPADebit *struct {
		BankCode string `json:"bank_code"`
		LastFour string `json:"last4"`
	} `json:"sepa_debit"`
}

func malformed(format string, args ...any) error {
	return errors.Join(ErrMalformedEvent, fmt.Errorf(format, args...))
}

// ParseEvent validates a raw provider payload and produces the typed event.
// Missing or unknown required fields are rejected here, at the boundary,
// instead of surfacing as runtime failures deep in handling logic. Event
// types outside the handled set return ErrUnhandledEventType.
func ParseEvent(payload []byte) (Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, errors.Join(ErrMalformedEvent, err)
	}
	if env.ID == "" {
		return nil, malformed("event id is missing")
	}
	if env.Type == "" {
		return nil, malformed("event type is missing")
	}
	if len(env.Data.Object) == 0 {
		return nil, malformed("event %s has no data object", env.ID)
	}

	switch env.Type {
	case eventInvoicePaymentSucceeded:
		return parseInvoicePaymentSucceeded(env)
	case eventInvoicePaymentFailed:
		return parseInvoicePaymentFailed(env)
	case eventSubscriptionUpdated, eventSubscriptionDeleted:
		return parseSubscriptionEvent(env)
	case eventPaymentMethodAttached:
		return parsePaymentMethodAttached(env)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnhandledEventType, env.Type)
	}
}

func parseInvoicePaymentSucceeded(env eventEnvelope) (Event, error) {
	var inv invoiceObject
	if err := json.Unmarshal(env.Data.Object, &inv); err != nil {
		return nil, errors.Join(ErrMalformedEvent, err)
	}
	if inv.ID == "" || inv.Customer == "" || inv.Subscription == "" {
		return nil, malformed("invoice event %s is missing invoice, customer, or subscription id", env.ID)
	}

	reason := BillingReason(inv.BillingReason)
	switch reason {
	case ReasonSubscriptionCreate, ReasonSubscriptionUpdate, ReasonSubscriptionCycle:
	default:
		return nil, malformed("invoice event %s has unknown billing reason %q", env.ID, inv.BillingReason)
	}

	event := &InvoicePaymentSucceeded{
		baseEvent:        baseEvent{ID: env.ID, Customer: inv.Customer},
		InvoiceID:        inv.ID,
		ProviderSubID:    inv.Subscription,
		BillingReason:    reason,
		Status:           InvoiceStatus(inv.Status),
		Total:            inv.Total,
		Subtotal:         inv.Subtotal,
		AmountPaid:       inv.AmountPaid,
		Currency:         inv.Currency,
		HostedInvoiceURL: inv.HostedURL,
		InvoicePDF:       inv.InvoicePDF,
		ProviderStatus:   inv.SubscriptionStatus,
	}
	if inv.StatusTransitions.PaidAt != 0 {
		paidAt := time.Unix(inv.StatusTransitions.PaidAt, 0).UTC()
		event.PaidAt = &paidAt
	}

	// The new plan's line is the single non-proration entry. Zero or several
	// such lines would make the price resolution ambiguous, so they are
	// rejected outright for the reasons that consume the price.
	if reason == ReasonSubscriptionCreate || reason == ReasonSubscriptionUpdate {
		var plain []invoiceLine
		for _, line := range inv.Lines.Data {
			if !line.Proration {
				plain = append(plain, line)
			}
		}
		if len(plain) != 1 {
			return nil, malformed("invoice event %s has %d non-proration lines, want exactly 1", env.ID, len(plain))
		}
		if plain[0].Price.ID == "" {
			return nil, malformed("invoice event %s line has no price id", env.ID)
		}
		event.PriceID = plain[0].Price.ID
		event.UnitAmount = plain[0].Price.UnitAmount
	}

	return event, nil
}

func parseInvoicePaymentFailed(env eventEnvelope) (Event, error) {
	var inv invoiceObject
	if err := json.Unmarshal(env.Data.Object, &inv); err != nil {
		return nil, errors.Join(ErrMalformedEvent, err)
	}
	if inv.ID == "" || inv.Subscription == "" {
		return nil, malformed("invoice event %s is missing invoice or subscription id", env.ID)
	}

	return &InvoicePaymentFailed{
		baseEvent:     baseEvent{ID: env.ID, Customer: inv.Customer},
		InvoiceID:     inv.ID,
		ProviderSubID: inv.Subscription,
	}, nil
}

func parseSubscriptionEvent(env eventEnvelope) (Event, error) {
	var sub subscriptionObject
	if err := json.Unmarshal(env.Data.Object, &sub); err != nil {
		return nil, errors.Join(ErrMalformedEvent, err)
	}
	if sub.ID == "" || sub.Status == "" {
		return nil, malformed("subscription event %s is missing subscription id or status", env.ID)
	}

	if env.Type == eventSubscriptionDeleted {
		return &SubscriptionDeleted{
			baseEvent:      baseEvent{ID: env.ID, Customer: sub.Customer},
			ProviderSubID:  sub.ID,
			ProviderStatus: sub.Status,
		}, nil
	}

	event := &SubscriptionUpdated{
		baseEvent:      baseEvent{ID: env.ID, Customer: sub.Customer},
		ProviderSubID:  sub.ID,
		ProviderStatus: sub.Status,
	}
	if len(sub.Items.Data) > 0 {
		event.PriceID = sub.Items.Data[0].Price.ID
		event.UnitAmount = sub.Items.Data[0].Price.UnitAmount
		event.Currency = sub.Items.Data[0].Price.Currency
	}
	return event, nil
}

func parsePaymentMethodAttached(env eventEnvelope) (Event, error) {
	var pm paymentMethodObject
	if err := json.Unmarshal(env.Data.Object, &pm); err != nil {
		return nil, errors.Join(ErrMalformedEvent, err)
	}
	if pm.ID == "" || pm.Customer == "" {
		return nil, malformed("payment method event %s is missing method or customer id", env.ID)
	}

	event := &PaymentMethodAttached{
		baseEvent: baseEvent{ID: env.ID, Customer: pm.Customer},
		MethodID:  pm.ID,
	}

	switch pm.Type {
	case "card":
		if pm.Card == nil {
			return nil, malformed("payment method event %s has type card but no card details", env.ID)
		}
		event.Type = MethodCard
		event.LastFour = pm.Card.LastFour
		event.Brand = pm.Card.Brand
		event.ExpMonth = pm.Card.ExpMonth
		event.ExpYear = pm.Card.ExpYear
	case "us_bank_account":
		if pm.BankAccount == nil {
			return nil, malformed("payment method event %s has type us_bank_account but no bank details", env.ID)
		}
		event.Type = MethodBankAccount
		event.LastFour = pm.BankAccount.LastFour
		event.Brand = pm.BankAccount.BankName
	case "sepa_debit":
		if pm.SEPADebit == nil {
			return nil, malformed("payment method event %s has type sepa_debit but no sepa details", env.ID)
		}
		event.Type = MethodSEPA
		event.LastFour = pm.SEPADebit.LastFour
		event.Brand = pm.SEPADebit.BankCode
	default:
		return nil, malformed("payment method event %s has unknown type %q", env.ID, pm.Type)
	}

	return event, nil
}
