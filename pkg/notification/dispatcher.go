package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/opinia/opinia/pkg/async"
	"github.com/opinia/opinia/pkg/billing"
	"github.com/opinia/opinia/pkg/email"
)

// Dispatcher delivers subscription lifecycle emails in the background.
type Dispatcher struct {
	sender    email.EmailSender
	log       *slog.Logger
	timeout   time.Duration
	planNames map[string]string // price id -> display name
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// WithSendTimeout bounds each background delivery attempt.
func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithPlanNames maps price ids to display names used in email bodies.
// Unmapped ids fall back to the raw price id.
func WithPlanNames(names map[string]string) Option {
	return func(d *Dispatcher) {
		d.planNames = names
	}
}

const defaultSendTimeout = 30 * time.Second

// NewDispatcher creates a Dispatcher. Panics if sender is nil to fail fast
// during initialization.
func NewDispatcher(sender email.EmailSender, opts ...Option) *Dispatcher {
	if sender == nil {
		panic("notification: EmailSender is required")
	}

	d := &Dispatcher{
		sender:  sender,
		log:     slog.Default(),
		timeout: defaultSendTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify composes and sends the lifecycle email for the given event. It
// returns immediately; delivery happens in a detached background call whose
// failure is logged and otherwise swallowed.
func (d *Dispatcher) Notify(ctx context.Context, kind billing.NotificationKind, org *billing.Organization, sub *billing.Subscription) {
	recipient := org.CompanyEmail
	if recipient == "" {
		recipient = org.AdministrativeEmail
	}
	if recipient == "" {
		d.log.WarnContext(ctx, "organization has no notification recipient",
			slog.String("organization_id", org.ID.String()),
			slog.String("kind", string(kind)))
		return
	}

	msg, err := composeMessage(kind, org, sub, d.planName(sub.PlanID))
	if err != nil {
		d.log.ErrorContext(ctx, "failed to compose notification email",
			slog.String("organization_id", org.ID.String()),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
		return
	}
	msg.SendTo = recipient

	// Detached from the request context: the webhook response must not wait
	// on the mail provider, and a canceled request must not lose the email.
	sendCtx := context.WithoutCancel(ctx)
	future := async.Async(sendCtx, msg, func(ctx context.Context, params email.SendEmailParams) (struct{}, error) {
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		return struct{}{}, d.sender.SendEmail(ctx, params)
	})

	go func() {
		if _, err := future.Await(); err != nil {
			d.log.Error("failed to send notification email",
				slog.String("organization_id", org.ID.String()),
				slog.String("kind", string(kind)),
				slog.String("error", err.Error()))
		}
	}()
}

func (d *Dispatcher) planName(priceID string) string {
	if name, ok := d.planNames[priceID]; ok {
		return name
	}
	return priceID
}
