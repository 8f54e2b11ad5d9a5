package messaging

import (
	"context"
	"errors"
	"log/slog"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
	"github.com/SwiftSendNG/SwiftSend/internal/util"
)

// DefaultTemplateName is the pre-approved template used to reach recipients
// outside the messaging window.
const DefaultTemplateName = "delivery_update"

// DefaultTemplateLang is the language code for the fallback template.
const DefaultTemplateLang = "en"

// Dispatcher fans session notifications out through a Gateway. Delivery
// failures are logged and never propagated: a failed notification must not
// roll back the state transition that produced it.
type Dispatcher struct {
	gateway      Gateway
	templateName string
	templateLang string
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTemplate overrides the fallback template name and language.
func WithTemplate(name, lang string) DispatcherOption {
	return func(d *Dispatcher) {
		d.templateName = name
		d.templateLang = lang
	}
}

// NewDispatcher creates a Dispatcher over the given gateway.
func NewDispatcher(gateway Gateway, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		gateway:      gateway,
		templateName: DefaultTemplateName,
		templateLang: DefaultTemplateLang,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DispatchAll delivers each notification in order, continuing past failures.
func (d *Dispatcher) DispatchAll(ctx context.Context, notifications []models.Notification) {
	for _, n := range notifications {
		d.Dispatch(ctx, n)
	}
}

// Dispatch delivers a single notification. If the recipient is outside the
// messaging window, delivery is retried through the fallback template; if
// that also fails and the notification names an initiator, a manual-share
// text is sent to the initiator instead. Urgent notifications escalate to
// the initiator on any delivery failure, not just a closed window.
func (d *Dispatcher) Dispatch(ctx context.Context, n models.Notification) {
	to, err := d.gateway.ValidateAndCanonicalizeRecipient(n.To)
	if err != nil {
		slog.Error("Dispatcher invalid notification recipient", "to", util.MaskPhone(n.To), "error", err)
		return
	}

	err = d.send(ctx, to, n)
	if err == nil {
		return
	}

	if errors.Is(err, ErrWindowClosed) {
		slog.Info("Dispatcher messaging window closed, retrying via template", "to", util.MaskPhone(to))
		terr := d.gateway.SendTemplate(ctx, to, d.templateName, d.templateLang, []string{n.Body})
		if terr == nil {
			return
		}
		slog.Error("Dispatcher template fallback failed", "to", util.MaskPhone(to), "error", terr)
		d.shareWithInitiator(ctx, n)
		return
	}

	slog.Error("Dispatcher notification delivery failed", "to", util.MaskPhone(to), "kind", n.Kind, "error", err)
	if n.Urgent {
		d.shareWithInitiator(ctx, n)
	}
}

func (d *Dispatcher) send(ctx context.Context, to string, n models.Notification) error {
	switch n.Kind {
	case models.NotifyButtons:
		return d.gateway.SendButtons(ctx, to, n.Body, n.Buttons, n.Header, n.Footer)
	case models.NotifyList:
		return d.gateway.SendList(ctx, to, n.Body, n.ListButton, n.ListSections)
	default:
		return d.gateway.SendText(ctx, to, n.Body)
	}
}

// shareWithInitiator asks the party who triggered the notification to relay
// it manually, since the intended recipient is unreachable on WhatsApp.
func (d *Dispatcher) shareWithInitiator(ctx context.Context, n models.Notification) {
	if n.Initiator == "" || n.Initiator == n.To {
		return
	}
	init, err := d.gateway.ValidateAndCanonicalizeRecipient(n.Initiator)
	if err != nil {
		slog.Error("Dispatcher invalid initiator recipient", "initiator", util.MaskPhone(n.Initiator), "error", err)
		return
	}
	body := "We couldn't reach " + util.MaskPhone(n.To) + " on WhatsApp. Please share this with them directly:\n\n" + n.Body
	if err := d.gateway.SendText(ctx, init, body); err != nil {
		slog.Error("Dispatcher manual-share to initiator failed", "initiator", util.MaskPhone(init), "error", err)
	}
}
