// Package router dispatches normalized inbound messages to role-specific
// command handlers. The same text means different things depending on who
// sent it: the root router resolves the sender's role first, then hands the
// parsed intent to the vendor, rider, or customer handler. Unknown senders
// always get the vendor onboarding flow.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SwiftSendNG/SwiftSend/internal/engine"
	"github.com/SwiftSendNG/SwiftSend/internal/genai"
	"github.com/SwiftSendNG/SwiftSend/internal/identity"
	"github.com/SwiftSendNG/SwiftSend/internal/intent"
	"github.com/SwiftSendNG/SwiftSend/internal/messaging"
	"github.com/SwiftSendNG/SwiftSend/internal/models"
	"github.com/SwiftSendNG/SwiftSend/internal/store"
	"github.com/SwiftSendNG/SwiftSend/internal/util"
)

// Router wires dedup, identity resolution, intent parsing, and the three
// role handlers together.
type Router struct {
	store      store.Store
	engine     *engine.Engine
	resolver   *identity.Resolver
	dispatcher *messaging.Dispatcher
	deduper    *store.Deduper
	classifier genai.Classifier // optional LLM fallback, may be nil
	now        func() time.Time
}

// Opts holds configuration options for the router.
type Opts struct {
	Classifier genai.Classifier
	Now        func() time.Time
}

// Option defines a configuration option for the router.
type Option func(*Opts)

// WithClassifier enables LLM-assisted classification of free text the rule
// parser could not place.
func WithClassifier(c genai.Classifier) Option {
	return func(o *Opts) {
		o.Classifier = c
	}
}

// WithClock overrides the router's time source (tests).
func WithClock(now func() time.Time) Option {
	return func(o *Opts) {
		o.Now = now
	}
}

// NewRouter creates a Router over its collaborators.
func NewRouter(st store.Store, eng *engine.Engine, dispatcher *messaging.Dispatcher, deduper *store.Deduper, opts ...Option) *Router {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Router{
		store:      st,
		engine:     eng,
		resolver:   identity.NewResolver(st),
		dispatcher: dispatcher,
		deduper:    deduper,
		classifier: cfg.Classifier,
		now:        cfg.Now,
	}
}

// HandleMessage processes one inbound message end to end. Errors from
// downstream operations are converted into user-facing replies; the caller
// always acks the webhook regardless.
func (r *Router) HandleMessage(ctx context.Context, msg models.IncomingMessage) {
	if msg.ID != "" && r.deduper.Seen(msg.ID) {
		slog.Debug("Router suppressed duplicate message", "message_id", msg.ID)
		return
	}
	if msg.Type == models.MessageTypeStatus {
		return
	}

	res, err := r.resolver.Resolve(msg.From)
	if err != nil {
		slog.Error("Router identity resolution failed", "from", util.MaskPhone(msg.From), "error", err)
		return
	}

	parsed := intent.Parse(msg)
	slog.Debug("Router dispatching message",
		"from", util.MaskPhone(res.Phone), "role", res.Role, "intent", parsed.Intent)

	var notifs []models.Notification
	switch res.Role {
	case models.RoleVendor:
		notifs = r.handleVendor(ctx, res, msg, parsed)
	case models.RoleRider:
		notifs = r.handleRider(ctx, res, msg, parsed)
	case models.RoleCustomer:
		notifs = r.handleCustomer(ctx, res, msg, parsed)
	default:
		notifs = r.handleUnknown(ctx, res, msg, parsed)
	}

	r.dispatcher.DispatchAll(ctx, notifs)
}

// reply builds a plain text notification back to the sender.
func reply(to, body string) models.Notification {
	return models.Notification{To: to, Kind: models.NotifyText, Body: body}
}

// replyButtons builds a button notification back to the sender.
func replyButtons(to, body string, buttons []models.Button) models.Notification {
	return models.Notification{To: to, Kind: models.NotifyButtons, Body: body, Buttons: buttons}
}

// replyList builds a list notification back to the sender.
func replyList(to, body, label string, sections []models.ListSection) models.Notification {
	return models.Notification{To: to, Kind: models.NotifyList, Body: body, ListButton: label, ListSections: sections}
}

// classifyFallback runs the optional LLM classifier over unknown free text
// and maps its label back onto an intent. Any failure keeps UNKNOWN.
func (r *Router) classifyFallback(ctx context.Context, parsed intent.Result) intent.Result {
	if r.classifier == nil || parsed.Intent != intent.IntentUnknown || parsed.Params.Raw == "" {
		return parsed
	}
	label, err := r.classifier.ClassifyIntent(ctx, parsed.Params.Raw)
	if err != nil {
		slog.Debug("Router classifier fallback failed", "error", err)
		return parsed
	}
	if label != "" && label != string(intent.IntentUnknown) {
		parsed.Intent = intent.Intent(label)
	}
	return parsed
}

// notFoundReply words a stale-reference failure for the user.
func notFoundReply(to string, err error) models.Notification {
	return reply(to, fmt.Sprintf("Sorry, that no longer exists (%v). Send *menu* to start over.", err))
}
