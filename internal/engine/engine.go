// Package engine drives delivery sessions through their lifecycle.
//
// Every operation re-reads the current session immediately before mutating
// it and rejects the call if the precondition (expected prior status,
// expected assignee) no longer holds. Writes go through the store's atomic
// dual-path session update. Operations return the notification intents the
// transition produced; a dispatcher delivers them separately so provider
// failures never roll back a transition.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
	"github.com/SwiftSendNG/SwiftSend/internal/store"
	"github.com/SwiftSendNG/SwiftSend/internal/util"
)

// Engine executes session state transitions against a Store.
type Engine struct {
	store store.Store
	now   func() time.Time
}

// Opts holds configuration options for the engine.
type Opts struct {
	Now func() time.Time
}

// Option defines a configuration option for the engine.
type Option func(*Opts)

// WithClock overrides the engine's time source (tests).
func WithClock(now func() time.Time) Option {
	return func(o *Opts) {
		o.Now = now
	}
}

// NewEngine creates an Engine over the given store.
func NewEngine(st store.Store, opts ...Option) *Engine {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{store: st, now: cfg.Now}
}

// getSession loads a session or returns models.ErrSessionNotFound.
func (e *Engine) getSession(id string) (*models.DeliverySession, error) {
	s, err := e.store.GetSession(id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if s == nil {
		return nil, models.ErrSessionNotFound
	}
	return s, nil
}

// requireAssignee checks the session is assigned to the given rider.
func requireAssignee(s *models.DeliverySession, riderID string) error {
	if s.RiderID == "" || s.RiderID != riderID {
		return models.ErrNotAssignee
	}
	return nil
}

// vendorPhone resolves the WhatsApp phone linked to a vendor, or "" when the
// vendor has no linked phone.
func (e *Engine) vendorPhone(vendorID string) string {
	link, err := e.store.GetVendorLinkByVendor(vendorID)
	if err != nil || link == nil {
		return ""
	}
	return link.Phone
}

// clearSessionContexts drops any pending conversation context that still
// points at the session. A terminal transition must not leave a follow-up
// armed, or the session could be mutated after completion or cancellation.
func (e *Engine) clearSessionContexts(s *models.DeliverySession) {
	for _, phone := range []string{e.vendorPhone(s.VendorID), s.RiderPhone, s.CustomerPhone} {
		if phone == "" {
			continue
		}
		c, err := e.store.GetContext(phone)
		if err != nil || c == nil || c.SessionID != s.ID {
			continue
		}
		if cerr := e.store.ClearContext(phone); cerr != nil {
			slog.Error("Engine clear context failed", "phone", util.MaskPhone(phone), "session_id", s.ID, "error", cerr)
		}
	}
}

// customerLabel names the customer for vendor-facing messages.
func customerLabel(s *models.DeliverySession) string {
	if s.CustomerName != "" {
		return s.CustomerName
	}
	if s.CustomerPhone != "" {
		return util.MaskPhone(s.CustomerPhone)
	}
	return "the customer"
}
