// Package store provides storage backends for SwiftSend.
//
// It defines the Store interface over sessions, riders, vendors, identity
// links, link codes, and conversation contexts, with SQLite and PostgreSQL
// implementations plus an in-memory implementation for tests.
package store

import (
	"time"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
)

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string // database connection string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// Store is the persistence interface consumed by the engine, the identity
// resolver, the routers, and the dashboard API.
//
// Status-changing session writes must keep the canonical session row and the
// per-vendor index in step: UpdateSession applies both in a single
// transaction so the two views never diverge.
type Store interface {
	// Sessions.
	CreateSession(s models.DeliverySession) error
	GetSession(id string) (*models.DeliverySession, error)
	GetSessionByRef(vendorID, refCode string) (*models.DeliverySession, error)
	UpdateSession(s models.DeliverySession) error
	ListVendorSessions(vendorID string) ([]models.DeliverySession, error)
	ListRiderSessions(riderID string) ([]models.DeliverySession, error)
	FindSessionsByCustomerPhone(phone string) ([]models.DeliverySession, error)
	ListPendingBefore(cutoff time.Time) ([]models.DeliverySession, error)

	// Riders.
	CreateRider(r models.Rider) error
	GetRider(id string) (*models.Rider, error)
	UpdateRider(r models.Rider) error
	ListVendorRiders(vendorID string) ([]models.Rider, error)
	// FindRiderByPhones returns the first rider whose stored phone matches
	// any of the given format variants, or nil when none match.
	FindRiderByPhones(variants []string) (*models.Rider, error)

	// Vendors and phone links.
	CreateVendor(v models.Vendor) error
	GetVendor(id string) (*models.Vendor, error)
	ListVendors() ([]models.Vendor, error)
	GetVendorLinkByPhone(phone string) (*models.VendorLink, error)
	GetVendorLinkByVendor(vendorID string) (*models.VendorLink, error)
	// PutVendorLink establishes a phone-vendor binding, enforcing one phone
	// per vendor and one vendor per phone.
	PutVendorLink(link models.VendorLink) error

	// One-time link codes.
	PutLinkCode(code models.PendingLinkCode) error
	// ConsumeLinkCode deletes and returns the code if present and unexpired;
	// returns models.ErrLinkCodeNotFound otherwise.
	ConsumeLinkCode(code string, now time.Time) (*models.PendingLinkCode, error)
	DeleteExpiredLinkCodes(now time.Time) (int, error)

	// Conversation contexts. PutContext fully replaces any previous value.
	GetContext(phone string) (*models.ConversationContext, error)
	PutContext(c models.ConversationContext) error
	ClearContext(phone string) error

	Close() error
}
