// Package identity resolves inbound sender phone numbers to a role.
//
// Resolution tries each strategy in a fixed order and stops at the first
// match: vendor link, rider phone, then customer with a live session. A
// sender matching none of them is unknown and gets the onboarding flow.
package identity

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
	"github.com/SwiftSendNG/SwiftSend/internal/store"
	"github.com/SwiftSendNG/SwiftSend/internal/util"
)

// Resolution describes who a sender is. Exactly one of Vendor and Rider is
// set for those roles; Sessions carries the customer's live sessions so the
// customer router does not refetch them.
type Resolution struct {
	Role     models.Role
	Phone    string // canonical international form
	Vendor   *models.Vendor
	Rider    *models.Rider
	Sessions []models.DeliverySession
}

// Resolver maps sender phones to roles using the store.
type Resolver struct {
	store store.Store
}

// NewResolver creates a Resolver over the given store.
func NewResolver(st store.Store) *Resolver {
	return &Resolver{store: st}
}

// Resolve determines the role for a sender phone number.
func (r *Resolver) Resolve(phone string) (*Resolution, error) {
	canonical := util.CanonicalizePhone(phone)
	if canonical == "" {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidPhone, phone)
	}

	// Vendor link takes precedence: a vendor who also rides still gets the
	// vendor menu on their linked number.
	link, err := r.store.GetVendorLinkByPhone(canonical)
	if err != nil {
		return nil, fmt.Errorf("resolve vendor link for %s: %w", util.MaskPhone(canonical), err)
	}
	if link != nil {
		vendor, err := r.store.GetVendor(link.VendorID)
		if err != nil {
			return nil, fmt.Errorf("resolve vendor %s: %w", link.VendorID, err)
		}
		if vendor == nil {
			// Dangling link; fall through to the other strategies.
			slog.Warn("Identity resolver found vendor link without vendor", "vendor_id", link.VendorID)
		} else {
			slog.Debug("Identity resolved sender as vendor", "phone", util.MaskPhone(canonical), "vendor_id", vendor.ID)
			return &Resolution{Role: models.RoleVendor, Phone: canonical, Vendor: vendor}, nil
		}
	}

	rider, err := r.store.FindRiderByPhones(util.PhoneVariants(canonical))
	if err != nil {
		return nil, fmt.Errorf("resolve rider for %s: %w", util.MaskPhone(canonical), err)
	}
	if rider != nil {
		slog.Debug("Identity resolved sender as rider", "phone", util.MaskPhone(canonical), "rider_id", rider.ID)
		return &Resolution{Role: models.RoleRider, Phone: canonical, Rider: rider}, nil
	}

	sessions, err := r.store.FindSessionsByCustomerPhone(canonical)
	if err != nil {
		return nil, fmt.Errorf("resolve customer sessions for %s: %w", util.MaskPhone(canonical), err)
	}
	now := time.Now()
	var live []models.DeliverySession
	for _, s := range sessions {
		if s.ActiveForCustomer(now) {
			live = append(live, s)
		}
	}
	// Terminal sessions still make the sender a customer so the rating and
	// status flows keep working after completion.
	if len(sessions) > 0 {
		slog.Debug("Identity resolved sender as customer", "phone", util.MaskPhone(canonical), "live_sessions", len(live))
		return &Resolution{Role: models.RoleCustomer, Phone: canonical, Sessions: live}, nil
	}

	slog.Debug("Identity sender unknown", "phone", util.MaskPhone(canonical))
	return &Resolution{Role: models.RoleUnknown, Phone: canonical}, nil
}
