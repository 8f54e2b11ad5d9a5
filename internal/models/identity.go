// Package models defines identity types: vendors, riders, and the phone
// mappings that bind WhatsApp numbers to accounts.
package models

import "time"

// Role identifies which party sent an inbound message.
type Role string

const (
	// RoleVendor is a business account that creates deliveries.
	RoleVendor Role = "vendor"
	// RoleRider is a courier fulfilling deliveries.
	RoleRider Role = "rider"
	// RoleCustomer is a delivery recipient known only through sessions.
	RoleCustomer Role = "customer"
	// RoleUnknown is an unrecognized sender; routed to vendor onboarding.
	RoleUnknown Role = "unknown"
)

// Vendor is a business account. Vendors are created through the dashboard;
// the conversational core only reads them and binds phones via link codes.
type Vendor struct {
	ID           string    `json:"id"`
	BusinessName string    `json:"business_name"`
	Timezone     string    `json:"timezone,omitempty"` // e.g. "Africa/Lagos"
	CreatedAt    time.Time `json:"created_at"`
}

// Rider is a courier registered by a vendor. Phone is stored in whatever
// format the vendor typed; lookups must tolerate local and international
// variants.
type Rider struct {
	ID          string    `json:"id"`
	VendorID    string    `json:"vendor_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Active      bool      `json:"active"`
	Deliveries  int       `json:"deliveries"`   // completed via stop code
	RatingSum   int       `json:"rating_sum"`   // running sum of ratings
	RatingCount int       `json:"rating_count"` // number of ratings received
	CreatedAt   time.Time `json:"created_at"`
}

// AverageRating returns the rider's running average rating, or 0 when the
// rider has never been rated.
func (r *Rider) AverageRating() float64 {
	if r.RatingCount == 0 {
		return 0
	}
	return float64(r.RatingSum) / float64(r.RatingCount)
}

// VendorLink binds a WhatsApp phone to a vendor account. One phone per
// vendor, one vendor per phone.
type VendorLink struct {
	Phone    string    `json:"phone"`
	VendorID string    `json:"vendor_id"`
	LinkedAt time.Time `json:"linked_at"`
}

// PendingLinkCode is an ephemeral one-time code awaiting exchange through
// the dashboard. Consumed once, then deleted.
type PendingLinkCode struct {
	Code      string    `json:"code"`
	Phone     string    `json:"phone"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the code is past its expiry at the given time.
func (p *PendingLinkCode) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
