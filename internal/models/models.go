// Package models defines the core data structures for SwiftSend.
//
// It includes the delivery session entity, status enums, and the validation
// errors shared across modules.
package models

import (
	"errors"
	"time"
)

// SessionStatus represents the lifecycle status of a delivery session.
type SessionStatus string

const (
	// StatusPending indicates the delivery was created but no rider is assigned.
	StatusPending SessionStatus = "pending"
	// StatusAssigned indicates a rider was assigned but has not yet accepted.
	StatusAssigned SessionStatus = "assigned"
	// StatusActive indicates the rider accepted the assignment.
	StatusActive SessionStatus = "active"
	// StatusPickedUp indicates the rider collected the package.
	StatusPickedUp SessionStatus = "picked_up"
	// StatusInTransit indicates the rider is en route to the customer.
	StatusInTransit SessionStatus = "in_transit"
	// StatusArrived indicates the rider reached the destination.
	StatusArrived SessionStatus = "arrived"
	// StatusCompleted indicates the handoff was confirmed. Terminal.
	StatusCompleted SessionStatus = "completed"
	// StatusCancelled indicates the delivery was cancelled. Terminal.
	StatusCancelled SessionStatus = "cancelled"
)

// Validation constants shared across modules.
const (
	// StopCodeLength is the number of digits in a stop code.
	StopCodeLength = 4
	// MaxStopCodeAttempts is the number of wrong stop-code entries allowed
	// before the check locks.
	MaxStopCodeAttempts = 5
	// StopCodeLockDuration is how long the stop-code check stays locked
	// after too many wrong attempts.
	StopCodeLockDuration = 15 * time.Minute
	// MinRating and MaxRating bound customer ratings.
	MinRating = 1
	MaxRating = 5
	// PendingStaleness is the window after which an unaccepted pending
	// session stops counting as active from the customer's point of view.
	PendingStaleness = 48 * time.Hour
	// LinkCodeTTL is how long a pending link code stays valid.
	LinkCodeTTL = 30 * time.Minute
)

// Error variables for validation and precondition failures.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrRiderNotFound       = errors.New("rider not found")
	ErrVendorNotFound      = errors.New("vendor not found")
	ErrSessionTerminal     = errors.New("session is in a terminal state")
	ErrNotAssignee         = errors.New("session is not assigned to this rider")
	ErrWrongPriorStatus    = errors.New("session is not in the expected prior status")
	ErrWrongStopCode       = errors.New("stop code does not match")
	ErrStopCodeLocked      = errors.New("stop code entry is locked")
	ErrAlreadyRated        = errors.New("session already has a rating")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
	ErrMissingDestination  = errors.New("destination address is required")
	ErrInvalidPhone        = errors.New("phone number is not a valid mobile number")
	ErrLinkCodeNotFound    = errors.New("link code not found or expired")
	ErrPhoneAlreadyLinked  = errors.New("phone is already linked to a vendor")
	ErrVendorAlreadyLinked = errors.New("vendor already has a linked phone")
	ErrSessionNotCompleted = errors.New("session is not completed")
)

// IsValidSessionStatus checks if the given status is one of the known values.
func IsValidSessionStatus(s SessionStatus) bool {
	switch s {
	case StatusPending, StatusAssigned, StatusActive, StatusPickedUp,
		StatusInTransit, StatusArrived, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status permits no further transitions.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// GeoPoint is an optional destination coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DeliverySession is the central entity: one delivery from creation to
// completion or cancellation.
type DeliverySession struct {
	ID       string `json:"id"`
	RefCode  string `json:"ref_code"` // human-readable, e.g. "ORD-4821"
	VendorID string `json:"vendor_id"`

	RiderID    string `json:"rider_id,omitempty"`
	RiderName  string `json:"rider_name,omitempty"`
	RiderPhone string `json:"rider_phone,omitempty"`

	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`

	Destination string    `json:"destination"`
	Geo         *GeoPoint `json:"geo,omitempty"`

	// StopCode is fixed at creation and never changes.
	StopCode  string `json:"stop_code"`
	UnlockPIN string `json:"unlock_pin,omitempty"`

	Status SessionStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	AssignedAt  *time.Time `json:"assigned_at,omitempty"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	PickedUpAt  *time.Time `json:"picked_up_at,omitempty"`
	InTransitAt *time.Time `json:"in_transit_at,omitempty"`
	ArrivedAt   *time.Time `json:"arrived_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Rating        int        `json:"rating,omitempty"` // 0 = unrated
	IssueReported bool       `json:"issue_reported,omitempty"`
	IssueAt       *time.Time `json:"issue_at,omitempty"`

	// Stop-code lockout bookkeeping.
	StopCodeAttempts int        `json:"stop_code_attempts,omitempty"`
	StopCodeLockedAt *time.Time `json:"stop_code_locked_at,omitempty"`
}

// HasRider reports whether rider identity fields are populated.
func (s *DeliverySession) HasRider() bool {
	return s.RiderID != ""
}

// ClearRider nulls all rider identity fields together so a declined
// assignment never leaves a partial rider behind.
func (s *DeliverySession) ClearRider() {
	s.RiderID = ""
	s.RiderName = ""
	s.RiderPhone = ""
}

// StopCodeLockedUntil returns the time the stop-code lock expires, or the
// zero time when no lock is in effect.
func (s *DeliverySession) StopCodeLockedUntil() time.Time {
	if s.StopCodeLockedAt == nil {
		return time.Time{}
	}
	return s.StopCodeLockedAt.Add(StopCodeLockDuration)
}

// ActiveForCustomer reports whether this session should appear in a
// customer's active view at the given time. Stale pending requests are
// filtered from the view only; the stored session is not mutated.
func (s *DeliverySession) ActiveForCustomer(now time.Time) bool {
	if s.Status.IsTerminal() {
		return false
	}
	if s.Status == StatusPending && now.Sub(s.CreatedAt) > PendingStaleness {
		return false
	}
	return true
}

// Validate performs creation-time validation on a session.
func (s *DeliverySession) Validate() error {
	if s.Destination == "" {
		return ErrMissingDestination
	}
	if len(s.StopCode) != StopCodeLength {
		return errors.New("stop code must be 4 digits")
	}
	for _, r := range s.StopCode {
		if r < '0' || r > '9' {
			return errors.New("stop code must be numeric")
		}
	}
	return nil
}
