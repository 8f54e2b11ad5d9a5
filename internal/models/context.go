// Package models defines the per-phone conversation context.
package models

import "time"

// PendingAction tags the single follow-up a phone may be waiting on.
// Contexts are whole values: a write replaces the previous context entirely,
// and terminal session transitions clear it.
type PendingAction string

const (
	// PendingRiderPick: a vendor just created a session and the next list
	// reply picks the rider for it.
	PendingRiderPick PendingAction = "rider_pick"
	// PendingCustomerPhone: a vendor chose to send the customer a tracking
	// link and the next message supplies the customer's phone.
	PendingCustomerPhone PendingAction = "customer_phone"
	// PendingStopCode: a rider's active delivery has arrived and the next
	// 4-digit message is treated as a stop-code entry.
	PendingStopCode PendingAction = "stop_code"
	// PendingRating: a customer was just prompted to rate a completed
	// delivery.
	PendingRating PendingAction = "rating"
)

// ConversationContext holds at most one pending follow-up action per phone.
type ConversationContext struct {
	Phone     string        `json:"phone"`
	Action    PendingAction `json:"action"`
	SessionID string        `json:"session_id"`
	UpdatedAt time.Time     `json:"updated_at"`
}
