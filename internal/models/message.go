// Package models defines the canonical inbound message record and the
// building blocks for outbound interactive messages.
package models

// MessageType classifies a normalized inbound message.
type MessageType string

const (
	// MessageTypeText is a plain text message.
	MessageTypeText MessageType = "text"
	// MessageTypeButton is a button reply from an interactive message.
	MessageTypeButton MessageType = "button"
	// MessageTypeList is a list-row reply from an interactive message.
	MessageTypeList MessageType = "list"
	// MessageTypeLocation is a shared location.
	MessageTypeLocation MessageType = "location"
	// MessageTypeMedia is any media we do not process (image, audio, ...).
	MessageTypeMedia MessageType = "media"
	// MessageTypeStatus is a provider status update, acked and ignored.
	MessageTypeStatus MessageType = "status"
)

// IncomingMessage is the canonical record produced by the normalizer from a
// raw webhook payload. Everything downstream operates on this.
type IncomingMessage struct {
	ID   string      `json:"id"`   // provider-assigned message id, used for dedup
	From string      `json:"from"` // sender phone in international digits form
	Type MessageType `json:"type"`

	Text string `json:"text,omitempty"`

	ButtonID    string `json:"button_id,omitempty"`
	ButtonTitle string `json:"button_title,omitempty"`
	ListReplyID string `json:"list_reply_id,omitempty"`

	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Address   string  `json:"address,omitempty"`

	Timestamp int64 `json:"timestamp"`
}

// Button is one reply button on an outbound interactive message. WhatsApp
// allows at most three per message.
type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ListRow is one selectable row in an outbound list message.
type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ListSection groups rows in an outbound list message.
type ListSection struct {
	Title string    `json:"title,omitempty"`
	Rows  []ListRow `json:"rows"`
}

// NotificationKind distinguishes how a notification intent is delivered.
type NotificationKind string

const (
	// NotifyText delivers a plain text body.
	NotifyText NotificationKind = "text"
	// NotifyButtons delivers a body with reply buttons.
	NotifyButtons NotificationKind = "buttons"
	// NotifyList delivers a body with a selection list.
	NotifyList NotificationKind = "list"
)

// Notification is a data-only message intent produced by a state transition.
// A dispatcher delivers it; transition logic never talks to the provider
// directly.
type Notification struct {
	To   string           `json:"to"`
	Kind NotificationKind `json:"kind"`
	Body string           `json:"body"`

	Buttons []Button `json:"buttons,omitempty"`
	Header  string   `json:"header,omitempty"`
	Footer  string   `json:"footer,omitempty"`

	ListButton   string        `json:"list_button,omitempty"`
	ListSections []ListSection `json:"list_sections,omitempty"`

	// Initiator is the phone of the party whose action triggered the
	// transition. When delivery to To ultimately fails, the dispatcher
	// tells the initiator to share the update manually.
	Initiator string `json:"initiator,omitempty"`

	// Urgent marks notifications that must reach someone. When delivery
	// fails outright the dispatcher escalates to the initiator instead of
	// only logging the failure.
	Urgent bool `json:"urgent,omitempty"`
}
