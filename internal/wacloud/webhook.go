// Package wacloud defines the inbound webhook payload types and the
// normalizer that turns raw events into canonical message records.
package wacloud

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
)

// WebhookPayload is the top-level POST body the Cloud API delivers.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one account-level entry in a webhook event.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change is one field change inside an entry.
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value carries the actual messages or status updates.
type Value struct {
	MessagingProduct string          `json:"messaging_product"`
	Messages         []Message       `json:"messages"`
	Statuses         []StatusUpdate  `json:"statuses"`
	Contacts         []Contact       `json:"contacts"`
	Metadata         json.RawMessage `json:"metadata"`
}

// Contact names the sender of an inbound message.
type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// Message is one raw inbound message.
type Message struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`

	Text *struct {
		Body string `json:"body"`
	} `json:"text"`

	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply"`
	} `json:"interactive"`

	Button *struct {
		Payload string `json:"payload"`
		Text    string `json:"text"`
	} `json:"button"`

	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Address   string  `json:"address"`
	} `json:"location"`
}

// StatusUpdate is a delivery/read status record. Status-only events are
// acknowledged and otherwise ignored.
type StatusUpdate struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ParseWebhook decodes a webhook POST body.
func ParseWebhook(body []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	return &payload, nil
}

// ExtractMessages normalizes every message in the payload into the canonical
// record. Status updates and unsupported media types are skipped; media
// messages are kept as a marker so routers can reply helpfully.
func ExtractMessages(payload *WebhookPayload) []models.IncomingMessage {
	var out []models.IncomingMessage
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if len(change.Value.Statuses) > 0 && len(change.Value.Messages) == 0 {
				slog.Debug("wacloud status-only event ignored", "statuses", len(change.Value.Statuses))
				continue
			}
			for _, raw := range change.Value.Messages {
				msg, ok := normalize(raw)
				if !ok {
					continue
				}
				out = append(out, msg)
			}
		}
	}
	return out
}

// normalize turns one raw message into the canonical record.
func normalize(raw Message) (models.IncomingMessage, bool) {
	msg := models.IncomingMessage{
		ID:   raw.ID,
		From: raw.From,
	}
	if ts, err := strconv.ParseInt(raw.Timestamp, 10, 64); err == nil {
		msg.Timestamp = ts
	}

	switch raw.Type {
	case "text":
		if raw.Text == nil {
			return msg, false
		}
		msg.Type = models.MessageTypeText
		msg.Text = raw.Text.Body
	case "interactive":
		if raw.Interactive == nil {
			return msg, false
		}
		if raw.Interactive.ButtonReply != nil {
			msg.Type = models.MessageTypeButton
			msg.ButtonID = raw.Interactive.ButtonReply.ID
			msg.ButtonTitle = raw.Interactive.ButtonReply.Title
		} else if raw.Interactive.ListReply != nil {
			msg.Type = models.MessageTypeList
			msg.ListReplyID = raw.Interactive.ListReply.ID
			// Title feeds the text-rule fallback for unrecognized row ids.
			msg.ButtonTitle = raw.Interactive.ListReply.Title
		} else {
			return msg, false
		}
	case "button":
		// Template reply buttons arrive as a distinct type.
		if raw.Button == nil {
			return msg, false
		}
		msg.Type = models.MessageTypeButton
		msg.ButtonID = raw.Button.Payload
		msg.ButtonTitle = raw.Button.Text
	case "location":
		if raw.Location == nil {
			return msg, false
		}
		msg.Type = models.MessageTypeLocation
		msg.Latitude = raw.Location.Latitude
		msg.Longitude = raw.Location.Longitude
		msg.Address = raw.Location.Address
	case "image", "audio", "video", "document", "sticker":
		msg.Type = models.MessageTypeMedia
	default:
		slog.Debug("wacloud ignoring unsupported message type", "type", raw.Type, "from", raw.From)
		return msg, false
	}
	return msg, true
}
