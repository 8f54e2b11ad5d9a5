package wacloud

import (
	"testing"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
)

func wrapMessages(messages string) []byte {
	return []byte(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "entry-1",
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"messages": [` + messages + `]
				}
			}]
		}]
	}`)
}

func TestParseWebhookRejectsGarbage(t *testing.T) {
	if _, err := ParseWebhook([]byte("not json")); err == nil {
		t.Error("expected decode error")
	}
}

func TestExtractTextMessage(t *testing.T) {
	payload, err := ParseWebhook(wrapMessages(`{
		"id": "wamid.1",
		"from": "2348011112222",
		"timestamp": "1756500000",
		"type": "text",
		"text": {"body": "new delivery"}
	}`))
	if err != nil {
		t.Fatalf("ParseWebhook failed: %v", err)
	}

	msgs := ExtractMessages(payload)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	m := msgs[0]
	if m.Type != models.MessageTypeText || m.Text != "new delivery" {
		t.Errorf("unexpected message %+v", m)
	}
	if m.From != "2348011112222" || m.ID != "wamid.1" {
		t.Errorf("sender fields lost: %+v", m)
	}
	if m.Timestamp != 1756500000 {
		t.Errorf("timestamp not parsed: %d", m.Timestamp)
	}
}

func TestExtractButtonReply(t *testing.T) {
	payload, _ := ParseWebhook(wrapMessages(`{
		"id": "wamid.2",
		"from": "2348011112222",
		"type": "interactive",
		"interactive": {
			"type": "button_reply",
			"button_reply": {"id": "accept|s1", "title": "Accept"}
		}
	}`))

	msgs := ExtractMessages(payload)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	m := msgs[0]
	if m.Type != models.MessageTypeButton || m.ButtonID != "accept|s1" || m.ButtonTitle != "Accept" {
		t.Errorf("unexpected button message %+v", m)
	}
}

func TestExtractListReply(t *testing.T) {
	payload, _ := ParseWebhook(wrapMessages(`{
		"id": "wamid.3",
		"from": "2348011112222",
		"type": "interactive",
		"interactive": {
			"type": "list_reply",
			"list_reply": {"id": "assign|rd_1|s1", "title": "Tunde"}
		}
	}`))

	msgs := ExtractMessages(payload)
	if len(msgs) != 1 || msgs[0].Type != models.MessageTypeList {
		t.Fatalf("expected a list reply, got %+v", msgs)
	}
	if msgs[0].ListReplyID != "assign|rd_1|s1" {
		t.Errorf("unexpected list reply id %q", msgs[0].ListReplyID)
	}
	if msgs[0].ButtonTitle != "Tunde" {
		t.Errorf("row title should survive normalization for text fallback, got %q", msgs[0].ButtonTitle)
	}
}

func TestExtractTemplateButtonReply(t *testing.T) {
	payload, _ := ParseWebhook(wrapMessages(`{
		"id": "wamid.4",
		"from": "2348011112222",
		"type": "button",
		"button": {"payload": "btn_status", "text": "Check status"}
	}`))

	msgs := ExtractMessages(payload)
	if len(msgs) != 1 || msgs[0].Type != models.MessageTypeButton {
		t.Fatalf("expected a button message, got %+v", msgs)
	}
	if msgs[0].ButtonID != "btn_status" {
		t.Errorf("unexpected payload %q", msgs[0].ButtonID)
	}
}

func TestExtractLocation(t *testing.T) {
	payload, _ := ParseWebhook(wrapMessages(`{
		"id": "wamid.5",
		"from": "2348011112222",
		"type": "location",
		"location": {"latitude": 6.5244, "longitude": 3.3792, "address": "Lagos Island"}
	}`))

	msgs := ExtractMessages(payload)
	if len(msgs) != 1 || msgs[0].Type != models.MessageTypeLocation {
		t.Fatalf("expected a location message, got %+v", msgs)
	}
	m := msgs[0]
	if m.Latitude != 6.5244 || m.Longitude != 3.3792 || m.Address != "Lagos Island" {
		t.Errorf("location fields lost: %+v", m)
	}
}

func TestExtractSkipsStatusOnlyEvents(t *testing.T) {
	payload, err := ParseWebhook([]byte(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "entry-1",
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"statuses": [{"id": "wamid.9", "status": "delivered", "timestamp": "1756500000"}]
				}
			}]
		}]
	}`))
	if err != nil {
		t.Fatalf("ParseWebhook failed: %v", err)
	}
	if msgs := ExtractMessages(payload); len(msgs) != 0 {
		t.Errorf("status-only event should yield no messages, got %+v", msgs)
	}
}

func TestExtractKeepsMediaAsMarker(t *testing.T) {
	payload, _ := ParseWebhook(wrapMessages(`{
		"id": "wamid.6",
		"from": "2348011112222",
		"type": "image"
	}`))

	msgs := ExtractMessages(payload)
	if len(msgs) != 1 || msgs[0].Type != models.MessageTypeMedia {
		t.Fatalf("media should survive as a marker, got %+v", msgs)
	}
}

func TestExtractDropsUnknownTypes(t *testing.T) {
	payload, _ := ParseWebhook(wrapMessages(`{
		"id": "wamid.7",
		"from": "2348011112222",
		"type": "reaction"
	}`))

	if msgs := ExtractMessages(payload); len(msgs) != 0 {
		t.Errorf("unsupported type should be dropped, got %+v", msgs)
	}
}
