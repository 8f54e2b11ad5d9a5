package messaging

import (
	"context"
	"strings"
	"testing"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
	"github.com/SwiftSendNG/SwiftSend/internal/twiliowhatsapp"
)

func TestTwilioServiceRecipientForm(t *testing.T) {
	svc := NewTwilioService(&twiliowhatsapp.MockClient{})

	got, err := svc.ValidateAndCanonicalizeRecipient("08011112222")
	if err != nil || got != "+2348011112222" {
		t.Errorf("expected plus-prefixed form, got %q, %v", got, err)
	}
	if _, err := svc.ValidateAndCanonicalizeRecipient("12345"); err == nil {
		t.Error("expected validation error")
	}
}

func TestTwilioServiceDegradesButtonsToText(t *testing.T) {
	mock := &twiliowhatsapp.MockClient{}
	svc := NewTwilioService(mock)

	buttons := []models.Button{{ID: "accept|s1", Title: "Accept"}, {ID: "decline|s1", Title: "Decline"}}
	if err := svc.SendButtons(context.Background(), "+2348011112222", "New delivery", buttons, "", ""); err != nil {
		t.Fatalf("SendButtons failed: %v", err)
	}

	if len(mock.SentMessages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(mock.SentMessages))
	}
	sent := mock.SentMessages[0]
	if sent.To != "+2348011112222" {
		t.Errorf("recipient = %q", sent.To)
	}
	if !strings.Contains(sent.Body, "1. Accept") || !strings.Contains(sent.Body, "2. Decline") {
		t.Errorf("buttons should degrade to a numbered menu: %q", sent.Body)
	}
}

func TestTwilioServiceDegradesListToText(t *testing.T) {
	mock := &twiliowhatsapp.MockClient{}
	svc := NewTwilioService(mock)

	sections := []models.ListSection{{Rows: []models.ListRow{{ID: "session|s1", Title: "ORD-1001"}}}}
	if err := svc.SendList(context.Background(), "2348011112222", "Your deliveries", "View", sections); err != nil {
		t.Fatalf("SendList failed: %v", err)
	}

	sent := mock.SentMessages[0]
	if sent.To != "+2348011112222" {
		t.Errorf("bare number should gain a plus: %q", sent.To)
	}
	if !strings.Contains(sent.Body, "1. ORD-1001") {
		t.Errorf("list should degrade to a numbered menu: %q", sent.Body)
	}
}

func TestTwilioServiceTemplateAsText(t *testing.T) {
	mock := &twiliowhatsapp.MockClient{}
	svc := NewTwilioService(mock)

	if err := svc.SendTemplate(context.Background(), "+2348011112222", "delivery_update", "en", []string{"Your rider has arrived."}); err != nil {
		t.Fatalf("SendTemplate failed: %v", err)
	}
	if !strings.Contains(mock.SentMessages[0].Body, "Your rider has arrived.") {
		t.Errorf("template params should ride in the body: %q", mock.SentMessages[0].Body)
	}
}
