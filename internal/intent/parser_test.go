package intent

import (
	"testing"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
)

func TestParseTextBasicIntents(t *testing.T) {
	cases := []struct {
		text string
		want Intent
	}{
		{"menu", IntentMenu},
		{"Hi", IntentMenu},
		{"good morning!", IntentMenu},
		{"new delivery", IntentCreateDelivery},
		{"I want to send a package", IntentCreateDelivery},
		{"dispatch", IntentCreateDelivery},
		{"status", IntentStatus},
		{"where is my order", IntentStatus},
		{"summary", IntentSummary},
		{"daily report", IntentSummary},
		{"riders", IntentListRiders},
		{"cancel", IntentCancel},
		{"export", IntentExport},
		{"help", IntentHelp},
		{"xyzzy", IntentUnknown},
		{"", IntentUnknown},
	}
	for _, tc := range cases {
		got := ParseText(tc.text)
		if got.Intent != tc.want {
			t.Errorf("ParseText(%q) = %s, want %s", tc.text, got.Intent, tc.want)
		}
	}
}

func TestParseTextRichDelivery(t *testing.T) {
	res := ParseText("deliver to 12 Ikorodu Rd for Ada, 08011112222")
	if res.Intent != IntentCreateDelivery {
		t.Fatalf("expected CREATE_DELIVERY, got %s", res.Intent)
	}
	if res.Params.Destination != "12 Ikorodu Rd" {
		t.Errorf("destination = %q", res.Params.Destination)
	}
	if res.Params.CustomerName != "Ada" {
		t.Errorf("customer name = %q", res.Params.CustomerName)
	}
	if res.Params.CustomerPhone != "08011112222" {
		t.Errorf("customer phone = %q", res.Params.CustomerPhone)
	}
}

func TestParseTextRichDeliveryInternationalPhone(t *testing.T) {
	res := ParseText("Delivery to 5 Allen Avenue Ikeja for Chigozie Okafor +2348033334444")
	if res.Intent != IntentCreateDelivery {
		t.Fatalf("expected CREATE_DELIVERY, got %s", res.Intent)
	}
	if res.Params.Destination != "5 Allen Avenue Ikeja" {
		t.Errorf("destination = %q", res.Params.Destination)
	}
	if res.Params.CustomerName != "Chigozie Okafor" {
		t.Errorf("customer name = %q", res.Params.CustomerName)
	}
	if res.Params.CustomerPhone != "+2348033334444" {
		t.Errorf("customer phone = %q", res.Params.CustomerPhone)
	}
}

func TestParseTextStatusTrailingRef(t *testing.T) {
	cases := []struct {
		text    string
		wantRef string
	}{
		{"status ORD-0042", "ORD-0042"},
		{"where is my order ord-0042?", "ord-0042"},
		{"track #ORD-0042", "ORD-0042"},
		{"status", ""},
		{"where is my order", ""},
	}
	for _, tc := range cases {
		res := ParseText(tc.text)
		if res.Intent != IntentStatus {
			t.Errorf("ParseText(%q) intent = %s, want STATUS", tc.text, res.Intent)
			continue
		}
		if res.Params.RefCode != tc.wantRef {
			t.Errorf("ParseText(%q) ref = %q, want %q", tc.text, res.Params.RefCode, tc.wantRef)
		}
	}
}

func TestParseLocationMessage(t *testing.T) {
	res := Parse(models.IncomingMessage{
		Type:      models.MessageTypeLocation,
		Latitude:  6.5244,
		Longitude: 3.3792,
		Address:   "Lagos Island",
	})
	if res.Intent != IntentLocationShared {
		t.Fatalf("expected LOCATION_SHARED, got %s", res.Intent)
	}
	if res.Params.Latitude != 6.5244 || res.Params.Address != "Lagos Island" {
		t.Errorf("location params lost: %+v", res.Params)
	}
}

func TestParseMenuButton(t *testing.T) {
	res := Parse(models.IncomingMessage{Type: models.MessageTypeButton, ButtonID: "btn_new_delivery", ButtonTitle: "New delivery"})
	if res.Intent != IntentCreateDelivery {
		t.Errorf("expected CREATE_DELIVERY, got %s", res.Intent)
	}
}

func TestParseUnrecognizedButtonFallsBackToTitle(t *testing.T) {
	res := Parse(models.IncomingMessage{Type: models.MessageTypeButton, ButtonID: "btn_mystery", ButtonTitle: "Cancel"})
	if res.Intent != IntentCancel {
		t.Errorf("expected title fallback to CANCEL, got %s", res.Intent)
	}
}

func TestParseStructuredReplyIDs(t *testing.T) {
	cases := []struct {
		id      string
		want    Intent
		session string
		rider   string
		rating  int
	}{
		{"accept|s1", IntentAccept, "s1", "", 0},
		{"decline|s1", IntentDecline, "s1", "", 0},
		{"status|s1", IntentStatus, "s1", "", 0},
		{"session|s1", IntentStatus, "s1", "", 0},
		{"cancel|s1", IntentCancel, "s1", "", 0},
		{"confirm|s1", IntentConfirm, "s1", "", 0},
		{"issue|s1", IntentReportIssue, "s1", "", 0},
		{"pickedup|s1", IntentPickedUp, "s1", "", 0},
		{"intransit|s1", IntentInTransit, "s1", "", 0},
		{"arrived|s1", IntentArrived, "s1", "", 0},
		{"assign|rd_1|s1", IntentAssignRider, "s1", "rd_1", 0},
		{"rate|s1|5", IntentRate, "s1", "", 5},
	}
	for _, tc := range cases {
		res := Parse(models.IncomingMessage{Type: models.MessageTypeList, ListReplyID: tc.id})
		if res.Intent != tc.want {
			t.Errorf("id %q intent = %s, want %s", tc.id, res.Intent, tc.want)
			continue
		}
		if res.Params.SessionID != tc.session || res.Params.RiderID != tc.rider || res.Params.Rating != tc.rating {
			t.Errorf("id %q params = %+v", tc.id, res.Params)
		}
	}
}

func TestParseReplyIDBuilders(t *testing.T) {
	if got := AssignID("rd_1", "s1"); got != "assign|rd_1|s1" {
		t.Errorf("AssignID = %q", got)
	}
	if got := SessionID(KindAccept, "s1"); got != "accept|s1" {
		t.Errorf("SessionID = %q", got)
	}
	if got := RateID("s1", 3); got != "rate|s1|3" {
		t.Errorf("RateID = %q", got)
	}
}

func TestParseLegacyAssignIDWithUnderscoredRider(t *testing.T) {
	// Rider ids may contain underscores; the session id is the rightmost
	// UUID-shaped suffix.
	sessionID := "0b9f8a64-16a1-4b0e-9c1a-2f3d4e5a6b7c"
	id := "assign_rider_rd_ab_12" + "_" + sessionID

	res := Parse(models.IncomingMessage{Type: models.MessageTypeButton, ButtonID: id})
	if res.Intent != IntentAssignRider {
		t.Fatalf("expected ASSIGN_RIDER, got %s", res.Intent)
	}
	if res.Params.RiderID != "rd_ab_12" {
		t.Errorf("rider id = %q", res.Params.RiderID)
	}
	if res.Params.SessionID != sessionID {
		t.Errorf("session id = %q", res.Params.SessionID)
	}
}

func TestParseLegacyStatusAndCancelIDs(t *testing.T) {
	sessionID := "0b9f8a64-16a1-4b0e-9c1a-2f3d4e5a6b7c"

	res := Parse(models.IncomingMessage{Type: models.MessageTypeButton, ButtonID: "status_" + sessionID})
	if res.Intent != IntentStatus || res.Params.SessionID != sessionID {
		t.Errorf("legacy status id parsed wrong: %+v", res)
	}

	res = Parse(models.IncomingMessage{Type: models.MessageTypeButton, ButtonID: "cancel_" + sessionID})
	if res.Intent != IntentCancel || res.Params.SessionID != sessionID {
		t.Errorf("legacy cancel id parsed wrong: %+v", res)
	}
}

func TestParseLegacyIDNonUUIDFallsBack(t *testing.T) {
	// A legacy-looking id without a UUID suffix falls back to the title text.
	res := Parse(models.IncomingMessage{Type: models.MessageTypeButton, ButtonID: "status_nonsense", ButtonTitle: "help"})
	if res.Intent != IntentHelp {
		t.Errorf("expected title fallback to HELP, got %s", res.Intent)
	}
}
