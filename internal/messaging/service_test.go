package messaging

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
	"github.com/SwiftSendNG/SwiftSend/internal/wacloud"
)

func TestRenderButtonsAsText(t *testing.T) {
	buttons := []models.Button{{ID: "accept|s1", Title: "Accept"}, {ID: "decline|s1", Title: "Decline"}}
	out := renderButtonsAsText("New delivery to 12 Ikorodu Rd.", buttons, "SwiftSend", "Reply with a number")

	if !strings.HasPrefix(out, "SwiftSend\n\n") {
		t.Errorf("header missing: %q", out)
	}
	if !strings.Contains(out, "1. Accept") || !strings.Contains(out, "2. Decline") {
		t.Errorf("numbered options missing: %q", out)
	}
	if !strings.HasSuffix(out, "Reply with a number") {
		t.Errorf("footer missing: %q", out)
	}
}

func TestRenderButtonsAsTextNoHeaderFooter(t *testing.T) {
	out := renderButtonsAsText("Pick one", []models.Button{{Title: "Yes"}}, "", "")
	if strings.HasPrefix(out, "\n") || strings.HasSuffix(out, "\n") {
		t.Errorf("empty header/footer should add no padding: %q", out)
	}
}

func TestRenderListAsTextNumbersAcrossSections(t *testing.T) {
	sections := []models.ListSection{
		{Title: "Active", Rows: []models.ListRow{{Title: "ORD-1001", Description: "in transit"}}},
		{Title: "Pending", Rows: []models.ListRow{{Title: "ORD-1002"}, {Title: "ORD-1003"}}},
	}
	out := renderListAsText("Your deliveries", sections)

	if !strings.Contains(out, "Active:") || !strings.Contains(out, "Pending:") {
		t.Errorf("section titles missing: %q", out)
	}
	if !strings.Contains(out, "1. ORD-1001 - in transit") {
		t.Errorf("row with description wrong: %q", out)
	}
	// Numbering continues across sections.
	if !strings.Contains(out, "3. ORD-1003") {
		t.Errorf("numbering should not reset per section: %q", out)
	}
}

func TestCloudServiceMapsWindowClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":131047,"type":"OAuthException","message":"Re-engagement message"}}`))
	}))
	defer srv.Close()

	client, err := wacloud.NewClient(wacloud.WithToken("tok"), wacloud.WithPhoneNumberID("12345"), wacloud.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	svc := NewCloudService(client)

	err = svc.SendText(context.Background(), "2348011112222", "hello")
	if !errors.Is(err, ErrWindowClosed) {
		t.Errorf("expected ErrWindowClosed, got %v", err)
	}
}

func TestCloudServicePassesOtherErrorsThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":190,"type":"OAuthException","message":"Invalid OAuth access token"}}`))
	}))
	defer srv.Close()

	client, _ := wacloud.NewClient(wacloud.WithToken("tok"), wacloud.WithPhoneNumberID("12345"), wacloud.WithBaseURL(srv.URL))
	svc := NewCloudService(client)

	err := svc.SendText(context.Background(), "2348011112222", "hello")
	if err == nil || errors.Is(err, ErrWindowClosed) {
		t.Errorf("auth failure must not masquerade as a closed window: %v", err)
	}
}

func TestCloudServiceValidateRecipient(t *testing.T) {
	svc := NewCloudService(nil)

	got, err := svc.ValidateAndCanonicalizeRecipient("08011112222")
	if err != nil || got != "2348011112222" {
		t.Errorf("local form should canonicalize, got %q, %v", got, err)
	}
	if _, err := svc.ValidateAndCanonicalizeRecipient("12345"); !errors.Is(err, models.ErrInvalidPhone) {
		t.Errorf("expected ErrInvalidPhone, got %v", err)
	}
}
