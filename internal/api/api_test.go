package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SwiftSendNG/SwiftSend/internal/engine"
	"github.com/SwiftSendNG/SwiftSend/internal/messaging"
	"github.com/SwiftSendNG/SwiftSend/internal/models"
	"github.com/SwiftSendNG/SwiftSend/internal/router"
	"github.com/SwiftSendNG/SwiftSend/internal/store"
)

// testServer builds a Server over an in-memory store and a recording gateway.
func testServer(t *testing.T) (*Server, *store.InMemoryStore, *messaging.MockGateway) {
	t.Helper()
	st := store.NewInMemoryStore()
	eng := engine.NewEngine(st)
	gw := messaging.NewMockGateway()
	rt := router.NewRouter(st, eng, messaging.NewDispatcher(gw), store.NewDeduper(0))
	srv := NewServer(st, eng, rt, gw, WithVerifyToken("verify-me"))
	return srv, st, gw
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func TestWebhookVerifyChallenge(t *testing.T) {
	srv, _, _ := testServer(t)
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "12345" {
		t.Errorf("challenge not echoed: %q", rec.Body.String())
	}
}

func TestWebhookVerifyRejectsBadToken(t *testing.T) {
	srv, _, _ := testServer(t)
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func webhookEvent(messageID, from, text string) string {
	return `{
		"object": "whatsapp_business_account",
		"entry": [{"id": "e1", "changes": [{"field": "messages", "value": {
			"messaging_product": "whatsapp",
			"messages": [{"id": "` + messageID + `", "from": "` + from + `", "type": "text", "text": {"body": "` + text + `"}}]
		}}]}]
	}`
}

func TestWebhookReceiveProcessesAndAcks(t *testing.T) {
	srv, st, gw := testServer(t)
	st.CreateVendor(models.Vendor{ID: "v1", BusinessName: "Mama Put Kitchen"})
	st.PutVendorLink(models.VendorLink{Phone: "2348011110000", VendorID: "v1"})
	h := srv.Handler()

	body := webhookEvent("wamid.1", "2348011110000", "help")
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(gw.ReadIDs) != 1 || gw.ReadIDs[0] != "wamid.1" {
		t.Errorf("message not marked read: %+v", gw.ReadIDs)
	}
	if len(gw.Texts) != 1 {
		t.Fatalf("expected one routed reply, got %d", len(gw.Texts))
	}
	if !strings.Contains(gw.Texts[0].Body, "SwiftSend commands") {
		t.Errorf("unexpected reply: %q", gw.Texts[0].Body)
	}
}

func TestWebhookDuplicateEventProcessedOnce(t *testing.T) {
	srv, st, gw := testServer(t)
	st.CreateVendor(models.Vendor{ID: "v1", BusinessName: "Mama Put Kitchen"})
	st.PutVendorLink(models.VendorLink{Phone: "2348011110000", VendorID: "v1"})
	h := srv.Handler()

	body := webhookEvent("wamid.dup", "2348011110000", "help")
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d not acked: %d", i, rec.Code)
		}
	}

	if len(gw.Texts) != 1 {
		t.Errorf("redelivered event must be processed once, got %d replies", len(gw.Texts))
	}
}

func TestWebhookGarbagePayloadStillAcked(t *testing.T) {
	srv, _, _ := testServer(t)
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("garbage must still be acked to stop retries, got %d", rec.Code)
	}
}

func TestLinkCodeExchange(t *testing.T) {
	srv, st, _ := testServer(t)
	st.CreateVendor(models.Vendor{ID: "v1", BusinessName: "Mama Put Kitchen"})
	st.PutLinkCode(models.PendingLinkCode{Code: "ABC123", Phone: "2348011110000", ExpiresAt: time.Now().Add(time.Minute)})
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/link-code",
		bytes.NewReader([]byte(`{"code":"ABC123","vendor_id":"v1"}`)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Status != "ok" {
		t.Errorf("unexpected status %q", resp.Status)
	}

	link, err := st.GetVendorLinkByPhone("2348011110000")
	if err != nil || link == nil || link.VendorID != "v1" {
		t.Errorf("vendor link not created: %v, %v", link, err)
	}
	// Masked phone in the response, never the full number.
	if strings.Contains(rec.Body.String(), "2348011110000") {
		t.Errorf("response leaks the full phone: %s", rec.Body.String())
	}
}

func TestLinkCodeUnknownVendorAndCode(t *testing.T) {
	srv, st, _ := testServer(t)
	st.CreateVendor(models.Vendor{ID: "v1", BusinessName: "Mama Put Kitchen"})
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/link-code",
		bytes.NewReader([]byte(`{"code":"ABC123","vendor_id":"missing"}`)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown vendor: expected 404, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/link-code",
		bytes.NewReader([]byte(`{"code":"NOPE99","vendor_id":"v1"}`)))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown code: expected 404, got %d", rec.Code)
	}
}

func TestLinkCodeConflictWhenVendorAlreadyLinked(t *testing.T) {
	srv, st, _ := testServer(t)
	st.CreateVendor(models.Vendor{ID: "v1", BusinessName: "Mama Put Kitchen"})
	st.PutVendorLink(models.VendorLink{Phone: "2348099990000", VendorID: "v1"})
	st.PutLinkCode(models.PendingLinkCode{Code: "ABC123", Phone: "2348011110000", ExpiresAt: time.Now().Add(time.Minute)})
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/link-code",
		bytes.NewReader([]byte(`{"code":"ABC123","vendor_id":"v1"}`)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestCreateAndGetVendor(t *testing.T) {
	srv, _, _ := testServer(t)
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/vendors",
		bytes.NewReader([]byte(`{"business_name":"Mama Put Kitchen","timezone":"Africa/Lagos"}`)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	var created struct {
		Result models.Vendor `json:"result"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode created vendor: %v", err)
	}
	if created.Result.ID == "" || created.Result.BusinessName != "Mama Put Kitchen" {
		t.Fatalf("created vendor wrong: %+v", created.Result)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/vendors/"+created.Result.ID, nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("get vendor: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/vendors/missing", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing vendor: expected 404, got %d", rec.Code)
	}
}

func TestCreateVendorValidation(t *testing.T) {
	srv, _, _ := testServer(t)
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/vendors", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing business_name, got %d", rec.Code)
	}
}

func TestListSessionsRequiresVendorID(t *testing.T) {
	srv, st, _ := testServer(t)
	st.CreateSession(models.DeliverySession{ID: "s1", VendorID: "v1", Status: models.StatusPending, CreatedAt: time.Now()})
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without vendor_id, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sessions?vendor_id=v1", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"s1"`) {
		t.Errorf("session missing from listing: %s", rec.Body.String())
	}
}

func TestOverrideStatus(t *testing.T) {
	srv, st, _ := testServer(t)
	st.CreateSession(models.DeliverySession{ID: "s1", VendorID: "v1", Status: models.StatusPending, CreatedAt: time.Now()})
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPut, "/api/sessions/s1/status",
		bytes.NewReader([]byte(`{"status":"completed"}`)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	got, _ := st.GetSession("s1")
	if got.Status != models.StatusCompleted || got.CompletedAt == nil {
		t.Errorf("override not applied: %+v", got)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/sessions/s1/status",
		bytes.NewReader([]byte(`{"status":"flying"}`)))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status: expected 400, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/sessions/missing/status",
		bytes.NewReader([]byte(`{"status":"cancelled"}`)))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing session: expected 404, got %d", rec.Code)
	}
}

func TestCreateAndListRiders(t *testing.T) {
	srv, st, _ := testServer(t)
	st.CreateVendor(models.Vendor{ID: "v1", BusinessName: "Mama Put Kitchen"})
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/riders",
		bytes.NewReader([]byte(`{"vendor_id":"v1","name":"Tunde","phone":"08011112222"}`)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	var created struct {
		Result models.Rider `json:"result"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode created rider: %v", err)
	}
	if !strings.HasPrefix(created.Result.ID, "rd_") {
		t.Errorf("rider id = %q", created.Result.ID)
	}
	if created.Result.Phone != "2348011112222" {
		t.Errorf("phone should be canonicalized: %q", created.Result.Phone)
	}
	if !created.Result.Active {
		t.Error("new riders start active")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/riders?vendor_id=v1", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Tunde") {
		t.Errorf("rider listing wrong: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateRiderValidation(t *testing.T) {
	srv, st, _ := testServer(t)
	st.CreateVendor(models.Vendor{ID: "v1", BusinessName: "Mama Put Kitchen"})
	h := srv.Handler()

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing fields", `{"vendor_id":"v1"}`, http.StatusBadRequest},
		{"bad phone", `{"vendor_id":"v1","name":"Tunde","phone":"12345"}`, http.StatusBadRequest},
		{"unknown vendor", `{"vendor_id":"missing","name":"Tunde","phone":"08011112222"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/riders", bytes.NewReader([]byte(tc.body)))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := testServer(t)
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodDelete, "/webhook", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("webhook DELETE: expected 405, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/link-code", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("link-code GET: expected 405, got %d", rec.Code)
	}
}
